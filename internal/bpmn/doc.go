// Package bpmn compiles normalized element and flow records into a BPMN 2.0
// XML document with its diagram-interchange section.
//
// Node selection is a table lookup over (ElementKind, Subkind); see Classify.
// The visual plane mirrors the logical process one to one: each node gets a
// BPMNShape and each compiled flow a BPMNEdge. Flows whose endpoints are not
// compiled nodes are dropped rather than failing the document.
package bpmn
