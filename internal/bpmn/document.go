package bpmn

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Namespaces declared on every document.
const (
	NamespaceModel  = "http://www.omg.org/spec/BPMN/20100524/MODEL"
	NamespaceBPMNDI = "http://www.omg.org/spec/BPMN/20100524/DI"
	NamespaceDC     = "http://www.omg.org/spec/DD/20100524/DC"
	NamespaceDI     = "http://www.omg.org/spec/DD/20100524/DI"
)

// Definitions is the document root.
type Definitions struct {
	XMLName         xml.Name `xml:"definitions"`
	Xmlns           string   `xml:"xmlns,attr"`
	XmlnsBPMNDI     string   `xml:"xmlns:bpmndi,attr"`
	XmlnsDC         string   `xml:"xmlns:dc,attr"`
	XmlnsDI         string   `xml:"xmlns:di,attr"`
	ID              string   `xml:"id,attr"`
	TargetNamespace string   `xml:"targetNamespace,attr"`
	Process         Process  `xml:"process"`
	Diagram         Diagram  `xml:"bpmndi:BPMNDiagram"`
}

// Process is the single logical process container.
type Process struct {
	ID    string         `xml:"id,attr"`
	Name  string         `xml:"name,attr"`
	Nodes []Node         // element name comes from Node.XMLName
	Flows []SequenceFlow `xml:"sequenceFlow"`
}

// Node is an event, task or gateway. XMLName carries the node tag.
type Node struct {
	XMLName    xml.Name
	ID         string `xml:"id,attr"`
	Name       string `xml:"name,attr,omitempty"`
	Definition *EventDefinition
}

// EventDefinition is the trigger nested in an intermediate event.
type EventDefinition struct {
	XMLName xml.Name
	ID      string `xml:"id,attr"`
}

// SequenceFlow connects two compiled nodes.
type SequenceFlow struct {
	ID        string `xml:"id,attr"`
	SourceRef string `xml:"sourceRef,attr"`
	TargetRef string `xml:"targetRef,attr"`
	Condition string `xml:"conditionExpression,omitempty"`
}

// Diagram is the visual sub-document.
type Diagram struct {
	ID    string `xml:"id,attr"`
	Plane Plane  `xml:"bpmndi:BPMNPlane"`
}

// Plane holds one shape per node and one edge per flow.
type Plane struct {
	ID          string  `xml:"id,attr"`
	BPMNElement string  `xml:"bpmnElement,attr"`
	Shapes      []Shape `xml:"bpmndi:BPMNShape"`
	Edges       []Edge  `xml:"bpmndi:BPMNEdge"`
}

type Shape struct {
	ID          string `xml:"id,attr"`
	BPMNElement string `xml:"bpmnElement,attr"`
	Bounds      Bounds `xml:"dc:Bounds"`
}

type Bounds struct {
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

type Edge struct {
	ID          string     `xml:"id,attr"`
	BPMNElement string     `xml:"bpmnElement,attr"`
	Waypoints   []Waypoint `xml:"di:waypoint"`
}

type Waypoint struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

// Document is a compiled topology plus what the compiler left out.
//
// SkippedElements and DroppedFlows are informational. Dangling flows are
// never an error.
type Document struct {
	Definitions     *Definitions
	SkippedElements []string
	DroppedFlows    []string
}

// Encode writes the XML declaration and the indented document.
func (d *Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d.Definitions); err != nil {
		return fmt.Errorf("encoding bpmn document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding bpmn document: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Bytes returns the encoded document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NodeCount is the number of compiled nodes.
func (d *Document) NodeCount() int { return len(d.Definitions.Process.Nodes) }

// FlowCount is the number of compiled sequence flows.
func (d *Document) FlowCount() int { return len(d.Definitions.Process.Flows) }
