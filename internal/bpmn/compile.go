package bpmn

import (
	"encoding/xml"
	"fmt"

	"github.com/google/uuid"

	"github.com/archay0/bpmnMATLAB/internal/ir"
)

// Fallbacks used when the process header is missing or incomplete.
const (
	DefaultProcessID   = "Process_1"
	DefaultProcessName = "Default Process"
)

// Shape defaults and the wrapped grid used when an element has no position.
const (
	DefaultWidth  = 100
	DefaultHeight = 80

	gridStep   = 150
	gridWrap   = 800
	gridTop    = 100
	gridRowGap = 150
)

type options struct {
	definitionsID string
}

// Option configures Compile.
type Option func(*options)

// WithDefinitionsID fixes the root id instead of generating one.
func WithDefinitionsID(id string) Option {
	return func(o *options) { o.definitionsID = id }
}

// Compile builds a BPMN document from a process header and normalized
// element and flow records.
//
// Every classified element becomes one node and one shape. Elements with an
// empty or repeated id, or a type that is not an event, task or gateway, are
// skipped. A flow compiles only when both endpoints are compiled nodes;
// otherwise it is dropped without error. Zero elements and zero flows yield
// an empty but well-formed process.
func Compile(header ir.Record, elements, flows []ir.Record, opts ...Option) *Document {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.definitionsID == "" {
		o.definitionsID = "Definitions_" + uuid.NewString()[:8]
	}

	processID, processName := DefaultProcessID, DefaultProcessName
	if header != nil {
		if id := header.String("process_id"); id != "" {
			processID = id
		}
		if name := header.String("process_name"); name != "" {
			processName = name
		}
	}

	defs := &Definitions{
		Xmlns:           NamespaceModel,
		XmlnsBPMNDI:     NamespaceBPMNDI,
		XmlnsDC:         NamespaceDC,
		XmlnsDI:         NamespaceDI,
		ID:              o.definitionsID,
		TargetNamespace: NamespaceModel,
		Process:         Process{ID: processID, Name: processName},
		Diagram: Diagram{
			ID: "BPMNDiagram_1",
			Plane: Plane{
				ID:          "BPMNPlane_" + processID,
				BPMNElement: processID,
			},
		},
	}
	doc := &Document{Definitions: defs}

	bounds := make(map[string]Bounds, len(elements))
	for _, el := range elements {
		id := el.String("element_id")
		if id == "" {
			doc.SkippedElements = append(doc.SkippedElements, id)
			continue
		}
		if _, dup := bounds[id]; dup {
			doc.SkippedElements = append(doc.SkippedElements, id)
			continue
		}
		kind, ok := Classify(el.String("element_type"), el.String("element_subtype"))
		if !ok {
			doc.SkippedElements = append(doc.SkippedElements, id)
			continue
		}

		defs.Process.Nodes = append(defs.Process.Nodes, newNode(id, el.String("element_name"), kind))

		b := shapeBounds(el, len(defs.Process.Nodes))
		bounds[id] = b
		defs.Diagram.Plane.Shapes = append(defs.Diagram.Plane.Shapes, Shape{
			ID:          "BPMNShape_" + id,
			BPMNElement: id,
			Bounds:      b,
		})
	}

	seen := make(map[string]bool, len(flows))
	for i, fl := range flows {
		id := fl.String("flow_id")
		if id == "" {
			id = fmt.Sprintf("FLOW_%03d", i+1)
		}
		src, dst := fl.String("source_ref"), fl.String("target_ref")
		from, okSrc := bounds[src]
		to, okDst := bounds[dst]
		if !okSrc || !okDst || seen[id] {
			doc.DroppedFlows = append(doc.DroppedFlows, id)
			continue
		}
		seen[id] = true

		defs.Process.Flows = append(defs.Process.Flows, SequenceFlow{
			ID:        id,
			SourceRef: src,
			TargetRef: dst,
			Condition: fl.String("condition_expr"),
		})
		defs.Diagram.Plane.Edges = append(defs.Diagram.Plane.Edges, Edge{
			ID:          "BPMNEdge_" + id,
			BPMNElement: id,
			Waypoints: []Waypoint{
				{X: from.X + from.Width, Y: from.Y + from.Height/2},
				{X: to.X, Y: to.Y + to.Height/2},
			},
		})
	}
	return doc
}

func newNode(id, name string, kind NodeKind) Node {
	n := Node{
		XMLName: xml.Name{Local: kind.Tag()},
		ID:      id,
		Name:    name,
	}
	if kind.Trigger != TriggerNone {
		n.Definition = &EventDefinition{
			XMLName: xml.Name{Local: triggerTags[kind.Trigger]},
			ID:      triggerIDPrefixes[kind.Trigger] + id,
		}
	}
	return n
}

// shapeBounds reads position and size from the element, falling back to
// the grid slot of the n-th compiled node (1-based).
func shapeBounds(el ir.Record, n int) Bounds {
	gx, gy := gridPosition(n)
	b := Bounds{X: gx, Y: gy, Width: DefaultWidth, Height: DefaultHeight}
	if x, ok := el.Float("position_x"); ok {
		b.X = x
	}
	if y, ok := el.Float("position_y"); ok {
		b.Y = y
	}
	if w, ok := el.Float("width"); ok && w > 0 {
		b.Width = w
	}
	if h, ok := el.Float("height"); ok && h > 0 {
		b.Height = h
	}
	return b
}

func gridPosition(n int) (x, y float64) {
	offset := n * gridStep
	return float64(offset % gridWrap), float64(gridTop + (offset/gridWrap)*gridRowGap)
}
