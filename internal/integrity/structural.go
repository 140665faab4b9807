package integrity

import (
	"fmt"

	"github.com/archay0/bpmnMATLAB/internal/bpmn"
	"github.com/archay0/bpmnMATLAB/internal/ir"
)

// Problem types reported by Structural.
const (
	ProblemMissingStart    = "missing_start_event"
	ProblemMissingEnd      = "missing_end_event"
	ProblemDanglingFlow    = "dangling_flow"
	ProblemNoIncoming      = "missing_incoming_flow"
	ProblemNoOutgoing      = "missing_outgoing_flow"
	ProblemUnreachable     = "unreachable_element"
	ProblemUnpairedGateway = "unpaired_gateway"
)

type node struct {
	id       string
	kind     bpmn.NodeKind
	incoming []string
	outgoing []string
}

func (n *node) isStart() bool { return n.kind.Sub == bpmn.SubStartEvent }
func (n *node) isEnd() bool   { return n.kind.Sub == bpmn.SubEndEvent }

// Structural checks the graph the document compiler would build.
//
// Only elements that compile to a node take part. Issues come out in a
// fixed order: missing start or end events, dangling flows in flow order,
// then per-node findings in element order.
func Structural(elements, flows []ir.Record) []ir.Issue {
	var nodes []*node
	byID := make(map[string]*node, len(elements))
	for _, el := range elements {
		id := el.String("element_id")
		if id == "" || byID[id] != nil {
			continue
		}
		kind, ok := bpmn.Classify(el.String("element_type"), el.String("element_subtype"))
		if !ok {
			continue
		}
		n := &node{id: id, kind: kind}
		nodes = append(nodes, n)
		byID[id] = n
	}

	issues := []ir.Issue{}
	var starts []*node
	hasEnd := false
	for _, n := range nodes {
		if n.isStart() {
			starts = append(starts, n)
		}
		if n.isEnd() {
			hasEnd = true
		}
	}
	if len(starts) == 0 {
		issues = append(issues, issue(ProblemMissingStart, "the process has no start event", ir.SeverityHigh))
	}
	if !hasEnd {
		issues = append(issues, issue(ProblemMissingEnd, "the process has no end event", ir.SeverityHigh))
	}

	for i, fl := range flows {
		id := fl.String("flow_id")
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
		}
		src, dst := fl.String("source_ref"), fl.String("target_ref")
		from, to := byID[src], byID[dst]
		if from == nil || to == nil {
			var missing []string
			if from == nil {
				missing = append(missing, src)
			}
			if to == nil {
				missing = append(missing, dst)
			}
			issues = append(issues, issue(ProblemDanglingFlow,
				fmt.Sprintf("flow %s references unknown element(s) %v", id, missing), ir.SeverityHigh, src, dst))
			continue
		}
		from.outgoing = append(from.outgoing, dst)
		to.incoming = append(to.incoming, src)
	}

	reached := reachable(starts, byID)
	for _, n := range nodes {
		switch {
		case !n.isStart() && len(n.incoming) == 0:
			issues = append(issues, issue(ProblemNoIncoming,
				fmt.Sprintf("%s has no incoming sequence flow", n.id), ir.SeverityMedium, n.id))
		case len(starts) > 0 && !reached[n.id]:
			issues = append(issues, issue(ProblemUnreachable,
				fmt.Sprintf("%s cannot be reached from a start event", n.id), ir.SeverityMedium, n.id))
		}
		if !n.isEnd() && len(n.outgoing) == 0 {
			issues = append(issues, issue(ProblemNoOutgoing,
				fmt.Sprintf("%s has no outgoing sequence flow", n.id), ir.SeverityMedium, n.id))
		}
	}

	return append(issues, unpairedGateways(nodes)...)
}

// reachable walks outgoing flows breadth-first from every start event.
func reachable(starts []*node, byID map[string]*node) map[string]bool {
	seen := make(map[string]bool, len(byID))
	queue := make([]*node, 0, len(starts))
	for _, s := range starts {
		seen[s.id] = true
		queue = append(queue, s)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range n.outgoing {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, byID[next])
			}
		}
	}
	return seen
}

// unpairedGateways reports diverging gateways with no converging gateway of
// the same kind. Event-based gateways never join and are skipped.
func unpairedGateways(nodes []*node) []ir.Issue {
	joins := map[bpmn.Subkind]bool{}
	for _, n := range nodes {
		if n.kind.IsGateway() && len(n.incoming) > 1 {
			joins[n.kind.Sub] = true
		}
	}
	var out []ir.Issue
	for _, n := range nodes {
		if !n.kind.IsGateway() || n.kind.Sub == bpmn.SubEventBasedGateway || len(n.outgoing) < 2 {
			continue
		}
		if !joins[n.kind.Sub] {
			out = append(out, issue(ProblemUnpairedGateway,
				fmt.Sprintf("%s %s splits the flow but no %s joins it", n.kind.Tag(), n.id, n.kind.Tag()), ir.SeverityLow, n.id))
		}
	}
	return out
}

func issue(problem, description string, severity ir.Severity, elements ...string) ir.Issue {
	if elements == nil {
		elements = []string{}
	}
	return ir.Issue{ProblemType: problem, Description: description, Elements: elements, Severity: severity}
}
