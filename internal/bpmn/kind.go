package bpmn

import "strings"

// ElementKind is the coarse element category from element_type.
type ElementKind int

const (
	KindUnknown ElementKind = iota
	KindEvent
	KindTask
	KindGateway
)

// Subkind is the concrete BPMN node an element compiles to.
type Subkind int

const (
	SubStartEvent Subkind = iota
	SubEndEvent
	SubCatchEvent
	SubThrowEvent
	SubTask
	SubUserTask
	SubServiceTask
	SubScriptTask
	SubBusinessRuleTask
	SubManualTask
	SubReceiveTask
	SubSendTask
	SubExclusiveGateway
	SubParallelGateway
	SubInclusiveGateway
	SubEventBasedGateway
	SubComplexGateway
)

// Trigger is the event definition nested in an intermediate event.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerMessage
	TriggerTimer
	TriggerError
)

var subkindTags = map[Subkind]string{
	SubStartEvent:        "startEvent",
	SubEndEvent:          "endEvent",
	SubCatchEvent:        "intermediateCatchEvent",
	SubThrowEvent:        "intermediateThrowEvent",
	SubTask:              "task",
	SubUserTask:          "userTask",
	SubServiceTask:       "serviceTask",
	SubScriptTask:        "scriptTask",
	SubBusinessRuleTask:  "businessRuleTask",
	SubManualTask:        "manualTask",
	SubReceiveTask:       "receiveTask",
	SubSendTask:          "sendTask",
	SubExclusiveGateway:  "exclusiveGateway",
	SubParallelGateway:   "parallelGateway",
	SubInclusiveGateway:  "inclusiveGateway",
	SubEventBasedGateway: "eventBasedGateway",
	SubComplexGateway:    "complexGateway",
}

// Keys are subtypes with case, separators and the kind suffix removed,
// so "userTask", "user" and "User-Task" all match.
var taskSubkinds = map[string]Subkind{
	"user":         SubUserTask,
	"service":      SubServiceTask,
	"script":       SubScriptTask,
	"businessrule": SubBusinessRuleTask,
	"manual":       SubManualTask,
	"receive":      SubReceiveTask,
	"send":         SubSendTask,
}

var gatewaySubkinds = map[string]Subkind{
	"parallel":   SubParallelGateway,
	"inclusive":  SubInclusiveGateway,
	"eventbased": SubEventBasedGateway,
	"complex":    SubComplexGateway,
}

var triggerTags = map[Trigger]string{
	TriggerMessage: "messageEventDefinition",
	TriggerTimer:   "timerEventDefinition",
	TriggerError:   "errorEventDefinition",
}

var triggerIDPrefixes = map[Trigger]string{
	TriggerMessage: "MessageEventDefinition_",
	TriggerTimer:   "TimerEventDefinition_",
	TriggerError:   "ErrorEventDefinition_",
}

// NodeKind is the result of classifying an element's (type, subtype) pair.
type NodeKind struct {
	Kind    ElementKind
	Sub     Subkind
	Trigger Trigger
}

// Tag is the BPMN element name of the node.
func (n NodeKind) Tag() string { return subkindTags[n.Sub] }

// IsEvent reports whether the node is any kind of event.
func (n NodeKind) IsEvent() bool { return n.Kind == KindEvent }

// IsGateway reports whether the node is a gateway.
func (n NodeKind) IsGateway() bool { return n.Kind == KindGateway }

// IDPrefix is the canonical identifier prefix for elements of this node kind.
func (n NodeKind) IDPrefix() string {
	switch n.Kind {
	case KindEvent:
		switch n.Sub {
		case SubStartEvent:
			return "START_"
		case SubEndEvent:
			return "END_"
		}
		return "EVEN_"
	case KindTask:
		return "TASK_"
	case KindGateway:
		return "GATE_"
	}
	return UnknownPrefix
}

// UnknownPrefix is used for elements whose type cannot be classified.
const UnknownPrefix = "ELEM_"

// IDPrefix classifies the pair and returns its identifier prefix.
func IDPrefix(elementType, subtype string) string {
	n, ok := Classify(elementType, subtype)
	if !ok {
		return UnknownPrefix
	}
	return n.IDPrefix()
}

// Classify maps (element_type, element_subtype) to a node kind.
//
// The type is matched case-insensitively against event, task and gateway.
// A type such as "userTask" or "startEvent" is accepted as its base kind and
// doubles as the subtype when none is given. Within a kind the first matching
// row wins:
//
//	event    subtype contains "start"   start event
//	event    subtype contains "end"     end event
//	event    subtype contains "catch"   intermediate catch event
//	event    otherwise                  intermediate throw event
//	task     user|service|script|businessRule|manual|receive|send, else plain task
//	gateway  parallel|inclusive|eventBased|complex, else exclusive gateway
//
// Intermediate events carry a trigger when the subtype names Message, Timer
// or Error, checked in that order.
func Classify(elementType, subtype string) (NodeKind, bool) {
	t := strings.ToLower(strings.TrimSpace(elementType))
	var kind ElementKind
	switch {
	case strings.HasSuffix(t, "event"):
		kind = KindEvent
	case strings.HasSuffix(t, "task"):
		kind = KindTask
	case strings.HasSuffix(t, "gateway"):
		kind = KindGateway
	default:
		return NodeKind{}, false
	}
	if strings.TrimSpace(subtype) == "" && t != baseName(kind) {
		subtype = elementType
	}
	sub := strings.ToLower(subtype)

	switch kind {
	case KindEvent:
		n := NodeKind{Kind: KindEvent}
		switch {
		case strings.Contains(sub, "start"):
			n.Sub = SubStartEvent
		case strings.Contains(sub, "end"):
			n.Sub = SubEndEvent
		case strings.Contains(sub, "catch"):
			n.Sub = SubCatchEvent
		default:
			n.Sub = SubThrowEvent
		}
		if n.Sub == SubCatchEvent || n.Sub == SubThrowEvent {
			switch {
			case strings.Contains(sub, "message"):
				n.Trigger = TriggerMessage
			case strings.Contains(sub, "timer"):
				n.Trigger = TriggerTimer
			case strings.Contains(sub, "error"):
				n.Trigger = TriggerError
			}
		}
		return n, true
	case KindTask:
		if s, ok := taskSubkinds[squash(sub, "task")]; ok {
			return NodeKind{Kind: KindTask, Sub: s}, true
		}
		return NodeKind{Kind: KindTask, Sub: SubTask}, true
	default:
		if s, ok := gatewaySubkinds[squash(sub, "gateway")]; ok {
			return NodeKind{Kind: KindGateway, Sub: s}, true
		}
		return NodeKind{Kind: KindGateway, Sub: SubExclusiveGateway}, true
	}
}

func baseName(k ElementKind) string {
	switch k {
	case KindEvent:
		return "event"
	case KindTask:
		return "task"
	case KindGateway:
		return "gateway"
	}
	return ""
}

// squash drops separators and a trailing kind suffix from a lowercase subtype.
func squash(sub, suffix string) string {
	s := strings.NewReplacer("-", "", "_", "", " ", "").Replace(sub)
	return strings.TrimSuffix(s, suffix)
}
