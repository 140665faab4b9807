package ir

import (
	"fmt"
	"strconv"
)

// Kind selects a schema and an identifier rule.
type Kind string

const (
	KindPhases    Kind = "process_phases"
	KindProcess   Kind = "process_definitions"
	KindElements  Kind = "bpmn_elements"
	KindFlows     Kind = "sequence_flows"
	KindResources Kind = "resources"
	KindPools     Kind = "pools"
	KindLanes     Kind = "lanes"
	KindModules   Kind = "modules"
	KindParts     Kind = "parts"
	KindSubparts  Kind = "subparts"
)

// Kinds lists the kinds a Context serializes, in pipeline order.
var Kinds = []Kind{
	KindPhases,
	KindProcess,
	KindElements,
	KindPools,
	KindLanes,
	KindFlows,
	KindResources,
	KindModules,
	KindParts,
	KindSubparts,
}

// Record is one entity instance: field name to value.
// Values are the JSON-ish set: nil, string, bool, numbers, []any, map[string]any.
type Record map[string]any

// Clone returns a shallow copy. Nested maps and slices are shared.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the field is present, even when its value is nil.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String returns the field rendered as a string, or "" when absent or nil.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Float returns the field as a float64 when it holds a number or a numeric string.
func (r Record) Float(field string) (float64, bool) {
	switch v := r[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Strings returns a string slice field. A single string is returned as a one-item slice.
func (r Record) Strings(field string) []string {
	switch v := r[field].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}
