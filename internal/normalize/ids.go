package normalize

import (
	"fmt"
	"strings"

	"github.com/archay0/bpmnMATLAB/internal/bpmn"
	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/schema"
)

// fallbackPrefix is used for id-bearing kinds that declare no prefix and
// have no derivation rule.
const fallbackPrefix = "ID_"

// Prefix returns the canonical id prefix for a record of the given schema.
// Elements derive theirs from element_type and element_subtype.
func Prefix(s *schema.Schema, rec ir.Record) string {
	if s.Prefix != "" {
		return s.Prefix
	}
	if s.Kind == ir.KindElements {
		return bpmn.IDPrefix(rec.String("element_type"), rec.String("element_subtype"))
	}
	return fallbackPrefix
}

type entry struct {
	index int // 0-based position in the raw batch
	rec   ir.Record
}

// assignIDs gives every entry a unique, correctly prefixed identifier.
//
// Ids that already carry the right prefix and are not taken are reserved
// first, in batch order, so an explicit id wins over a synthesized one.
// The rest are then repaired: a missing or non-string id becomes
// <prefix><position:%03d>; a foreign id keeps its last three characters
// when they are digits and free, otherwise it is renumbered from position.
func assignIDs(s *schema.Schema, entries []*entry, existing []string, emit func(Diagnostic)) {
	field := s.IDField
	taken := make(map[string]bool, len(existing)+len(entries))
	for _, id := range existing {
		taken[id] = true
	}

	kept := make([]bool, len(entries))
	for i, e := range entries {
		v, ok := e.rec[field].(string)
		if ok && v != "" && strings.HasPrefix(v, Prefix(s, e.rec)) && !taken[v] {
			taken[v] = true
			kept[i] = true
		}
	}

	for i, e := range entries {
		if kept[i] {
			continue
		}
		prefix := Prefix(s, e.rec)
		position := e.index + 1
		original := e.rec[field]
		v, isString := original.(string)

		var id string
		var code Code
		switch {
		case !isString || v == "":
			id, code = nextFree(prefix, position, taken), CodeIDSynthesized
		case strings.HasPrefix(v, prefix):
			id, code = nextFree(prefix, position, taken), CodeIDCollision
		default:
			code = CodeIDRewritten
			if tail := lastRunes(v, 3); allDigits(tail) && !taken[prefix+tail] {
				id = prefix + tail
			} else {
				id = nextFree(prefix, position, taken)
			}
		}
		taken[id] = true
		e.rec[field] = id

		emit(Diagnostic{
			Kind:    s.Kind,
			Index:   e.index,
			Field:   field,
			Code:    code,
			Message: fmt.Sprintf("%s -> %s", describe(original), id),
		})
	}
}

func nextFree(prefix string, n int, taken map[string]bool) string {
	for {
		id := fmt.Sprintf("%s%03d", prefix, n)
		if !taken[id] {
			return id
		}
		n++
	}
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
