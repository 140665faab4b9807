package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/schema"
)

// Ambient is what the normalizer may borrow from the run so far.
type Ambient struct {
	// ProcessID back-fills process_id on every kind but the process header.
	ProcessID string
	// PoolID back-fills pool_id on lanes.
	PoolID string
	// ExistingIDs are ids of the same kind already accepted in earlier
	// batches; new ids never collide with them.
	ExistingIDs []string
}

// Result is a cleaned batch plus its diagnostics.
type Result struct {
	Records     []ir.Record
	Diagnostics []Diagnostic
}

// Dropped counts raw items excluded from Records.
func (r Result) Dropped() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Drops() {
			n++
		}
	}
	return n
}

// Normalizer validates and repairs raw batches against a schema registry.
type Normalizer struct {
	registry *schema.Registry
	logger   *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger. Diagnostics are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// New creates a Normalizer over registry.
func New(registry *schema.Registry, opts ...Option) *Normalizer {
	n := &Normalizer{registry: registry}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	n.logger = n.logger.With("system", "normalize")
	return n
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.:\-]*$`)

// Normalize cleans one raw batch of kind.
//
// raw may be a decoded JSON value (list or record) or opaque text holding
// one. Per record the steps are: drop non-records, resolve field aliases,
// back-fill process_id and pool_id from ambient, assign or repair the
// identifier, then reconcile every schema field (default, reject or coerce).
// Flow endpoints must be syntactically valid identifiers. Records that fail
// are excluded with a diagnostic; the rest keep their input order.
//
// A kind without a schema passes its records through unchanged with an N109
// warning.
func (n *Normalizer) Normalize(kind ir.Kind, raw any, ambient Ambient) Result {
	res := Result{}
	emit := func(d Diagnostic) {
		d.Kind = kind
		res.Diagnostics = append(res.Diagnostics, d)
	}

	items := Items(raw, emit)

	var entries []*entry
	for i, item := range items {
		rec, ok := asRecord(item)
		if !ok {
			emit(Diagnostic{Index: i, Code: CodeNotRecord, Message: fmt.Sprintf("dropped %s item", describe(item))})
			continue
		}
		entries = append(entries, &entry{index: i, rec: rec.Clone()})
	}

	s, ok := n.registry.Get(kind)
	if !ok {
		emit(Diagnostic{Index: -1, Code: CodeNoSchema, Message: "no schema registered; records passed through unvalidated"})
		n.logger.Warn("no schema for kind", "kind", kind, "count", len(entries))
		for _, e := range entries {
			res.Records = append(res.Records, e.rec)
		}
		return res
	}

	for _, e := range entries {
		resolveAliases(s, e.rec)
		n.backFill(s, e, ambient, emit)
	}

	if s.IDField != "" {
		assignIDs(s, entries, ambient.ExistingIDs, emit)
	}

	for _, e := range entries {
		if !reconcile(s, e, emit) {
			continue
		}
		if kind == ir.KindFlows && !checkRefs(e, emit) {
			continue
		}
		res.Records = append(res.Records, e.rec)
	}

	for _, d := range res.Diagnostics {
		n.logger.Debug("normalize diagnostic", "kind", kind, "code", d.Code, "index", d.Index, "field", d.Field, "message", d.Message)
	}
	return res
}

func resolveAliases(s *schema.Schema, rec ir.Record) {
	for _, f := range s.Fields {
		if rec.Has(f.Name) {
			continue
		}
		for _, alias := range f.Aliases {
			if v, ok := rec[alias]; ok {
				rec[f.Name] = v
				delete(rec, alias)
				break
			}
		}
	}
}

func (n *Normalizer) backFill(s *schema.Schema, e *entry, ambient Ambient, emit func(Diagnostic)) {
	fill := func(field, value string) {
		if value == "" {
			return
		}
		if _, declared := s.Field(field); !declared {
			return
		}
		if cur, ok := e.rec[field]; ok && cur != nil && cur != "" {
			return
		}
		e.rec[field] = value
		emit(Diagnostic{Index: e.index, Field: field, Code: CodeBackFilled, Message: "set to " + value})
	}
	if s.Kind != ir.KindProcess {
		fill("process_id", ambient.ProcessID)
	}
	fill("pool_id", ambient.PoolID)
}

// reconcile applies defaults, rejects missing required fields and coerces
// the rest. A nil value counts as absent.
func reconcile(s *schema.Schema, e *entry, emit func(Diagnostic)) bool {
	valid := true
	for _, f := range s.Fields {
		v, present := e.rec[f.Name]
		if !present || v == nil {
			switch {
			case f.HasDefault:
				out, _ := Coerce(f.Default, f)
				e.rec[f.Name] = out
			case f.Required:
				emit(Diagnostic{Index: e.index, Field: f.Name, Code: CodeMissingRequired, Message: "required field missing"})
				valid = false
			}
			continue
		}
		out, diag := Coerce(v, f)
		if diag != nil {
			diag.Index = e.index
			emit(*diag)
		}
		e.rec[f.Name] = out
	}
	return valid
}

func checkRefs(e *entry, emit func(Diagnostic)) bool {
	ok := true
	for _, field := range []string{"source_ref", "target_ref"} {
		ref := strings.TrimSpace(e.rec.String(field))
		e.rec[field] = ref
		if !identPattern.MatchString(ref) {
			emit(Diagnostic{Index: e.index, Field: field, Code: CodeMalformedRef, Message: fmt.Sprintf("%q is not an identifier", ref)})
			ok = false
		}
	}
	return ok
}

func asRecord(item any) (ir.Record, bool) {
	switch v := item.(type) {
	case ir.Record:
		return v, true
	case map[string]any:
		return ir.Record(v), true
	}
	return nil, false
}

// Items turns collaborator output into a list of raw items.
//
// Lists are returned as is. A record whose only field is a list is unwrapped
// to that list; any other record is a batch of one. Text is parsed as JSON,
// falling back to the outermost bracketed span; text that yields nothing is
// an empty batch with an N111 diagnostic.
func Items(raw any, emit func(Diagnostic)) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []ir.Record:
		out := make([]any, len(v))
		for i, r := range v {
			out[i] = r
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, r := range v {
			out[i] = r
		}
		return out
	case ir.Record:
		return Items(map[string]any(v), emit)
	case map[string]any:
		if len(v) == 1 {
			for _, inner := range v {
				if list, ok := inner.([]any); ok {
					return list
				}
			}
		}
		return []any{v}
	case string:
		parsed, ok := parseText(v)
		if !ok {
			if strings.TrimSpace(v) != "" {
				emit(Diagnostic{Index: -1, Code: CodeUnparseable, Message: fmt.Sprintf("no JSON batch in %d bytes of text", len(v))})
			}
			return nil
		}
		return Items(parsed, emit)
	}
	return []any{raw}
}

func parseText(text string) (any, bool) {
	text = strings.TrimSpace(text)
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		if _, isString := v.(string); !isString {
			return v, true
		}
	}
	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start, end := strings.Index(text, pair[0]), strings.LastIndex(text, pair[1])
		if start < 0 || end <= start {
			continue
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &v); err == nil {
			return v, true
		}
	}
	return nil, false
}
