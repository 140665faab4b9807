package ir

import (
	"encoding/json"
	"fmt"
)

// Context is the accumulating state of one generation run.
//
// A Context is never mutated in place. Append and the With* methods return
// a new Context whose version is one higher; the receiver is left untouched.
type Context struct {
	description string
	version     int
	batches     map[Kind][]Record
	audit       []Issue
	rawAudit    string
	structural  []Issue
	specs       Record
}

// NewContext starts an empty context for a product description.
func NewContext(description string) *Context {
	return &Context{
		description: description,
		batches:     make(map[Kind][]Record),
	}
}

func (c *Context) derive() *Context {
	next := *c
	next.version = c.version + 1
	next.batches = make(map[Kind][]Record, len(c.batches))
	for k, v := range c.batches {
		next.batches[k] = v
	}
	return &next
}

// Append returns a context with records added to the kind's batch.
func (c *Context) Append(kind Kind, records []Record) *Context {
	next := c.derive()
	merged := make([]Record, 0, len(c.batches[kind])+len(records))
	merged = append(merged, c.batches[kind]...)
	merged = append(merged, records...)
	next.batches[kind] = merged
	return next
}

// WithAudit records the collaborator audit. Raw is set when the reply
// could not be read as a list of issues.
func (c *Context) WithAudit(issues []Issue, raw string) *Context {
	next := c.derive()
	next.audit = append([]Issue(nil), issues...)
	next.rawAudit = raw
	return next
}

// WithStructuralIssues records the local structural audit.
func (c *Context) WithStructuralIssues(issues []Issue) *Context {
	next := c.derive()
	next.structural = append([]Issue(nil), issues...)
	return next
}

// WithProductSpecs records the product specification side result.
func (c *Context) WithProductSpecs(specs Record) *Context {
	next := c.derive()
	next.specs = specs.Clone()
	return next
}

func (c *Context) Description() string { return c.description }
func (c *Context) Version() int        { return c.version }

// Records returns the accumulated batch for a kind.
func (c *Context) Records(kind Kind) []Record {
	return append([]Record(nil), c.batches[kind]...)
}

// Count returns the number of records accumulated for a kind.
func (c *Context) Count(kind Kind) int {
	return len(c.batches[kind])
}

// IDs returns the values of field across a kind's batch, skipping empty ones.
func (c *Context) IDs(kind Kind, field string) []string {
	var out []string
	for _, r := range c.batches[kind] {
		if id := r.String(field); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Header returns the first process definition, or nil.
func (c *Context) Header() Record {
	if procs := c.batches[KindProcess]; len(procs) > 0 {
		return procs[0]
	}
	return nil
}

// ProcessID returns the owning process id used for back-fill, or "".
func (c *Context) ProcessID() string {
	if h := c.Header(); h != nil {
		return h.String("process_id")
	}
	return ""
}

func (c *Context) Audit() []Issue            { return append([]Issue(nil), c.audit...) }
func (c *Context) RawAudit() string          { return c.rawAudit }
func (c *Context) StructuralIssues() []Issue { return append([]Issue(nil), c.structural...) }
func (c *Context) ProductSpecs() Record      { return c.specs }

// MarshalJSON renders the context as the complete_context document:
// one array per kind plus audit results.
func (c *Context) MarshalJSON() ([]byte, error) {
	doc := map[string]any{
		"product_description": c.description,
		"version":             c.version,
	}
	for kind, batch := range c.batches {
		doc[string(kind)] = batch
	}
	if c.rawAudit != "" {
		doc["integrity_issues"] = c.rawAudit
	} else if c.audit != nil {
		doc["integrity_issues"] = c.audit
	}
	if c.structural != nil {
		doc["structural_issues"] = c.structural
	}
	if c.specs != nil {
		doc["product_specifications"] = c.specs
	}
	return json.Marshal(doc)
}

// DecodeContext reads a complete_context document back into a Context.
// Unknown keys are ignored; audit results are restored when present.
func DecodeContext(data []byte) (*Context, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding context: %w", err)
	}

	var description string
	if raw, ok := doc["product_description"]; ok {
		if err := json.Unmarshal(raw, &description); err != nil {
			return nil, fmt.Errorf("decoding product_description: %w", err)
		}
	}
	c := NewContext(description)

	for _, kind := range Kinds {
		raw, ok := doc[string(kind)]
		if !ok {
			continue
		}
		var batch []Record
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", kind, err)
		}
		c.batches[kind] = batch
	}

	if raw, ok := doc["integrity_issues"]; ok {
		var issues []Issue
		if err := json.Unmarshal(raw, &issues); err == nil {
			c.audit = issues
		} else {
			var text string
			if err := json.Unmarshal(raw, &text); err != nil {
				return nil, fmt.Errorf("decoding integrity_issues: %w", err)
			}
			c.rawAudit = text
		}
	}
	if raw, ok := doc["structural_issues"]; ok {
		if err := json.Unmarshal(raw, &c.structural); err != nil {
			return nil, fmt.Errorf("decoding structural_issues: %w", err)
		}
	}
	if raw, ok := doc["product_specifications"]; ok {
		if err := json.Unmarshal(raw, &c.specs); err != nil {
			return nil, fmt.Errorf("decoding product_specifications: %w", err)
		}
	}
	return c, nil
}
