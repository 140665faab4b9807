// Package integrity audits a generated element and flow graph.
//
// Check asks the generation collaborator for an audit and coerces its reply
// into ir.Issue records; a reply that is not a list of issues is kept as raw
// text. Structural runs deterministic local checks over the same graph.
package integrity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/archay0/bpmnMATLAB/internal/generate"
	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/prompts"
)

// Tag labels audit requests.
const Tag = "integrity_validation"

// Report is the coerced result of a collaborator audit.
//
// When Parsed is false the reply could not be read as issues and Raw holds
// it verbatim; Issues is then empty.
type Report struct {
	Issues []ir.Issue
	Raw    string
	Parsed bool
}

// Check sends the audit prompt for elements and flows and coerces the reply.
// A generation failure is returned as is.
func Check(ctx context.Context, gen generate.Generator, opts generate.Options, elements, flows []ir.Record) (Report, error) {
	content, err := gen.Generate(ctx, prompts.Integrity(elements, flows), opts.WithTag(Tag))
	if err != nil {
		return Report{}, err
	}
	return Parse(content), nil
}

// Parse coerces collaborator content into a Report.
//
// A list yields one issue per item in order. A single record carrying a
// problem_type or description is one issue. Anything else, including text
// that never decoded, is passed through as Raw.
func Parse(content generate.Content) Report {
	switch v := content.Value.(type) {
	case []any:
		issues := make([]ir.Issue, 0, len(v))
		for _, item := range v {
			issues = append(issues, coerceIssue(item))
		}
		return Report{Issues: issues, Parsed: true}
	case map[string]any:
		if _, ok := v["problem_type"]; ok {
			return Report{Issues: []ir.Issue{coerceIssue(v)}, Parsed: true}
		}
		if _, ok := v["description"]; ok {
			return Report{Issues: []ir.Issue{coerceIssue(v)}, Parsed: true}
		}
	}
	raw := content.Text
	if raw == "" && content.Value != nil {
		if data, err := json.Marshal(content.Value); err == nil {
			raw = string(data)
		}
	}
	return Report{Raw: raw}
}

func coerceIssue(item any) ir.Issue {
	rec, ok := item.(map[string]any)
	if !ok {
		return ir.Issue{
			ProblemType: "unspecified",
			Description: strings.TrimSpace(fmt.Sprint(item)),
			Elements:    []string{},
			Severity:    ir.SeverityMedium,
		}
	}
	r := ir.Record(rec)
	issue := ir.Issue{
		ProblemType: first(r, "problem_type", "type", "issue"),
		Description: first(r, "description", "details", "message"),
		Elements:    elementIDs(r),
		Severity:    ir.ParseSeverity(r.String("severity")),
	}
	if issue.ProblemType == "" {
		issue.ProblemType = "unspecified"
	}
	return issue
}

func first(r ir.Record, fields ...string) string {
	for _, f := range fields {
		if s := strings.TrimSpace(r.String(f)); s != "" {
			return s
		}
	}
	return ""
}

func elementIDs(r ir.Record) []string {
	for _, f := range []string{"elements", "element_ids", "involved_elements"} {
		switch v := r[f].(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, id := range v {
				if s := strings.TrimSpace(fmt.Sprint(id)); s != "" && id != nil {
					out = append(out, s)
				}
			}
			return out
		case string:
			var out []string
			for _, id := range strings.Split(v, ",") {
				if s := strings.TrimSpace(id); s != "" {
					out = append(out, s)
				}
			}
			if out == nil {
				out = []string{}
			}
			return out
		}
	}
	return []string{}
}
