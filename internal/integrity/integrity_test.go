package integrity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archay0/bpmnMATLAB/internal/generate"
	"github.com/archay0/bpmnMATLAB/internal/ir"
)

func TestParse_List(t *testing.T) {
	r := Parse(generate.Content{Value: []any{
		map[string]any{
			"problem_type": "Missing end",
			"description":  "no end event",
			"elements":     []any{"TASK_003"},
			"severity":     "HIGH",
		},
		map[string]any{
			"type":        "loop",
			"details":     "possible infinite loop",
			"element_ids": "GATE_001, TASK_002",
			"severity":    "minor",
		},
		"free text finding",
	}})

	require.True(t, r.Parsed)
	assert.Empty(t, r.Raw)
	assert.Equal(t, []ir.Issue{
		{ProblemType: "Missing end", Description: "no end event", Elements: []string{"TASK_003"}, Severity: ir.SeverityHigh},
		{ProblemType: "loop", Description: "possible infinite loop", Elements: []string{"GATE_001", "TASK_002"}, Severity: ir.SeverityLow},
		{ProblemType: "unspecified", Description: "free text finding", Elements: []string{}, Severity: ir.SeverityMedium},
	}, r.Issues)
}

func TestParse_EmptyListIsParsed(t *testing.T) {
	r := Parse(generate.Content{Value: []any{}})
	assert.True(t, r.Parsed)
	assert.Empty(t, r.Issues)
}

func TestParse_SingleRecord(t *testing.T) {
	r := Parse(generate.Content{Value: map[string]any{"description": "gateway has one branch"}})
	require.True(t, r.Parsed)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, "unspecified", r.Issues[0].ProblemType)
	assert.Equal(t, ir.SeverityMedium, r.Issues[0].Severity)
}

func TestParse_RawPassthrough(t *testing.T) {
	r := Parse(generate.Content{Text: "The model looks fine to me."})
	assert.False(t, r.Parsed)
	assert.Empty(t, r.Issues)
	assert.Equal(t, "The model looks fine to me.", r.Raw)

	r = Parse(generate.Content{Value: map[string]any{"verdict": "ok"}})
	assert.False(t, r.Parsed)
	assert.Equal(t, `{"verdict":"ok"}`, r.Raw)
}

func TestCheck_SendsTaggedPrompt(t *testing.T) {
	var gotTag, gotPrompt string
	gen := generate.Func(func(_ context.Context, prompt string, opts generate.Options) (generate.Content, error) {
		gotTag, gotPrompt = opts.Tag, prompt
		return generate.Content{Value: []any{}}, nil
	})
	elements := []ir.Record{{"element_id": "TASK_001", "element_name": "Pack", "element_type": "task"}}

	r, err := Check(context.Background(), gen, generate.Options{}, elements, nil)
	require.NoError(t, err)
	assert.True(t, r.Parsed)
	assert.Equal(t, Tag, gotTag)
	assert.Contains(t, gotPrompt, "- ID: TASK_001, Name: Pack")
}

func TestCheck_ReturnsGenerationError(t *testing.T) {
	boom := &generate.Error{Code: generate.CodeTransport, Err: errors.New("down")}
	gen := generate.Func(func(context.Context, string, generate.Options) (generate.Content, error) {
		return generate.Content{}, boom
	})
	_, err := Check(context.Background(), gen, generate.Options{}, nil, nil)
	assert.True(t, generate.IsTransportError(err))
}
