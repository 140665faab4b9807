package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	text string
	err  error
}

// sequence answers each call with the next reply and records prompts and tags.
type sequence struct {
	replies []reply
	prompts []string
	tags    []string
}

func (s *sequence) Generate(_ context.Context, prompt string, opts Options) (Content, error) {
	s.prompts = append(s.prompts, prompt)
	s.tags = append(s.tags, opts.Tag)
	if len(s.replies) == 0 {
		return Content{}, nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return Content{Text: r.text}, r.err
}

func structured(seq *sequence) *Structured {
	return NewStructured(seq, WithStructuredLogger(quietLogger()))
}

func TestStructured_DecodesFencedReply(t *testing.T) {
	seq := &sequence{replies: []reply{{text: "Sure!\n```json\n[{\"a\": 1}]\n```"}}}
	content, err := structured(seq).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"a": float64(1)}}, content.Value)
	assert.Len(t, seq.prompts, 1)
}

func TestStructured_UnwrapsContainers(t *testing.T) {
	seq := &sequence{replies: []reply{{text: `{"message": "[{\"a\": 1}]"}`}}}
	content, err := structured(seq).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"a": float64(1)}}, content.Value)

	seq = &sequence{replies: []reply{{text: `{"elements": [{"a": 1}]}`}}}
	content, err = structured(seq).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"a": float64(1)}}, content.Value)
}

func TestStructured_RetriesEmptyReply(t *testing.T) {
	seq := &sequence{replies: []reply{{text: "  "}, {text: `{"a": 1}`}}}
	content, err := structured(seq).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, content.Value)
	assert.Equal(t, []string{"p", "p"}, seq.prompts)
}

func TestStructured_EmptyTwiceIsTypedFailure(t *testing.T) {
	seq := &sequence{}
	_, err := structured(seq).Generate(context.Background(), "p", Options{Tag: "phases"})
	require.Error(t, err)
	assert.True(t, IsEmpty(err))
	assert.Len(t, seq.prompts, 2)
}

func TestStructured_TransportTwiceIsTypedFailure(t *testing.T) {
	boom := errors.New("connection refused")
	seq := &sequence{replies: []reply{{err: boom}, {err: boom}}}
	_, err := structured(seq).Generate(context.Background(), "p", Options{Tag: "flows"})
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, boom)
}

func TestStructured_KeepsTypedTransportError(t *testing.T) {
	limited := &Error{Code: CodeRateLimited, Attempts: 2}
	seq := &sequence{replies: []reply{{err: limited}, {err: limited}}}
	_, err := structured(seq).Generate(context.Background(), "p", Options{})
	assert.True(t, IsRateLimited(err))
}

func TestStructured_RepairRound(t *testing.T) {
	seq := &sequence{replies: []reply{
		{text: `[{"a": 1,}]`},
		{text: `[{"a": 1}]`},
	}}
	content, err := structured(seq).Generate(context.Background(), "p", Options{Tag: "bpmn_elements"})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"a": float64(1)}}, content.Value)

	require.Len(t, seq.prompts, 2)
	assert.True(t, strings.HasPrefix(seq.prompts[1], "The following text should be valid JSON"))
	assert.Contains(t, seq.prompts[1], `[{"a": 1,}]`)
	assert.Equal(t, []string{"bpmn_elements", "bpmn_elements" + RepairSuffix}, seq.tags)
}

func TestStructured_ExtractsAfterFailedRepair(t *testing.T) {
	broken := `[{"a": 1}, {"b": 2}, {"c": `
	seq := &sequence{replies: []reply{{text: broken}, {text: broken}}}
	content, err := structured(seq).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"a": float64(1)},
		map[string]any{"b": float64(2)},
	}, content.Value)
}

func TestStructured_PassesUnparseableTextThrough(t *testing.T) {
	seq := &sequence{replies: []reply{{text: "no issues found"}, {text: "still prose"}}}
	content, err := structured(seq).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Nil(t, content.Value)
	assert.Equal(t, "still prose", content.Text)
	assert.Equal(t, "still prose", content.Raw())
}

func TestStructured_StructuredInnerShortCircuits(t *testing.T) {
	inner := Func(func(context.Context, string, Options) (Content, error) {
		return Content{Value: map[string]any{"items": []any{"x"}}}, nil
	})
	content, err := NewStructured(inner, WithStructuredLogger(quietLogger())).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, content.Value)
}

func TestClean(t *testing.T) {
	assert.Equal(t, `{"a":1}`, Clean("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `[1, 2]`, Clean("Here: [1, 2]. Done"))
	assert.Equal(t, "plain", Clean("  plain  "))
}

func TestDecode_RejectsScalars(t *testing.T) {
	_, ok := Decode(`"just a string"`)
	assert.False(t, ok)
	_, ok = Decode(`42`)
	assert.False(t, ok)
}
