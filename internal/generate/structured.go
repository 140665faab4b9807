package generate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/archay0/bpmnMATLAB/internal/prompts"
)

// RepairSuffix is appended to the request tag of a repair round.
const RepairSuffix = "/repair"

// Structured recovers a JSON value from a Generator's text replies.
//
// Empty replies and transport failures are retried once. A reply that does
// not decode gets one repair round: the broken text is sent back with a
// request to fix it. If that also fails, complete JSON objects are
// extracted from the last text; failing that, the text is returned as is
// with a nil Value. Only when no attempt produced any text is an error
// returned.
type Structured struct {
	inner   Generator
	retries int
	logger  *slog.Logger
}

// StructuredOption configures Structured.
type StructuredOption func(*Structured)

// WithStructuredLogger sets the logger.
func WithStructuredLogger(l *slog.Logger) StructuredOption {
	return func(s *Structured) { s.logger = l }
}

// WithRetries sets how many extra attempts follow the first. Default 1.
func WithRetries(n int) StructuredOption {
	return func(s *Structured) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// NewStructured wraps inner.
func NewStructured(inner Generator, opts ...StructuredOption) *Structured {
	s := &Structured{inner: inner, retries: 1}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("system", "generate")
	return s
}

// Generate implements Generator.
func (s *Structured) Generate(ctx context.Context, prompt string, opts Options) (Content, error) {
	current, reqOpts := prompt, opts
	var text string
	var lastErr error

	for attempt := 0; attempt <= s.retries; attempt++ {
		content, err := s.inner.Generate(ctx, current, reqOpts)
		if err != nil {
			if ctx.Err() != nil {
				return Content{}, ctx.Err()
			}
			lastErr = err
			s.logger.Warn("generation failed", "tag", opts.Tag, "attempt", attempt+1, "error", err)
			continue
		}
		if content.Value != nil {
			return Content{Value: unwrapList(content.Value), Text: content.Text}, nil
		}

		raw := strings.TrimSpace(content.Text)
		if raw == "" {
			lastErr = &Error{Code: CodeEmpty, Stage: opts.Tag, Attempts: attempt + 1}
			s.logger.Warn("empty reply", "tag", opts.Tag, "attempt", attempt+1)
			continue
		}

		text = unwrapMessage(raw)
		if v, ok := Decode(text); ok {
			return Content{Value: v, Text: text}, nil
		}
		if attempt < s.retries {
			s.logger.Warn("malformed reply; requesting repair", "tag", opts.Tag, "chars", len(text))
			current = prompts.Repair(Clean(text))
			reqOpts = opts.WithTag(opts.Tag + RepairSuffix)
		}
	}

	if text != "" {
		if objs := Extract(text); len(objs) > 0 {
			s.logger.Warn("recovered objects from malformed reply", "tag", opts.Tag, "count", len(objs))
			return Content{Value: objs, Text: text}, nil
		}
		s.logger.Warn("no structured value recovered", "tag", opts.Tag)
		return Content{Text: text}, nil
	}

	var ge *Error
	if errors.As(lastErr, &ge) {
		return Content{}, lastErr
	}
	return Content{}, &Error{Code: CodeTransport, Stage: opts.Tag, Attempts: s.retries + 1, Err: lastErr}
}

var fencePattern = regexp.MustCompile("```(?:json)?\\s*|\\s*```")

// Clean strips markdown code fences and cuts text to the span between the
// first opening and the last closing bracket or brace.
func Clean(text string) string {
	text = fencePattern.ReplaceAllString(text, "")
	start := strings.IndexAny(text, "[{")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// Decode parses cleaned text into a list or record. A record whose only
// field is a list is unwrapped to that list.
func Decode(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(Clean(text)), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case []any, map[string]any:
		return unwrapList(v), true
	}
	return nil, false
}

// Extract collects every complete JSON object found in text, in order.
// Nested objects inside a decoded object are not visited again.
func Extract(text string) []any {
	var out []any
	for i := 0; i < len(text); {
		j := strings.IndexByte(text[i:], '{')
		if j < 0 {
			break
		}
		start := i + j
		dec := json.NewDecoder(strings.NewReader(text[start:]))
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			i = start + 1
			continue
		}
		out = append(out, obj)
		i = start + int(dec.InputOffset())
	}
	return out
}

// unwrapMessage replaces {"message": "<json>"} containers with the inner text.
func unwrapMessage(text string) string {
	if !strings.HasPrefix(text, "{") {
		return text
	}
	var container map[string]any
	if err := json.Unmarshal([]byte(text), &container); err != nil {
		return text
	}
	if msg, ok := container["message"].(string); ok && strings.ContainsAny(msg, "[{") {
		return strings.TrimSpace(msg)
	}
	return text
}

func unwrapList(v any) any {
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		for _, inner := range m {
			if list, ok := inner.([]any); ok {
				return list
			}
		}
	}
	return v
}
