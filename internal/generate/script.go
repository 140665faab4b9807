package generate

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Response is one canned reply in a Script.
//
// Exactly one of Text, Value or Error is normally set. Error names a Code
// ("transport", "rate_limited", "empty") to fail the call with.
type Response struct {
	Text  string `yaml:"text,omitempty"`
	Value any    `yaml:"value,omitempty"`
	Error string `yaml:"error,omitempty"`
}

// Call records one request seen by a Script.
type Call struct {
	Tag    string
	Prompt string
}

// Script replays responses queued per request tag.
//
// A tag whose queue is exhausted (or was never declared) gets an empty
// reply. Script is safe for concurrent use.
type Script struct {
	mu     sync.Mutex
	queues map[string][]Response
	calls  []Call
}

type scriptFile struct {
	Responses map[string][]Response `yaml:"responses"`
}

// NewScript creates a Script from in-memory queues.
func NewScript(queues map[string][]Response) *Script {
	s := &Script{queues: make(map[string][]Response, len(queues))}
	for tag, q := range queues {
		s.queues[tag] = append([]Response(nil), q...)
	}
	return s
}

// ParseScript decodes a YAML fixture:
//
//	responses:
//	  process_phases:
//	    - value: [{phase_name: Design}]
//	  bpmn_elements:
//	    - text: '[{"element_type": "event", ...}]'
//	    - error: transport
func ParseScript(data []byte) (*Script, error) {
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	for tag, q := range f.Responses {
		for i, r := range q {
			if r.Error != "" && errorCode(r.Error) == "" {
				return nil, fmt.Errorf("script %s[%d]: unknown error %q", tag, i, r.Error)
			}
		}
	}
	return NewScript(f.Responses), nil
}

// LoadScript reads a YAML fixture from path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ParseScript(data)
}

// Generate pops the next response queued under opts.Tag.
func (s *Script) Generate(ctx context.Context, prompt string, opts Options) (Content, error) {
	if err := ctx.Err(); err != nil {
		return Content{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Tag: opts.Tag, Prompt: prompt})
	q := s.queues[opts.Tag]
	if len(q) == 0 {
		return Content{}, nil
	}
	r := q[0]
	s.queues[opts.Tag] = q[1:]

	if r.Error != "" {
		return Content{}, &Error{Code: errorCode(r.Error), Stage: opts.Tag, Attempts: 1, Err: fmt.Errorf("scripted failure")}
	}
	return Content{Value: normalizeYAML(r.Value), Text: r.Text}, nil
}

// Calls returns the requests seen so far.
func (s *Script) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount counts requests seen under tag.
func (s *Script) CallCount(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Tag == tag {
			n++
		}
	}
	return n
}

func errorCode(name string) Code {
	switch name {
	case "transport":
		return CodeTransport
	case "rate_limited":
		return CodeRateLimited
	case "empty":
		return CodeEmpty
	case "malformed":
		return CodeMalformed
	}
	return ""
}

// normalizeYAML converts decoded YAML into the shapes encoding/json yields,
// so scripted values look like transport replies.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	}
	return v
}

var _ Generator = (*Script)(nil)
