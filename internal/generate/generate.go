// Package generate is the boundary to the text-generation collaborator.
//
// A Generator turns a prompt into Content: either a decoded JSON value (list
// or record) or opaque text. Client talks to the OpenRouter chat-completions
// API, Structured wraps any Generator with JSON clean-up, one retry and one
// repair round, and Script replays canned responses from a YAML fixture.
//
// Failures that survive the retry budget surface as *Error with a Code; the
// caller decides whether that is fatal.
package generate

import "context"

// Default request options.
const (
	DefaultModel       = "microsoft/mai-ds-r1:free"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// Options controls one request.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Debug       bool

	// Tag labels the request (usually the stage name). Transports ignore it;
	// Script uses it to pick a response queue.
	Tag string
}

// DefaultOptions returns the default model, temperature and token limit.
func DefaultOptions() Options {
	return Options{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// WithTag returns a copy of o labelled tag.
func (o Options) WithTag(tag string) Options {
	o.Tag = tag
	return o
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

// Content is what a Generator returns. Value holds a decoded list or
// record when one was recovered; Text holds the reply as received.
type Content struct {
	Value any
	Text  string
}

// Raw is the value handed to the normalizer: Value when set, else Text.
func (c Content) Raw() any {
	if c.Value != nil {
		return c.Value
	}
	return c.Text
}

// Empty reports whether the reply carried nothing.
func (c Content) Empty() bool {
	return c.Value == nil && c.Text == ""
}

// Generator produces content for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (Content, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, prompt string, opts Options) (Content, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string, opts Options) (Content, error) {
	return f(ctx, prompt, opts)
}
