package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client defaults.
const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	DefaultReferer     = "https://github.com/archay0/bpmnMATLAB"
	DefaultTitle       = "bpmnforge"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 2
	DefaultBackoff     = time.Second
)

// Client sends prompts to the OpenRouter chat-completions API.
//
// Each call makes up to MaxAttempts requests. Rate-limited and failed
// requests are retried after an exponential backoff that starts at Backoff
// and doubles per attempt.
type Client struct {
	apiKey      string
	baseURL     string
	referer     string
	title       string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
	sleep       func(context.Context, time.Duration) error
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the HTTP client (and its timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithAttribution sets the HTTP-Referer and X-Title headers.
func WithAttribution(referer, title string) ClientOption {
	return func(c *Client) {
		if referer != "" {
			c.referer = referer
		}
		if title != "" {
			c.title = title
		}
	}
}

// WithRetry sets the attempt bound and the first backoff delay.
func WithRetry(maxAttempts int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if backoff >= 0 {
			c.backoff = backoff
		}
	}
}

// WithSleeper replaces the backoff wait. Tests use it to avoid real delays.
func WithSleeper(sleep func(context.Context, time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = sleep }
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. apiKey must be non-empty.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		referer:     DefaultReferer,
		title:       DefaultTitle,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("system", "openrouter")
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta *struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text *string `json:"text"`
	} `json:"choices"`
}

// Generate sends prompt as a single user message and returns the reply text.
// A response body without a recognizable choice is returned as text.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (Content, error) {
	opts = opts.withDefaults()
	body, err := json.Marshal(chatRequest{
		Model:       opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return Content{}, fmt.Errorf("encoding request: %w", err)
	}

	if opts.Debug {
		c.logger.Info("sending prompt", "tag", opts.Tag, "model", opts.Model,
			"temperature", opts.Temperature, "prompt_chars", len(prompt))
	}

	backoff := c.backoff
	var last *Error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, status, err := c.do(ctx, body)
		if err == nil {
			return Content{Text: text}, nil
		}
		if ctx.Err() != nil {
			return Content{}, ctx.Err()
		}

		code := CodeTransport
		if status == http.StatusTooManyRequests {
			code = CodeRateLimited
		}
		last = &Error{Code: code, Stage: opts.Tag, Status: status, Attempts: attempt, Err: err}
		c.logger.Warn("request failed", "tag", opts.Tag, "attempt", attempt, "status", status, "error", err)

		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, backoff); err != nil {
				return Content{}, err
			}
			backoff *= 2
		}
	}
	return Content{}, last
}

func (c *Client) do(ctx context.Context, body []byte) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", resp.StatusCode, fmt.Errorf("%s: %s", resp.Status, truncate(string(data), 200))
	}
	return replyText(data), resp.StatusCode, nil
}

// replyText picks message.content, then delta.content, then text from the
// first choice. Anything else is returned verbatim.
func replyText(data []byte) string {
	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil || len(cr.Choices) == 0 {
		return string(data)
	}
	choice := cr.Choices[0]
	switch {
	case choice.Message != nil:
		return choice.Message.Content
	case choice.Delta != nil:
		return choice.Delta.Content
	case choice.Text != nil:
		return *choice.Text
	}
	return string(data)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Generator = (*Client)(nil)
