// Package config loads bpmnforge settings from an optional YAML file and the
// environment.
//
// Every section follows the same three phases: defaults fill zero values,
// environment variables override, then the result is validated. The API key
// only ever comes from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/archay0/bpmnMATLAB/internal/generate"
	"github.com/archay0/bpmnMATLAB/internal/pipeline"
)

const DefaultFile = "bpmnforge.yaml"

const (
	EnvAPIKey    = "OPENROUTER_API_KEY"
	EnvDebug     = "DEBUG_MODE"
	EnvModel     = "BPMNFORGE_MODEL"
	EnvOutputDir = "BPMNFORGE_OUTPUT_DIR"
	EnvLogLevel  = "BPMNFORGE_LOG_LEVEL"
)

// Generator providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderScript     = "script"
)

// Config is the root configuration.
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GeneratorConfig selects and tunes the content generator.
type GeneratorConfig struct {
	Provider         string   `yaml:"provider"`
	BaseURL          string   `yaml:"base_url"`
	Model            string   `yaml:"model"`
	Temperature      *float64 `yaml:"temperature"`
	MaxTokens        int      `yaml:"max_tokens"`
	Debug            bool     `yaml:"debug"`
	Timeout          string   `yaml:"timeout"`
	RateLimitRetries int      `yaml:"rate_limit_retries"`
	Backoff          string   `yaml:"backoff"`
	Referer          string   `yaml:"referer"`
	Title            string   `yaml:"title"`
	Script           string   `yaml:"script"`

	APIKey string `yaml:"-"`
}

// PipelineConfig holds batch sizes and stage switches. A negative
// resources size switches the resources stage off.
type PipelineConfig struct {
	Sizes           pipeline.Sizes `yaml:",inline"`
	ProductSpecs    *bool          `yaml:"product_specs"`
	CompileDocument *bool          `yaml:"compile_document"`
	Concurrency     int            `yaml:"concurrency"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path, or DefaultFile when path is empty, and finalizes the
// result. A missing DefaultFile is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// Finalize applies defaults, then environment overrides, then validates.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites c with the non-zero fields of overlay.
func (c *Config) Merge(overlay *Config) {
	c.Generator.Merge(&overlay.Generator)
	c.Pipeline.Merge(&overlay.Pipeline)
	if overlay.Output.Dir != "" {
		c.Output.Dir = overlay.Output.Dir
	}
	if overlay.Logging.Level != "" {
		c.Logging.Level = overlay.Logging.Level
	}
	if overlay.Logging.Format != "" {
		c.Logging.Format = overlay.Logging.Format
	}
}

func (c *Config) loadDefaults() {
	g := &c.Generator
	if g.Provider == "" {
		g.Provider = ProviderOpenRouter
	}
	if g.BaseURL == "" {
		g.BaseURL = generate.DefaultBaseURL
	}
	if g.Model == "" {
		g.Model = generate.DefaultModel
	}
	if g.Temperature == nil {
		t := generate.DefaultTemperature
		g.Temperature = &t
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = generate.DefaultMaxTokens
	}
	if g.Timeout == "" {
		g.Timeout = generate.DefaultTimeout.String()
	}
	if g.RateLimitRetries == 0 {
		g.RateLimitRetries = generate.DefaultMaxAttempts
	}
	if g.Backoff == "" {
		g.Backoff = generate.DefaultBackoff.String()
	}
	if g.Referer == "" {
		g.Referer = generate.DefaultReferer
	}
	if g.Title == "" {
		g.Title = generate.DefaultTitle
	}

	p := &c.Pipeline
	fill := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	d, s := pipeline.DefaultSizes(), &p.Sizes
	fill(&s.Phases, d.Phases)
	fill(&s.Processes, d.Processes)
	fill(&s.Elements, d.Elements)
	fill(&s.MaxElementBatches, d.MaxElementBatches)
	fill(&s.Flows, d.Flows)
	fill(&s.Resources, d.Resources)
	fill(&s.Pools, d.Pools)
	fill(&s.LanesPerPool, d.LanesPerPool)
	if p.ProductSpecs == nil {
		p.ProductSpecs = boolPtr(false)
	}
	if p.CompileDocument == nil {
		p.CompileDocument = boolPtr(true)
	}
	if p.Concurrency == 0 {
		p.Concurrency = 2
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Generator.APIKey = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		c.Generator.Debug = isTrue(v)
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Generator.Model = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) validate() error {
	g := c.Generator
	switch g.Provider {
	case ProviderOpenRouter:
	case ProviderScript:
		if g.Script == "" {
			return fmt.Errorf("generator: script provider requires a script path")
		}
	default:
		return fmt.Errorf("generator: unknown provider %q", g.Provider)
	}
	if _, err := time.ParseDuration(g.Timeout); err != nil {
		return fmt.Errorf("generator: invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(g.Backoff); err != nil {
		return fmt.Errorf("generator: invalid backoff: %w", err)
	}
	if g.RateLimitRetries < 1 {
		return fmt.Errorf("generator: rate_limit_retries must be at least 1")
	}
	if *g.Temperature < 0 || *g.Temperature > 2 {
		return fmt.Errorf("generator: temperature %v outside [0, 2]", *g.Temperature)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline: concurrency must be at least 1")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (g *GeneratorConfig) Merge(overlay *GeneratorConfig) {
	if overlay.Provider != "" {
		g.Provider = overlay.Provider
	}
	if overlay.BaseURL != "" {
		g.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		g.Model = overlay.Model
	}
	if overlay.Temperature != nil {
		g.Temperature = overlay.Temperature
	}
	if overlay.MaxTokens != 0 {
		g.MaxTokens = overlay.MaxTokens
	}
	if overlay.Debug {
		g.Debug = true
	}
	if overlay.Timeout != "" {
		g.Timeout = overlay.Timeout
	}
	if overlay.RateLimitRetries != 0 {
		g.RateLimitRetries = overlay.RateLimitRetries
	}
	if overlay.Backoff != "" {
		g.Backoff = overlay.Backoff
	}
	if overlay.Referer != "" {
		g.Referer = overlay.Referer
	}
	if overlay.Title != "" {
		g.Title = overlay.Title
	}
	if overlay.Script != "" {
		g.Script = overlay.Script
	}
	if overlay.APIKey != "" {
		g.APIKey = overlay.APIKey
	}
}

// TimeoutDuration returns Timeout as a time.Duration.
func (g GeneratorConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(g.Timeout)
	return d
}

// BackoffDuration returns Backoff as a time.Duration.
func (g GeneratorConfig) BackoffDuration() time.Duration {
	d, _ := time.ParseDuration(g.Backoff)
	return d
}

// Options returns the per-request generation options.
func (g GeneratorConfig) Options() generate.Options {
	o := generate.Options{
		Model:     g.Model,
		MaxTokens: g.MaxTokens,
		Debug:     g.Debug,
	}
	if g.Temperature != nil {
		o.Temperature = *g.Temperature
	}
	return o
}

// Merge overwrites non-zero fields from overlay. Sizes merge field by field.
func (p *PipelineConfig) Merge(overlay *PipelineConfig) {
	merge := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	s, o := &p.Sizes, overlay.Sizes
	merge(&s.Phases, o.Phases)
	merge(&s.Processes, o.Processes)
	merge(&s.Elements, o.Elements)
	merge(&s.MaxElementBatches, o.MaxElementBatches)
	merge(&s.Flows, o.Flows)
	merge(&s.Resources, o.Resources)
	merge(&s.Pools, o.Pools)
	merge(&s.LanesPerPool, o.LanesPerPool)
	merge(&p.Concurrency, overlay.Concurrency)
	if overlay.ProductSpecs != nil {
		p.ProductSpecs = overlay.ProductSpecs
	}
	if overlay.CompileDocument != nil {
		p.CompileDocument = overlay.CompileDocument
	}
}

// Logger builds the root logger writing to w.
func (l LoggingConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	return level, nil
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func boolPtr(b bool) *bool { return &b }

// PipelineOptions translates the pipeline and output sections into
// orchestrator options.
func (c *Config) PipelineOptions() []pipeline.Option {
	p := c.Pipeline
	return []pipeline.Option{
		pipeline.WithSizes(p.Sizes),
		pipeline.WithProductSpecs(p.ProductSpecs != nil && *p.ProductSpecs),
		pipeline.WithDocument(p.CompileDocument == nil || *p.CompileDocument),
		pipeline.WithConcurrency(p.Concurrency),
		pipeline.WithGenerateOptions(c.Generator.Options()),
		pipeline.WithStores(pipeline.DirStores(c.Output.Dir)),
	}
}
