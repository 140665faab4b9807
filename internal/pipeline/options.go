package pipeline

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/archay0/bpmnMATLAB/internal/generate"
	"github.com/archay0/bpmnMATLAB/internal/schema"
	"github.com/archay0/bpmnMATLAB/internal/store"
)

// Sizes are the requested record counts per stage.
type Sizes struct {
	Phases            int `yaml:"phases" json:"phases"`
	Processes         int `yaml:"processes" json:"processes"`
	Elements          int `yaml:"elements" json:"elements"`
	MaxElementBatches int `yaml:"max_element_batches" json:"max_element_batches"`
	Flows             int `yaml:"flows" json:"flows"`
	Resources         int `yaml:"resources" json:"resources"`
	Pools             int `yaml:"pools" json:"pools"`
	LanesPerPool      int `yaml:"lanes_per_pool" json:"lanes_per_pool"`
}

// DefaultSizes returns the standard batch sizes.
func DefaultSizes() Sizes {
	return Sizes{
		Phases:            5,
		Processes:         1,
		Elements:          10,
		MaxElementBatches: 3,
		Flows:             15,
		Resources:         5,
		Pools:             2,
		LanesPerPool:      3,
	}
}

// withDefaults fills non-positive sizes, except Resources, where zero
// switches the stage off.
func (s Sizes) withDefaults() Sizes {
	d := DefaultSizes()
	fill := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&s.Phases, d.Phases)
	fill(&s.Processes, d.Processes)
	fill(&s.Elements, d.Elements)
	fill(&s.MaxElementBatches, d.MaxElementBatches)
	fill(&s.Flows, d.Flows)
	fill(&s.Pools, d.Pools)
	fill(&s.LanesPerPool, d.LanesPerPool)
	if s.Resources < 0 {
		s.Resources = 0
	}
	return s
}

// StoreFactory opens the store for a run.
type StoreFactory func(runID string, started time.Time) (store.Store, error)

// DirStores creates run directories under base.
func DirStores(base string) StoreFactory {
	return func(runID string, started time.Time) (store.Store, error) {
		return store.Create(base, store.RunName(started, runID))
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTracerProvider sets where run and stage spans go.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracerProvider = tp }
}

// WithClock sets the clock used for timings.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithRunIDGenerator sets how runs are named.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(o *Orchestrator) { o.runIDs = g }
}

// WithStores sets the store factory. The default writes under "output".
func WithStores(f StoreFactory) Option {
	return func(o *Orchestrator) { o.stores = f }
}

// WithSizes sets batch sizes.
func WithSizes(s Sizes) Option {
	return func(o *Orchestrator) { o.sizes = s }
}

// WithGenerateOptions sets the request options passed to the generator.
func WithGenerateOptions(g generate.Options) Option {
	return func(o *Orchestrator) { o.genOpts = g }
}

// WithRegistry overrides the schema registry.
func WithRegistry(r *schema.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithProductSpecs enables the product specification stage.
func WithProductSpecs(enabled bool) Option {
	return func(o *Orchestrator) { o.productSpecs = enabled }
}

// WithDocument controls whether process.bpmn is compiled at finalize.
func WithDocument(enabled bool) Option {
	return func(o *Orchestrator) { o.compileDocument = enabled }
}

// WithConcurrency bounds RunMany. Values below one mean one.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}
