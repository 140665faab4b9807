package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/archay0/bpmnMATLAB/internal/bpmn"
	"github.com/archay0/bpmnMATLAB/internal/generate"
	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/normalize"
	"github.com/archay0/bpmnMATLAB/internal/schema"
	"github.com/archay0/bpmnMATLAB/internal/store"
)

const tracerName = "github.com/archay0/bpmnMATLAB/internal/pipeline"

// Orchestrator runs generation pipelines.
//
// An Orchestrator holds configuration only; every Run owns its own context,
// store and timings, so independent runs may proceed concurrently.
type Orchestrator struct {
	gen             generate.Generator
	registry        *schema.Registry
	logger          *slog.Logger
	tracerProvider  trace.TracerProvider
	clock           Clock
	runIDs          RunIDGenerator
	stores          StoreFactory
	sizes           Sizes
	genOpts         generate.Options
	productSpecs    bool
	compileDocument bool
	concurrency     int
}

// New creates an Orchestrator around a generator.
func New(gen generate.Generator, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		gen:             gen,
		clock:           SystemClock{},
		runIDs:          UUIDv7Generator{},
		stores:          DirStores("output"),
		sizes:           DefaultSizes(),
		genOpts:         generate.DefaultOptions(),
		compileDocument: true,
		concurrency:     2,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.gen == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	if o.registry == nil {
		reg, err := schema.Default()
		if err != nil {
			return nil, fmt.Errorf("loading schema catalog: %w", err)
		}
		o.registry = reg
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("system", "pipeline")
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	o.sizes = o.sizes.withDefaults()
	return o, nil
}

// Result is everything a finished run produced.
type Result struct {
	RunID       string
	Location    string
	Context     *ir.Context
	Summary     Summary
	Timings     map[string]float64
	Diagnostics []normalize.Diagnostic
	Document    *bpmn.Document
}

// run is the mutable state of one Run, owned by a single goroutine.
type run struct {
	o      *Orchestrator
	id     string
	store  store.Store
	logger *slog.Logger
	norm   *normalize.Normalizer

	ctx         *ir.Context
	diagnostics []normalize.Diagnostic
	reports     []StageReport
	outcomes    map[string]Status
	timings     map[string]float64
	persistErrs []error
}

// Run executes every stage for description and always finalizes: the
// context, timings and summary are persisted whatever the stages did.
//
// The returned error is non-nil only when the run's store could not be
// opened or an artifact could not be written; stage failures are reported
// through Summary.Success and Summary.Stages.
func (o *Orchestrator) Run(ctx context.Context, description string) (*Result, error) {
	started := o.clock.Now()
	id := o.runIDs.Generate()
	st, err := o.stores(id, started)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}

	logger := o.logger.With("run_id", id)
	r := &run{
		o:        o,
		id:       id,
		store:    st,
		logger:   logger,
		norm:     normalize.New(o.registry, normalize.WithLogger(logger)),
		ctx:      ir.NewContext(description),
		outcomes: make(map[string]Status),
		timings:  make(map[string]float64),
	}

	tracer := o.tracerProvider.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", id),
		attribute.Int("description_chars", len(description)),
	))
	defer span.End()

	logger.Info("run started", "location", st.Location())
	for _, s := range r.stages() {
		if ctx.Err() != nil {
			r.skip(s, "cancelled")
			continue
		}
		r.execute(ctx, tracer, s)
	}

	res := r.finalize(started)
	span.SetAttributes(attribute.Bool("success", res.Summary.Success))
	if !res.Summary.Success {
		span.SetStatus(codes.Error, "run failed")
	}
	return res, errors.Join(r.persistErrs...)
}

// RunMany runs each description independently, at most WithConcurrency at
// a time. Results keep the order of descriptions; a run whose store could
// not be opened leaves a nil entry and contributes to the joined error.
func (o *Orchestrator) RunMany(ctx context.Context, descriptions []string) ([]*Result, error) {
	results := make([]*Result, len(descriptions))
	errs := make([]error, len(descriptions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, d := range descriptions {
		g.Go(func() error {
			res, err := o.Run(gctx, d)
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("run %d: %w", i+1, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// execute runs one stage under its gate, with timing, a span and panic
// recovery.
func (r *run) execute(ctx context.Context, tracer trace.Tracer, s stage) {
	if ok, reason := s.gate(r); !ok {
		r.skip(s, reason)
		return
	}

	ctx, span := tracer.Start(ctx, "stage."+s.name, trace.WithAttributes(
		attribute.String("stage", s.name),
		attribute.Bool("hard", s.hard),
	))
	defer span.End()

	r.logger.Info("stage started", "stage", s.name)
	start := r.o.clock.Now()
	count, err := r.protect(ctx, s)
	elapsed := r.o.clock.Now().Sub(start)
	r.timings[s.name] = elapsed.Seconds()

	report := StageReport{Name: s.name, Hard: s.hard, Count: count, Seconds: elapsed.Seconds()}
	span.SetAttributes(attribute.Int("count", count))
	if err == nil && s.hard && count == 0 {
		err = ErrNoRecords
	}
	if err != nil {
		serr := &StageError{Stage: s.name, Hard: s.hard, Err: err}
		report.Status = StatusFailed
		report.Reason = err.Error()
		span.RecordError(serr)
		span.SetStatus(codes.Error, serr.Error())
		if s.hard {
			r.logger.Error("stage failed", "stage", s.name, "count", count, "elapsed", elapsed, "error", err)
		} else {
			r.logger.Warn("optional stage failed; continuing", "stage", s.name, "count", count, "elapsed", elapsed, "error", err)
		}
	} else {
		report.Status = StatusRan
		r.logger.Info("stage finished", "stage", s.name, "count", count, "elapsed", elapsed)
	}
	r.outcomes[s.name] = report.Status
	r.reports = append(r.reports, report)
}

func (r *run) protect(ctx context.Context, s stage) (count int, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{value: v}
		}
	}()
	return s.run(ctx, r)
}

func (r *run) skip(s stage, reason string) {
	r.logger.Info("stage skipped", "stage", s.name, "reason", reason)
	r.outcomes[s.name] = StatusSkipped
	r.reports = append(r.reports, StageReport{Name: s.name, Hard: s.hard, Status: StatusSkipped, Reason: reason})
}

// generate requests content and stores the raw reply under rawName,
// whether or not the request failed.
func (r *run) generate(ctx context.Context, prompt, tag, rawName string) (generate.Content, error) {
	content, err := r.o.gen.Generate(ctx, prompt, r.o.genOpts.WithTag(tag))
	r.persist(rawName, content.Raw())
	return content, err
}

// normalize cleans a batch and keeps its diagnostics.
func (r *run) normalize(kind ir.Kind, raw any, ambient normalize.Ambient) []ir.Record {
	res := r.norm.Normalize(kind, raw, ambient)
	r.diagnostics = append(r.diagnostics, res.Diagnostics...)
	if n := res.Dropped(); n > 0 {
		r.logger.Warn("records dropped", "kind", kind, "count", n, "kept", len(res.Records))
	}
	return res.Records
}

func (r *run) persist(name string, v any) {
	if err := r.store.WriteJSON(name, v); err != nil {
		r.logger.Error("persisting artifact", "name", name, "error", err)
		r.persistErrs = append(r.persistErrs, err)
	}
}

// finalize writes the context, timings, diagnostics, optional document and
// summary.
func (r *run) finalize(started time.Time) *Result {
	total := r.o.clock.Now().Sub(started).Seconds()

	res := &Result{
		RunID:       r.id,
		Location:    r.store.Location(),
		Context:     r.ctx,
		Diagnostics: r.diagnostics,
		Timings:     make(map[string]float64, len(r.timings)+1),
	}
	for k, v := range r.timings {
		res.Timings[k] = v
	}
	res.Timings["total"] = total

	r.persist(store.ContextFile, r.ctx)
	r.persist(store.MetricsFile, res.Timings)
	diags := r.diagnostics
	if diags == nil {
		diags = []normalize.Diagnostic{}
	}
	r.persist(store.DiagnosticsFile, diags)

	if r.o.compileDocument && r.ctx.Count(ir.KindElements) > 0 {
		res.Document = r.compile()
	}

	res.Summary = r.summary(started, total)
	r.persist(store.SummaryFile, res.Summary)

	r.logger.Info("run finished", "success", res.Summary.Success, "elapsed_seconds", total, "location", res.Location)
	return res
}

func (r *run) compile() *bpmn.Document {
	doc := bpmn.Compile(r.ctx.Header(), r.ctx.Records(ir.KindElements), r.ctx.Records(ir.KindFlows))
	if len(doc.DroppedFlows) > 0 {
		r.logger.Warn("flows left out of document", "count", len(doc.DroppedFlows), "ids", doc.DroppedFlows)
	}
	if len(doc.SkippedElements) > 0 {
		r.logger.Warn("elements left out of document", "count", len(doc.SkippedElements))
	}
	data, err := doc.Bytes()
	if err != nil {
		r.logger.Error("encoding document", "error", err)
		r.persistErrs = append(r.persistErrs, err)
		return doc
	}
	if err := r.store.WriteFile(store.DocumentFile, data); err != nil {
		r.logger.Error("persisting artifact", "name", store.DocumentFile, "error", err)
		r.persistErrs = append(r.persistErrs, err)
	}
	return doc
}
