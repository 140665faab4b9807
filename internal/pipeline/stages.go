package pipeline

import (
	"context"
	"fmt"

	"github.com/archay0/bpmnMATLAB/internal/integrity"
	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/normalize"
	"github.com/archay0/bpmnMATLAB/internal/prompts"
	"github.com/archay0/bpmnMATLAB/internal/store"
)

// Stage names, also used as timing keys.
const (
	StagePhases       = "process_phases"
	StageProcess      = "process_definitions"
	StageElements     = "bpmn_elements"
	StagePoolsLanes   = "pools_and_lanes"
	StageFlows        = "sequence_flows"
	StageResources    = "resources"
	StageIntegrity    = "integrity_validation"
	StageProductSpecs = "product_specifications"
)

// stage is one step of a run. gate decides whether it runs at all; run
// returns the number of records it accepted.
type stage struct {
	name string
	hard bool
	gate func(r *run) (bool, string)
	run  func(ctx context.Context, r *run) (int, error)
}

// stages returns the run's steps in order.
//
//	#  stage                 gate                                  on failure
//	1  process_phases        description present                   hard
//	2  process_definitions   phases ran with at least one record   hard
//	3  bpmn_elements         process ran with at least one header  hard
//	4  pools_and_lanes       elements ran                          soft
//	5  sequence_flows        elements ran                          hard
//	6  resources             elements ran and resources requested  soft
//	7  integrity_validation  elements and flows ran                soft
//	8  product_specifications enabled and description present      soft
//
// A required stage only runs when the stage it depends on succeeded, so a
// hard failure stops everything downstream of it. Soft stages only look at
// their own inputs: resources still run after flows fail.
func (r *run) stages() []stage {
	return []stage{
		{name: StagePhases, hard: true, gate: gateDescription, run: runPhases},
		{name: StageProcess, hard: true, gate: after(StagePhases), run: runProcess},
		{name: StageElements, hard: true, gate: after(StageProcess), run: runElements},
		{name: StagePoolsLanes, gate: after(StageElements), run: runPoolsAndLanes},
		{name: StageFlows, hard: true, gate: after(StageElements), run: runFlows},
		{name: StageResources, gate: gateResources, run: runResources},
		{name: StageIntegrity, gate: after(StageElements, StageFlows), run: runIntegrity},
		{name: StageProductSpecs, gate: gateProductSpecs, run: runProductSpecs},
	}
}

func gateDescription(r *run) (bool, string) {
	if r.ctx.Description() == "" {
		return false, ErrMissingDescription.Error()
	}
	return true, ""
}

// after passes when every named stage ran successfully.
func after(deps ...string) func(r *run) (bool, string) {
	return func(r *run) (bool, string) {
		for _, d := range deps {
			if r.outcomes[d] != StatusRan {
				return false, fmt.Sprintf("%s did not succeed", d)
			}
		}
		return true, ""
	}
}

func gateResources(r *run) (bool, string) {
	if ok, reason := after(StageElements)(r); !ok {
		return ok, reason
	}
	if r.o.sizes.Resources <= 0 {
		return false, "no resources requested"
	}
	return true, ""
}

func gateProductSpecs(r *run) (bool, string) {
	if !r.o.productSpecs {
		return false, "disabled"
	}
	return gateDescription(r)
}

func (r *run) ambient() normalize.Ambient {
	return normalize.Ambient{ProcessID: r.ctx.ProcessID()}
}

// accept normalizes raw, appends the survivors to the context and stores
// the kind's full batch.
func (r *run) accept(kind ir.Kind, raw any, ambient normalize.Ambient) int {
	recs := r.normalize(kind, raw, ambient)
	if len(recs) == 0 {
		return 0
	}
	r.ctx = r.ctx.Append(kind, recs)
	r.persist(store.KindName(string(kind)), r.ctx.Records(kind))
	return len(recs)
}

func runPhases(ctx context.Context, r *run) (int, error) {
	content, err := r.generate(ctx, prompts.Phases(r.ctx.Description(), r.o.sizes.Phases),
		string(ir.KindPhases), store.RawName(StagePhases))
	if err != nil {
		return 0, err
	}
	return r.accept(ir.KindPhases, content.Raw(), normalize.Ambient{}), nil
}

func runProcess(ctx context.Context, r *run) (int, error) {
	s, _ := r.o.registry.Get(ir.KindProcess)
	content, err := r.generate(ctx, prompts.Entity(ir.KindProcess, s, r.ctx, r.o.sizes.Processes),
		string(ir.KindProcess), store.RawName(StageProcess))
	if err != nil {
		return 0, err
	}
	return r.accept(ir.KindProcess, content.Raw(), normalize.Ambient{}), nil
}

// runElements requests elements in batches until a batch comes back short,
// yields nothing valid, or the cap of Elements*MaxElementBatches is hit.
// A failed first batch fails the stage; a later failure ends the loop with
// what was accepted so far.
func runElements(ctx context.Context, r *run) (int, error) {
	size, maxBatches := r.o.sizes.Elements, r.o.sizes.MaxElementBatches
	limit := size * maxBatches
	total := 0

	for batch := 1; batch <= maxBatches; batch++ {
		content, err := r.generate(ctx, prompts.Elements(r.ctx, size),
			string(ir.KindElements), store.RawBatchName(StageElements, batch))
		if err != nil {
			if batch == 1 {
				return 0, err
			}
			r.logger.Warn("element batch failed; keeping earlier batches", "batch", batch, "error", err)
			break
		}

		ambient := r.ambient()
		ambient.ExistingIDs = r.ctx.IDs(ir.KindElements, "element_id")
		n := r.accept(ir.KindElements, content.Raw(), ambient)
		total += n
		r.logger.Info("element batch accepted", "batch", batch, "count", n, "total", total)

		switch {
		case n == 0:
			r.logger.Info("element generation stopped", "reason", "batch produced no valid elements", "batch", batch)
			return total, nil
		case total >= limit:
			r.logger.Info("element generation stopped", "reason", "limit reached", "limit", limit)
			return total, nil
		case n < size:
			r.logger.Info("element generation stopped", "reason", "short batch", "batch", batch, "count", n)
			return total, nil
		}
	}
	return total, nil
}

// runPoolsAndLanes requests pools, then one lanes batch per accepted pool.
// A failed lanes request is logged and the next pool is tried.
func runPoolsAndLanes(ctx context.Context, r *run) (int, error) {
	content, err := r.generate(ctx, prompts.Pools(r.ctx, r.o.sizes.Pools),
		string(ir.KindPools), store.RawName(string(ir.KindPools)))
	if err != nil {
		return 0, err
	}
	total := r.accept(ir.KindPools, content.Raw(), r.ambient())

	for i, pool := range r.ctx.Records(ir.KindPools) {
		poolID := pool.String("pool_id")
		content, err := r.generate(ctx, prompts.Lanes(pool, r.ctx, r.o.sizes.LanesPerPool),
			string(ir.KindLanes), store.RawName(fmt.Sprintf("%s_pool_%d", ir.KindLanes, i+1)))
		if err != nil {
			r.logger.Warn("lane generation failed", "pool_id", poolID, "error", err)
			continue
		}
		ambient := r.ambient()
		ambient.PoolID = poolID
		ambient.ExistingIDs = r.ctx.IDs(ir.KindLanes, "lane_id")
		total += r.accept(ir.KindLanes, content.Raw(), ambient)
	}
	return total, nil
}

func runFlows(ctx context.Context, r *run) (int, error) {
	content, err := r.generate(ctx, prompts.Flows(r.ctx, r.o.sizes.Flows),
		string(ir.KindFlows), store.RawName(StageFlows))
	if err != nil {
		return 0, err
	}
	return r.accept(ir.KindFlows, content.Raw(), r.ambient()), nil
}

func runResources(ctx context.Context, r *run) (int, error) {
	s, _ := r.o.registry.Get(ir.KindResources)
	content, err := r.generate(ctx, prompts.Resources(r.ctx, s, r.o.sizes.Resources),
		string(ir.KindResources), store.RawName(StageResources))
	if err != nil {
		return 0, err
	}
	return r.accept(ir.KindResources, content.Raw(), r.ambient()), nil
}

// runIntegrity records the local structural audit, then asks the
// collaborator for its own.
func runIntegrity(ctx context.Context, r *run) (int, error) {
	elements, flows := r.ctx.Records(ir.KindElements), r.ctx.Records(ir.KindFlows)

	structural := integrity.Structural(elements, flows)
	r.ctx = r.ctx.WithStructuralIssues(structural)
	r.logger.Info("structural audit", "issues", len(structural))

	report, err := integrity.Check(ctx, r.o.gen, r.o.genOpts, elements, flows)
	if err != nil {
		return 0, err
	}
	r.ctx = r.ctx.WithAudit(report.Issues, report.Raw)
	if report.Parsed {
		r.persist(store.IssuesFile, report.Issues)
		for i, is := range report.Issues {
			if i == 5 {
				r.logger.Info("more integrity issues", "count", len(report.Issues)-5)
				break
			}
			r.logger.Info("integrity issue", "problem_type", is.ProblemType, "severity", is.Severity, "description", is.Description)
		}
	} else {
		r.persist(store.IssuesFile, report.Raw)
		r.logger.Warn("integrity audit returned non-standard content", "chars", len(report.Raw))
	}
	return len(report.Issues), nil
}

// runProductSpecs stores a specification record for the product. The
// first record of a list is used; a reply without product_name is a
// failure.
func runProductSpecs(ctx context.Context, r *run) (int, error) {
	content, err := r.generate(ctx, prompts.ProductSpecs(r.ctx.Description()),
		StageProductSpecs, store.RawName(StageProductSpecs))
	if err != nil {
		return 0, err
	}
	var specs ir.Record
	switch v := content.Value.(type) {
	case map[string]any:
		specs = ir.Record(v)
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				specs = ir.Record(m)
			}
		}
	}
	if specs == nil || specs.String("product_name") == "" {
		return 0, fmt.Errorf("reply is not a product specification")
	}
	r.ctx = r.ctx.WithProductSpecs(specs)
	r.persist(store.SpecsFile, specs)
	return 1, nil
}
