package pipeline

import (
	"time"

	"github.com/archay0/bpmnMATLAB/internal/ir"
)

// Status is how a stage ended.
type Status string

const (
	StatusRan     Status = "ran"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// StageReport describes one stage of a run.
type StageReport struct {
	Name    string  `json:"name"`
	Status  Status  `json:"status"`
	Hard    bool    `json:"hard"`
	Reason  string  `json:"reason,omitempty"`
	Count   int     `json:"count"`
	Seconds float64 `json:"seconds"`
}

// Summary is the generation_summary.json document. Success is the single
// authoritative health signal of a run.
type Summary struct {
	RunID                 string        `json:"run_id"`
	Timestamp             string        `json:"timestamp"`
	ProductDescription    string        `json:"product_description"`
	Success               bool          `json:"success"`
	ModelFingerprint      string        `json:"model_fingerprint,omitempty"`
	PhasesCount           int           `json:"phases_count"`
	ProcessesCount        int           `json:"processes_count"`
	ElementsCount         int           `json:"elements_count"`
	FlowsCount            int           `json:"flows_count"`
	ResourcesCount        int           `json:"resources_count"`
	PoolsCount            int           `json:"pools_count"`
	LanesCount            int           `json:"lanes_count"`
	IssuesCount           int           `json:"issues_count"`
	StructuralIssuesCount int           `json:"structural_issues_count"`
	TotalRuntimeSeconds   float64       `json:"total_runtime_seconds"`
	Stages                []StageReport `json:"stages"`
}

// Stage returns the report for name.
func (s Summary) Stage(name string) (StageReport, bool) {
	for _, st := range s.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return StageReport{}, false
}

// summary builds the run summary. A run succeeds when every hard stage ran.
func (r *run) summary(started time.Time, total float64) Summary {
	success := true
	for _, rep := range r.reports {
		if rep.Hard && rep.Status != StatusRan {
			success = false
		}
	}
	c := r.ctx
	fingerprint, err := ir.Fingerprint(c)
	if err != nil {
		r.logger.Warn("model fingerprint unavailable", "error", err)
	}
	return Summary{
		RunID:                 r.id,
		Timestamp:             started.UTC().Format(time.RFC3339),
		ProductDescription:    c.Description(),
		Success:               success,
		ModelFingerprint:      fingerprint,
		PhasesCount:           c.Count(ir.KindPhases),
		ProcessesCount:        c.Count(ir.KindProcess),
		ElementsCount:         c.Count(ir.KindElements),
		FlowsCount:            c.Count(ir.KindFlows),
		ResourcesCount:        c.Count(ir.KindResources),
		PoolsCount:            c.Count(ir.KindPools),
		LanesCount:            c.Count(ir.KindLanes),
		IssuesCount:           len(c.Audit()),
		StructuralIssuesCount: len(c.StructuralIssues()),
		TotalRuntimeSeconds:   total,
		Stages:                append([]StageReport(nil), r.reports...),
	}
}
