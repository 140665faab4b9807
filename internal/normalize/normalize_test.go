package normalize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/schema"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	reg, err := schema.Default()
	require.NoError(t, err)
	return New(reg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func codes(ds []Diagnostic) []Code {
	out := make([]Code, len(ds))
	for i, d := range ds {
		out[i] = d.Code
	}
	return out
}

func TestNormalize_StartEventGetsIDAndProcess(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{map[string]any{"type": "event", "subtype": "startEvent", "name": "Begin"}}

	res := n.Normalize(ir.KindElements, raw, Ambient{ProcessID: "PROC_001"})

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "START_001", rec["element_id"])
	assert.Equal(t, "PROC_001", rec["process_id"])
	assert.Equal(t, "Begin", rec["element_name"])
	assert.Equal(t, "event", rec["element_type"])
	assert.Equal(t, "startEvent", rec["element_subtype"])
	assert.NotContains(t, rec, "name")
	assert.Contains(t, codes(res.Diagnostics), CodeBackFilled)
	assert.Contains(t, codes(res.Diagnostics), CodeIDSynthesized)
}

func TestNormalize_MissingRequiredExcludesOnlyThatRecord(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{
		map[string]any{"flow_id": "FLOW_001", "source_ref": "TASK_001", "target_ref": "TASK_002"},
		map[string]any{"flow_id": "FLOW_002", "source_ref": "TASK_002"},
		map[string]any{"flow_id": "FLOW_003", "source_ref": "TASK_002", "target_ref": "END_001"},
	}

	res := n.Normalize(ir.KindFlows, raw, Ambient{ProcessID: "PROC_001"})

	require.Len(t, res.Records, 2)
	assert.Equal(t, "FLOW_001", res.Records[0]["flow_id"])
	assert.Equal(t, "FLOW_003", res.Records[1]["flow_id"])
	assert.Equal(t, 1, res.Dropped())

	var missing *Diagnostic
	for i := range res.Diagnostics {
		if res.Diagnostics[i].Code == CodeMissingRequired {
			missing = &res.Diagnostics[i]
		}
	}
	require.NotNil(t, missing)
	assert.Equal(t, 1, missing.Index)
	assert.Equal(t, "target_ref", missing.Field)
}

func TestNormalize_DropsNonRecords(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{"garbage", 42, nil, map[string]any{"pool_name": "Sales", "description": "front office"}}

	res := n.Normalize(ir.KindPools, raw, Ambient{ProcessID: "PROC_001"})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "POOL_004", res.Records[0]["pool_id"], "ordinal is the position in the raw batch")
	assert.Equal(t, "organization", res.Records[0]["participant_type"])
	assert.Equal(t, 3, res.Dropped())
}

func TestNormalize_IdentifierInvariant(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{
		map[string]any{"element_id": "X1", "element_name": "Review", "element_type": "task"},
		map[string]any{"element_id": "TASK_001", "element_name": "Approve", "element_type": "task"},
		map[string]any{"element_id": "TASK_001", "element_name": "Dup", "element_type": "task"},
		map[string]any{"element_id": 17, "element_name": "Numeric", "element_type": "gateway"},
		map[string]any{"element_id": "GATE_004", "element_name": "Wrong prefix", "element_type": "task"},
		map[string]any{"element_id": "", "element_name": "Done", "element_type": "event", "element_subtype": "endEvent"},
	}

	res := n.Normalize(ir.KindElements, raw, Ambient{ProcessID: "PROC_001"})
	require.Len(t, res.Records, 6)

	got := make([]string, len(res.Records))
	seen := map[string]bool{}
	for i, r := range res.Records {
		id := r["element_id"].(string)
		got[i] = id
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, []string{"TASK_002", "TASK_001", "TASK_003", "GATE_004", "TASK_004", "END_006"}, got)
}

func TestNormalize_RewriteKeepsNumericTail(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{map[string]any{"process_id": "P-042", "process_name": "Hiring", "description": "hire people"}}

	res := n.Normalize(ir.KindProcess, raw, Ambient{})

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "PROC_042", rec["process_id"])
	assert.Equal(t, "1.0", rec["version"])
	assert.Equal(t, "Draft", rec["status"])
	assert.Contains(t, codes(res.Diagnostics), CodeIDRewritten)
}

func TestNormalize_AvoidsExistingIDs(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{map[string]any{"element_name": "Pack", "element_type": "task"}}

	res := n.Normalize(ir.KindElements, raw, Ambient{
		ProcessID:   "PROC_001",
		ExistingIDs: []string{"TASK_001", "TASK_002"},
	})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "TASK_003", res.Records[0]["element_id"])
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer(t)
	amb := Ambient{ProcessID: "PROC_001"}
	raw := []any{
		map[string]any{"id": "abc", "name": "Main", "description": "d", "creation_date": "yesterday", "author": nil},
		map[string]any{"process_id": "PROC_009", "process_name": 12, "description": "e", "last_modified": "2024-01-01T10:00:00Z"},
	}

	first := n.Normalize(ir.KindProcess, raw, amb)
	require.Len(t, first.Records, 2)

	again := make([]any, len(first.Records))
	for i, r := range first.Records {
		again[i] = map[string]any(r.Clone())
	}
	second := n.Normalize(ir.KindProcess, again, amb)

	assert.Equal(t, first.Records, second.Records)
	assert.Empty(t, second.Diagnostics)
}

func TestNormalize_IdempotentElements(t *testing.T) {
	n := newTestNormalizer(t)
	amb := Ambient{ProcessID: "PROC_001"}
	raw := []any{
		map[string]any{"type": "event", "subtype": "startEvent", "name": "Begin", "x": "10"},
		map[string]any{"element_id": "T7", "element_name": "Work", "element_type": "task", "width": 120},
	}

	first := n.Normalize(ir.KindElements, raw, amb)
	again := make([]any, len(first.Records))
	for i, r := range first.Records {
		again[i] = r.Clone()
	}
	second := n.Normalize(ir.KindElements, again, amb)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, float64(10), first.Records[0]["position_x"])
	assert.Equal(t, float64(120), first.Records[1]["width"])
}

func TestNormalize_LanesBackFillPool(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{map[string]any{"lane_name": "Clerk", "description": "desk", "element_refs": []any{"TASK_001"}}}

	res := n.Normalize(ir.KindLanes, raw, Ambient{ProcessID: "PROC_001", PoolID: "POOL_002"})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "POOL_002", res.Records[0]["pool_id"])
	assert.Equal(t, "PROC_001", res.Records[0]["process_id"])
	assert.Equal(t, "LANE_001", res.Records[0]["lane_id"])
}

func TestNormalize_BackFillNeverOverwrites(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{map[string]any{"flow_id": "FLOW_001", "source_ref": "A_1", "target_ref": "B_1", "process_id": "PROC_002"}}
	res := n.Normalize(ir.KindFlows, raw, Ambient{ProcessID: "PROC_001"})
	require.Len(t, res.Records, 1)
	assert.Equal(t, "PROC_002", res.Records[0]["process_id"])
}

func TestNormalize_UnknownKindPassesThrough(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{map[string]any{"anything": 1}, "junk"}

	res := n.Normalize(ir.Kind("widgets"), raw, Ambient{ProcessID: "PROC_001"})

	require.Len(t, res.Records, 1)
	assert.Equal(t, ir.Record{"anything": 1}, res.Records[0])
	assert.Contains(t, codes(res.Diagnostics), CodeNoSchema)
}

func TestNormalize_MalformedFlowRefDropped(t *testing.T) {
	n := newTestNormalizer(t)
	raw := []any{
		map[string]any{"source_ref": "TASK_001", "target_ref": "GHOST_999"},
		map[string]any{"source_ref": "   ", "target_ref": "TASK_001"},
		map[string]any{"source": " TASK_001 ", "target": "END 1"},
	}

	res := n.Normalize(ir.KindFlows, raw, Ambient{ProcessID: "PROC_001"})

	require.Len(t, res.Records, 1, "well-formed but unknown refs are kept")
	assert.Equal(t, "GHOST_999", res.Records[0]["target_ref"])
	assert.Equal(t, "FLOW_001", res.Records[0]["flow_id"])
	assert.Equal(t, 2, res.Dropped())
}

func TestNormalize_AcceptsText(t *testing.T) {
	n := newTestNormalizer(t)
	text := "Here you go:\n```json\n[{\"resource_name\": \"Forklift\", \"resource_type\": \"equipment\", \"element_id\": \"TASK_001\"}]\n```"

	res := n.Normalize(ir.KindResources, text, Ambient{ProcessID: "PROC_001"})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "RES_001", res.Records[0]["resource_id"])
}

func TestNormalize_UnparseableText(t *testing.T) {
	n := newTestNormalizer(t)
	res := n.Normalize(ir.KindResources, "sorry, I cannot help", Ambient{})
	assert.Empty(t, res.Records)
	assert.Equal(t, []Code{CodeUnparseable}, codes(res.Diagnostics))
}

func TestItems_Shapes(t *testing.T) {
	noop := func(Diagnostic) {}

	assert.Nil(t, Items(nil, noop))
	assert.Len(t, Items(map[string]any{"elements": []any{1, 2}}, noop), 2)
	assert.Len(t, Items(map[string]any{"a": 1, "b": 2}, noop), 1)
	assert.Len(t, Items([]ir.Record{{}, {}}, noop), 2)
	assert.Len(t, Items(`{"x": 1}`, noop), 1)
	assert.Equal(t, []any{3.0}, Items(3.0, noop))
}
