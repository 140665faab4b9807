package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_AppendReturnsNewVersion(t *testing.T) {
	c0 := NewContext("bake bread")
	c1 := c0.Append(KindProcess, []Record{{"process_id": "PROC_001"}})
	c2 := c1.Append(KindElements, []Record{{"element_id": "START_001"}})

	assert.Equal(t, 0, c0.Version())
	assert.Equal(t, 1, c1.Version())
	assert.Equal(t, 2, c2.Version())

	assert.Equal(t, 0, c0.Count(KindProcess), "earlier snapshot must not change")
	assert.Equal(t, 0, c1.Count(KindElements))
	assert.Equal(t, 1, c2.Count(KindElements))
	assert.Equal(t, "PROC_001", c2.ProcessID())
}

func TestContext_AppendAccumulates(t *testing.T) {
	c := NewContext("x").
		Append(KindElements, []Record{{"element_id": "TASK_001"}}).
		Append(KindElements, []Record{{"element_id": "TASK_002"}, {"element_id": ""}})

	assert.Equal(t, 3, c.Count(KindElements))
	assert.Equal(t, []string{"TASK_001", "TASK_002"}, c.IDs(KindElements, "element_id"))
}

func TestContext_ProcessIDWithoutHeader(t *testing.T) {
	c := NewContext("x")
	assert.Nil(t, c.Header())
	assert.Equal(t, "", c.ProcessID())
}

func TestContext_DecodeRestoresBatchesAndAudit(t *testing.T) {
	c := NewContext("order fulfilment").
		Append(KindProcess, []Record{{"process_id": "PROC_001", "process_name": "Fulfil"}}).
		Append(KindElements, []Record{{"element_id": "TASK_001"}}).
		WithAudit([]Issue{{ProblemType: "dead_end", Description: "no end", Elements: []string{"TASK_001"}, Severity: SeverityHigh}}, "")

	data, err := json.Marshal(c)
	require.NoError(t, err)

	got, err := DecodeContext(data)
	require.NoError(t, err)
	assert.Equal(t, "order fulfilment", got.Description())
	assert.Equal(t, "PROC_001", got.ProcessID())
	assert.Equal(t, 1, got.Count(KindElements))
	require.Len(t, got.Audit(), 1)
	assert.Equal(t, SeverityHigh, got.Audit()[0].Severity)
}

func TestContext_DecodeRawAudit(t *testing.T) {
	got, err := DecodeContext([]byte(`{"product_description":"x","integrity_issues":"model looks fine"}`))
	require.NoError(t, err)
	assert.Equal(t, "model looks fine", got.RawAudit())
	assert.Empty(t, got.Audit())
}

func TestContext_DecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeContext([]byte(`[1,2`))
	assert.Error(t, err)
}
