package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, "raw_process_phases.json", RawName("process_phases"))
	assert.Equal(t, "raw_bpmn_elements_batch_2.json", RawBatchName("bpmn_elements", 2))
	assert.Equal(t, "sequence_flows.json", KindName("sequence_flows"))

	ts := time.Date(2025, 4, 26, 12, 30, 5, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "run_20250426T103005Z_a1b2c3d4e5f6", RunName(ts, "0190f3a1-2b3c-7d4e-8f90-a1b2c3d4e5f6"))
	assert.Equal(t, "run_20250426T103005Z_abc", RunName(ts, "abc"))
}

func TestRunName_SameMillisecondPrefix(t *testing.T) {
	ts := time.Date(2025, 4, 26, 12, 0, 0, 0, time.UTC)
	a := RunName(ts, "01a14dc3-5d51-7a00-8000-000000000001")
	b := RunName(ts, "01a14dc3-5d50-7a00-8000-000000000002")
	assert.NotEqual(t, a, b)
}

func TestCreate_RefusesExistingRun(t *testing.T) {
	base := filepath.Join(t.TempDir(), "output")
	_, err := Create(base, "run_1")
	require.NoError(t, err)

	_, err = Create(base, "run_1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunExists)
}

func TestEncodeJSON_KeepsHTML(t *testing.T) {
	data, err := EncodeJSON(map[string]any{"expr": "a < b && c > d"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"expr\": \"a < b && c > d\"\n}\n", string(data))
}

func TestDir_WritesArtifacts(t *testing.T) {
	base := t.TempDir()
	d, err := Create(base, "run_1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run_1"), d.Location())

	require.NoError(t, d.WriteJSON(SummaryFile, map[string]any{"success": true}))
	require.NoError(t, d.WriteFile(DocumentFile, []byte("<definitions/>")))

	data, err := os.ReadFile(filepath.Join(base, "run_1", SummaryFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": true}`, string(data))

	data, err = d.ReadFile(DocumentFile)
	require.NoError(t, err)
	assert.Equal(t, "<definitions/>", string(data))

	entries, err := os.ReadDir(d.Location())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestDir_RejectsPathNames(t *testing.T) {
	d, err := Create(t.TempDir(), "run")
	require.NoError(t, err)
	assert.Error(t, d.WriteFile("../escape.json", nil))
	assert.Error(t, d.WriteFile("", nil))
	_, err = Create(t.TempDir(), "a/b")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, d.Location())

	_, err = Open(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := NewMemory("mem")
	require.NoError(t, m.WriteJSON("b.json", []int{1}))
	require.NoError(t, m.WriteFile("a.txt", []byte("x")))

	assert.Equal(t, []string{"a.txt", "b.json"}, m.Names())
	data, ok := m.File("b.json")
	require.True(t, ok)
	assert.Equal(t, "[\n  1\n]\n", string(data))
	_, ok = m.File("c")
	assert.False(t, ok)
	assert.Equal(t, "mem", m.Location())
}
