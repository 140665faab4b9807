package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRunExists is returned by Create when the run directory is already there.
var ErrRunExists = errors.New("run directory already exists")

// Artifact names shared by writers and readers of a run.
const (
	ContextFile     = "complete_context.json"
	MetricsFile     = "performance_metrics.json"
	SummaryFile     = "generation_summary.json"
	IssuesFile      = "integrity_issues.json"
	DiagnosticsFile = "diagnostics.json"
	SpecsFile       = "product_specifications.json"
	DocumentFile    = "process.bpmn"
)

// Store is where one run's artifacts go.
type Store interface {
	// WriteJSON stores v as indented JSON under name.
	WriteJSON(name string, v any) error

	// WriteFile stores raw bytes under name.
	WriteFile(name string, data []byte) error

	// Location identifies the run (a directory path for Dir).
	Location() string
}

// RawName is the artifact name of a stage's unprocessed output.
func RawName(stage string) string { return "raw_" + stage + ".json" }

// RawBatchName is the artifact name of one element batch's unprocessed output.
func RawBatchName(stage string, batch int) string {
	return fmt.Sprintf("raw_%s_batch_%d.json", stage, batch)
}

// KindName is the artifact name of a kind's normalized records.
func KindName(kind string) string { return kind + ".json" }

// RunName is the directory name of a run started at t. The id part is the
// last 12 characters of the run id: for a UUIDv7 the leading bits are the
// timestamp, the tail is random.
func RunName(t time.Time, runID string) string {
	id := strings.ReplaceAll(runID, "-", "")
	if len(id) > 12 {
		id = id[len(id)-12:]
	}
	return fmt.Sprintf("run_%s_%s", t.UTC().Format("20060102T150405Z"), id)
}

// EncodeJSON renders v as two-space indented JSON with a trailing newline.
// HTML characters are left unescaped so prompts and descriptions read as
// written.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
