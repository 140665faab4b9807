package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archay0/bpmnMATLAB/internal/pipeline"
)

// envelope decodes a CLIResponse with a typed payload.
type envelope[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func TestOutputFormatter_RunSummaryJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	payload := RunSummary{
		Location: "output/run_20250426T120000Z_a1b2c3d4e5f6",
		Summary: pipeline.Summary{
			RunID:         "run-1",
			Success:       false,
			ElementsCount: 0,
			Stages: []pipeline.StageReport{
				{Name: pipeline.StagePhases, Status: pipeline.StatusRan, Hard: true, Count: 2, Seconds: 0.5},
				{Name: pipeline.StageElements, Status: pipeline.StatusFailed, Hard: true, Reason: "no valid records"},
			},
		},
	}
	require.NoError(t, formatter.Result(payload.Summary.Success, payload, "unused in json mode"))

	var resp envelope[RunSummary]
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	assert.Equal(t, "failed", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, payload.Location, resp.Data.Location)
	assert.Equal(t, "run-1", resp.Data.Summary.RunID)
	require.Len(t, resp.Data.Summary.Stages, 2)
	assert.Equal(t, pipeline.StatusFailed, resp.Data.Summary.Stages[1].Status)
	assert.Equal(t, "no valid records", resp.Data.Summary.Stages[1].Reason)
	assert.NotContains(t, buf.String(), "unused in json mode")
}

func TestOutputFormatter_CompilationResultJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	result := CompilationResult{
		Output:       "runs/lamp&shade/process.bpmn",
		Nodes:        5,
		Flows:        4,
		DroppedFlows: []string{"FLOW_009"},
	}
	require.NoError(t, formatter.Success(result))

	assert.Contains(t, buf.String(), "lamp&shade", "paths are not HTML-escaped")

	var resp envelope[CompilationResult]
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, result, resp.Data)
}

func TestFail(t *testing.T) {
	diskFull := errors.New("disk full")
	tests := []struct {
		name     string
		exitCode int
		code     string
		message  string
		err      error
		wantMsg  string
		wantErr  string
	}{
		{
			name:     "run failed",
			exitCode: ExitFailure,
			code:     ErrCodeRunFailed,
			message:  "1 of 2 run(s) failed",
			wantMsg:  "1 of 2 run(s) failed",
			wantErr:  "E101: 1 of 2 run(s) failed",
		},
		{
			name:     "audit failed",
			exitCode: ExitFailure,
			code:     ErrCodeAuditFailed,
			message:  "2 failing issue(s)",
			wantMsg:  "2 failing issue(s)",
			wantErr:  "E102: 2 failing issue(s)",
		},
		{
			name:     "write failed",
			exitCode: ExitCommandError,
			code:     ErrCodeWriteFailed,
			message:  "writing process.bpmn",
			err:      diskFull,
			wantMsg:  "writing process.bpmn: disk full",
			wantErr:  "E007: writing process.bpmn: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := fail(formatter, tt.exitCode, tt.code, tt.message, tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Equal(t, tt.wantErr, err.Error())
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestFail_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := fail(formatter, ExitCommandError, ErrCodeUnknownKind, `unknown kind "gizmos"`, nil)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "Error [E009]: unknown kind \"gizmos\"\n", buf.String())
}

func TestOutputFormatter_ErrorDetailsOnlyWhenVerbose(t *testing.T) {
	details := map[string]string{"path": "runs/a/complete_context.json"}
	for _, verbose := range []bool{false, true} {
		t.Run(fmt.Sprintf("verbose=%t", verbose), func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: verbose}

			require.NoError(t, formatter.Error(ErrCodeParseFailed, "decoding context", details))
			assert.Contains(t, buf.String(), "Error [E004]: decoding context")
			if verbose {
				assert.Contains(t, buf.String(), "complete_context.json")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_ResultText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Result(true, nil, "stage table\n"))
	assert.Equal(t, "stage table\n", buf.String())
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("Starting %d run(s)", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "Starting 2 run(s)\n", errOut.String())

	quiet := &OutputFormatter{Format: "text", Writer: out}
	quiet.VerboseLog("dropped")
	assert.Empty(t, out.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad config")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "run failed", errors.New("inner")))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "outer: run failed: inner", wrapped.Error())
}
