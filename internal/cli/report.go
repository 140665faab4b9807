package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/archay0/bpmnMATLAB/internal/pipeline"
	"github.com/archay0/bpmnMATLAB/internal/store"
)

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report <run-dir>",
		Short: "Show the summary of a finished run",
		Long: `Render generation_summary.json from a run directory as a stage table.
Exits 1 when the run did not succeed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(rootOpts, args[0], cmd)
		},
	}
}

func runReport(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	path := dir
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		path = filepath.Join(dir, store.SummaryFile)
	}
	data, err := readInput(path)
	if err != nil {
		return fail(formatter, ExitCommandError, loadErrorCode(err), "loading summary", err)
	}
	var sum pipeline.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeParseFailed, "decoding "+path, err)
	}

	location := filepath.Dir(path)
	payload := RunSummary{Location: location, Summary: sum}
	if err := formatter.Result(sum.Success, payload, renderSummary(formatter.Writer, sum, location)); err != nil {
		return err
	}
	if !sum.Success {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: run failed", ErrCodeRunFailed))
	}
	return nil
}
