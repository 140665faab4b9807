package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archay0/bpmnMATLAB/internal/integrity"
	"github.com/archay0/bpmnMATLAB/internal/ir"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Strict bool // medium issues fail too
}

// AuditResult is the JSON payload of the audit command.
type AuditResult struct {
	Structural []ir.Issue `json:"structural"`
	Recorded   []ir.Issue `json:"recorded"`
	RawAudit   string     `json:"raw_audit,omitempty"`
	Failing    int        `json:"failing"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit <context.json|run-dir>",
		Short: "Check the structure of a saved process model",
		Long: `Run the structural audit over a saved context: start and end events,
dangling flows, disconnected or unreachable nodes and unpaired gateways.
Issues recorded by the run's own audit are listed alongside.

Exits 1 when any high-severity issue is found (with --strict, medium too).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on medium-severity issues too")

	return cmd
}

func runAudit(opts *AuditOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	c, err := LoadContext(path)
	if err != nil {
		return fail(formatter, ExitCommandError, loadErrorCode(err), "loading context", err)
	}

	result := AuditResult{
		Structural: integrity.Structural(c.Records(ir.KindElements), c.Records(ir.KindFlows)),
		Recorded:   c.Audit(),
		RawAudit:   c.RawAudit(),
	}
	if result.Structural == nil {
		result.Structural = []ir.Issue{}
	}
	if result.Recorded == nil {
		result.Recorded = []ir.Issue{}
	}
	for _, is := range result.Structural {
		if is.Severity == ir.SeverityHigh || (opts.Strict && is.Severity == ir.SeverityMedium) {
			result.Failing++
		}
	}
	ok := result.Failing == 0

	var text strings.Builder
	text.WriteString(renderIssues(formatter.Writer, "Structural issues", result.Structural))
	text.WriteString(renderIssues(formatter.Writer, "Recorded issues", result.Recorded))
	if result.RawAudit != "" {
		fmt.Fprintf(&text, "Unstructured audit:\n  %s\n", result.RawAudit)
	}
	if err := formatter.Result(ok, result, text.String()); err != nil {
		return err
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d failing issue(s)", ErrCodeAuditFailed, result.Failing))
	}
	return nil
}
