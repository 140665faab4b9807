package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/archay0/bpmnMATLAB/internal/bpmn"
	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output        string // output file path
	DefinitionsID string
}

// CompilationResult describes a compiled document.
type CompilationResult struct {
	Output          string   `json:"output"`
	Nodes           int      `json:"nodes"`
	Flows           int      `json:"flows"`
	SkippedElements []string `json:"skipped_elements"`
	DroppedFlows    []string `json:"dropped_flows"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <context.json|run-dir>",
		Short: "Compile a saved run context to BPMN XML",
		Long: `Compile the elements and flows of a saved complete_context.json into a
BPMN 2.0 document with diagram interchange.

Elements that are not events, tasks or gateways are skipped, and flows
whose endpoints were not compiled are dropped; both are listed in the
output. The document is written next to the context unless --output is
given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.DefinitionsID, "definitions-id", "", "fixed id for the definitions root")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	c, err := LoadContext(path)
	if err != nil {
		return fail(formatter, ExitCommandError, loadErrorCode(err), "loading context", err)
	}

	var copts []bpmn.Option
	if opts.DefinitionsID != "" {
		copts = append(copts, bpmn.WithDefinitionsID(opts.DefinitionsID))
	}
	doc := bpmn.Compile(c.Header(), c.Records(ir.KindElements), c.Records(ir.KindFlows), copts...)
	formatter.VerboseLog("Compiled %d node(s) and %d flow(s)", doc.NodeCount(), doc.FlowCount())

	data, err := doc.Bytes()
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "encoding document", err)
	}

	out := opts.Output
	if out == "" {
		out = filepath.Join(filepath.Dir(contextPath(path)), store.DocumentFile)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeWriteFailed, "writing document", err)
	}

	result := CompilationResult{
		Output:          out,
		Nodes:           doc.NodeCount(),
		Flows:           doc.FlowCount(),
		SkippedElements: nonNil(doc.SkippedElements),
		DroppedFlows:    nonNil(doc.DroppedFlows),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d node(s), %d flow(s)\n", result.Nodes, result.Flows)
	if n := len(result.SkippedElements); n > 0 {
		fmt.Fprintf(formatter.Writer, "  skipped %d element(s): %v\n", n, result.SkippedElements)
	}
	if n := len(result.DroppedFlows); n > 0 {
		fmt.Fprintf(formatter.Writer, "  dropped %d flow(s): %v\n", n, result.DroppedFlows)
	}
	fmt.Fprintf(formatter.Writer, "Wrote BPMN to %s\n", out)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
