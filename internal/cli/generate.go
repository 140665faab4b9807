package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archay0/bpmnMATLAB/internal/config"
	"github.com/archay0/bpmnMATLAB/internal/generate"
	"github.com/archay0/bpmnMATLAB/internal/pipeline"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	File         string // read one description from a file
	Script       string // scripted responses instead of OpenRouter
	Model        string
	OutputDir    string
	Elements     int
	ProductSpecs bool
	NoDocument   bool
}

// RunSummary is the JSON payload of one finished run.
type RunSummary struct {
	Location string           `json:"location"`
	Summary  pipeline.Summary `json:"summary"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate [description...]",
		Short: "Generate a BPMN model from product descriptions",
		Long: `Run the generation pipeline once per description.

Each argument is one product description; --file reads a single
description from a file instead. Every run writes its artifacts to its own
directory under the output dir. The command exits 1 when any run ends
with success=false.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the description from a file")
	cmd.Flags().StringVar(&opts.Script, "script", "", "YAML file of scripted responses (offline runs)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "model name")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "output directory")
	cmd.Flags().IntVar(&opts.Elements, "elements", 0, "elements requested per batch")
	cmd.Flags().BoolVar(&opts.ProductSpecs, "product-specs", false, "also generate product specifications")
	cmd.Flags().BoolVar(&opts.NoDocument, "no-document", false, "skip compiling process.bpmn")

	return cmd
}

func runGenerate(opts *GenerateOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	descriptions, err := descriptionsFrom(opts, args)
	if err != nil {
		return fail(formatter, ExitCommandError, loadErrorCode(err), "no description", err)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeConfig, "loading config", err)
	}
	cfg.Merge(opts.overlay())
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	logger := cfg.Logging.Logger(cmd.ErrOrStderr())

	gen, err := NewGenerator(cfg, logger)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGenerator, "building generator", err)
	}

	orch, err := pipeline.New(gen, append(cfg.PipelineOptions(), pipeline.WithLogger(logger))...)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "building pipeline", err)
	}

	formatter.VerboseLog("Starting %d run(s) with model %s", len(descriptions), cfg.Generator.Model)
	results, runErr := orch.RunMany(cmd.Context(), descriptions)

	ok := true
	payload := make([]RunSummary, 0, len(results))
	var text strings.Builder
	for _, res := range results {
		if res == nil {
			ok = false
			continue
		}
		ok = ok && res.Summary.Success
		payload = append(payload, RunSummary{Location: res.Location, Summary: res.Summary})
		text.WriteString(renderSummary(formatter.Writer, res.Summary, res.Location))
	}
	if err := formatter.Result(ok && runErr == nil, payload, text.String()); err != nil {
		return err
	}

	if runErr != nil {
		return fail(formatter, ExitCommandError, ErrCodeWriteFailed, "persisting run artifacts", runErr)
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: run failed", ErrCodeRunFailed))
	}
	return nil
}

// overlay turns flags into a config overlay; unset flags stay zero.
func (o *GenerateOptions) overlay() *config.Config {
	overlay := &config.Config{}
	if o.Script != "" {
		overlay.Generator.Provider = config.ProviderScript
		overlay.Generator.Script = o.Script
	}
	overlay.Generator.Model = o.Model
	overlay.Output.Dir = o.OutputDir
	overlay.Pipeline.Sizes.Elements = o.Elements
	if o.ProductSpecs {
		on := true
		overlay.Pipeline.ProductSpecs = &on
	}
	if o.NoDocument {
		off := false
		overlay.Pipeline.CompileDocument = &off
	}
	return overlay
}

func descriptionsFrom(opts *GenerateOptions, args []string) ([]string, error) {
	var out []string
	if opts.File != "" {
		data, err := readInput(opts.File)
		if err != nil {
			return nil, err
		}
		out = append(out, strings.TrimSpace(string(data)))
	}
	for _, a := range args {
		out = append(out, strings.TrimSpace(a))
	}
	if len(out) == 0 {
		return nil, &LoadError{Code: ErrCodeNoInput, Message: "give a description as an argument or with --file"}
	}
	return out, nil
}

// NewGenerator builds the configured generator wrapped in the structured
// reply handler.
func NewGenerator(cfg *config.Config, logger *slog.Logger) (generate.Generator, error) {
	g := cfg.Generator
	var inner generate.Generator
	switch g.Provider {
	case config.ProviderScript:
		s, err := generate.LoadScript(g.Script)
		if err != nil {
			return nil, err
		}
		inner = s
	default:
		c, err := generate.NewClient(g.APIKey,
			generate.WithBaseURL(g.BaseURL),
			generate.WithHTTPClient(&http.Client{Timeout: g.TimeoutDuration()}),
			generate.WithAttribution(g.Referer, g.Title),
			generate.WithRetry(g.RateLimitRetries, g.BackoffDuration()),
			generate.WithClientLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		inner = c
	}
	return generate.NewStructured(inner, generate.WithStructuredLogger(logger)), nil
}
