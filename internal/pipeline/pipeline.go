// Package pipeline runs one cleaning pass: load, summarize, resolve
// placeholders with a model, replace them and write the cleaned copy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/llmclean-cli/internal/ai"
	"github.com/KaramelBytes/llmclean-cli/internal/analysis"
	"github.com/KaramelBytes/llmclean-cli/internal/cleaner"
	"github.com/KaramelBytes/llmclean-cli/internal/dataset"
	"github.com/KaramelBytes/llmclean-cli/internal/errs"
	"github.com/KaramelBytes/llmclean-cli/internal/placeholder"
	"github.com/KaramelBytes/llmclean-cli/internal/utils"
)

// RuntimeBuilder creates the model runtime for a provider.
type RuntimeBuilder func(provider string, cfg ai.RuntimeConfig) (ai.Runtime, error)

// Options is everything one run needs. Nothing is read from globals.
type Options struct {
	Input string
	// OutputDir receives <stem>_cleaned.<ext>; empty means the input's directory.
	OutputDir string
	// Columns to analyze; empty selects every non-numeric column.
	Columns []string
	Load    dataset.LoadOptions

	Provider      string
	Model         string
	RuntimeConfig ai.RuntimeConfig
	MaxTokens     int
	Temperature   float64
	// RequestTimeout bounds the model call including retries.
	RequestTimeout time.Duration

	// DryRun stops after summarizing and reports the prompt without a model call.
	DryRun bool

	Logger *zap.Logger
	// Out receives human-readable progress; nil discards it.
	Out io.Writer
	// BuildRuntime overrides the runtime registry.
	BuildRuntime RuntimeBuilder
}

// Report describes a finished run.
type Report struct {
	RunID        string             `json:"run_id"`
	Input        string             `json:"input"`
	Output       string             `json:"output,omitempty"`
	Provider     string             `json:"provider,omitempty"`
	Model        string             `json:"model,omitempty"`
	Rows         int                `json:"rows"`
	Columns      []string           `json:"columns"`
	Summaries    analysis.Summaries `json:"summaries"`
	PromptTokens int                `json:"prompt_tokens_estimate"`
	Prompt       string             `json:"prompt,omitempty"`
	RawResponse  string             `json:"raw_response,omitempty"`
	RequestID    string             `json:"request_id,omitempty"`
	Placeholders []string           `json:"placeholders"`
	Dropped      []string           `json:"dropped,omitempty"`
	Replaced     map[string]int     `json:"replaced"`
	Residuals    map[string]int     `json:"residuals"`
	Usage        ai.Usage           `json:"usage"`
	DryRun       bool               `json:"dry_run"`
	StartedAt    time.Time          `json:"started_at"`
	ElapsedMs    int64              `json:"elapsed_ms"`
}

// DefaultBuildRuntime looks the provider up in the ai registry.
func DefaultBuildRuntime(provider string, cfg ai.RuntimeConfig) (ai.Runtime, error) {
	rt, ok := ai.GetRuntime(provider, cfg)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", provider, strings.Join(ai.Providers(), ", "))
	}
	return rt, nil
}

// Run executes the pipeline. Failures carry an errs.Kind.
func Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("pipeline")
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	rep := &Report{
		RunID:     uuid.NewString(),
		Input:     opts.Input,
		Provider:  opts.Provider,
		Model:     opts.Model,
		DryRun:    opts.DryRun,
		StartedAt: start.UTC(),
	}
	log = log.With(zap.String("run_id", rep.RunID))

	// Credentials are checked before the input is touched.
	var rt ai.Runtime
	if !opts.DryRun {
		if ai.NeedsKey(opts.Provider) && opts.RuntimeConfig.APIKey == "" {
			return nil, errs.E(errs.KindCredential, "resolve credentials", &ai.MissingKeyError{Provider: opts.Provider})
		}
		build := opts.BuildRuntime
		if build == nil {
			build = DefaultBuildRuntime
		}
		var err error
		rt, err = build(opts.Provider, opts.RuntimeConfig)
		if err != nil {
			return nil, errs.E(errs.KindUnknown, "build runtime", err)
		}
	}

	ds, err := dataset.Load(opts.Input, opts.Load)
	if err != nil {
		return nil, errs.E(loadKind(err), "load "+opts.Input, err)
	}
	rep.Rows = ds.Rows()
	log.Debug("dataset loaded", zap.String("file", ds.Name), zap.Int("rows", ds.Rows()), zap.Int("columns", len(ds.Columns)))

	columns := opts.Columns
	if len(columns) == 0 {
		columns = ds.DefaultColumns()
	}
	if err := ds.RequireColumns(columns); err != nil {
		return nil, errs.E(errs.KindColumn, "select columns", err)
	}
	rep.Columns = columns
	fmt.Fprintf(out, "Analyzing %d string columns for placeholders...\n", len(columns))

	summaries, err := analysis.Summarize(ds, columns)
	if err != nil {
		return nil, errs.E(errs.KindColumn, "summarize", err)
	}
	rep.Summaries = summaries

	prompt, err := placeholder.BuildPrompt(summaries)
	if err != nil {
		return nil, errs.E(errs.KindUnknown, "build prompt", err)
	}
	rep.PromptTokens = utils.CountTokens(prompt)
	if mi, ok := ai.LookupModel(opts.Model); ok && rep.PromptTokens > mi.ContextTokens {
		log.Warn("prompt may exceed the model context window",
			zap.String("model", opts.Model),
			zap.Int("prompt_tokens_estimate", rep.PromptTokens),
			zap.Int("context_tokens", mi.ContextTokens))
	}
	if opts.DryRun {
		rep.Prompt = prompt
		rep.Placeholders = []string{}
		rep.ElapsedMs = time.Since(start).Milliseconds()
		return rep, nil
	}

	resolver := &placeholder.Resolver{
		Runtime:     rt,
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Timeout:     opts.RequestTimeout,
		Logger:      log,
		OnResponse: func(raw string) {
			fmt.Fprintf(out, "Response: \n%s\n", raw)
		},
	}
	res, err := resolver.ResolveDetailed(ctx, summaries)
	if err != nil {
		return nil, errs.E(resolveKind(err), "identify placeholders", err)
	}
	rep.Placeholders = res.Placeholders
	rep.Dropped = res.Dropped
	rep.RawResponse = res.Raw
	rep.RequestID = res.RequestID
	rep.Usage = res.Usage
	fmt.Fprintf(out, "\nIdentified placeholder strings:\n%s\n", formatList(res.Placeholders))

	cleaned, replaced, err := cleaner.CleanCounted(ds, res.Placeholders, columns)
	if err != nil {
		return nil, errs.E(errs.KindColumn, "clean", err)
	}
	rep.Replaced = replaced
	rep.Residuals = cleaner.Residuals(cleaned, res.Placeholders, columns)
	for _, c := range columns {
		fmt.Fprintf(out, "\nColumn: %s\nRemaining placeholders: %d\n", c, rep.Residuals[c])
	}

	target := dataset.CleanedPath(opts.Input, opts.OutputDir)
	if err := utils.EnsureDir(opts.OutputDir); err != nil {
		return nil, errs.E(errs.KindIO, "create output dir", err)
	}
	if err := dataset.Write(cleaned, target); err != nil {
		return nil, errs.E(errs.KindIO, "write "+target, err)
	}
	rep.Output = target
	fmt.Fprintf(out, "\nCleaned data saved to: %s\n", target)

	rep.ElapsedMs = time.Since(start).Milliseconds()
	log.Debug("run complete", zap.Int64("elapsed_ms", rep.ElapsedMs))
	return rep, nil
}

// Summarize loads the input and returns its column summaries without any model call.
func Summarize(path string, columns []string, lo dataset.LoadOptions) ([]string, analysis.Summaries, error) {
	ds, err := dataset.Load(path, lo)
	if err != nil {
		return nil, nil, errs.E(loadKind(err), "load "+path, err)
	}
	if len(columns) == 0 {
		columns = ds.DefaultColumns()
	}
	s, err := analysis.Summarize(ds, columns)
	if err != nil {
		return nil, nil, errs.E(errs.KindColumn, "summarize", err)
	}
	return columns, s, nil
}

func loadKind(err error) errs.Kind {
	var pe *fs.PathError
	switch {
	case errors.Is(err, dataset.ErrUnsupported):
		return errs.KindFormat
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission), errors.As(err, &pe):
		return errs.KindIO
	}
	return errs.KindFormat
}

func resolveKind(err error) errs.Kind {
	var pe *placeholder.ParseError
	switch {
	case errors.As(err, &pe):
		return errs.KindParse
	case ai.IsCredentialError(err):
		return errs.KindCredential
	}
	return errs.KindNetwork
}

func formatList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
