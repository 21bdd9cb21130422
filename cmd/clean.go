package cmd

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/llmclean-cli/internal/dataset"
	"github.com/KaramelBytes/llmclean-cli/internal/errs"
	"github.com/KaramelBytes/llmclean-cli/internal/pipeline"
	"github.com/KaramelBytes/llmclean-cli/internal/utils"
)

var (
	cleanColumns    []string
	cleanOutputDir  string
	cleanProvider   string
	cleanModel      string
	cleanSheetName  string
	cleanSheetIndex int
	cleanDelimiter  string
	cleanTimeoutSec int
	cleanMaxTokens  int
	cleanDryRun     bool
	cleanJSON       bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Detect placeholder values with a model and write <name>_cleaned.<ext>",
	Example: `  llmclean clean survey.csv
  llmclean clean survey.csv -c Sex -c Age
  llmclean clean results.xlsx --sheet-name Raw --provider ollama --model llama3:latest
  llmclean clean survey.csv --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	f := cleanCmd.Flags()
	f.StringSliceVarP(&cleanColumns, "columns", "c", nil, "columns to clean (default: every non-numeric column)")
	f.StringVarP(&cleanOutputDir, "output-dir", "o", "", "directory for the cleaned file (default: next to the input)")
	f.StringVar(&cleanProvider, "provider", "", "model provider: gemini, openrouter, openai, anthropic or ollama")
	f.StringVarP(&cleanModel, "model", "m", "", "model name (default: config, then provider default)")
	f.StringVar(&cleanSheetName, "sheet-name", "", "spreadsheet sheet to read (case-insensitive)")
	f.IntVar(&cleanSheetIndex, "sheet-index", 0, "1-based spreadsheet sheet index (default 1)")
	f.StringVar(&cleanDelimiter, "delimiter", "", "CSV field delimiter (single character or 'tab')")
	f.IntVar(&cleanTimeoutSec, "timeout-sec", 0, "overall model call timeout in seconds (overrides config)")
	f.IntVar(&cleanMaxTokens, "max-tokens", 0, "max response tokens (overrides config)")
	f.BoolVar(&cleanDryRun, "dry-run", false, "print the prompt and stop before calling the model")
	f.BoolVar(&cleanJSON, "json", false, "print a JSON run report instead of progress text")
}

func runClean(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	provider, err := resolveProvider(cfg, cleanProvider)
	if err != nil {
		return err
	}
	lo, err := loadOptions(cleanSheetName, cleanSheetIndex, cleanDelimiter)
	if err != nil {
		return err
	}

	timeout := cfg.RequestTimeout()
	if cleanTimeoutSec > 0 {
		timeout = time.Duration(cleanTimeoutSec) * time.Second
	}
	maxTokens := cfg.MaxTokens
	if cleanMaxTokens > 0 {
		maxTokens = cleanMaxTokens
	}
	outDir := cleanOutputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	var progress io.Writer = cmd.OutOrStdout()
	if cleanJSON {
		progress = io.Discard
	}
	rep, err := pipeline.Run(cmd.Context(), pipeline.Options{
		Input:          args[0],
		OutputDir:      outDir,
		Columns:        cleanColumns,
		Load:           lo,
		Provider:       provider,
		Model:          selectModel(cfg, cleanModel, provider),
		RuntimeConfig:  runtimeConfig(cfg, provider),
		MaxTokens:      maxTokens,
		Temperature:    cfg.Temperature,
		RequestTimeout: timeout,
		DryRun:         cleanDryRun,
		Logger:         log,
		Out:            progress,
		BuildRuntime:   buildRuntimeFn,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cleanJSON {
		b, err := utils.PrettyJSON(rep)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	}
	if rep.DryRun {
		fmt.Fprintf(out, "\n--dry-run: prompt for %s (~%d tokens) --\n", rep.Model, rep.PromptTokens)
		fmt.Fprintln(out, rep.Prompt)
	}
	return nil
}

func loadOptions(sheetName string, sheetIndex int, delimiter string) (dataset.LoadOptions, error) {
	lo := dataset.LoadOptions{SheetName: sheetName, SheetIndex: sheetIndex}
	switch delimiter {
	case "":
	case "tab", `\t`:
		lo.Delimiter = '\t'
	default:
		r, size := utf8.DecodeRuneInString(delimiter)
		if size != len(delimiter) || r == '"' || r == '\n' || r == '\r' {
			return lo, errs.E(errs.KindFormat, "", fmt.Errorf("invalid --delimiter %q: use a single character", delimiter))
		}
		lo.Delimiter = r
	}
	if sheetIndex < 0 {
		return lo, errs.E(errs.KindFormat, "", fmt.Errorf("invalid --sheet-index %d: must be 1 or greater", sheetIndex))
	}
	return lo, nil
}
