package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/llmclean-cli/internal/pipeline"
)

var (
	sumColumns    []string
	sumSheetName  string
	sumSheetIndex int
	sumDelimiter  string
	sumJSON       bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Show the per-column value counts that would be sent to the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lo, err := loadOptions(sumSheetName, sumSheetIndex, sumDelimiter)
		if err != nil {
			return err
		}
		cols, s, err := pipeline.Summarize(args[0], sumColumns, lo)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if sumJSON {
			js, err := s.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, js)
			return nil
		}
		fmt.Fprintf(out, "%d columns analyzed, %d with non-numeric values\n\n", len(cols), len(s))
		fmt.Fprint(out, s.Markdown())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	f := summarizeCmd.Flags()
	f.StringSliceVarP(&sumColumns, "columns", "c", nil, "columns to summarize (default: every non-numeric column)")
	f.StringVar(&sumSheetName, "sheet-name", "", "spreadsheet sheet to read (case-insensitive)")
	f.IntVar(&sumSheetIndex, "sheet-index", 0, "1-based spreadsheet sheet index (default 1)")
	f.StringVar(&sumDelimiter, "delimiter", "", "CSV field delimiter (single character or 'tab')")
	f.BoolVar(&sumJSON, "json", false, "print the summaries as JSON")
}
