package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/llmclean-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/llmclean-cli/internal/config"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect or extend the model catalog",
	Example: `  llmclean models show
  llmclean models sync --file ./models.json`,
}

var modelsShowJSON bool

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current model catalog and provider defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if modelsShowJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(ai.Catalog())
		}
		defaults := map[string]string{}
		for _, p := range ai.Providers() {
			defaults[ai.DefaultModel(p)] = p
		}
		cat := ai.Catalog()
		for _, name := range ai.CatalogNames() {
			line := fmt.Sprintf("%-28s %8d tokens", name, cat[name].ContextTokens)
			if p, ok := defaults[name]; ok {
				line += fmt.Sprintf("  (default for %s)", p)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var syncPath string

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge a JSON catalog file and remember it in the config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		abs, err := filepath.Abs(syncPath)
		if err != nil {
			return err
		}
		m, err := ai.LoadCatalogFromJSON(abs)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		ai.MergeCatalog(m)
		c, err := cfgpkg.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		c.ModelsCatalog = abs
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		if cfg != nil {
			cfg.ModelsCatalog = abs
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %d models from %s\n", len(m), abs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsSyncCmd)

	modelsShowCmd.Flags().BoolVar(&modelsShowJSON, "json", false, "print the catalog as JSON")
	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
}
