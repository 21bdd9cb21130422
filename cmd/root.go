package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/llmclean-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/llmclean-cli/internal/config"
	"github.com/KaramelBytes/llmclean-cli/internal/errs"
	"github.com/KaramelBytes/llmclean-cli/internal/logging"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgFile string
	envFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "llmclean",
	Short: "Replace placeholder tokens in tabular data with missing values",
	Long: `llmclean summarizes the string columns of a CSV or Excel file, asks a language
model which values are stand-ins for missing data (e.g. "unknown", "-99", "BLOD"),
and writes a cleaned copy with those cells set to missing.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(errs.ExitCode(err))
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the llmclean version",
	// config is not needed to print the version
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "llmclean %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.llmclean/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with API keys (default ./.env when present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 429/5xx and network errors (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

// setup loads the env file, logger and configuration before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	if err := cfgpkg.LoadEnvFile(envFile); err != nil {
		return errs.E(errs.KindIO, "", err)
	}
	l, err := logging.New(debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log = l

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return errs.E(errs.KindIO, "", err)
	}
	cfg = c

	// Apply CLI overrides if provided
	f := cmd.Flags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}

	if cfg.ModelsCatalog != "" {
		m, err := ai.LoadCatalogFromJSON(cfg.ModelsCatalog)
		if err != nil {
			log.Warn("models catalog not loaded", zap.String("path", cfg.ModelsCatalog), zap.Error(err))
		} else {
			ai.MergeCatalog(m)
		}
	}
	log.Debug("configuration loaded",
		zap.String("provider", cfg.DefaultProvider),
		zap.Int("http_timeout_sec", cfg.HTTPTimeoutSec),
		zap.Int("retry_max_attempts", cfg.RetryMaxAttempts))
	return nil
}
