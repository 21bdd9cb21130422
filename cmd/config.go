package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/llmclean-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/llmclean-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set llmclean configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		provider, _ := resolveProvider(cfg, "")
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		if env := ai.KeyEnvVar(provider); env != "" {
			fmt.Fprintf(out, "resolved_key (%s): %s\n", env, mask(cfg.ResolveAPIKey(env)))
		}
		fmt.Fprintf(out, "default_provider: %s\n", cfg.DefaultProvider)
		fmt.Fprintf(out, "default_model: %s\n", selectModel(cfg, "", provider))
		if cfg.BaseURL != "" {
			fmt.Fprintf(out, "base_url: %s\n", cfg.BaseURL)
		}
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		if cfg.OutputDir != "" {
			fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		}
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "request_timeout_sec: %d\n", cfg.RequestTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		if cfg.ModelsCatalog != "" {
			fmt.Fprintf(out, "models_catalog: %s\n", cfg.ModelsCatalog)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(out, "⚠ %v\n", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// edit the file contents only; env and flag overrides stay out of it
		c, err := cfgpkg.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %w", key, err)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "default_provider":
		c.DefaultProvider, err = resolveProvider(nil, val)
	case "default_model":
		c.DefaultModel = val
	case "base_url":
		c.BaseURL = val
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for temperature: %w", perr)
		}
		c.Temperature = f
	case "output_dir":
		c.OutputDir = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "request_timeout_sec":
		c.RequestTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "ollama_host":
		c.OllamaHost = val
	case "models_catalog":
		c.ModelsCatalog = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
