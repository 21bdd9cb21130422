package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/llmclean-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/llmclean-cli/internal/config"
	"github.com/KaramelBytes/llmclean-cli/internal/pipeline"
)

// buildRuntimeFn is replaced in tests to avoid network calls.
var buildRuntimeFn pipeline.RuntimeBuilder = pipeline.DefaultBuildRuntime

// resolveProvider picks the provider from the flag, then config, then the
// built-in default, and folds common aliases.
func resolveProvider(cfg *cfgpkg.Global, flag string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(flag))
	if name == "" && cfg != nil {
		name = strings.ToLower(strings.TrimSpace(cfg.DefaultProvider))
	}
	switch name {
	case "":
		return ai.ProviderGemini, nil
	case "google":
		return ai.ProviderGemini, nil
	case "local":
		return ai.ProviderOllama, nil
	case "claude":
		return ai.ProviderAnthropic, nil
	}
	for _, p := range ai.Providers() {
		if p == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("provider not supported: %s (use %s)", name, strings.Join(ai.Providers(), ", "))
}

// runtimeConfig assembles the runtime settings for provider from config and env.
func runtimeConfig(cfg *cfgpkg.Global, provider string) ai.RuntimeConfig {
	rc := ai.RuntimeConfig{
		HTTPTimeout: 60 * time.Second,
		RetryMax:    3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
	if cfg == nil {
		rc.APIKey = os.Getenv(ai.KeyEnvVar(provider))
		return rc
	}
	if cfg.HTTPTimeoutSec > 0 {
		rc.HTTPTimeout = cfg.HTTPTimeout()
	}
	if cfg.RetryMaxAttempts > 0 {
		rc.RetryMax = cfg.RetryMaxAttempts
	}
	if cfg.RetryBaseDelayMs > 0 {
		rc.BaseDelay = cfg.RetryBaseDelay()
	}
	if cfg.RetryMaxDelayMs > 0 {
		rc.MaxDelay = cfg.RetryMaxDelay()
	}
	rc.APIKey = cfg.ResolveAPIKey(ai.KeyEnvVar(provider))
	rc.BaseURL = cfg.BaseURL
	if provider == ai.ProviderOllama {
		rc.Host = cfg.OllamaHost
	}
	return rc
}

// selectModel prefers the explicit flag, then the configured default, then the
// provider's built-in model. The configured model belongs to the configured
// provider and is ignored when --provider picks another one.
func selectModel(cfg *cfgpkg.Global, explicit, provider string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		if configured, err := resolveProvider(cfg, ""); err == nil && configured == provider {
			return cfg.DefaultModel
		}
	}
	return ai.DefaultModel(provider)
}
