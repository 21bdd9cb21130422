package ai

import "context"

// Runtime is a minimal interface implemented by AI backends/runtimes
// such as Gemini, OpenRouter and local runtimes (e.g., Ollama).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOllama     = "ollama"
)

// Providers lists every built-in provider.
func Providers() []string {
	return []string{ProviderGemini, ProviderOpenRouter, ProviderOpenAI, ProviderAnthropic, ProviderOllama}
}

// KeyEnvVar returns the conventional API key variable for a provider, or "".
func KeyEnvVar(provider string) string {
	switch provider {
	case ProviderGemini:
		return "GOOGLE_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

// NeedsKey reports whether a provider requires an API key.
func NeedsKey(provider string) bool {
	return provider != ProviderOllama
}
