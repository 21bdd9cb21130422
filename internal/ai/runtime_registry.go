package ai

import "time"

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	// Common
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Remote providers
	APIKey string
	// BaseURL overrides the provider endpoint; empty means the public default.
	BaseURL string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[name]; ok {
		return f(cfg), true
	}
	return nil, false
}

func init() {
	RegisterRuntime(ProviderGemini, func(c RuntimeConfig) Runtime {
		return NewGeminiClient(c.APIKey, c.BaseURL, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	})
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) Runtime {
		return NewClientWithBaseURL(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay, c.BaseURL)
	})
	RegisterRuntime(ProviderOpenAI, func(c RuntimeConfig) Runtime {
		return NewOpenAIClient(c.APIKey, c.BaseURL, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	})
	RegisterRuntime(ProviderAnthropic, func(c RuntimeConfig) Runtime {
		return NewAnthropicClient(c.APIKey, c.BaseURL, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		if c.RetryMax <= 0 {
			c.RetryMax = 2
		}
		if c.BaseDelay <= 0 {
			c.BaseDelay = 200 * time.Millisecond
		}
		if c.MaxDelay <= 0 {
			c.MaxDelay = 1 * time.Second
		}
		host := c.Host
		if host == "" {
			host = c.BaseURL
		}
		return NewOllamaClient(host, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
	})
}
