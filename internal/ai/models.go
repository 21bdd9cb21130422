package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ModelInfo describes a model's approximate context window.
type ModelInfo struct {
	Name          string
	ContextTokens int
}

// defaultModels is the model used when none is configured for a provider.
var defaultModels = map[string]string{
	ProviderGemini:     "gemini-1.5-flash",
	ProviderOpenRouter: "google/gemini-flash-1.5",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderAnthropic:  "claude-3-5-haiku-latest",
	ProviderOllama:     "llama3.1:8b-instruct",
}

var models = map[string]ModelInfo{
	"gemini-1.5-flash":         {Name: "gemini-1.5-flash", ContextTokens: 1000000},
	"gemini-1.5-pro":           {Name: "gemini-1.5-pro", ContextTokens: 2000000},
	"gemini-2.0-flash":         {Name: "gemini-2.0-flash", ContextTokens: 1000000},
	"google/gemini-flash-1.5":  {Name: "google/gemini-flash-1.5", ContextTokens: 1000000},
	"openai/gpt-4o-mini":       {Name: "openai/gpt-4o-mini", ContextTokens: 128000},
	"gpt-4o-mini":              {Name: "gpt-4o-mini", ContextTokens: 128000},
	"gpt-4o":                   {Name: "gpt-4o", ContextTokens: 128000},
	"claude-3-5-haiku-latest":  {Name: "claude-3-5-haiku-latest", ContextTokens: 200000},
	"claude-3-5-sonnet-latest": {Name: "claude-3-5-sonnet-latest", ContextTokens: 200000},
	"llama3.1:8b-instruct":     {Name: "llama3.1:8b-instruct", ContextTokens: 8192},
	"llama3:latest":            {Name: "llama3:latest", ContextTokens: 8192},
	"mistral:7b-instruct":      {Name: "mistral:7b-instruct", ContextTokens: 8192},
}

// DefaultModel returns the built-in model for a provider, or "".
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// LoadCatalogFromJSON reads a map[string]ModelInfo from a JSON file, e.g.
// { "gpt-4o-mini": {"Name":"gpt-4o-mini","ContextTokens":128000} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return m, nil
}

// MergeCatalog adds or replaces entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		models[k] = v
	}
}

// Catalog returns a copy of the current model catalog.
func Catalog() map[string]ModelInfo {
	out := make(map[string]ModelInfo, len(models))
	for k, v := range models {
		out[k] = v
	}
	return out
}

// CatalogNames returns the catalog keys, sorted.
func CatalogNames() []string {
	names := make([]string, 0, len(models))
	for k := range models {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
