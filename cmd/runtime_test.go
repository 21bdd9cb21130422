package cmd

import (
	"testing"
	"time"

	"github.com/KaramelBytes/llmclean-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/llmclean-cli/internal/config"
	"github.com/KaramelBytes/llmclean-cli/internal/errs"
)

func TestResolveProvider(t *testing.T) {
	cfg := &cfgpkg.Global{DefaultProvider: "anthropic"}
	cases := []struct {
		cfg  *cfgpkg.Global
		flag string
		want string
	}{
		{cfg, "", ai.ProviderAnthropic},
		{cfg, "OpenAI", ai.ProviderOpenAI},
		{nil, "", ai.ProviderGemini},
		{nil, "google", ai.ProviderGemini},
		{nil, "local", ai.ProviderOllama},
		{nil, "claude", ai.ProviderAnthropic},
	}
	for _, c := range cases {
		got, err := resolveProvider(c.cfg, c.flag)
		if err != nil || got != c.want {
			t.Fatalf("resolveProvider(%q) = %q, %v; want %q", c.flag, got, err, c.want)
		}
	}
	if _, err := resolveProvider(nil, "bard"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestSelectModelPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{DefaultModel: "cfg-model"}
	if got := selectModel(cfg, "cli-model", ai.ProviderGemini); got != "cli-model" {
		t.Fatalf("expected CLI model, got %q", got)
	}
	if got := selectModel(cfg, "", ai.ProviderGemini); got != "cfg-model" {
		t.Fatalf("expected config model, got %q", got)
	}
	cfg.DefaultModel = ""
	if got := selectModel(cfg, "", ai.ProviderOpenAI); got != "gpt-4o-mini" {
		t.Fatalf("expected provider default, got %q", got)
	}
}

func TestSelectModelIgnoresConfigModelOfOtherProvider(t *testing.T) {
	cfg := &cfgpkg.Global{DefaultProvider: "google", DefaultModel: "gemini-1.5-pro"}
	if got := selectModel(cfg, "", ai.ProviderGemini); got != "gemini-1.5-pro" {
		t.Fatalf("expected config model for configured provider, got %q", got)
	}
	if got := selectModel(cfg, "", ai.ProviderOllama); got != ai.DefaultModel(ai.ProviderOllama) {
		t.Fatalf("expected ollama default, got %q", got)
	}
}

func TestRuntimeConfigFromGlobal(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "ak-env")
	cfg := &cfgpkg.Global{
		HTTPTimeoutSec:   15,
		RetryMaxAttempts: 5,
		RetryBaseDelayMs: 100,
		RetryMaxDelayMs:  900,
		OllamaHost:       "http://gpu-box:11434",
	}
	rc := runtimeConfig(cfg, ai.ProviderAnthropic)
	if rc.APIKey != "ak-env" {
		t.Fatalf("expected key from provider env var, got %q", rc.APIKey)
	}
	if rc.HTTPTimeout != 15*time.Second || rc.RetryMax != 5 || rc.BaseDelay != 100*time.Millisecond || rc.MaxDelay != 900*time.Millisecond {
		t.Fatalf("unexpected runtime config: %+v", rc)
	}
	if rc.Host != "" {
		t.Fatalf("ollama host should only apply to ollama, got %q", rc.Host)
	}

	cfg.APIKey = "explicit"
	if rc := runtimeConfig(cfg, ai.ProviderAnthropic); rc.APIKey != "explicit" {
		t.Fatalf("configured key should win, got %q", rc.APIKey)
	}
	if rc := runtimeConfig(cfg, ai.ProviderOllama); rc.Host != "http://gpu-box:11434" {
		t.Fatalf("expected ollama host, got %q", rc.Host)
	}
}

func TestRuntimeConfigDefaults(t *testing.T) {
	rc := runtimeConfig(&cfgpkg.Global{}, ai.ProviderOllama)
	if rc.HTTPTimeout != 60*time.Second || rc.RetryMax != 3 {
		t.Fatalf("unexpected defaults: %+v", rc)
	}
}

func TestLoadOptions(t *testing.T) {
	lo, err := loadOptions("Raw", 2, "tab")
	if err != nil || lo.Delimiter != '\t' || lo.SheetName != "Raw" || lo.SheetIndex != 2 {
		t.Fatalf("unexpected options: %+v, %v", lo, err)
	}
	if lo, err := loadOptions("", 0, ";"); err != nil || lo.Delimiter != ';' {
		t.Fatalf("unexpected options: %+v, %v", lo, err)
	}
	for _, bad := range []string{";;", `"`} {
		_, err := loadOptions("", 0, bad)
		if errs.KindOf(err) != errs.KindFormat {
			t.Fatalf("delimiter %q: expected format error, got %v", bad, err)
		}
	}
	if _, err := loadOptions("", -1, ""); err == nil {
		t.Fatal("expected error for negative sheet index")
	}
}

func TestMask(t *testing.T) {
	if mask("") != "" || mask("abc") != "******" || mask("abcdefghij") != "abc****hij" {
		t.Fatal("unexpected mask output")
	}
}
