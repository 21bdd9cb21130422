package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. LLMCLEAN_DEFAULT_PROVIDER.
const EnvPrefix = "LLMCLEAN"

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider" validate:"required,oneof=gemini openrouter openai anthropic ollama"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	OutputDir       string  `mapstructure:"output_dir" yaml:"output_dir"`

	// HTTP/Retry configuration
	HTTPTimeoutSec    int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"gte=1"`
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec" validate:"gte=1"`
	RetryMaxAttempts  int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts" validate:"gte=1,lte=10"`
	RetryBaseDelayMs  int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms" validate:"gte=0"`
	RetryMaxDelayMs   int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms" validate:"gte=0"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host" validate:"omitempty,url"`

	// ModelsCatalog is an optional JSON file merged into the model catalog at startup.
	ModelsCatalog string `mapstructure:"models_catalog" yaml:"models_catalog"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"api_key":             "",
		"default_provider":    "gemini",
		"default_model":       "",
		"base_url":            "",
		"max_tokens":          1024,
		"temperature":         0.0,
		"output_dir":          "",
		"http_timeout_sec":    60,
		"request_timeout_sec": 120,
		"retry_max_attempts":  3,
		"retry_base_delay_ms": 500,
		"retry_max_delay_ms":  4000,
		"ollama_host":         "http://127.0.0.1:11434",
		"models_catalog":      "",
	}
}

// Dir returns ~/.llmclean.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".llmclean"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.llmclean/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// the file may hold an API key
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	return load(cfgFile, true)
}

// LoadFile loads the config file over the defaults and ignores the
// environment. It is the base for edits that are saved back to disk, so env
// values such as LLMCLEAN_API_KEY never end up in the file.
func LoadFile(cfgFile string) (*Global, error) {
	return load(cfgFile, false)
}

func load(cfgFile string, withEnv bool) (*Global, error) {
	v := viper.New()
	if withEnv {
		v.SetEnvPrefix(EnvPrefix)
		v.AutomaticEnv()
	}
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. With an empty path it
// reads ./.env when present.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ResolveAPIKey returns the configured key, falling back to envVar.
func (c *Global) ResolveAPIKey(envVar string) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// HTTPTimeout, RequestTimeout, RetryBaseDelay and RetryMaxDelay convert the
// integer settings to durations.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func (c *Global) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c *Global) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report yaml key names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists every invalid setting.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Fields, "; ")
}

// Validate checks value ranges and enumerations.
func (c *Global) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, formatFieldError(fe))
	}
	return out
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", fe.Field(), fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %v", fe.Field(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be <= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
