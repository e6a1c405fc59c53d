package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".apicheck/config.yaml"

type TargetConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIPrefix         string        `yaml:"api_prefix"`
	Token             string        `yaml:"token"`
	Timeout           time.Duration `yaml:"timeout"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
}

type ProviderConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	EnvFile     string        `yaml:"env_file"`
	KeyName     string        `yaml:"key_name"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ReportConfig struct {
	Format       string `yaml:"format"`
	ExcerptLimit int    `yaml:"excerpt_limit"`
	XLSX         string `yaml:"xlsx"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SanitizeConfig struct {
	Headers     []string `yaml:"headers"`
	BodyFields  []string `yaml:"body_fields"`
	Replacement string   `yaml:"replacement"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Target   TargetConfig   `yaml:"target"`
	Provider ProviderConfig `yaml:"provider"`
	Report   ReportConfig   `yaml:"report"`
	History  HistoryConfig  `yaml:"history"`
	Sanitize SanitizeConfig `yaml:"sanitize"`
	Log      LogConfig      `yaml:"log"`
}

// Load loads YAML config, then applies env overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		configPath = filepath.Join(home, defaultConfigRelPath)
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Target.BaseURL == "" {
		c.Target.BaseURL = "https://nextgen-aichat.preview.emergentagent.com"
	}
	if c.Target.APIPrefix == "" {
		c.Target.APIPrefix = "/api"
	}
	if c.Target.Token == "" {
		c.Target.Token = "dummy_token_for_testing"
	}
	if c.Target.Timeout == 0 {
		c.Target.Timeout = 10 * time.Second
	}
	if c.Target.GenerationTimeout == 0 {
		c.Target.GenerationTimeout = 30 * time.Second
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Provider.Model == "" {
		c.Provider.Model = "llama-3.3-70b-versatile"
	}
	if c.Provider.EnvFile == "" {
		c.Provider.EnvFile = "/app/.env"
	}
	if c.Provider.KeyName == "" {
		c.Provider.KeyName = "GROQ_API_KEY"
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = 10
	}
	if c.Provider.Temperature == 0 {
		c.Provider.Temperature = 0.7
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Report.Format == "" {
		c.Report.Format = "text"
	}
	if c.Report.ExcerptLimit == 0 {
		c.Report.ExcerptLimit = 200
	}
	if c.History.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.History.Path = filepath.Join(home, ".apicheck", "history.db")
		} else {
			c.History.Path = "apicheck.db"
		}
	}
	if len(c.Sanitize.Headers) == 0 {
		c.Sanitize.Headers = []string{"Authorization", "Cookie", "X-Api-Key"}
	}
	if len(c.Sanitize.BodyFields) == 0 {
		c.Sanitize.BodyFields = []string{"password", "secret", "token", "api_key", "access_token"}
	}
	if c.Sanitize.Replacement == "" {
		c.Sanitize.Replacement = "***REDACTED***"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// APIBase joins the target base URL with the API prefix.
func (c *Config) APIBase() string {
	return strings.TrimRight(c.Target.BaseURL, "/") + "/" + strings.Trim(c.Target.APIPrefix, "/")
}

func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Target.BaseURL))
	if err != nil {
		return fmt.Errorf("target.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target.base_url must be http(s), got %q", c.Target.BaseURL)
	}
	if u.Host == "" {
		return errors.New("target.base_url has no host")
	}
	switch c.Report.Format {
	case "text", "json", "markdown":
	default:
		return fmt.Errorf("report.format %q not supported", c.Report.Format)
	}
	if c.Target.Timeout < 0 || c.Target.GenerationTimeout < 0 || c.Provider.Timeout < 0 {
		return errors.New("timeouts cannot be negative")
	}
	return nil
}

// ValidateProbe enforces probe-specific requirements.
func (c *Config) ValidateProbe() error {
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		return errors.New("provider.base_url cannot be empty")
	}
	if strings.TrimSpace(c.Provider.KeyName) == "" {
		return errors.New("provider.key_name cannot be empty")
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	setString(&c.Target.BaseURL, "APICHECK_BASE_URL")
	setString(&c.Target.APIPrefix, "APICHECK_API_PREFIX")
	setString(&c.Target.Token, "APICHECK_TOKEN")
	setDuration(&c.Target.Timeout, "APICHECK_TIMEOUT")
	setDuration(&c.Target.GenerationTimeout, "APICHECK_GENERATION_TIMEOUT")
	setString(&c.Provider.BaseURL, "APICHECK_PROVIDER_BASE_URL")
	setString(&c.Provider.Model, "APICHECK_PROVIDER_MODEL")
	setString(&c.Provider.EnvFile, "APICHECK_PROVIDER_ENV_FILE")
	setInt(&c.Provider.MaxTokens, "APICHECK_PROVIDER_MAX_TOKENS")
	setFloat(&c.Provider.Temperature, "APICHECK_PROVIDER_TEMPERATURE")
	setString(&c.Report.Format, "APICHECK_REPORT_FORMAT")
	setString(&c.History.Path, "APICHECK_HISTORY_PATH")
	setString(&c.Log.Level, "APICHECK_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
