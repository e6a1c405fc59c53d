package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if c.Target.Timeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %s", c.Target.Timeout)
	}
	if c.Target.GenerationTimeout != 30*time.Second {
		t.Fatalf("expected 30s generation timeout")
	}
	if c.Provider.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected model %s", c.Provider.Model)
	}
	if c.Provider.KeyName != "GROQ_API_KEY" {
		t.Fatalf("unexpected key name %s", c.Provider.KeyName)
	}
	if c.Log.Level != "info" {
		t.Fatalf("expected info level")
	}
	if c.APIBase() != "https://nextgen-aichat.preview.emergentagent.com/api" {
		t.Fatalf("unexpected api base %s", c.APIBase())
	}
}

func TestLoadFromYAML(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	content := "target:\n  base_url: http://localhost:3000/\n  timeout: 5s\nprovider:\n  model: llama-3.1-8b-instant\nreport:\n  format: json\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Target.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Target.Timeout)
	}
	if cfg.Provider.Model != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected model %s", cfg.Provider.Model)
	}
	if cfg.Report.Format != "json" {
		t.Fatalf("unexpected format %s", cfg.Report.Format)
	}
	if cfg.APIBase() != "http://localhost:3000/api" {
		t.Fatalf("unexpected api base %s", cfg.APIBase())
	}
}

func TestEnvOverridesBaseURL(t *testing.T) {
	t.Setenv("APICHECK_BASE_URL", "http://127.0.0.1:9999")
	t.Setenv("APICHECK_TIMEOUT", "2s")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Target.BaseURL != "http://127.0.0.1:9999" {
		t.Fatalf("env override not applied: %s", cfg.Target.BaseURL)
	}
	if cfg.Target.Timeout != 2*time.Second {
		t.Fatalf("duration override not applied: %s", cfg.Target.Timeout)
	}
}

func TestValidate(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	c.Target.BaseURL = "ftp://example.com"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected scheme error")
	}
	c.Target.BaseURL = "http://example.com"
	c.Report.Format = "pdf"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestReadEnvKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nOTHER=1\nGROQ_API_KEY= gsk_abc=def \nGROQ_API_KEY=second\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	v, err := ReadEnvKey(path, "GROQ_API_KEY")
	if err != nil {
		t.Fatal(err)
	}
	if v != "gsk_abc=def" {
		t.Fatalf("unexpected value %q", v)
	}

	if _, err := ReadEnvKey(path, "MISSING"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if _, err := ReadEnvKey(filepath.Join(t.TempDir(), "nope"), "GROQ_API_KEY"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
