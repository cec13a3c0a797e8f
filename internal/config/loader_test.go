package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CAPTION_TEST_SET", "value")

	cases := map[string]string{
		"a: ${CAPTION_TEST_SET}":            "a: value",
		"a: ${CAPTION_TEST_SET:fallback}":   "a: value",
		"a: ${CAPTION_TEST_UNSET:fallback}": "a: fallback",
		"a: ${CAPTION_TEST_UNSET:}":         "a: ",
		"a: ${CAPTION_TEST_UNSET}":          "a: ${CAPTION_TEST_UNSET}",
	}
	for in, want := range cases {
		if got := expandEnv(in); got != want {
			t.Errorf("expandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadFromDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Inference.Caption.Timeout != 15*time.Second || cfg.Inference.Story.Timeout != 15*time.Second {
		t.Fatalf("unexpected inference timeouts: %+v", cfg.Inference)
	}
	if !strings.Contains(cfg.Inference.Caption.URL, "blip-image-captioning-large") {
		t.Fatalf("unexpected caption url: %s", cfg.Inference.Caption.URL)
	}
	p := cfg.Story.Parameters
	if p.MaxLength != 200 || p.TopK != 50 || p.NoRepeatNgramSize != 2 || !p.DoSample || p.NumReturnSequences != 1 {
		t.Fatalf("unexpected generation parameters: %+v", p)
	}
	if p.Temperature != 0.7 || p.TopP != 0.9 {
		t.Fatalf("unexpected sampling parameters: %+v", p)
	}
	if cfg.Upload.FormField != "file" || cfg.Upload.MaxBytes != 10<<20 {
		t.Fatalf("unexpected upload config: %+v", cfg.Upload)
	}
}

func TestLoadFromMergesEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
inference:
  api_token: ${CAPTION_TEST_TOKEN:none}
  caption:
    timeout: 20s
`)
	writeFile(t, dir, "config.staging.yaml", `
inference:
  story:
    timeout: 25s
`)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("CAPTION_TEST_TOKEN", "hf_secret")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Inference.APIToken != "hf_secret" {
		t.Fatalf("api token = %q", cfg.Inference.APIToken)
	}
	if cfg.Inference.Caption.Timeout != 20*time.Second {
		t.Fatalf("caption timeout = %s", cfg.Inference.Caption.Timeout)
	}
	if cfg.Inference.Story.Timeout != 25*time.Second {
		t.Fatalf("story timeout = %s", cfg.Inference.Story.Timeout)
	}
}

func TestLoadFromTokenEnvironmentVariable(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("HUGGINGFACE_API_TOKEN", "hf_from_env")

	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Inference.APIToken != "hf_from_env" {
		t.Fatalf("api token = %q", cfg.Inference.APIToken)
	}
}

func TestLoadFromRejectsInvalidTimeout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
inference:
  story:
    timeout: 5m
`)
	t.Setenv("APP_ENV", "test")

	if _, err := LoadFrom(dir); err == nil || !strings.Contains(err.Error(), "inference.story.timeout") {
		t.Fatalf("expected timeout validation error, got %v", err)
	}
}

func TestLoadFromRejectsWildcardOriginWithCredentials(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Security.CORS.AllowCredentials {
		t.Fatalf("credentials enabled by default with origins %v", cfg.Security.CORS.AllowedOrigins)
	}

	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
security:
  cors:
    allowed_origins: ["*"]
    allow_credentials: true
`)
	if _, err := LoadFrom(dir); err == nil || !strings.Contains(err.Error(), "security.cors.allow_credentials") {
		t.Fatalf("expected cors validation error, got %v", err)
	}

	writeFile(t, dir, "config.yaml", `
security:
  cors:
    allowed_origins: ["https://app.example.com"]
    allow_credentials: true
`)
	if _, err := LoadFrom(dir); err != nil {
		t.Fatalf("explicit origins with credentials rejected: %v", err)
	}
}
