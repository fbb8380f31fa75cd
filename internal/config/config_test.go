package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"uxrmate/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "AIzaFromEnv")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "uxrmate")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "uxrmate.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Gemini.APIKey != "AIzaFromEnv" {
		t.Fatalf("expected api key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash-lite" {
		t.Fatalf("unexpected default model %q", cfg.Gemini.Model)
	}
	if cfg.SystemPrompt() != config.DefaultSystemPrompt {
		t.Fatal("expected default system prompt")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadFallsBackToGoogleAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	t.Setenv("GOOGLE_API_KEY", "AIzaGoogle")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Gemini.APIKey != "AIzaGoogle" {
		t.Fatalf("expected GOOGLE_API_KEY fallback, got %q", cfg.Gemini.APIKey)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "uxrmate.toml")

	custom := config.Default()
	custom.Paths.DataDir = filepath.Join(dir, "data")
	custom.Gemini.APIKey = "AIzaFileKey"
	custom.Gemini.Model = "gemini-2.5-flash"
	custom.Gemini.SystemPrompt = "  Be terse.  "
	custom.Retry.MaxAttempts = 4
	custom.Retry.BaseDelaySeconds = 0.5
	custom.Logging.Format = "JSON"
	custom.Video.Formats = []string{"MP4", ".mov", "mp4", ""}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected custom path to resolve, got %q exists=%v", resolved, exists)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model %q", cfg.Gemini.Model)
	}
	if cfg.SystemPrompt() != "Be terse." {
		t.Fatalf("unexpected system prompt %q", cfg.SystemPrompt())
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
	if got := strings.Join(cfg.Video.Formats, ","); got != ".mp4,.mov" {
		t.Fatalf("unexpected normalized formats %q", got)
	}

	policy := cfg.RetryPolicy()
	if policy.MaxAttempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", policy.MaxAttempts)
	}
	if policy.Base != 500*time.Millisecond {
		t.Fatalf("unexpected base delay %s", policy.Base)
	}
	if policy.RateLimitCap != 64*time.Second || policy.ServerErrorCap != 32*time.Second {
		t.Fatalf("unexpected caps %s/%s", policy.RateLimitCap, policy.ServerErrorCap)
	}
	if transfer := cfg.TransferRetryPolicy(); transfer.MaxAttempts != 5 {
		t.Fatalf("expected 5 transfer attempts, got %d", transfer.MaxAttempts)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative cap", func(c *config.Config) { c.Retry.RateLimitCapSeconds = -1 }, "rate_limit_cap_seconds"},
		{"too many attempts", func(c *config.Config) { c.Retry.MaxAttempts = 11 }, "max_attempts"},
		{"zero size", func(c *config.Config) { c.Video.MaxSizeMB = 0 }, "max_size_mb"},
		{"drive without token", func(c *config.Config) { c.Drive.Enabled = true }, "drive.access_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.TransferMaxAttempts != 5 {
		t.Fatalf("unexpected sample retry settings: %+v", cfg.Retry)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.VideoDir = filepath.Join(base, "videos")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.VideoDir, cfg.Paths.ExportDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
