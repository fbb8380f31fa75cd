package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"uxrmate/internal/retry"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains data, video, and export directory configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	VideoDir      string `toml:"video_dir"`
	ExportDir     string `toml:"export_dir"`
	DriveCacheDir string `toml:"drive_cache_dir"`
	LogDir        string `toml:"log_dir"`
}

// Gemini contains the inference service settings.
type Gemini struct {
	APIKey              string `toml:"api_key"`
	Model               string `toml:"model"`
	SystemPrompt        string `toml:"system_prompt"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	DeleteUploads       bool   `toml:"delete_uploads"`
}

// Retry bounds remote calls. Inference and asset transfers use separate
// attempt budgets but share the backoff shape.
type Retry struct {
	MaxAttempts           int     `toml:"max_attempts"`
	TransferMaxAttempts   int     `toml:"transfer_max_attempts"`
	BaseDelaySeconds      float64 `toml:"base_delay_seconds"`
	RateLimitCapSeconds   float64 `toml:"rate_limit_cap_seconds"`
	ServerErrorCapSeconds float64 `toml:"server_error_cap_seconds"`
	MaxTotalWaitSeconds   float64 `toml:"max_total_wait_seconds"`
	JitterSeconds         float64 `toml:"jitter_seconds"`
}

// Video contains the constraints applied when registering assets.
type Video struct {
	MaxSizeMB          float64  `toml:"max_size_mb"`
	MaxDurationSeconds float64  `toml:"max_duration_seconds"`
	Formats            []string `toml:"formats"`
	ProbeBinary        string   `toml:"probe_binary"`
}

// Drive contains the remote asset provider settings.
type Drive struct {
	Enabled     bool   `toml:"enabled"`
	AccessToken string `toml:"access_token"`
	Endpoint    string `toml:"endpoint"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for uxrmate.
//
// Configuration sections by subsystem:
//   - Paths: database, video, export, and cache directories
//   - Gemini: credentials, model, and system instruction for analysis
//   - Retry: attempt and backoff bounds for remote calls
//   - Video: size/duration/format limits for registered assets
//   - Drive: remote asset import
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Gemini  Gemini  `toml:"gemini"`
	Retry   Retry   `toml:"retry"`
	Video   Video   `toml:"video"`
	Drive   Drive   `toml:"drive"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/uxrmate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("uxrmate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, video, export, and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.VideoDir, c.Paths.ExportDir, c.Paths.LogDir}
	if c.Drive.Enabled {
		dirs = append(dirs, c.Paths.DriveCacheDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "uxrmate.db")
}

// SystemPrompt returns the configured system instruction or the built-in default.
func (c *Config) SystemPrompt() string {
	if prompt := strings.TrimSpace(c.Gemini.SystemPrompt); prompt != "" {
		return prompt
	}
	return DefaultSystemPrompt
}

// RequestTimeout returns the per-request timeout for inference calls.
func (c *Config) RequestTimeout() time.Duration {
	if c.Gemini.TimeoutSeconds <= 0 {
		return time.Duration(defaultGeminiTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Gemini.TimeoutSeconds) * time.Second
}

// RetryPolicy returns the bounded backoff policy for inference calls.
func (c *Config) RetryPolicy() retry.Policy {
	return c.policy(c.Retry.MaxAttempts)
}

// TransferRetryPolicy returns the bounded backoff policy for asset transfers.
func (c *Config) TransferRetryPolicy() retry.Policy {
	return c.policy(c.Retry.TransferMaxAttempts)
}

func (c *Config) policy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:    attempts,
		Base:           seconds(c.Retry.BaseDelaySeconds),
		RateLimitCap:   seconds(c.Retry.RateLimitCapSeconds),
		ServerErrorCap: seconds(c.Retry.ServerErrorCapSeconds),
		MaxTotalWait:   seconds(c.Retry.MaxTotalWaitSeconds),
		Jitter:         seconds(c.Retry.JitterSeconds),
	}
}

func seconds(value float64) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
