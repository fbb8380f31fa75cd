package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGemini()
	c.normalizeRetry()
	c.normalizeVideo()
	c.normalizeDrive()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.VideoDir) == "" {
		c.Paths.VideoDir = defaultVideoDir
	}
	if c.Paths.VideoDir, err = expandPath(c.Paths.VideoDir); err != nil {
		return fmt.Errorf("paths.video_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DriveCacheDir) == "" {
		c.Paths.DriveCacheDir = defaultDriveCacheDir
	}
	if c.Paths.DriveCacheDir, err = expandPath(c.Paths.DriveCacheDir); err != nil {
		return fmt.Errorf("paths.drive_cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		}
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeoutSeconds
	}
	if c.Gemini.PollIntervalSeconds <= 0 {
		c.Gemini.PollIntervalSeconds = defaultGeminiPollSeconds
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if c.Retry.TransferMaxAttempts <= 0 {
		c.Retry.TransferMaxAttempts = defaultTransferMaxAttempts
	}
	if c.Retry.BaseDelaySeconds < 0 {
		c.Retry.BaseDelaySeconds = 0
	}
	if c.Retry.JitterSeconds < 0 {
		c.Retry.JitterSeconds = 0
	}
}

func (c *Config) normalizeVideo() {
	formats := make([]string, 0, len(c.Video.Formats))
	seen := make(map[string]struct{}, len(c.Video.Formats))
	for _, format := range c.Video.Formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			continue
		}
		if !strings.HasPrefix(format, ".") {
			format = "." + format
		}
		if _, ok := seen[format]; ok {
			continue
		}
		seen[format] = struct{}{}
		formats = append(formats, format)
	}
	if len(formats) == 0 {
		formats = append(formats, defaultVideoFormats...)
	}
	c.Video.Formats = formats
	c.Video.ProbeBinary = strings.TrimSpace(c.Video.ProbeBinary)
	if c.Video.ProbeBinary == "" {
		c.Video.ProbeBinary = defaultProbeBinary
	}
}

func (c *Config) normalizeDrive() {
	c.Drive.AccessToken = strings.TrimSpace(c.Drive.AccessToken)
	if c.Drive.AccessToken == "" {
		if value, ok := os.LookupEnv("UXRMATE_DRIVE_TOKEN"); ok {
			c.Drive.AccessToken = strings.TrimSpace(value)
		}
	}
	c.Drive.Endpoint = strings.TrimSpace(c.Drive.Endpoint)
	if c.Drive.Endpoint == "" {
		c.Drive.Endpoint = defaultDriveEndpoint
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
