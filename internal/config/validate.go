package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. A missing Gemini API key is
// not a configuration error: commands that never call the service work
// without one, and the run pre-flight reports it.
func (c *Config) Validate() error {
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateDrive(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.RateLimitCapSeconds < 0 {
		return errors.New("retry.rate_limit_cap_seconds must not be negative")
	}
	if c.Retry.ServerErrorCapSeconds < 0 {
		return errors.New("retry.server_error_cap_seconds must not be negative")
	}
	if c.Retry.MaxTotalWaitSeconds < 0 {
		return errors.New("retry.max_total_wait_seconds must not be negative")
	}
	if c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("retry.max_attempts must be at most 10 (got %d)", c.Retry.MaxAttempts)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.MaxSizeMB <= 0 {
		return errors.New("video.max_size_mb must be positive")
	}
	if c.Video.MaxDurationSeconds <= 0 {
		return errors.New("video.max_duration_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDrive() error {
	if !c.Drive.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Drive.AccessToken) == "" {
		return errors.New("drive.access_token must be set when drive.enabled is true (or export UXRMATE_DRIVE_TOKEN)")
	}
	return nil
}
