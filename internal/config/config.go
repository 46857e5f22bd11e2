package config

import (
	"fmt"
	"time"
)

const (
	LauncherModeDocker = "docker"
	LauncherModeExec   = "exec"
)

type Config struct {
	Env                        string
	HTTPAddr                   string
	CallbackBaseURL            string
	ZoomSDKKey                 string
	ZoomSDKSecret              string
	ZoomSDKTokenTTLSec         int
	ZoomWebhookSecretToken     string
	BotDisplayName             string
	LauncherMode               string
	WorkerImage                string
	WorkerBinary               string
	WorkerStopTimeoutSec       int
	WorkerLaunchTimeoutSec     int
	StreamMaxAttempts          int
	StreamBaseDelayMs          int
	StreamBackoffMultiplier    float64
	StreamMaxDelayMs           int
	DatabaseURL                string
	TranscriptWebhookURL       string
	TranscriptTimezone         string
	DefaultTranscribeLanguage  string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.LauncherMode {
	case LauncherModeDocker:
		if c.WorkerImage == "" {
			return fmt.Errorf("WORKER_IMAGE is required when LAUNCHER_MODE=docker")
		}
	case LauncherModeExec:
		if c.WorkerBinary == "" {
			return fmt.Errorf("WORKER_BINARY is required when LAUNCHER_MODE=exec")
		}
	default:
		return fmt.Errorf("LAUNCHER_MODE must be %q or %q, got %q", LauncherModeDocker, LauncherModeExec, c.LauncherMode)
	}
	if c.ZoomSDKTokenTTLSec <= 0 {
		return fmt.Errorf("ZOOM_SDK_TOKEN_TTL_SEC must be positive, got %d", c.ZoomSDKTokenTTLSec)
	}
	if c.WorkerStopTimeoutSec <= 0 {
		return fmt.Errorf("WORKER_STOP_TIMEOUT_SEC must be positive, got %d", c.WorkerStopTimeoutSec)
	}
	if c.WorkerLaunchTimeoutSec <= 0 {
		return fmt.Errorf("WORKER_LAUNCH_TIMEOUT_SEC must be positive, got %d", c.WorkerLaunchTimeoutSec)
	}
	if c.StreamMaxAttempts <= 0 {
		return fmt.Errorf("STREAM_MAX_ATTEMPTS must be positive, got %d", c.StreamMaxAttempts)
	}
	if c.StreamBaseDelayMs <= 0 {
		return fmt.Errorf("STREAM_BASE_DELAY_MS must be positive, got %d", c.StreamBaseDelayMs)
	}
	if c.StreamBackoffMultiplier < 1 {
		return fmt.Errorf("STREAM_BACKOFF_MULTIPLIER must be at least 1, got %v", c.StreamBackoffMultiplier)
	}
	if c.StreamMaxDelayMs < 0 {
		return fmt.Errorf("STREAM_MAX_DELAY_MS must not be negative, got %d", c.StreamMaxDelayMs)
	}
	if _, err := time.LoadLocation(c.TranscriptTimezone); err != nil {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "CALLBACK_BASE_URL", value: c.CallbackBaseURL},
		{name: "BOT_DISPLAY_NAME", value: c.BotDisplayName},
		{name: "TRANSCRIPT_TIMEZONE", value: c.TranscriptTimezone},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SDKConfigured reports whether meeting credentials can be issued.
func (c *Config) SDKConfigured() bool {
	return c.ZoomSDKKey != "" && c.ZoomSDKSecret != ""
}

func (c *Config) WorkerStopTimeout() time.Duration {
	return time.Duration(c.WorkerStopTimeoutSec) * time.Second
}

func (c *Config) WorkerLaunchTimeout() time.Duration {
	return time.Duration(c.WorkerLaunchTimeoutSec) * time.Second
}

func (c *Config) TranscriptLocation() *time.Location {
	loc, err := time.LoadLocation(c.TranscriptTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
