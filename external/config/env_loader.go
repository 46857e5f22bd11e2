package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	internalconfig "github.com/showheysas/tech0notta/internal/config"
)

type envConfig struct {
	Env                        string  `env:"ENV" envDefault:"production"`
	HTTPAddr                   string  `env:"HTTP_ADDR" envDefault:":8000"`
	CallbackBaseURL            string  `env:"CALLBACK_BASE_URL" envDefault:"http://host.docker.internal:8000"`
	ZoomSDKKey                 string  `env:"ZOOM_SDK_KEY"`
	ZoomSDKSecret              string  `env:"ZOOM_SDK_SECRET"`
	ZoomSDKTokenTTLSec         int     `env:"ZOOM_SDK_TOKEN_TTL_SEC" envDefault:"7200"`
	ZoomWebhookSecretToken     string  `env:"ZOOM_WEBHOOK_SECRET_TOKEN"`
	BotDisplayName             string  `env:"BOT_DISPLAY_NAME" envDefault:"Tech Bot"`
	LauncherMode               string  `env:"LAUNCHER_MODE" envDefault:"docker"`
	WorkerImage                string  `env:"WORKER_IMAGE" envDefault:"tech-notta-bot"`
	WorkerBinary               string  `env:"WORKER_BINARY"`
	WorkerStopTimeoutSec       int     `env:"WORKER_STOP_TIMEOUT_SEC" envDefault:"15"`
	WorkerLaunchTimeoutSec     int     `env:"WORKER_LAUNCH_TIMEOUT_SEC" envDefault:"120"`
	StreamMaxAttempts          int     `env:"STREAM_MAX_ATTEMPTS" envDefault:"3"`
	StreamBaseDelayMs          int     `env:"STREAM_BASE_DELAY_MS" envDefault:"1000"`
	StreamBackoffMultiplier    float64 `env:"STREAM_BACKOFF_MULTIPLIER" envDefault:"2"`
	StreamMaxDelayMs           int     `env:"STREAM_MAX_DELAY_MS" envDefault:"30000"`
	DatabaseURL                string  `env:"DATABASE_URL"`
	TranscriptWebhookURL       string  `env:"TRANSCRIPT_WEBHOOK_URL"`
	TranscriptTimezone         string  `env:"TRANSCRIPT_TIMEZONE" envDefault:"Asia/Tokyo"`
	DefaultTranscribeLanguage  string  `env:"DEFAULT_TRANSCRIBE_LANGUAGE" envDefault:"ja-JP"`
	GoogleCloudProjectID       string  `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string  `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string  `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"asia-northeast1"`
	GoogleCloudSpeechModel     string  `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
}

type workerEnvConfig struct {
	Env                        string `env:"ENV" envDefault:"production"`
	MeetingNumber              string `env:"MEETING_NUMBER"`
	JWTToken                   string `env:"JWT_TOKEN"`
	Password                   string `env:"PASSWORD"`
	BotName                    string `env:"BOT_NAME" envDefault:"Tech Bot"`
	SessionID                  string `env:"SESSION_ID"`
	CallbackURL                string `env:"CALLBACK_URL"`
	BackendURL                 string `env:"BACKEND_URL"`
	AudioInput                 string `env:"AUDIO_INPUT"`
	AudioInputSampleRate       int    `env:"AUDIO_INPUT_SAMPLE_RATE" envDefault:"16000"`
	AudioInputChannels         int    `env:"AUDIO_INPUT_CHANNELS" envDefault:"1"`
	DefaultTranscribeLanguage  string `env:"DEFAULT_TRANSCRIBE_LANGUAGE" envDefault:"ja-JP"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"asia-northeast1"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
}

// Load reads .env when present and then the process environment.
func Load() (*internalconfig.Config, error) {
	_ = godotenv.Load()

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPAddr:                   raw.HTTPAddr,
		CallbackBaseURL:            raw.CallbackBaseURL,
		ZoomSDKKey:                 raw.ZoomSDKKey,
		ZoomSDKSecret:              raw.ZoomSDKSecret,
		ZoomSDKTokenTTLSec:         raw.ZoomSDKTokenTTLSec,
		ZoomWebhookSecretToken:     raw.ZoomWebhookSecretToken,
		BotDisplayName:             raw.BotDisplayName,
		LauncherMode:               strings.ToLower(raw.LauncherMode),
		WorkerImage:                raw.WorkerImage,
		WorkerBinary:               raw.WorkerBinary,
		WorkerStopTimeoutSec:       raw.WorkerStopTimeoutSec,
		WorkerLaunchTimeoutSec:     raw.WorkerLaunchTimeoutSec,
		StreamMaxAttempts:          raw.StreamMaxAttempts,
		StreamBaseDelayMs:          raw.StreamBaseDelayMs,
		StreamBackoffMultiplier:    raw.StreamBackoffMultiplier,
		StreamMaxDelayMs:           raw.StreamMaxDelayMs,
		DatabaseURL:                raw.DatabaseURL,
		TranscriptWebhookURL:       raw.TranscriptWebhookURL,
		TranscriptTimezone:         raw.TranscriptTimezone,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker reads the environment a launched worker receives. Without
// CALLBACK_URL the callback is derived from BACKEND_URL and SESSION_ID.
func LoadWorker() (*internalconfig.WorkerConfig, error) {
	_ = godotenv.Load()

	var raw workerEnvConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	callbackURL := raw.CallbackURL
	if callbackURL == "" && raw.BackendURL != "" && raw.SessionID != "" {
		callbackURL = strings.TrimRight(raw.BackendURL, "/") + "/api/live/segments/" + raw.SessionID
	}

	cfg := &internalconfig.WorkerConfig{
		Env:                        raw.Env,
		MeetingNumber:              raw.MeetingNumber,
		JWTToken:                   raw.JWTToken,
		Password:                   raw.Password,
		BotName:                    raw.BotName,
		SessionID:                  raw.SessionID,
		CallbackURL:                callbackURL,
		AudioInput:                 raw.AudioInput,
		AudioInputSampleRate:       raw.AudioInputSampleRate,
		AudioInputChannels:         raw.AudioInputChannels,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
