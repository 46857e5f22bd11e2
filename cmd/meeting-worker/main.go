package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	callbackimpl "github.com/showheysas/tech0notta/external/callback"
	configloader "github.com/showheysas/tech0notta/external/config"
	transcriberimpl "github.com/showheysas/tech0notta/external/transcriber"
	"github.com/showheysas/tech0notta/internal/audio"
	"github.com/showheysas/tech0notta/internal/callback"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/retry"
	"github.com/showheysas/tech0notta/internal/transcriber"
)

const (
	initTimeout    = 10 * time.Second
	pushQueueSize  = 256
	defaultSpeaker = "参加者"
)

func main() {
	slog.Info("startup: loading worker configuration")
	cfg, err := configloader.LoadWorker()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	initLogger(cfg)
	slog.Info("startup: worker configuration loaded", "session_id", cfg.SessionID, "meeting_id", cfg.MeetingNumber)

	if err := run(cfg, setupDI(cfg)); err != nil {
		slog.Error("worker failed", "error", err, "session_id", cfg.SessionID)
		os.Exit(1)
	}
}

func initLogger(cfg *config.WorkerConfig) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.WorkerConfig) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	callbackimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)

	return injector
}

func run(cfg *config.WorkerConfig, injector do.Injector) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conv, err := audio.NewConverter(audio.Format{SampleRate: cfg.AudioInputSampleRate, Channels: cfg.AudioInputChannels})
	if err != nil {
		return fmt.Errorf("audio input: %w", err)
	}
	input, err := openInput(cfg)
	if err != nil {
		return err
	}
	defer input.Close()
	go func() {
		<-ctx.Done()
		_ = input.Close()
	}()

	pusher := do.MustInvoke[callback.Pusher](injector)
	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	if err := pusher.Init(initCtx, cfg.MeetingNumber, ""); err != nil {
		// Push creates the session on the server as well.
		slog.Warn("live session init failed", "error", err, "session_id", cfg.SessionID)
	}
	cancel()

	fw := callback.NewForwarder(pusher, defaultSpeaker, pushQueueSize, retry.DefaultPolicy(), nil)
	go fw.Run(context.WithoutCancel(ctx))
	defer fw.Close()

	tr := do.MustInvoke[transcriber.Transcriber](injector)
	writer, err := tr.StartStreaming(ctx, cfg.SessionID, cfg.DefaultTranscribeLanguage, fw)
	if err != nil {
		return fmt.Errorf("start transcriber: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Warn("transcriber close failed", "error", err)
		}
	}()

	slog.Info("worker streaming audio", "session_id", cfg.SessionID, "input", inputName(cfg))
	if err := pumpAudio(ctx, input, conv, writer, chunkBytes(cfg)); err != nil {
		return err
	}
	slog.Info("worker stopped", "session_id", cfg.SessionID, "reason", stopReason(ctx))
	return nil
}

func openInput(cfg *config.WorkerConfig) (io.ReadCloser, error) {
	if cfg.ReadsStdin() {
		return os.Stdin, nil
	}
	f, err := os.Open(cfg.AudioInput)
	if err != nil {
		return nil, fmt.Errorf("open audio input: %w", err)
	}
	return f, nil
}

func inputName(cfg *config.WorkerConfig) string {
	if cfg.ReadsStdin() {
		return "stdin"
	}
	return cfg.AudioInput
}

func stopReason(ctx context.Context) string {
	if ctx.Err() != nil {
		return "signal"
	}
	return "end of input"
}
