package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/showheysas/tech0notta/internal/audio"
	"github.com/showheysas/tech0notta/internal/config"
)

type recordingWriter struct {
	chunks [][]byte
	err    error
}

func (w *recordingWriter) Write(pcm []byte) error {
	if w.err != nil {
		return w.err
	}
	w.chunks = append(w.chunks, pcm)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func mustConverter(t *testing.T, f audio.Format) *audio.Converter {
	t.Helper()
	c, err := audio.NewConverter(f)
	if err != nil {
		t.Fatalf("converter: %v", err)
	}
	return c
}

func TestChunkBytes(t *testing.T) {
	cfg := &config.WorkerConfig{AudioInputSampleRate: 16000, AudioInputChannels: 1}
	if got := chunkBytes(cfg); got != 3200 {
		t.Fatalf("expected 3200 bytes per 100ms, got %d", got)
	}
	cfg = &config.WorkerConfig{AudioInputSampleRate: 48000, AudioInputChannels: 2}
	if got := chunkBytes(cfg); got != 19200 {
		t.Fatalf("expected 19200 bytes per 100ms, got %d", got)
	}
}

func TestPumpAudio_CopiesUntilEOF(t *testing.T) {
	input := bytes.Repeat([]byte{1, 0}, 10)
	w := &recordingWriter{}

	err := pumpAudio(context.Background(), bytes.NewReader(input), mustConverter(t, audio.Format{SampleRate: 16000, Channels: 1}), w, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var total int
	for _, c := range w.chunks {
		total += len(c)
	}
	if total != len(input) || len(w.chunks) != 3 {
		t.Fatalf("expected 3 chunks totalling %d bytes, got %d chunks, %d bytes", len(input), len(w.chunks), total)
	}
}

func TestPumpAudio_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &recordingWriter{}
	if err := pumpAudio(ctx, bytes.NewReader(make([]byte, 64)), mustConverter(t, audio.Format{SampleRate: 16000, Channels: 1}), w, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.chunks) != 0 {
		t.Fatal("expected nothing written after cancel")
	}
}

func TestPumpAudio_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("stream closed")}
	err := pumpAudio(context.Background(), bytes.NewReader(make([]byte, 16)), mustConverter(t, audio.Format{SampleRate: 16000, Channels: 1}), w, 8)
	if err == nil {
		t.Fatal("expected write error")
	}
}
