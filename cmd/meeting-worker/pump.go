package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/showheysas/tech0notta/internal/audio"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/transcriber"
)

const chunkDuration = 100 // ms

// chunkBytes sizes one read to chunkDuration of input audio.
func chunkBytes(cfg *config.WorkerConfig) int {
	return cfg.AudioInputSampleRate * cfg.AudioInputChannels * transcriber.BytesPerSample * chunkDuration / 1000
}

// pumpAudio copies PCM from r to w until end of input or ctx is done. A read
// blocked on r is not interrupted; closing r unblocks it.
func pumpAudio(ctx context.Context, r io.Reader, conv *audio.Converter, w transcriber.StreamWriter, size int) error {
	buf := make([]byte, size)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if out := conv.Convert(buf[:n]); len(out) > 0 {
				// Write may retain the slice.
				chunk := append([]byte(nil), out...)
				if werr := w.Write(chunk); werr != nil {
					return fmt.Errorf("write audio: %w", werr)
				}
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read audio: %w", err)
		}
	}
}
