// Package audio converts raw captured PCM into the layout the transcriber
// expects.
package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/showheysas/tech0notta/internal/transcriber"
)

const bytesPerSample = transcriber.BytesPerSample

type Format struct {
	SampleRate int
	Channels   int
}

// Converter downmixes interleaved s16le PCM to mono and decimates it to the
// transcriber rate. Input rates must be a whole multiple of that rate.
// Partial frames are carried over to the next Convert call.
type Converter struct {
	in      Format
	factor  int
	pending []byte
}

func NewConverter(in Format) (*Converter, error) {
	if in.Channels < 1 || in.Channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d", in.Channels)
	}
	if in.SampleRate < transcriber.SampleRateHertz || in.SampleRate%transcriber.SampleRateHertz != 0 {
		return nil, fmt.Errorf("sample rate %d is not a multiple of %d", in.SampleRate, transcriber.SampleRateHertz)
	}
	return &Converter{in: in, factor: in.SampleRate / transcriber.SampleRateHertz}, nil
}

// Passthrough reports whether input already matches the transcriber layout.
func (c *Converter) Passthrough() bool {
	return c.factor == 1 && c.in.Channels == transcriber.ChannelCount
}

func (c *Converter) Convert(pcm []byte) []byte {
	if c.Passthrough() {
		return pcm
	}
	data := pcm
	if len(c.pending) > 0 {
		data = append(c.pending, pcm...)
		c.pending = nil
	}

	blockBytes := c.factor * c.in.Channels * bytesPerSample
	blocks := len(data) / blockBytes
	out := make([]byte, blocks*bytesPerSample)
	for b := 0; b < blocks; b++ {
		block := data[b*blockBytes : (b+1)*blockBytes]
		var sum int32
		for i := 0; i < len(block); i += bytesPerSample {
			sum += int32(int16(binary.LittleEndian.Uint16(block[i:])))
		}
		mono := clampPCM(sum / int32(c.factor*c.in.Channels))
		binary.LittleEndian.PutUint16(out[b*bytesPerSample:], uint16(mono))
	}
	if rest := data[blocks*blockBytes:]; len(rest) > 0 {
		c.pending = append([]byte(nil), rest...)
	}
	return out
}

func clampPCM(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
