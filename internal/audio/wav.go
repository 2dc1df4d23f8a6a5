package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// WAVInfo describes the stream format of a WAV file
type WAVInfo struct {
	AudioFormat   uint16  `json:"audio_format"`
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

// ErrNotWAV is returned when the input is not a RIFF/WAVE file
var ErrNotWAV = errors.New("not a RIFF/WAVE file")

// ParseWAVInfo walks the RIFF chunks of r until both the fmt and data chunks are found.
// Chunks in between (LIST, fact, ...) are skipped, so encoder output with metadata is accepted.
func ParseWAVInfo(r io.Reader) (*WAVInfo, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		info    WAVInfo
		haveFmt bool
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if haveFmt {
				return nil, fmt.Errorf("invalid WAV file: missing data chunk")
			}
			return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("invalid WAV file: fmt chunk too short (%d bytes)", size)
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			info.AudioFormat = binary.LittleEndian.Uint16(fmtChunk[0:2])
			info.Channels = binary.LittleEndian.Uint16(fmtChunk[2:4])
			info.SampleRate = binary.LittleEndian.Uint32(fmtChunk[4:8])
			info.BitsPerSample = binary.LittleEndian.Uint16(fmtChunk[14:16])
			if err := skip(r, int64(size)-16+int64(size&1)); err != nil {
				return nil, err
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("invalid WAV file: data chunk before fmt chunk")
			}
			if info.SampleRate == 0 || info.Channels == 0 || info.BitsPerSample == 0 {
				return nil, fmt.Errorf("invalid WAV file: zero sample rate, channels or bit depth")
			}
			frameSize := uint32(info.Channels) * uint32(info.BitsPerSample) / 8
			info.DataSize = size
			if frameSize > 0 {
				info.NumSamples = size / frameSize
			}
			info.Duration = float64(info.NumSamples) / float64(info.SampleRate)
			return &info, nil

		default:
			if err := skip(r, int64(size)+int64(size&1)); err != nil {
				return nil, err
			}
		}
	}
}

// ReadWAVInfo opens path and parses its WAV header
func ReadWAVInfo(path string) (*WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	return ParseWAVInfo(f)
}

// CheckFormat verifies the stream is linear PCM, 16-bit, with the given channel count and rate
func (i *WAVInfo) CheckFormat(channels, sampleRate int) error {
	if i.AudioFormat != 1 {
		return fmt.Errorf("unsupported audio format: %d (only PCM is supported)", i.AudioFormat)
	}

	if i.BitsPerSample != 16 {
		return fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", i.BitsPerSample)
	}

	if int(i.Channels) != channels {
		return fmt.Errorf("unexpected channel count: %d (want %d)", i.Channels, channels)
	}

	if int(i.SampleRate) != sampleRate {
		return fmt.Errorf("unexpected sample rate: %d Hz (want %d Hz)", i.SampleRate, sampleRate)
	}

	if i.NumSamples == 0 {
		return fmt.Errorf("no audio data found")
	}

	return nil
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("invalid WAV file: truncated chunk: %w", err)
	}
	return nil
}
