package audio

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseWAVInfo(t *testing.T) {
	sampleRate := 16000
	samples := sineSamples(sampleRate, 0.1)

	wavData := pcmWAV(samples, sampleRate, 1)

	info, err := ParseWAVInfo(bytes.NewReader(wavData))
	if err != nil {
		t.Fatalf("Failed to get WAV info: %v", err)
	}

	if info.SampleRate != uint32(sampleRate) {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, info.SampleRate)
	}

	if info.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", info.Channels)
	}

	if info.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", info.BitsPerSample)
	}

	if info.NumSamples != uint32(len(samples)) {
		t.Errorf("Expected %d samples, got %d", len(samples), info.NumSamples)
	}

	expectedDuration := float64(len(samples)) / float64(sampleRate)
	if math.Abs(info.Duration-expectedDuration) > 0.001 {
		t.Errorf("Expected duration %.3f, got %.3f", expectedDuration, info.Duration)
	}

	if err := info.CheckFormat(1, sampleRate); err != nil {
		t.Errorf("Expected format check to pass: %v", err)
	}
}

func TestParseWAVInfoSkipsMetadataChunks(t *testing.T) {
	wavData := pcmWAV(sineSamples(16000, 0.5), 16000, 1)

	info, err := ParseWAVInfo(bytes.NewReader(withListChunk(wavData)))
	if err != nil {
		t.Fatalf("ParseWAVInfo failed: %v", err)
	}

	if math.Abs(info.Duration-0.5) > 0.001 {
		t.Errorf("Expected duration 0.5, got %.3f", info.Duration)
	}
}

func TestParseWAVInfoInvalid(t *testing.T) {
	valid := pcmWAV([]int16{1, 2, 3, 4}, 16000, 1)

	fake := make([]byte, 50)
	copy(fake[0:4], "FAKE")

	tests := []struct {
		name     string
		data     []byte
		errorMsg string
	}{
		{"too short", []byte{1, 2, 3}, "failed to read RIFF header"},
		{"bad magic", fake, "not a RIFF/WAVE file"},
		{"header only", valid[:12], "missing fmt chunk"},
		{"no data chunk", valid[:36], "missing data chunk"},
		{"truncated fmt", valid[:28], "failed to read fmt chunk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWAVInfo(bytes.NewReader(tt.data))
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
			}
		})
	}

	_, err := ParseWAVInfo(bytes.NewReader(fake))
	if !errors.Is(err, ErrNotWAV) {
		t.Errorf("Expected ErrNotWAV, got %v", err)
	}
}

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		name     string
		info     WAVInfo
		errorMsg string
	}{
		{"stereo", WAVInfo{AudioFormat: 1, Channels: 2, SampleRate: 16000, BitsPerSample: 16, NumSamples: 10}, "channel count"},
		{"wrong rate", WAVInfo{AudioFormat: 1, Channels: 1, SampleRate: 44100, BitsPerSample: 16, NumSamples: 10}, "sample rate"},
		{"float", WAVInfo{AudioFormat: 3, Channels: 1, SampleRate: 16000, BitsPerSample: 32, NumSamples: 10}, "audio format"},
		{"8-bit", WAVInfo{AudioFormat: 1, Channels: 1, SampleRate: 16000, BitsPerSample: 8, NumSamples: 10}, "bit depth"},
		{"empty", WAVInfo{AudioFormat: 1, Channels: 1, SampleRate: 16000, BitsPerSample: 16}, "no audio data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.CheckFormat(1, 16000)
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing '%s', got %v", tt.errorMsg, err)
			}
		})
	}
}

func TestReadWAVInfo(t *testing.T) {
	wavData := pcmWAV(sineSamples(16000, 1.0), 16000, 1)

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, wavData, 0644); err != nil {
		t.Fatal(err)
	}

	info, err := ReadWAVInfo(path)
	if err != nil {
		t.Fatalf("ReadWAVInfo failed: %v", err)
	}
	if math.Abs(info.Duration-1.0) > 0.001 {
		t.Errorf("Expected duration 1.000, got %.3f", info.Duration)
	}

	if _, err := ReadWAVInfo(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}
