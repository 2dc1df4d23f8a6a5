package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// NormalizedExt is appended to the input path to name the normalized output
const NormalizedExt = ".wav"

// maxStderrTail bounds how much ffmpeg diagnostic output is kept in errors
const maxStderrTail = 512

// NormalizerConfig contains the target format of normalized audio
type NormalizerConfig struct {
	FFmpegPath string
	Channels   int
	SampleRate int
	Bitrate    string
	Codec      string
}

// Normalizer converts arbitrary audio containers into mono LINEAR16 WAV files with ffmpeg
type Normalizer struct {
	config NormalizerConfig
	logger *slog.Logger
}

// NewNormalizer creates a normalizer, filling unset fields with the speech-ready defaults
func NewNormalizer(config NormalizerConfig, logger *slog.Logger) *Normalizer {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.Bitrate == "" {
		config.Bitrate = "64k"
	}
	if config.Codec == "" {
		config.Codec = "pcm_s16le"
	}

	return &Normalizer{
		config: config,
		logger: logger,
	}
}

// Args returns the ffmpeg arguments (without the binary) that convert in to out
func (n *Normalizer) Args(in, out string) []string {
	return ffmpeg.Input(in).
		Output(out, ffmpeg.KwArgs{
			"ac":     n.config.Channels,
			"ar":     n.config.SampleRate,
			"acodec": n.config.Codec,
			"b:a":    n.config.Bitrate,
			"f":      "wav",
		}).
		OverWriteOutput().
		GetArgs()
}

// Normalize converts inputPath and returns the path of the new WAV file (inputPath + ".wav").
// It blocks until ffmpeg exits. On any failure no output file is left behind.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input audio unavailable: %w", err)
	}

	outputPath := inputPath + NormalizedExt
	startTime := time.Now()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, n.config.FFmpegPath, n.Args(inputPath, outputPath)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		n.removeOutput(outputPath)
		if tail := stderrTail(stderr.Bytes()); tail != "" {
			return "", fmt.Errorf("ffmpeg: %w: %s", err, tail)
		}
		return "", fmt.Errorf("ffmpeg: %w", err)
	}

	info, err := ReadWAVInfo(outputPath)
	if err != nil {
		n.removeOutput(outputPath)
		return "", fmt.Errorf("normalized output unreadable: %w", err)
	}

	if err := info.CheckFormat(n.config.Channels, n.config.SampleRate); err != nil {
		n.removeOutput(outputPath)
		return "", fmt.Errorf("normalized output has wrong format: %w", err)
	}

	n.logger.Debug("Audio normalized",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.Float64("duration_seconds", info.Duration),
		slog.Duration("elapsed", time.Since(startTime)),
	)

	return outputPath, nil
}

func (n *Normalizer) removeOutput(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		n.logger.Warn("Failed to remove partial normalized output",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxStderrTail {
		s = "..." + s[len(s)-maxStderrTail:]
	}
	return s
}
