package transcription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func result(alternatives ...string) *speechpb.SpeechRecognitionResult {
	r := &speechpb.SpeechRecognitionResult{}
	for _, a := range alternatives {
		r.Alternatives = append(r.Alternatives, &speechpb.SpeechRecognitionAlternative{Transcript: a})
	}
	return r
}

func TestBuildRequest(t *testing.T) {
	c := newClient(Config{
		SampleRate:           16000,
		LanguageCode:         "fr-FR",
		AutomaticPunctuation: true,
		Model:                "default",
		UseEnhanced:          true,
	}, nil, nil, testLogger())

	req := c.BuildRequest("gs://bucket/clip.wav")
	cfg := req.GetConfig()

	if cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("Expected LINEAR16, got %v", cfg.GetEncoding())
	}
	if cfg.GetSampleRateHertz() != 16000 {
		t.Errorf("Expected 16000 Hz, got %d", cfg.GetSampleRateHertz())
	}
	if cfg.GetLanguageCode() != "fr-FR" {
		t.Errorf("Expected fr-FR, got %s", cfg.GetLanguageCode())
	}
	if !cfg.GetEnableAutomaticPunctuation() {
		t.Error("Expected automatic punctuation")
	}
	if !cfg.GetUseEnhanced() || cfg.GetModel() != "default" {
		t.Errorf("Expected enhanced default model, got %s enhanced=%v", cfg.GetModel(), cfg.GetUseEnhanced())
	}
	if req.GetAudio().GetUri() != "gs://bucket/clip.wav" {
		t.Errorf("Expected audio URI, got %s", req.GetAudio().GetUri())
	}
}

func TestJoinResults(t *testing.T) {
	tests := []struct {
		name     string
		results  []*speechpb.SpeechRecognitionResult
		expected string
	}{
		{
			name:     "no results",
			results:  nil,
			expected: "",
		},
		{
			name:     "single result",
			results:  []*speechpb.SpeechRecognitionResult{result("Bonjour à tous.")},
			expected: "Bonjour à tous.",
		},
		{
			name: "best alternative in order",
			results: []*speechpb.SpeechRecognitionResult{
				result("Premier point.", "Premier poing."),
				result("Deuxième point."),
			},
			expected: "Premier point.\nDeuxième point.",
		},
		{
			name: "result without alternatives",
			results: []*speechpb.SpeechRecognitionResult{
				result("Avant."),
				result(),
				result("Après."),
			},
			expected: "Avant.\n\nAprès.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transcript := JoinResults(tt.results)
			if transcript.Text != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, transcript.Text)
			}
			if len(transcript.Segments) != len(tt.results) {
				t.Errorf("Expected %d segments, got %d", len(tt.results), len(transcript.Segments))
			}
		})
	}
}

func TestRecognize(t *testing.T) {
	var seen *speechpb.LongRunningRecognizeRequest
	recognize := func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		seen = req
		return &speechpb.LongRunningRecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{result("Un."), result("Deux.")},
		}, nil
	}
	c := newClient(Config{}, recognize, nil, testLogger())

	transcript, err := c.Recognize(context.Background(), "gs://bucket/a.wav")
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if transcript.Text != "Un.\nDeux." {
		t.Errorf("Unexpected transcript %q", transcript.Text)
	}
	if seen.GetAudio().GetUri() != "gs://bucket/a.wav" {
		t.Errorf("Request did not carry the URI")
	}
	// Defaults applied when config is empty
	if seen.GetConfig().GetLanguageCode() != "fr-FR" || seen.GetConfig().GetSampleRateHertz() != 16000 {
		t.Errorf("Expected default language and rate, got %s %d",
			seen.GetConfig().GetLanguageCode(), seen.GetConfig().GetSampleRateHertz())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close with no closer should succeed: %v", err)
	}
}

func TestRecognizeError(t *testing.T) {
	providerErr := errors.New("quota exceeded")
	recognize := func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		return nil, providerErr
	}
	c := newClient(Config{}, recognize, nil, testLogger())

	if _, err := c.Recognize(context.Background(), "gs://bucket/a.wav"); !errors.Is(err, providerErr) {
		t.Errorf("Expected provider error, got %v", err)
	}
}
