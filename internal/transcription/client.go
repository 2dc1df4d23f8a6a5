package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// Config contains the fixed recognition parameters
type Config struct {
	SampleRate           int
	LanguageCode         string
	AutomaticPunctuation bool
	Model                string
	UseEnhanced          bool
	CredentialsFile      string
}

// Transcript is the ordered output of a recognition run
type Transcript struct {
	Segments []string
	Text     string
}

// recognizeFunc submits a long-running request and blocks until the operation completes
type recognizeFunc func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)

// Client runs long-running speech recognition against Google Cloud Speech
type Client struct {
	config    Config
	recognize recognizeFunc
	closer    func() error
	logger    *slog.Logger
}

// NewClient creates a Cloud Speech client
func NewClient(ctx context.Context, config Config, logger *slog.Logger) (*Client, error) {
	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	sc, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	recognize := func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := sc.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to start recognition: %w", err)
		}
		logger.Debug("Waiting for recognition operation", slog.String("operation", op.Name()))
		resp, err := op.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("recognition operation failed: %w", err)
		}
		return resp, nil
	}

	return newClient(config, recognize, sc.Close, logger), nil
}

func newClient(config Config, recognize recognizeFunc, closer func() error, logger *slog.Logger) *Client {
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.LanguageCode == "" {
		config.LanguageCode = "fr-FR"
	}
	if config.Model == "" {
		config.Model = "default"
	}

	return &Client{
		config:    config,
		recognize: recognize,
		closer:    closer,
		logger:    logger,
	}
}

// BuildRequest returns the recognition request for a gs:// audio reference
func (c *Client) BuildRequest(uri string) *speechpb.LongRunningRecognizeRequest {
	return &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(c.config.SampleRate),
			LanguageCode:               c.config.LanguageCode,
			EnableAutomaticPunctuation: c.config.AutomaticPunctuation,
			Model:                      c.config.Model,
			UseEnhanced:                c.config.UseEnhanced,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: uri},
		},
	}
}

// Recognize transcribes the audio stored at uri and waits for the operation to finish
func (c *Client) Recognize(ctx context.Context, uri string) (*Transcript, error) {
	startTime := time.Now()

	resp, err := c.recognize(ctx, c.BuildRequest(uri))
	if err != nil {
		return nil, err
	}

	transcript := JoinResults(resp.GetResults())

	c.logger.Debug("Recognition completed",
		slog.String("uri", uri),
		slog.Int("results", len(transcript.Segments)),
		slog.Duration("elapsed", time.Since(startTime)),
	)

	return transcript, nil
}

// Close releases the speech client
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// JoinResults takes the best alternative of every result, in order, separated by newlines.
// A result without alternatives contributes an empty segment.
func JoinResults(results []*speechpb.SpeechRecognitionResult) *Transcript {
	segments := make([]string, 0, len(results))
	for _, result := range results {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			segments = append(segments, "")
			continue
		}
		segments = append(segments, alternatives[0].GetTranscript())
	}

	return &Transcript{
		Segments: segments,
		Text:     strings.Join(segments, "\n"),
	}
}
