package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/skypro1111/audio-transcriber-service/internal/metrics"
	"github.com/skypro1111/audio-transcriber-service/internal/transcription"
)

// cleanupTimeout bounds the remote delete issued after processing
const cleanupTimeout = 30 * time.Second

// Normalizer converts an uploaded file into speech-ready audio
type Normalizer interface {
	Normalize(ctx context.Context, inputPath string) (string, error)
}

// ObjectStore holds normalized audio where the recognizer can reach it
type ObjectStore interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Delete(ctx context.Context, uri string) error
}

// Recognizer transcribes stored audio
type Recognizer interface {
	Recognize(ctx context.Context, uri string) (*transcription.Transcript, error)
}

// Summarizer condenses a transcript
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Stage names a pipeline step
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageUpload    Stage = "upload"
	StageRecognize Stage = "recognize"
	StageSummarize Stage = "summarize"
)

var stageOrder = []Stage{StageNormalize, StageUpload, StageRecognize, StageSummarize}

// StageError reports which step failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result is the output of a successful run
type Result struct {
	RequestID  string
	Transcript string
	Summary    string
	Durations  map[Stage]time.Duration
}

// stagesAttr groups the recorded stage timings in execution order
func (r *Result) stagesAttr() slog.Attr {
	attrs := make([]any, 0, len(r.Durations))
	for _, stage := range stageOrder {
		if d, ok := r.Durations[stage]; ok {
			attrs = append(attrs, slog.Duration(string(stage), d))
		}
	}
	return slog.Group("stages", attrs...)
}

// Dependencies are the external collaborators of the pipeline
type Dependencies struct {
	Normalizer Normalizer
	Store      ObjectStore
	Recognizer Recognizer
	Summarizer Summarizer
}

// Pipeline runs normalize, upload, recognize and summarize for one upload at a time per call.
// Calls are independent; nothing is shared between them except statistics.
type Pipeline struct {
	deps    Dependencies
	metrics *metrics.Metrics
	logger  *slog.Logger
	stats   *stats
}

// resources tracks what a run created so every exit path can reclaim it
type resources struct {
	original   string
	normalized string
	objectURI  string
}

// New creates a pipeline
func New(deps Dependencies, m *metrics.Metrics, logger *slog.Logger) (*Pipeline, error) {
	if deps.Normalizer == nil || deps.Store == nil || deps.Recognizer == nil || deps.Summarizer == nil {
		return nil, fmt.Errorf("all pipeline dependencies are required")
	}
	if m == nil {
		m = metrics.NewMetrics()
	}

	return &Pipeline{
		deps:    deps,
		metrics: m,
		logger:  logger,
		stats:   newStats(),
	}, nil
}

// Process runs the full pipeline for a spooled upload. The spooled file, the normalized file
// and the remote object are removed before Process returns, whether it succeeds or not.
func (p *Pipeline) Process(ctx context.Context, requestID string, upload *Upload) (*Result, error) {
	startTime := time.Now()
	logger := p.logger.With(slog.String("request_id", requestID))

	p.metrics.RecordRequestStarted(upload.Size)
	p.stats.start()

	res := &resources{original: upload.Path}
	defer p.cleanup(ctx, logger, res)

	logger.Info("Processing audio",
		slog.String("file", upload.Path),
		slog.String("original_name", upload.OriginalName),
		slog.String("mime_type", upload.MIMEType),
		slog.Int64("size", upload.Size),
	)

	result := &Result{
		RequestID: requestID,
		Durations: make(map[Stage]time.Duration, 4),
	}

	err := p.run(ctx, logger, upload, res, result)
	elapsed := time.Since(startTime)

	if err != nil {
		stage := Stage("unknown")
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		p.metrics.RecordRequestFailure(string(stage), elapsed.Seconds())
		p.stats.fail(stage, elapsed)
		logger.Error("Audio processing failed",
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed),
			result.stagesAttr(),
		)
		return nil, err
	}

	p.metrics.RecordRequestSuccess(elapsed.Seconds(), len(result.Transcript))
	p.stats.succeed(elapsed)
	logger.Info("Audio processed",
		slog.Int("transcript_chars", len(result.Transcript)),
		slog.Int("summary_chars", len(result.Summary)),
		slog.Duration("elapsed", elapsed),
		result.stagesAttr(),
	)

	return result, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, upload *Upload, res *resources, result *Result) error {
	err := p.stage(result, StageNormalize, func() (err error) {
		res.normalized, err = p.deps.Normalizer.Normalize(ctx, upload.Path)
		return err
	})
	if err != nil {
		return err
	}
	logger.Debug("Conversion finished", slog.String("wav", res.normalized))

	err = p.stage(result, StageUpload, func() (err error) {
		res.objectURI, err = p.deps.Store.Upload(ctx, res.normalized)
		return err
	})
	if err != nil {
		return err
	}
	logger.Debug("Upload finished", slog.String("uri", res.objectURI))

	var transcript *transcription.Transcript
	err = p.stage(result, StageRecognize, func() (err error) {
		transcript, err = p.deps.Recognizer.Recognize(ctx, res.objectURI)
		return err
	})
	if err != nil {
		return err
	}
	logger.Debug("Recognition finished", slog.Int("segments", len(transcript.Segments)))

	var summary string
	err = p.stage(result, StageSummarize, func() (err error) {
		summary, err = p.deps.Summarizer.Summarize(ctx, transcript.Text)
		return err
	})
	if err != nil {
		return err
	}

	result.Transcript = transcript.Text
	result.Summary = summary
	return nil
}

// stage times fn and wraps its error with the stage name
func (p *Pipeline) stage(result *Result, stage Stage, fn func() error) error {
	startTime := time.Now()
	err := fn()
	elapsed := time.Since(startTime)

	result.Durations[stage] = elapsed
	p.metrics.RecordStage(string(stage), elapsed.Seconds())

	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

// cleanup removes local files and the remote object. Failures are logged and never returned.
func (p *Pipeline) cleanup(ctx context.Context, logger *slog.Logger, res *resources) {
	for _, path := range []string{res.original, res.normalized} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.metrics.RecordCleanupError("local")
			logger.Warn("Failed to remove local file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	if res.objectURI == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := p.deps.Store.Delete(deleteCtx, res.objectURI); err != nil {
		p.metrics.RecordCleanupError("remote")
		logger.Warn("Failed to delete remote object",
			slog.String("uri", res.objectURI),
			slog.String("error", err.Error()),
		)
	}
}

// GetStats returns current pipeline statistics
func (p *Pipeline) GetStats() Stats {
	return p.stats.snapshot()
}

// Stats summarizes pipeline activity since start
type Stats struct {
	TotalRequests   uint64            `json:"total_requests"`
	SuccessRequests uint64            `json:"success_requests"`
	FailedRequests  uint64            `json:"failed_requests"`
	FailuresByStage map[string]uint64 `json:"failures_by_stage"`
	SuccessRate     float64           `json:"success_rate"`
	ActiveRequests  int64             `json:"active_requests"`
	AvgDuration     time.Duration     `json:"avg_duration"`
}

type stats struct {
	mu              sync.Mutex
	total           uint64
	success         uint64
	failed          uint64
	active          int64
	failuresByStage map[Stage]uint64
	totalDuration   time.Duration
}

func newStats() *stats {
	return &stats{failuresByStage: make(map[Stage]uint64)}
}

func (s *stats) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.active++
}

func (s *stats) succeed(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	s.success++
	s.totalDuration += d
}

func (s *stats) fail(stage Stage, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	s.failed++
	s.failuresByStage[stage]++
	s.totalDuration += d
}

func (s *stats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Stats{
		TotalRequests:   s.total,
		SuccessRequests: s.success,
		FailedRequests:  s.failed,
		FailuresByStage: make(map[string]uint64, len(s.failuresByStage)),
		ActiveRequests:  s.active,
	}
	for stage, n := range s.failuresByStage {
		out.FailuresByStage[string(stage)] = n
	}
	if finished := s.success + s.failed; finished > 0 {
		out.SuccessRate = float64(s.success) / float64(finished) * 100
		out.AvgDuration = s.totalDuration / time.Duration(finished)
	}
	return out
}
