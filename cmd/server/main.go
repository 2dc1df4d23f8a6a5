package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skypro1111/audio-transcriber-service/internal/audio"
	"github.com/skypro1111/audio-transcriber-service/internal/config"
	"github.com/skypro1111/audio-transcriber-service/internal/metrics"
	"github.com/skypro1111/audio-transcriber-service/internal/pipeline"
	"github.com/skypro1111/audio-transcriber-service/internal/server"
	"github.com/skypro1111/audio-transcriber-service/internal/storage"
	"github.com/skypro1111/audio-transcriber-service/internal/summarize"
	"github.com/skypro1111/audio-transcriber-service/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "audio-transcriber-service"
	serviceVersion    = "1.0.0"

	// shutdownGrace covers staged file and object cleanup after the last response
	shutdownGrace = 30 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to dotenv file")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load environment: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("listen_address", cfg.Server.ListenAddress()),
		slog.String("upload_dir", cfg.Server.UploadDir),
		slog.Int64("max_upload_bytes", cfg.Server.MaxUploadBytes),
		slog.String("bucket", cfg.Storage.Bucket),
		slog.String("language_code", cfg.Speech.LanguageCode),
		slog.Int("sample_rate", cfg.Speech.SampleRate),
		slog.String("summarizer", cfg.Summarizer.Provider),
		slog.String("summarizer_model", cfg.Summarizer.Model),
		slog.Any("cors_origins", cfg.CORS.AllowedOrigins),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Service stopped")
}

// run wires the pipeline and serves HTTP until ctx is cancelled
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	appMetrics := metrics.NewMetrics()

	normalizer := audio.NewNormalizer(audio.NormalizerConfig{
		FFmpegPath: cfg.Normalizer.FFmpegPath,
		Channels:   cfg.Normalizer.Channels,
		SampleRate: cfg.Normalizer.SampleRate,
		Bitrate:    cfg.Normalizer.Bitrate,
		Codec:      cfg.Normalizer.Codec,
	}, logger)

	store, err := storage.NewGCSStore(ctx, storage.Config{
		Bucket:          cfg.Storage.Bucket,
		CredentialsFile: cfg.Storage.CredentialsFile,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	defer store.Close()

	recognizer, err := transcription.NewClient(ctx, transcription.Config{
		SampleRate:           cfg.Speech.SampleRate,
		LanguageCode:         cfg.Speech.LanguageCode,
		AutomaticPunctuation: cfg.Speech.AutomaticPunctuation,
		Model:                cfg.Speech.Model,
		UseEnhanced:          cfg.Speech.UseEnhanced,
		CredentialsFile:      cfg.Speech.CredentialsFile,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create speech client: %w", err)
	}
	defer recognizer.Close()

	summarizer, err := summarize.New(ctx, summarize.Config{
		Provider:       cfg.Summarizer.Provider,
		Model:          cfg.Summarizer.Model,
		APIKey:         cfg.Summarizer.APIKey,
		BaseURL:        cfg.Summarizer.BaseURL,
		PromptTemplate: cfg.Summarizer.PromptTemplate,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create summarizer: %w", err)
	}
	defer summarizer.Close()

	p, err := pipeline.New(pipeline.Dependencies{
		Normalizer: normalizer,
		Store:      store,
		Recognizer: recognizer,
		Summarizer: summarizer,
	}, appMetrics, logger)
	if err != nil {
		return err
	}

	spool, err := pipeline.NewSpool(cfg.Server.UploadDir)
	if err != nil {
		return err
	}

	httpServer := server.NewHTTPServer(cfg, p, spool, appMetrics, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(httpServer.ListenAndServe)

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Starting graceful shutdown...")

		// In-flight requests keep running until they finish or the timeout hits.
		// The clients deferred above are closed only after this returns.
		timeout := shutdownTimeout(cfg)
		logger.Info("Waiting for in-flight requests", slog.Duration("timeout", timeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop HTTP server: %w", err)
		}
		return nil
	})

	err = g.Wait()

	stats := p.GetStats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Int64("active_requests", stats.ActiveRequests),
	)

	return err
}

// shutdownTimeout allows a request accepted just before the signal to reach its write deadline
func shutdownTimeout(cfg *config.Config) time.Duration {
	return cfg.Server.GetWriteTimeout() + shutdownGrace
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
