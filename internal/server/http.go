package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/skypro1111/audio-transcriber-service/internal/config"
	"github.com/skypro1111/audio-transcriber-service/internal/metrics"
	"github.com/skypro1111/audio-transcriber-service/internal/pipeline"
	"github.com/skypro1111/audio-transcriber-service/internal/web"
)

const (
	serviceName    = "audio-transcriber-service"
	serviceVersion = "1.0.0"

	// multipartMemory is how much of an upload is held in memory before spilling to temp files
	multipartMemory = 32 << 20

	uploadField = "audio"

	errNoAudio      = "no audio file provided"
	errTooLarge     = "audio file too large"
	errProcessing   = "failed to process audio"
	errNotAllowed   = "method not allowed"
	requestIDHeader = "X-Request-ID"
	rootBanner      = "audio transcription server online"
)

// Processor runs the transcription pipeline for one spooled upload
type Processor interface {
	Process(ctx context.Context, requestID string, upload *pipeline.Upload) (*pipeline.Result, error)
	GetStats() pipeline.Stats
}

// HTTPServer exposes the transcription endpoint plus monitoring routes
type HTTPServer struct {
	server    *http.Server
	handler   http.Handler
	logger    *slog.Logger
	config    *config.Config
	processor Processor
	spool     *pipeline.Spool
	metrics   *metrics.Metrics

	startTime time.Time
}

type processResponse struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewHTTPServer creates the HTTP server with routes and CORS policy applied
func NewHTTPServer(cfg *config.Config, processor Processor, spool *pipeline.Spool,
	m *metrics.Metrics, logger *slog.Logger) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		processor: processor,
		spool:     spool,
		metrics:   m,
		startTime: time.Now(),
	}

	router := mux.NewRouter()
	h.setupRoutes(router)

	h.handler = cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}).Handler(router)

	h.server = &http.Server{
		Addr:         cfg.Server.ListenAddress(),
		Handler:      h.handler,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
		IdleTimeout:  cfg.Server.GetIdleTimeout(),
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(r *mux.Router) {
	// Transcription endpoint, also reachable under the path older clients post to
	r.HandleFunc("/process-audio", h.withMetrics("/process-audio", h.handleProcessAudio)).Methods(http.MethodPost)
	r.HandleFunc("/api/transcribe", h.withMetrics("/api/transcribe", h.handleProcessAudio)).Methods(http.MethodPost)

	r.HandleFunc("/", h.withMetrics("/", h.handleRoot)).Methods(http.MethodGet)
	r.HandleFunc("/health", h.withMetrics("/health", h.handleHealth)).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats)).Methods(http.MethodGet)

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	// Browser client
	r.Handle("/ui", http.RedirectHandler("/ui/", http.StatusMovedPermanently)).Methods(http.MethodGet)
	r.PathPrefix("/ui/").Handler(http.StripPrefix("/ui", web.Handler())).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: errNotAllowed})
	})
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Handler returns the root handler including the CORS layer
func (h *HTTPServer) Handler() http.Handler {
	return h.handler
}

// ListenAndServe runs the server until it is shut down
func (h *HTTPServer) ListenAndServe() error {
	h.logger.Info("Starting HTTP server",
		slog.String("address", h.server.Addr),
		slog.String("upload_dir", h.spool.Dir()),
	)

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP server...")

	return h.server.Shutdown(ctx)
}

// handleProcessAudio implements POST /process-audio
func (h *HTTPServer) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set(requestIDHeader, requestID)
	logger := h.logger.With(slog.String("request_id", requestID))

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			logger.Warn("Upload rejected", slog.Int64("limit", maxErr.Limit))
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: errTooLarge})
			return
		}
		logger.Warn("Invalid upload", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errNoAudio})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		logger.Warn("Invalid upload", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errNoAudio})
		return
	}
	defer file.Close()

	upload, err := h.spool.Save(file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		logger.Error("Failed to spool upload", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errProcessing})
		return
	}

	// Once accepted, a request runs to completion even if the client goes away
	ctx := context.WithoutCancel(r.Context())

	result, err := h.processor.Process(ctx, requestID, upload)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errProcessing})
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Success:    true,
		Transcript: result.Transcript,
		Summary:    result.Summary,
	})
}

// handleRoot implements the / liveness banner
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, rootBanner)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.processor.GetStats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"pipeline": map[string]interface{}{
			"active_requests": stats.ActiveRequests,
			"total_requests":  stats.TotalRequests,
		},
	})
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"pipeline":  h.processor.GetStats(),
		"limits": map[string]interface{}{
			"max_upload_bytes": h.config.Server.MaxUploadBytes,
			"write_timeout":    h.config.Server.GetWriteTimeout().String(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
