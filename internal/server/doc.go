// Package server implements the HTTP surface of the transcription service.
// It accepts multipart audio uploads, hands them to the pipeline and shapes the JSON reply,
// and serves the browser client together with health, stats and Prometheus endpoints.
package server
