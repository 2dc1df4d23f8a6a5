// Package pipeline orchestrates the processing of one uploaded audio file.
// It spools the upload, then runs normalization, object upload, speech recognition and
// summarization strictly in sequence, and reclaims every local and remote artifact on exit.
package pipeline
