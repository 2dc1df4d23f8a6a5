// Package transcription implements the speech recognition client.
// It submits stored audio references as long-running recognition operations, waits for
// completion, and joins the best alternative of each result into a transcript.
package transcription
