// Package client is a Go client for the transcription server's upload endpoint.
package client
