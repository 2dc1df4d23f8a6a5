// Package storage uploads normalized audio to Cloud Storage so the speech service can read it by URI.
package storage
