// Package pipelinetest provides in-memory stand-ins for the pipeline's external services.
package pipelinetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/skypro1111/audio-transcriber-service/internal/transcription"
)

// Normalizer copies the input to input+".wav" without converting it
type Normalizer struct {
	Err   error
	Calls atomic.Int32
}

func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (string, error) {
	n.Calls.Add(1)
	if n.Err != nil {
		return "", n.Err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", err
	}
	out := inputPath + ".wav"
	if err := os.WriteFile(out, data, 0644); err != nil {
		return "", err
	}
	return out, nil
}

// Store keeps uploaded objects in memory, keyed by gs:// URI
type Store struct {
	Bucket    string
	UploadErr error
	DeleteErr error

	mu      sync.Mutex
	objects map[string][]byte
	deletes int
}

func (s *Store) Upload(ctx context.Context, localPath string) (string, error) {
	if s.UploadErr != nil {
		return "", s.UploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	bucket := s.Bucket
	if bucket == "" {
		bucket = "test-bucket"
	}
	uri := fmt.Sprintf("gs://%s/%s", bucket, filepath.Base(localPath))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[uri] = data
	return uri, nil
}

func (s *Store) Delete(ctx context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.objects, uri)
	return nil
}

// Get returns the content of a stored object
func (s *Store) Get(uri string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[uri]
	return data, ok
}

// Len returns the number of objects still stored
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Deletes returns how many deletes were attempted
func (s *Store) Deletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes
}

// Recognizer transcribes an object as "transcript:" followed by its stored content
type Recognizer struct {
	Store *Store
	Err   error
	Calls atomic.Int32
}

func (r *Recognizer) Recognize(ctx context.Context, uri string) (*transcription.Transcript, error) {
	r.Calls.Add(1)
	if r.Err != nil {
		return nil, r.Err
	}
	data, ok := r.Store.Get(uri)
	if !ok {
		return nil, fmt.Errorf("object %s not found", uri)
	}
	segments := []string{"transcript:", string(data)}
	return &transcription.Transcript{
		Segments: segments,
		Text:     segments[0] + "\n" + segments[1],
	}, nil
}

// Summarizer returns "summary of " followed by the transcript
type Summarizer struct {
	Err   error
	Calls atomic.Int32
}

func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	s.Calls.Add(1)
	if s.Err != nil {
		return "", s.Err
	}
	return "summary of " + transcript, nil
}
