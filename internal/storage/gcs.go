package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// URIScheme prefixes object references handed to the speech service
const URIScheme = "gs://"

// Config contains bucket configuration
type Config struct {
	Bucket          string
	CredentialsFile string
}

// GCSStore uploads normalized audio to a Cloud Storage bucket and removes it afterwards
type GCSStore struct {
	client *gcs.Client
	bucket string
	logger *slog.Logger
}

// NewGCSStore creates a store backed by a new Cloud Storage client.
// Extra client options are applied after the credentials file.
func NewGCSStore(ctx context.Context, config Config, logger *slog.Logger, extra ...option.ClientOption) (*GCSStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket cannot be empty")
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	opts = append(opts, extra...)

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: config.Bucket,
		logger: logger,
	}, nil
}

// Upload puts the file under its base name and returns the gs:// URI of the object
func (s *GCSStore) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	// Cancelling the writer's context abandons the upload without creating the object
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	name := ObjectName(localPath)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(wctx)
	w.ContentType = "audio/wav"

	written, err := io.Copy(w, f)
	if err != nil {
		cancel()
		w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	// The object only becomes visible once Close succeeds
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload of %s: %w", name, err)
	}

	s.logger.Debug("Object uploaded",
		slog.String("bucket", s.bucket),
		slog.String("object", name),
		slog.Int64("bytes", written),
	)

	return ObjectURI(s.bucket, name), nil
}

// Delete removes the object referenced by uri. A missing object is not an error.
func (s *GCSStore) Delete(ctx context.Context, uri string) error {
	bucket, name, err := ParseURI(uri)
	if err != nil {
		return err
	}
	if bucket != s.bucket {
		return fmt.Errorf("object %s is not in bucket %s", uri, s.bucket)
	}

	err = s.client.Bucket(bucket).Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", uri, err)
	}
	return nil
}

// Close releases the underlying client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// ObjectName derives the object name from a local path
func ObjectName(localPath string) string {
	return filepath.Base(localPath)
}

// ObjectURI builds a gs:// reference
func ObjectURI(bucket, name string) string {
	return URIScheme + bucket + "/" + name
}

// ParseURI splits a gs:// reference into bucket and object name
func ParseURI(uri string) (bucket, name string, err error) {
	rest, ok := strings.CutPrefix(uri, URIScheme)
	if !ok {
		return "", "", fmt.Errorf("not a %s URI: %q", URIScheme, uri)
	}
	bucket, name, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || name == "" {
		return "", "", fmt.Errorf("URI %q must name a bucket and an object", uri)
	}
	return bucket, name, nil
}
