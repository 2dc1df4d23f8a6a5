package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// maxNameAttempts bounds the search for a free timestamp name
const maxNameAttempts = 1000

// defaultExt is used when the client sent no usable extension. Every spooled name carries
// exactly one extension so it can never equal another spooled name plus ".wav".
const defaultExt = ".audio"

var validExt = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Upload is an audio file received from a client and spooled to local disk
type Upload struct {
	OriginalName string
	Path         string
	MIMEType     string
	Size         int64
}

// Spool writes incoming uploads to a directory under timestamp-derived names
type Spool struct {
	dir string
	now func() time.Time
}

// NewSpool creates the spool directory if needed
func NewSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Spool{dir: dir, now: time.Now}, nil
}

// Dir returns the spool directory
func (s *Spool) Dir() string {
	return s.dir
}

// Save copies src to <unix millis><ext>. When the name is taken, the timestamp is advanced
// one millisecond at a time until a free name is found.
func (s *Spool) Save(src io.Reader, originalName, mimeType string) (*Upload, error) {
	ext := spoolExt(originalName)
	ts := s.now().UnixMilli()

	var (
		f    *os.File
		path string
		err  error
	)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		path = filepath.Join(s.dir, fmt.Sprintf("%d%s", ts+int64(attempt), ext))
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil || !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}

	size, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write spool file %s: %w", path, err)
	}

	return &Upload{
		OriginalName: originalName,
		Path:         path,
		MIMEType:     mimeType,
		Size:         size,
	}, nil
}

func spoolExt(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if !validExt.MatchString(ext) {
		return defaultExt
	}
	return ext
}
