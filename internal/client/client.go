package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotAudio is returned when a file does not look like audio
var ErrNotAudio = errors.New("file is not an audio file")

// audioTypes covers the extensions browsers and recorders commonly produce.
// The system MIME table is consulted for anything else.
var audioTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".webm": "audio/webm",
	".flac": "audio/flac",
	".amr":  "audio/amr",
}

// Client uploads audio files to the transcription server
type Client struct {
	config     Config
	httpClient *http.Client
}

// Config contains client configuration
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Response is the JSON body returned by the transcription endpoint
type Response struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
	Error      string `json:"error,omitempty"`

	RequestID string `json:"-"`
}

// APIError is returned for non-2xx responses and carries the server's message
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP error %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new transcription server client
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	// Recognition of long recordings can take many minutes
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Minute
	}

	if config.UserAgent == "" {
		config.UserAgent = "audio-transcriber-client/1.0"
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// AudioContentType returns the audio MIME type for a file name, or ErrNotAudio
func AudioContentType(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := audioTypes[ext]; ok {
		return ct, nil
	}
	if ct := mime.TypeByExtension(ext); strings.HasPrefix(ct, "audio/") {
		return ct, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotAudio)
}

// TranscribeFile uploads a local audio file
func (c *Client) TranscribeFile(ctx context.Context, path string) (*Response, error) {
	contentType, err := AudioContentType(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	return c.Transcribe(ctx, filepath.Base(path), contentType, f)
}

// Transcribe streams audio to /process-audio as the multipart field "audio"
func (c *Client) Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (*Response, error) {
	body, formType := multipartBody(filename, contentType, audio)
	defer body.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/process-audio", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", formType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result Response
	jsonErr := json.Unmarshal(respBody, &result)
	result.RequestID = resp.Header.Get("X-Request-ID")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: result.RequestID}
		if jsonErr == nil {
			apiErr.Message = result.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	if jsonErr != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", jsonErr)
	}
	if !result.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: result.Error, RequestID: result.RequestID}
	}

	return &result, nil
}

// multipartBody writes the form on a goroutine so large files are never buffered whole
func multipartBody(filename, contentType string, audio io.Reader) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
		h.Set("Content-Type", contentType)

		part, err := writer.CreatePart(h)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("failed to create form file: %w", err))
			return
		}
		if _, err := io.Copy(part, audio); err != nil {
			pw.CloseWithError(fmt.Errorf("failed to write audio data: %w", err))
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	return pr, writer.FormDataContentType()
}
