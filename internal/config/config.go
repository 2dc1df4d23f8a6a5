package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	CORS       CORSConfig       `yaml:"cors"`
	Storage    StorageConfig    `yaml:"storage"`
	Speech     SpeechConfig     `yaml:"speech"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Address        string `yaml:"address"`
	Port           int    `yaml:"port"`
	UploadDir      string `yaml:"upload_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	ReadTimeout    int    `yaml:"read_timeout"`  // seconds
	WriteTimeout   int    `yaml:"write_timeout"` // seconds
	IdleTimeout    int    `yaml:"idle_timeout"`  // seconds
}

// CORSConfig contains the cross-origin policy applied to every route
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"` // seconds
}

// StorageConfig contains cloud object storage configuration
type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

// SpeechConfig contains the fixed recognition parameters
type SpeechConfig struct {
	Encoding             string `yaml:"encoding"`
	SampleRate           int    `yaml:"sample_rate"`
	LanguageCode         string `yaml:"language_code"`
	AutomaticPunctuation bool   `yaml:"automatic_punctuation"`
	Model                string `yaml:"model"`
	UseEnhanced          bool   `yaml:"use_enhanced"`
	CredentialsFile      string `yaml:"credentials_file"`
}

// NormalizerConfig contains ffmpeg conversion parameters
type NormalizerConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path"`
	Channels   int    `yaml:"channels"`
	SampleRate int    `yaml:"sample_rate"`
	Bitrate    string `yaml:"bitrate"`
	Codec      string `yaml:"codec"`
}

// SummarizerConfig contains generative model configuration
type SummarizerConfig struct {
	Provider       string `yaml:"provider"` // "gemini" or "openai"
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"` // provider API root override
	PromptTemplate string `yaml:"prompt_template"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultPromptTemplate asks for a French meeting summary with key points and decisions.
const DefaultPromptTemplate = `Résume le texte suivant qui est une transcription de réunion en français.
Identifie les points clés et les décisions importantes :
{{.Transcript}}`

// Default returns a configuration that works out of the box once credentials are provided
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        "0.0.0.0",
			Port:           3000,
			UploadDir:      "uploads",
			MaxUploadBytes: 100 << 20,
			ReadTimeout:    60,
			WriteTimeout:   900,
			IdleTimeout:    60,
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"https://audio-transcriber-inky.vercel.app", "http://localhost:5174"},
			AllowedMethods:   []string{"GET", "POST"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           86400,
		},
		Storage: StorageConfig{
			Bucket: "audio-transcriber-bucket-flo",
		},
		Speech: SpeechConfig{
			Encoding:             "LINEAR16",
			SampleRate:           16000,
			LanguageCode:         "fr-FR",
			AutomaticPunctuation: true,
			Model:                "default",
			UseEnhanced:          true,
		},
		Normalizer: NormalizerConfig{
			FFmpegPath: "ffmpeg",
			Channels:   1,
			SampleRate: 16000,
			Bitrate:    "64k",
			Codec:      "pcm_s16le",
		},
		Summarizer: SummarizerConfig{
			Provider:       "gemini",
			Model:          "gemini-1.5-flash",
			PromptTemplate: DefaultPromptTemplate,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file over the defaults, applies the environment and validates.
// A missing file is not an error: the defaults plus environment are used instead.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.ApplyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process environment.
// Variables already set are left untouched and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides configuration values from environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		if c.Storage.CredentialsFile == "" {
			c.Storage.CredentialsFile = v
		}
		if c.Speech.CredentialsFile == "" {
			c.Speech.CredentialsFile = v
		}
	}

	if v := getenv("GCS_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}

	if c.Summarizer.APIKey == "" {
		switch c.Summarizer.Provider {
		case "gemini":
			c.Summarizer.APIKey = getenv("GEMINI_API_KEY")
		case "openai":
			c.Summarizer.APIKey = getenv("OPENAI_API_KEY")
		}
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.CORS.Validate(); err != nil {
		return fmt.Errorf("cors config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Speech.Validate(); err != nil {
		return fmt.Errorf("speech config: %w", err)
	}

	if err := c.Normalizer.Validate(); err != nil {
		return fmt.Errorf("normalizer config: %w", err)
	}

	if c.Normalizer.SampleRate != c.Speech.SampleRate {
		return fmt.Errorf("normalizer sample_rate (%d) must match speech sample_rate (%d)",
			c.Normalizer.SampleRate, c.Speech.SampleRate)
	}

	if err := c.Summarizer.Validate(); err != nil {
		return fmt.Errorf("summarizer config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if s.UploadDir == "" {
		return fmt.Errorf("upload_dir cannot be empty")
	}

	if s.MaxUploadBytes < 1024 {
		return fmt.Errorf("max_upload_bytes must be at least 1024 bytes, got %d", s.MaxUploadBytes)
	}

	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	return nil
}

// Validate validates CORS configuration
func (c *CORSConfig) Validate() error {
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins cannot be empty")
	}

	for _, m := range c.AllowedMethods {
		switch strings.ToUpper(m) {
		case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS":
		default:
			return fmt.Errorf("unsupported method in allowed_methods: '%s'", m)
		}
	}

	if c.MaxAge < 0 {
		return fmt.Errorf("max_age cannot be negative, got %d", c.MaxAge)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.Bucket == "" {
		return fmt.Errorf("bucket cannot be empty")
	}

	if strings.ContainsAny(s.Bucket, "/ ") {
		return fmt.Errorf("bucket must be a bare bucket name, got '%s'", s.Bucket)
	}

	return nil
}

// Validate validates speech recognition configuration
func (s *SpeechConfig) Validate() error {
	if s.Encoding != "LINEAR16" {
		return fmt.Errorf("encoding must be LINEAR16 for normalized WAV input, got '%s'", s.Encoding)
	}

	if s.SampleRate < 8000 || s.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", s.SampleRate)
	}

	if s.LanguageCode == "" {
		return fmt.Errorf("language_code cannot be empty")
	}

	return nil
}

// Validate validates normalizer configuration
func (n *NormalizerConfig) Validate() error {
	if n.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}

	if n.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", n.Channels)
	}

	if n.SampleRate < 8000 || n.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", n.SampleRate)
	}

	if n.Codec != "pcm_s16le" {
		return fmt.Errorf("codec must be pcm_s16le, got '%s'", n.Codec)
	}

	return nil
}

// Validate validates summarizer configuration
func (s *SummarizerConfig) Validate() error {
	validProviders := map[string]bool{"gemini": true, "openai": true}
	if !validProviders[s.Provider] {
		return fmt.Errorf("provider must be 'gemini' or 'openai', got '%s'", s.Provider)
	}

	if s.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if s.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if !strings.Contains(s.PromptTemplate, "{{.Transcript}}") {
		return fmt.Errorf("prompt_template must reference {{.Transcript}}")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetReadTimeout returns the read timeout as a time.Duration
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the write timeout as a time.Duration
func (s *ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// GetIdleTimeout returns the idle timeout as a time.Duration
func (s *ServerConfig) GetIdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

// ListenAddress returns host:port for the HTTP listener
func (s *ServerConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}
