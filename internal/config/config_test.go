package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Default()
	cfg.Summarizer.APIKey = "test-key"
	return *cfg
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid server port",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name:        "empty upload dir",
			mutate:      func(c *Config) { c.Server.UploadDir = "" },
			expectError: true,
			errorMsg:    "upload_dir cannot be empty",
		},
		{
			name:        "no cors origins",
			mutate:      func(c *Config) { c.CORS.AllowedOrigins = nil },
			expectError: true,
			errorMsg:    "allowed_origins cannot be empty",
		},
		{
			name:        "bucket with path",
			mutate:      func(c *Config) { c.Storage.Bucket = "bucket/prefix" },
			expectError: true,
			errorMsg:    "bare bucket name",
		},
		{
			name:        "unsupported encoding",
			mutate:      func(c *Config) { c.Speech.Encoding = "FLAC" },
			expectError: true,
			errorMsg:    "encoding must be LINEAR16",
		},
		{
			name:        "stereo normalizer",
			mutate:      func(c *Config) { c.Normalizer.Channels = 2 },
			expectError: true,
			errorMsg:    "channels must be 1",
		},
		{
			name: "sample rate mismatch",
			mutate: func(c *Config) {
				c.Normalizer.SampleRate = 8000
			},
			expectError: true,
			errorMsg:    "must match speech sample_rate",
		},
		{
			name:        "unknown summarizer provider",
			mutate:      func(c *Config) { c.Summarizer.Provider = "claude" },
			expectError: true,
			errorMsg:    "provider must be 'gemini' or 'openai'",
		},
		{
			name:        "missing api key",
			mutate:      func(c *Config) { c.Summarizer.APIKey = "" },
			expectError: true,
			errorMsg:    "api_key cannot be empty",
		},
		{
			name:        "prompt without transcript",
			mutate:      func(c *Config) { c.Summarizer.PromptTemplate = "Summarize." },
			expectError: true,
			errorMsg:    "{{.Transcript}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
server:
  address: "127.0.0.1"
  port: 8080
  upload_dir: "/tmp/uploads"
  max_upload_bytes: 1048576
storage:
  bucket: "test-bucket"
summarizer:
  provider: "openai"
  model: "gpt-4o-mini"
  api_key: "sk-test"
logging:
  level: "debug"
  format: "json"
  output: "stderr"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  port: invalid_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "invalid values",
			configYAML: `
summarizer:
  api_key: "k"
server:
  address: ""
`,
			expectError: true,
			errorMsg:    "address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if config.Server.Port != 8080 || config.Storage.Bucket != "test-bucket" {
				t.Errorf("File values not applied: %+v", config.Server)
			}
			// Sections absent from the file keep their defaults
			if config.Speech.LanguageCode != "fr-FR" {
				t.Errorf("Expected default language fr-FR, got %s", config.Speech.LanguageCode)
			}
		})
	}
}

func TestConfigLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("PORT", "9090")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults to load, got: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected PORT override 9090, got %d", cfg.Server.Port)
	}
	if cfg.Summarizer.APIKey != "gemini-key" {
		t.Errorf("Expected GEMINI_API_KEY to be applied")
	}
}

func TestConfigLoadMissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "api_key cannot be empty") {
		t.Errorf("Expected missing api key error, got: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                           "not-a-number",
		"GOOGLE_APPLICATION_CREDENTIALS": "/secrets/sa.json",
		"GCS_BUCKET":                     "other-bucket",
		"OPENAI_API_KEY":                 "sk-env",
	}
	cfg := Default()
	cfg.Summarizer.Provider = "openai"
	cfg.Speech.CredentialsFile = "/explicit.json"

	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Server.Port != 3000 {
		t.Errorf("Invalid PORT should be ignored, got %d", cfg.Server.Port)
	}
	if cfg.Storage.CredentialsFile != "/secrets/sa.json" {
		t.Errorf("Expected storage credentials from env, got %s", cfg.Storage.CredentialsFile)
	}
	if cfg.Speech.CredentialsFile != "/explicit.json" {
		t.Errorf("Explicit speech credentials should win, got %s", cfg.Speech.CredentialsFile)
	}
	if cfg.Storage.Bucket != "other-bucket" {
		t.Errorf("Expected bucket override, got %s", cfg.Storage.Bucket)
	}
	if cfg.Summarizer.APIKey != "sk-env" {
		t.Errorf("Expected OPENAI_API_KEY for openai provider, got %q", cfg.Summarizer.APIKey)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("TRANSCRIBER_TEST_VALUE=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRANSCRIBER_TEST_VALUE", "")
	os.Unsetenv("TRANSCRIBER_TEST_VALUE")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("TRANSCRIBER_TEST_VALUE"); got != "from-file" {
		t.Errorf("Expected value from .env, got %q", got)
	}
}

func TestDurationHelpers(t *testing.T) {
	server := ServerConfig{
		ReadTimeout:  60,
		WriteTimeout: 900,
		IdleTimeout:  30,
	}

	if server.GetReadTimeout() != time.Minute {
		t.Errorf("Expected 1 minute, got %v", server.GetReadTimeout())
	}

	if server.GetWriteTimeout() != 15*time.Minute {
		t.Errorf("Expected 15 minutes, got %v", server.GetWriteTimeout())
	}

	if server.GetIdleTimeout() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", server.GetIdleTimeout())
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{
			name:   "valid json to stdout",
			config: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
			valid:  true,
		},
		{
			name:   "valid text to file",
			config: LoggingConfig{Level: "debug", Format: "text", Output: "/var/log/transcriber.log"},
			valid:  true,
		},
		{
			name:   "invalid log level",
			config: LoggingConfig{Level: "trace", Format: "json", Output: "stdout"},
			valid:  false,
		},
		{
			name:   "invalid format",
			config: LoggingConfig{Level: "info", Format: "xml", Output: "stdout"},
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}
