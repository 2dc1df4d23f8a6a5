// Package config provides configuration loading and validation for the audio transcription service.
// It layers a YAML file over built-in defaults, loads .env files, and lets the environment
// override ports, credentials, bucket and API keys.
package config
