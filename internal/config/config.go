// Package config provides centralized configuration for the sermonflow server.
// All configurable values are loaded from environment variables with sensible defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// DBPath is the path to the SQLite database file.
	DBPath string

	// GroqKey is the API key for the Groq generation service.
	GroqKey string

	// GroqModel is the model identifier for content generation.
	GroqModel string

	// OpenAIKey is the API key used for Whisper transcription.
	OpenAIKey string

	// MaxGenTokens is the completion token ceiling per generation call.
	// Responses that hit it are flagged as possibly truncated.
	MaxGenTokens int

	// WorkerInterval is the polling interval for the background worker.
	WorkerInterval time.Duration

	// HTTPTimeout is the timeout for outgoing network calls (transcription, generation).
	HTTPTimeout time.Duration

	// MinTranscriptChars is the minimum usable transcript length. Shorter
	// transcripts fail the whole job.
	MinTranscriptChars int

	// MaxTranscriptRunes is the maximum number of transcript runes fed to a
	// generation prompt.
	MaxTranscriptRunes int

	// FreeTierLimit is the jobs-per-calendar-month cap for owners without a
	// subscription.
	FreeTierLimit int

	// TrialLimit is the jobs-per-trial-window cap for trialing owners.
	TrialLimit int

	// StepRetries is the number of attempts for transient step failures.
	StepRetries int

	// NotifyWebhookURL, when set, receives a POST with the completion event.
	NotifyWebhookURL string

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	return Config{
		Port:               envOr("PORT", "8080"),
		DBPath:             envOr("DB_PATH", "sermonflow.db"),
		GroqKey:            os.Getenv("GROQ_API_KEY"),
		GroqModel:          envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		MaxGenTokens:       envInt("MAX_GEN_TOKENS", 4096),
		WorkerInterval:     envDuration("WORKER_INTERVAL", 3*time.Second),
		HTTPTimeout:        envDuration("HTTP_TIMEOUT", 120*time.Second),
		MinTranscriptChars: envInt("MIN_TRANSCRIPT_CHARS", 100),
		MaxTranscriptRunes: envInt("MAX_TRANSCRIPT_RUNES", 24000),
		FreeTierLimit:      envInt("FREE_TIER_LIMIT", 3),
		TrialLimit:         envInt("TRIAL_LIMIT", 5),
		StepRetries:        envInt("STEP_RETRIES", 3),
		NotifyWebhookURL:   os.Getenv("NOTIFY_WEBHOOK_URL"),
		CORSOrigin:         envOr("CORS_ORIGIN", "*"),
	}
}

// UseGenerationStub returns true when no Groq API key is configured.
func (c Config) UseGenerationStub() bool {
	return c.GroqKey == ""
}

// UseTranscriptionStub returns true when no OpenAI API key is configured.
func (c Config) UseTranscriptionStub() bool {
	return c.OpenAIKey == ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
