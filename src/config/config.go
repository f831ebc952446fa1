// Package config loads process configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/square-key-labs/exobridge/src/logger"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	STTEndpoint string
	STTKey      string

	TTSEndpoint string
	TTSKey      string
	TTSVoice    string

	GeminiKey           string
	GeminiModel         string
	GeminiFallbackModel string

	LLMEndpoint string
	LLMKey      string
	LLMModel    string

	SystemPrompt string
	MaxHistory   int
	CallTimeout  time.Duration
}

const defaultSystemPrompt = "You are a helpful voice assistant on a phone call. " +
	"Keep answers short and conversational, one or two sentences."

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded: %v", err)
	}

	cfg := Config{
		HTTPAddress: getenv("HTTP_ADDRESS", ":8080"),

		STTEndpoint: os.Getenv("STT_ENDPOINT"),
		STTKey:      os.Getenv("STT_API_KEY"),

		TTSEndpoint: os.Getenv("TTS_ENDPOINT"),
		TTSKey:      os.Getenv("TTS_API_KEY"),
		TTSVoice:    os.Getenv("TTS_VOICE"),

		GeminiKey:           os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiFallbackModel: getenv("GEMINI_FALLBACK_MODEL", "gemini-1.5-flash"),

		LLMEndpoint: os.Getenv("LLM_ENDPOINT"),
		LLMKey:      os.Getenv("LLM_API_KEY"),
		LLMModel:    os.Getenv("LLM_MODEL"),

		SystemPrompt: getenv("SYSTEM_PROMPT", defaultSystemPrompt),
		MaxHistory:   20,
		CallTimeout:  20 * time.Second,
	}

	if v := os.Getenv("CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CallTimeout = d
		} else {
			logger.Warn("ignoring invalid CALL_TIMEOUT %q", v)
		}
	}

	if cfg.STTEndpoint == "" {
		logger.Warn("STT_ENDPOINT not set, transcription will not work")
	}
	if cfg.TTSEndpoint == "" {
		logger.Warn("TTS_ENDPOINT not set, speech synthesis will not work")
	}
	if cfg.GeminiKey == "" && cfg.LLMEndpoint == "" {
		logger.Warn("neither GEMINI_API_KEY nor LLM_ENDPOINT is set, no language model is available")
	}

	logger.Info("config: HTTP_ADDRESS=%s model=%s", cfg.HTTPAddress, cfg.GeminiModel)
	return cfg
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
