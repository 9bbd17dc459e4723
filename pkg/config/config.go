package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// OpenAIConfig holds credentials and synthesis defaults for the OpenAI
// speech API.
type OpenAIConfig struct {
	APIKey string  `json:"api_key" env:"ANNSPEAK_OPENAI_API_KEY"`
	Model  string  `json:"model" env:"ANNSPEAK_OPENAI_MODEL"`
	Voice  string  `json:"voice" env:"ANNSPEAK_OPENAI_VOICE"`
	Speed  float64 `json:"speed" env:"ANNSPEAK_OPENAI_SPEED"`
	Format string  `json:"format" env:"ANNSPEAK_OPENAI_FORMAT"`
}

// ElevenLabsConfig holds credentials for the ElevenLabs speech API.
// Both APIKey and VoiceID are required before the provider is usable.
type ElevenLabsConfig struct {
	APIKey  string `json:"api_key" env:"ANNSPEAK_ELEVENLABS_API_KEY"`
	VoiceID string `json:"voice_id" env:"ANNSPEAK_ELEVENLABS_VOICE_ID"`
	Model   string `json:"model" env:"ANNSPEAK_ELEVENLABS_MODEL"`
}

// SayConfig configures the macOS `say` command provider.
type SayConfig struct {
	Voice string `json:"voice" env:"ANNSPEAK_SAY_VOICE"`
	Rate  int    `json:"rate" env:"ANNSPEAK_SAY_RATE"` // words per minute
}

// SpeechConfig selects the active provider and carries per-provider settings.
type SpeechConfig struct {
	Provider         string           `json:"provider" env:"ANNSPEAK_PROVIDER"`
	FallbackProvider string           `json:"fallback_provider" env:"ANNSPEAK_FALLBACK_PROVIDER"`
	OpenAI           OpenAIConfig     `json:"openai"`
	ElevenLabs       ElevenLabsConfig `json:"elevenlabs"`
	Say              SayConfig        `json:"say"`
}

// CacheConfig bounds the on-disk audio cache.
type CacheConfig struct {
	Enabled      bool   `json:"enabled" env:"ANNSPEAK_CACHE_ENABLED"`
	Dir          string `json:"dir" env:"ANNSPEAK_CACHE_DIR"`
	MaxSizeBytes int64  `json:"max_size_bytes" env:"ANNSPEAK_CACHE_MAX_SIZE_BYTES"`
	MaxAgeDays   int    `json:"max_age_days" env:"ANNSPEAK_CACHE_MAX_AGE_DAYS"`
	MaxEntries   int    `json:"max_entries" env:"ANNSPEAK_CACHE_MAX_ENTRIES"`
}

// MaxAge converts the configured day count to a duration. Zero or
// negative means entries never expire.
func (c CacheConfig) MaxAge() time.Duration {
	if c.MaxAgeDays <= 0 {
		return 0
	}
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

type LogConfig struct {
	Level string `json:"level" env:"ANNSPEAK_LOG_LEVEL"`
	File  string `json:"file" env:"ANNSPEAK_LOG_FILE"`
}

type Config struct {
	Speech SpeechConfig `json:"speech"`
	Cache  CacheConfig  `json:"cache"`
	Log    LogConfig    `json:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Speech: SpeechConfig{
			Provider: "auto",
			OpenAI: OpenAIConfig{
				Model:  "tts-1",
				Voice:  "alloy",
				Speed:  1.0,
				Format: "mp3",
			},
			ElevenLabs: ElevenLabsConfig{
				Model: "eleven_turbo_v2_5",
			},
			Say: SayConfig{
				Rate: 200,
			},
		},
		Cache: CacheConfig{
			Enabled:      true,
			Dir:          filepath.Join(defaultHome(), "cache"),
			MaxSizeBytes: 100 * 1024 * 1024,
			MaxAgeDays:   7,
			MaxEntries:   1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the JSON config at path and applies environment
// overrides. A missing file is not an error; defaults are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
