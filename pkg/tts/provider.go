// Package tts turns short text annotations into spoken audio. Several
// unreliable backends (paid speech APIs and the local OS speech command)
// sit behind one Provider contract, with bounded retries, a persistent
// audio cache and a primary/secondary fallback wrapper.
package tts

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Voice is a provider-supplied voice. Read-only.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender,omitempty"`
}

// ProviderInfo describes a provider instance. Created once, never mutated.
type ProviderInfo struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Version        string   `json:"version"`
	RequiresAPIKey bool     `json:"requires_api_key"`
	Features       []string `json:"features"`
}

// ProviderConfig carries per-provider settings. Fields a provider does
// not use are ignored by it.
type ProviderConfig struct {
	APIKey  string  `json:"api_key,omitempty"`
	Model   string  `json:"model,omitempty"`
	Voice   string  `json:"voice,omitempty"`
	VoiceID string  `json:"voice_id,omitempty"`
	Speed   float64 `json:"speed,omitempty"`
	Format  string  `json:"format,omitempty"`
	Rate    int     `json:"rate,omitempty"` // words per minute, say only
}

// merge overlays non-zero fields of in onto c. Zero values never clear
// an existing setting.
func (c *ProviderConfig) merge(in ProviderConfig) {
	if in.APIKey != "" {
		c.APIKey = in.APIKey
	}
	if in.Model != "" {
		c.Model = in.Model
	}
	if in.Voice != "" {
		c.Voice = in.Voice
	}
	if in.VoiceID != "" {
		c.VoiceID = in.VoiceID
	}
	if in.Speed != 0 {
		c.Speed = in.Speed
	}
	if in.Format != "" {
		c.Format = in.Format
	}
	if in.Rate != 0 {
		c.Rate = in.Rate
	}
}

// SpeakResult reports the outcome of one Speak call. Expected failures
// (auth, rate limit, empty text) are carried in Error, never panicked.
type SpeakResult struct {
	Success  bool          `json:"success"`
	Provider string        `json:"provider"`
	ID       string        `json:"id,omitempty"`
	Cached   bool          `json:"cached,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Provider is the capability contract every speech backend implements.
//
// IsAvailable must mirror exactly the preconditions Speak enforces: a
// provider that would fail Speak for a missing credential must report
// unavailable for the same missing credential.
type Provider interface {
	// Speak synthesizes and plays text. Empty or whitespace-only text
	// returns a failed result without contacting any backend or
	// spawning any process.
	Speak(ctx context.Context, text string) *SpeakResult

	IsAvailable() bool
	ProviderInfo() ProviderInfo

	// Configure merges cfg into the existing configuration; it never
	// replaces it wholesale.
	Configure(cfg ProviderConfig)
	// Configuration returns a copy, not a live reference.
	Configuration() ProviderConfig

	// Voices lists the provider's voices.
	Voices(ctx context.Context) ([]Voice, error)
	// PreloadAudio warms the audio cache. Best-effort; errors are
	// swallowed.
	PreloadAudio(ctx context.Context, text string)
	// CancelSpeech stops in-flight local playback. Best-effort; it has
	// no defined effect on an in-flight network request.
	CancelSpeech()
}

// configState is the shared Configure/Configuration implementation
// embedded by the concrete providers.
type configState struct {
	mu  sync.RWMutex
	cfg ProviderConfig
}

func (s *configState) Configure(cfg ProviderConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.merge(cfg)
}

func (s *configState) Configuration() ProviderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func failedResult(provider, message string) *SpeakResult {
	return &SpeakResult{
		Success:  false,
		Provider: provider,
		Error:    message,
	}
}

const emptyTextError = "Empty text provided"

// isEmptyText reports whether text contains nothing speakable.
func isEmptyText(text string) bool {
	return strings.TrimSpace(text) == ""
}

// clampSpeed bounds a speed multiplier; zero means the default 1.0.
func clampSpeed(speed, min, max float64) float64 {
	if speed == 0 {
		speed = 1.0
	}
	if speed < min {
		return min
	}
	if speed > max {
		return max
	}
	return speed
}

// truncateText shortens text to at most max runes, appending an
// ellipsis marker instead of failing. Rune-based so multi-byte scripts
// are never split mid-character.
func truncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}
