package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nathanvale/mnemosyne-sub011/pkg/cache"
	"github.com/nathanvale/mnemosyne-sub011/pkg/logger"
)

const defaultElevenLabsAPIBase = "https://api.elevenlabs.io"

// ElevenLabsProvider synthesizes speech through the ElevenLabs
// streaming API. The stream is buffered fully before playback.
type ElevenLabsProvider struct {
	configState
	apiBase    string
	httpClient *http.Client
	cache      *cache.AudioCache
	policy     RetryPolicy
	player     audioPlayer
}

var _ Provider = (*ElevenLabsProvider)(nil)

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

type elevenLabsVoicesResponse struct {
	Voices []struct {
		VoiceID string            `json:"voice_id"`
		Name    string            `json:"name"`
		Labels  map[string]string `json:"labels"`
	} `json:"voices"`
}

type ElevenLabsOption func(*ElevenLabsProvider)

// WithElevenLabsAPIBase points the provider at a different API endpoint.
func WithElevenLabsAPIBase(apiBase string) ElevenLabsOption {
	return func(p *ElevenLabsProvider) {
		p.apiBase = apiBase
	}
}

func WithElevenLabsRetryPolicy(policy RetryPolicy) ElevenLabsOption {
	return func(p *ElevenLabsProvider) {
		p.policy = policy
	}
}

// NewElevenLabsProvider creates the provider with cfg merged over
// defaults. audioCache may be nil to disable caching.
func NewElevenLabsProvider(cfg ProviderConfig, audioCache *cache.AudioCache, opts ...ElevenLabsOption) *ElevenLabsProvider {
	p := &ElevenLabsProvider{
		apiBase:    defaultElevenLabsAPIBase,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cache:      audioCache,
		policy:     DefaultRetryPolicy(),
	}
	p.cfg = ProviderConfig{
		Model:  "eleven_turbo_v2_5",
		Format: "mp3",
	}
	p.cfg.merge(cfg)

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *ElevenLabsProvider) ProviderInfo() ProviderInfo {
	return ProviderInfo{
		Name:           ProviderElevenLabs,
		DisplayName:    "ElevenLabs",
		Version:        "1.0.0",
		RequiresAPIKey: true,
		Features:       []string{"speak", "voices", "preload", "cache"},
	}
}

// IsAvailable requires both the API key and a voice ID, matching
// exactly what would make Speak fail.
func (p *ElevenLabsProvider) IsAvailable() bool {
	cfg := p.Configuration()
	return cfg.APIKey != "" && cfg.VoiceID != ""
}

func (p *ElevenLabsProvider) Speak(ctx context.Context, text string) *SpeakResult {
	start := time.Now()

	if isEmptyText(text) {
		return failedResult(ProviderElevenLabs, emptyTextError)
	}

	cfg := p.Configuration()
	if cfg.APIKey == "" {
		return failedResult(ProviderElevenLabs, "ElevenLabs API key not configured")
	}
	if cfg.VoiceID == "" {
		return failedResult(ProviderElevenLabs, "ElevenLabs voiceId not configured")
	}

	key := cache.GenerateKey(text, cfg.Model, cfg.VoiceID, 1.0)
	if p.cache != nil {
		if hit := p.cache.Get(key); hit != nil {
			p.playData(ctx, hit.Data)
			return &SpeakResult{
				Success:  true,
				Provider: ProviderElevenLabs,
				ID:       uuid.NewString(),
				Cached:   true,
				Duration: time.Since(start),
			}
		}
	}

	data, serr := withRetry(ctx, p.policy, ProviderElevenLabs, func(ctx context.Context) ([]byte, error) {
		return p.synthesize(ctx, text, cfg)
	})
	if serr != nil {
		return failedResult(ProviderElevenLabs, terminalMessage("ElevenLabs", serr))
	}

	if p.cache != nil {
		p.cache.Set(key, data, cache.Metadata{
			Provider: ProviderElevenLabs,
			Model:    cfg.Model,
			Voice:    cfg.VoiceID,
			Format:   "mp3",
		})
	}

	if err := p.playData(ctx, data); err != nil {
		logger.WarnCF("tts", "Playback failed after successful synthesis", map[string]any{
			"provider": ProviderElevenLabs,
			"error":    err.Error(),
		})
	}

	return &SpeakResult{
		Success:  true,
		Provider: ProviderElevenLabs,
		ID:       uuid.NewString(),
		Duration: time.Since(start),
	}
}

// synthesize posts to the streaming endpoint and buffers the whole
// response before returning it.
func (p *ElevenLabsProvider) synthesize(ctx context.Context, text string, cfg ProviderConfig) ([]byte, error) {
	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	url := p.apiBase + "/v1/text-to-speech/" + cfg.VoiceID + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("ElevenLabs API error (status %d): %s", resp.StatusCode, detail)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
	return data, nil
}

// Voices fetches the account's voice list.
func (p *ElevenLabsProvider) Voices(ctx context.Context) ([]Voice, error) {
	cfg := p.Configuration()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ElevenLabs API key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("ElevenLabs API error (status %d): %s", resp.StatusCode, detail)
	}

	var parsed elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode voice list: %w", err)
	}

	voices := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		voices = append(voices, Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Language: v.Labels["language"],
			Gender:   v.Labels["gender"],
		})
	}
	return voices, nil
}

// PreloadAudio synthesizes straight into the cache without playback.
func (p *ElevenLabsProvider) PreloadAudio(ctx context.Context, text string) {
	if isEmptyText(text) || p.cache == nil || !p.cache.Enabled() {
		return
	}

	cfg := p.Configuration()
	if cfg.APIKey == "" || cfg.VoiceID == "" {
		return
	}

	key := cache.GenerateKey(text, cfg.Model, cfg.VoiceID, 1.0)
	if p.cache.Get(key) != nil {
		return
	}

	data, serr := withRetry(ctx, p.policy, ProviderElevenLabs, func(ctx context.Context) ([]byte, error) {
		return p.synthesize(ctx, text, cfg)
	})
	if serr != nil {
		logger.DebugCF("tts", "Preload skipped", map[string]any{
			"provider": ProviderElevenLabs,
			"reason":   string(serr.Reason),
		})
		return
	}

	p.cache.Set(key, data, cache.Metadata{
		Provider: ProviderElevenLabs,
		Model:    cfg.Model,
		Voice:    cfg.VoiceID,
		Format:   "mp3",
	})
}

func (p *ElevenLabsProvider) CancelSpeech() {
	p.player.cancel()
}

func (p *ElevenLabsProvider) playData(ctx context.Context, data []byte) error {
	path, cleanup, err := writeTempAudio(data, "mp3")
	if err != nil {
		return err
	}
	defer cleanup()
	return p.player.play(ctx, path)
}
