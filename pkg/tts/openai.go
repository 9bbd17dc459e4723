package tts

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/nathanvale/mnemosyne-sub011/pkg/cache"
	"github.com/nathanvale/mnemosyne-sub011/pkg/logger"
)

const (
	openAIMaxTextRunes = 4096
	openAIMinSpeed     = 0.25
	openAIMaxSpeed     = 4.0
)

// openAIVoices is the fixed voice set of the OpenAI speech API.
var openAIVoices = []Voice{
	{ID: "alloy", Name: "Alloy", Language: "en"},
	{ID: "echo", Name: "Echo", Language: "en"},
	{ID: "fable", Name: "Fable", Language: "en"},
	{ID: "onyx", Name: "Onyx", Language: "en"},
	{ID: "nova", Name: "Nova", Language: "en"},
	{ID: "shimmer", Name: "Shimmer", Language: "en"},
}

// OpenAIProvider synthesizes speech through the OpenAI audio API.
type OpenAIProvider struct {
	configState
	client  openai.Client
	baseURL string
	cache   *cache.AudioCache
	policy  RetryPolicy
	player  audioPlayer
}

var _ Provider = (*OpenAIProvider)(nil)

type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL points the provider at a different API endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.baseURL = url
	}
}

func WithOpenAIRetryPolicy(policy RetryPolicy) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.policy = policy
	}
}

// NewOpenAIProvider creates the provider with cfg merged over defaults.
// audioCache may be nil to disable caching.
func NewOpenAIProvider(cfg ProviderConfig, audioCache *cache.AudioCache, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		cache:  audioCache,
		policy: DefaultRetryPolicy(),
	}
	p.cfg = ProviderConfig{
		Model:  "tts-1",
		Voice:  "alloy",
		Speed:  1.0,
		Format: "mp3",
	}
	p.cfg.merge(cfg)

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	p.rebuildClient()
	return p
}

// Configure merges cfg and rebuilds the API client so a changed key
// takes effect immediately.
func (p *OpenAIProvider) Configure(cfg ProviderConfig) {
	p.configState.Configure(cfg)
	p.rebuildClient()
}

// rebuildClient constructs the SDK client. SDK-internal retries are
// disabled; the bounded retry loop here owns that policy.
func (p *OpenAIProvider) rebuildClient() {
	cfg := p.Configuration()

	reqOpts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if p.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.baseURL))
	}
	if cfg.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.APIKey))
	}
	client := openai.NewClient(reqOpts...)

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
}

func (p *OpenAIProvider) getClient() openai.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

func (p *OpenAIProvider) ProviderInfo() ProviderInfo {
	return ProviderInfo{
		Name:           ProviderOpenAI,
		DisplayName:    "OpenAI Speech",
		Version:        "1.0.0",
		RequiresAPIKey: true,
		Features:       []string{"speak", "voices", "preload", "cache"},
	}
}

// IsAvailable mirrors the precondition Speak enforces: an API key.
func (p *OpenAIProvider) IsAvailable() bool {
	return p.Configuration().APIKey != ""
}

func (p *OpenAIProvider) Speak(ctx context.Context, text string) *SpeakResult {
	start := time.Now()

	if isEmptyText(text) {
		return failedResult(ProviderOpenAI, emptyTextError)
	}

	cfg := p.Configuration()
	if cfg.APIKey == "" {
		return failedResult(ProviderOpenAI, "OpenAI API key not configured")
	}

	speed := clampSpeed(cfg.Speed, openAIMinSpeed, openAIMaxSpeed)
	text = truncateText(text, openAIMaxTextRunes)

	key := cache.GenerateKey(text, cfg.Model, cfg.Voice, speed)
	if p.cache != nil {
		if hit := p.cache.Get(key); hit != nil {
			p.playData(ctx, hit.Data, cfg.Format)
			return &SpeakResult{
				Success:  true,
				Provider: ProviderOpenAI,
				ID:       uuid.NewString(),
				Cached:   true,
				Duration: time.Since(start),
			}
		}
	}

	data, serr := withRetry(ctx, p.policy, ProviderOpenAI, func(ctx context.Context) ([]byte, error) {
		return p.synthesize(ctx, text, cfg, speed)
	})
	if serr != nil {
		return failedResult(ProviderOpenAI, terminalMessage("OpenAI", serr))
	}

	if p.cache != nil {
		p.cache.Set(key, data, cache.Metadata{
			Provider: ProviderOpenAI,
			Model:    cfg.Model,
			Voice:    cfg.Voice,
			Speed:    speed,
			Format:   cfg.Format,
		})
	}

	// Playback is advisory: synthesis already succeeded.
	if err := p.playData(ctx, data, cfg.Format); err != nil {
		logger.WarnCF("tts", "Playback failed after successful synthesis", map[string]any{
			"provider": ProviderOpenAI,
			"error":    err.Error(),
		})
	}

	return &SpeakResult{
		Success:  true,
		Provider: ProviderOpenAI,
		ID:       uuid.NewString(),
		Duration: time.Since(start),
	}
}

func (p *OpenAIProvider) synthesize(ctx context.Context, text string, cfg ProviderConfig, speed float64) ([]byte, error) {
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(cfg.Model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(cfg.Voice),
		ResponseFormat: openAIFormat(cfg.Format),
		Speed:          openai.Float(speed),
	}

	client := p.getClient()
	resp, err := client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
	return data, nil
}

func (p *OpenAIProvider) Voices(ctx context.Context) ([]Voice, error) {
	voices := make([]Voice, len(openAIVoices))
	copy(voices, openAIVoices)
	return voices, nil
}

// PreloadAudio synthesizes straight into the cache without playback.
// Best-effort: every failure is swallowed.
func (p *OpenAIProvider) PreloadAudio(ctx context.Context, text string) {
	if isEmptyText(text) || p.cache == nil || !p.cache.Enabled() {
		return
	}

	cfg := p.Configuration()
	if cfg.APIKey == "" {
		return
	}

	speed := clampSpeed(cfg.Speed, openAIMinSpeed, openAIMaxSpeed)
	text = truncateText(text, openAIMaxTextRunes)

	key := cache.GenerateKey(text, cfg.Model, cfg.Voice, speed)
	if p.cache.Get(key) != nil {
		return
	}

	data, serr := withRetry(ctx, p.policy, ProviderOpenAI, func(ctx context.Context) ([]byte, error) {
		return p.synthesize(ctx, text, cfg, speed)
	})
	if serr != nil {
		logger.DebugCF("tts", "Preload skipped", map[string]any{
			"provider": ProviderOpenAI,
			"reason":   string(serr.Reason),
		})
		return
	}

	p.cache.Set(key, data, cache.Metadata{
		Provider: ProviderOpenAI,
		Model:    cfg.Model,
		Voice:    cfg.Voice,
		Speed:    speed,
		Format:   cfg.Format,
	})
}

func (p *OpenAIProvider) CancelSpeech() {
	p.player.cancel()
}

// playData writes audio to a temp file and plays it.
func (p *OpenAIProvider) playData(ctx context.Context, data []byte, format string) error {
	path, cleanup, err := writeTempAudio(data, format)
	if err != nil {
		return err
	}
	defer cleanup()
	return p.player.play(ctx, path)
}

func openAIFormat(format string) openai.AudioSpeechNewParamsResponseFormat {
	switch format {
	case "opus":
		return openai.AudioSpeechNewParamsResponseFormatOpus
	case "aac":
		return openai.AudioSpeechNewParamsResponseFormatAAC
	case "flac":
		return openai.AudioSpeechNewParamsResponseFormatFLAC
	case "wav":
		return openai.AudioSpeechNewParamsResponseFormatWAV
	case "pcm":
		return openai.AudioSpeechNewParamsResponseFormatPCM
	default:
		return openai.AudioSpeechNewParamsResponseFormatMP3
	}
}
