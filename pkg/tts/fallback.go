package tts

import (
	"context"
	"strings"

	"github.com/nathanvale/mnemosyne-sub011/pkg/logger"
)

// FallbackProvider chains a primary and a secondary provider. A
// failed primary Speak is retried once on the secondary; the
// secondary's outcome is final.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
}

var _ Provider = (*FallbackProvider)(nil)

func NewFallbackProvider(primary, secondary Provider) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondary: secondary}
}

func (f *FallbackProvider) ProviderInfo() ProviderInfo {
	info := f.primary.ProviderInfo()
	info.DisplayName = info.DisplayName + " (with fallback)"
	return info
}

func (f *FallbackProvider) IsAvailable() bool {
	return f.primary.IsAvailable() || f.secondary.IsAvailable()
}

func (f *FallbackProvider) Speak(ctx context.Context, text string) *SpeakResult {
	result := f.primary.Speak(ctx, text)
	if result.Success {
		return result
	}

	// Input errors fail identically everywhere, so re-dispatching
	// would only burn a second backend call.
	if strings.Contains(result.Error, emptyTextError) {
		return result
	}

	logger.WarnCF("tts", "Primary provider failed, trying fallback", map[string]any{
		"primary":  f.primary.ProviderInfo().Name,
		"fallback": f.secondary.ProviderInfo().Name,
		"error":    result.Error,
	})
	return f.secondary.Speak(ctx, text)
}

// Configure applies to the primary only. The secondary keeps the
// configuration it was constructed with.
func (f *FallbackProvider) Configure(cfg ProviderConfig) {
	f.primary.Configure(cfg)
}

func (f *FallbackProvider) Configuration() ProviderConfig {
	return f.primary.Configuration()
}

func (f *FallbackProvider) Voices(ctx context.Context) ([]Voice, error) {
	voices, err := f.primary.Voices(ctx)
	if err == nil {
		return voices, nil
	}
	return f.secondary.Voices(ctx)
}

func (f *FallbackProvider) PreloadAudio(ctx context.Context, text string) {
	f.primary.PreloadAudio(ctx, text)
}

func (f *FallbackProvider) CancelSpeech() {
	f.primary.CancelSpeech()
	f.secondary.CancelSpeech()
}
