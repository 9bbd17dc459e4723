package tts

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nathanvale/mnemosyne-sub011/pkg/cache"
	"github.com/nathanvale/mnemosyne-sub011/pkg/logger"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI     = "openai"
	ProviderElevenLabs = "elevenlabs"
	ProviderSay        = "say"
	ProviderAuto       = "auto"
)

var (
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrNoProviderAvailable = errors.New("no speech provider available")
)

// detectionOrder is the fixed auto-detection priority. Registration
// order never changes it.
var detectionOrder = []string{ProviderElevenLabs, ProviderOpenAI, ProviderSay}

// Config carries everything needed to construct providers.
type Config struct {
	Provider         string
	FallbackProvider string
	OpenAI           ProviderConfig
	ElevenLabs       ProviderConfig
	Say              ProviderConfig
	Cache            *cache.AudioCache
}

// Constructor builds a configured provider instance.
type Constructor func(cfg Config) (Provider, error)

// Registry maps provider names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// NewDefaultRegistry returns a registry with all built-in providers
// registered. Registering a built-in twice is a programming error, so
// failures here panic rather than pass silently.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	mustRegister(r, ProviderOpenAI, func(cfg Config) (Provider, error) {
		return NewOpenAIProvider(cfg.OpenAI, cfg.Cache), nil
	})
	mustRegister(r, ProviderElevenLabs, func(cfg Config) (Provider, error) {
		return NewElevenLabsProvider(cfg.ElevenLabs, cfg.Cache), nil
	})
	mustRegister(r, ProviderSay, func(cfg Config) (Provider, error) {
		return NewSayProvider(cfg.Say), nil
	})
	return r
}

func mustRegister(r *Registry, name string, ctor Constructor) {
	if err := r.Register(name, ctor); err != nil {
		panic(err)
	}
}

// Register adds a constructor under name. Registering the same name
// twice is an error.
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" || ctor == nil {
		return fmt.Errorf("invalid provider registration: name=%q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return fmt.Errorf("provider already registered: %s", name)
	}
	r.constructors[name] = ctor
	return nil
}

// Create builds the named provider. The name must match a registered
// constructor exactly.
func (r *Registry) Create(name string, cfg Config) (Provider, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return ctor(cfg)
}

// Names returns the registered provider names in detection order,
// followed by any extras in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	seen := make(map[string]bool, len(r.constructors))
	for _, name := range detectionOrder {
		if _, ok := r.constructors[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	for name := range r.constructors {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors = make(map[string]Constructor)
}

// DetectBestProvider walks the fixed priority order and returns the
// first registered provider that reports itself available. When
// cfg.FallbackProvider names a provider, it is probed ahead of the
// built-in final tier; an unavailable override never blocks the
// remaining tiers.
func (r *Registry) DetectBestProvider(cfg Config) (Provider, string, error) {
	order := detectionOrder
	if cfg.FallbackProvider != "" {
		final := detectionOrder[len(detectionOrder)-1]
		if cfg.FallbackProvider != final {
			order = append([]string{}, detectionOrder[:len(detectionOrder)-1]...)
			order = append(order, cfg.FallbackProvider, final)
		}
	}

	for _, name := range order {
		p, err := r.Create(name, cfg)
		if err != nil {
			if !errors.Is(err, ErrUnknownProvider) {
				logger.DebugCF("tts", "Provider construction failed during detection", map[string]any{
					"provider": name,
					"error":    err.Error(),
				})
			}
			continue
		}
		if p.IsAvailable() {
			return p, name, nil
		}
	}
	return nil, "", ErrNoProviderAvailable
}

// CreateWithFallback resolves the configured provider (auto-detecting
// when cfg.Provider is "auto" or empty) and wraps it with a one-hop
// fallback when a distinct secondary is available. With no usable
// secondary the primary is returned unwrapped.
func (r *Registry) CreateWithFallback(cfg Config) (Provider, error) {
	var (
		primary     Provider
		primaryName string
		err         error
	)

	switch cfg.Provider {
	case "", ProviderAuto:
		primary, primaryName, err = r.DetectBestProvider(cfg)
		if err != nil {
			return nil, err
		}
	default:
		primary, err = r.Create(cfg.Provider, cfg)
		if err != nil {
			return nil, err
		}
		primaryName = cfg.Provider
	}

	secondary, secondaryName := r.resolveSecondary(cfg, primaryName)
	if secondary == nil {
		logger.InfoCF("tts", "Speech provider selected", map[string]any{
			"provider": primaryName,
			"fallback": "none",
		})
		return primary, nil
	}

	logger.InfoCF("tts", "Speech provider selected", map[string]any{
		"provider": primaryName,
		"fallback": secondaryName,
	})
	return NewFallbackProvider(primary, secondary), nil
}

// resolveSecondary picks the fallback tier: the explicitly configured
// provider when set, otherwise the next available one in detection
// order. The primary never falls back to itself.
func (r *Registry) resolveSecondary(cfg Config, primaryName string) (Provider, string) {
	if cfg.FallbackProvider != "" && cfg.FallbackProvider != primaryName {
		p, err := r.Create(cfg.FallbackProvider, cfg)
		if err != nil {
			logger.WarnCF("tts", "Configured fallback provider unusable", map[string]any{
				"provider": cfg.FallbackProvider,
				"error":    err.Error(),
			})
			return nil, ""
		}
		return p, cfg.FallbackProvider
	}

	for _, name := range detectionOrder {
		if name == primaryName {
			continue
		}
		p, err := r.Create(name, cfg)
		if err != nil || !p.IsAvailable() {
			continue
		}
		return p, name
	}
	return nil, ""
}
