package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/nathanvale/mnemosyne-sub011/pkg/cache"
	"github.com/nathanvale/mnemosyne-sub011/pkg/config"
	"github.com/nathanvale/mnemosyne-sub011/pkg/logger"
	"github.com/nathanvale/mnemosyne-sub011/pkg/tts"
)

var (
	version   = "dev"
	gitCommit string
)

const timeRounding = time.Millisecond

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func main() {
	root := &cobra.Command{
		Use:           "annspeak",
		Short:         "Spoken audio annotations for automation output",
		Version:       formatVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("annspeak %s (%s)\n", formatVersion(), runtime.Version()))

	root.AddCommand(
		newSpeakCmd(),
		newVoicesCmd(),
		newProvidersCmd(),
		newCacheCmd(),
		newConfigCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadRuntime resolves the config file, applies logging settings and
// opens the audio cache.
func loadRuntime() (*config.Config, config.RuntimePaths, *cache.AudioCache, error) {
	paths := config.ResolveRuntimePaths()

	cfg, err := config.LoadConfig(paths.ConfigPath)
	if err != nil {
		return nil, paths, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.File != "" {
		if err := logger.EnableFileLogging(cfg.Log.File); err != nil {
			logger.WarnCF("main", "File logging unavailable", map[string]any{
				"path":  cfg.Log.File,
				"error": err.Error(),
			})
		}
	}

	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		cacheDir = paths.CacheDir
	}
	audioCache := cache.New(cache.Config{
		Enabled:      cfg.Cache.Enabled,
		Dir:          cacheDir,
		MaxSizeBytes: cfg.Cache.MaxSizeBytes,
		MaxAge:       cfg.Cache.MaxAge(),
		MaxEntries:   cfg.Cache.MaxEntries,
	})

	return cfg, paths, audioCache, nil
}

// ttsConfig maps the file/env configuration onto the provider factory
// input.
func ttsConfig(cfg *config.Config, audioCache *cache.AudioCache) tts.Config {
	return tts.Config{
		Provider:         cfg.Speech.Provider,
		FallbackProvider: cfg.Speech.FallbackProvider,
		OpenAI: tts.ProviderConfig{
			APIKey: cfg.Speech.OpenAI.APIKey,
			Model:  cfg.Speech.OpenAI.Model,
			Voice:  cfg.Speech.OpenAI.Voice,
			Speed:  cfg.Speech.OpenAI.Speed,
			Format: cfg.Speech.OpenAI.Format,
		},
		ElevenLabs: tts.ProviderConfig{
			APIKey:  cfg.Speech.ElevenLabs.APIKey,
			VoiceID: cfg.Speech.ElevenLabs.VoiceID,
			Model:   cfg.Speech.ElevenLabs.Model,
		},
		Say: tts.ProviderConfig{
			Voice: cfg.Speech.Say.Voice,
			Rate:  cfg.Speech.Say.Rate,
		},
		Cache: audioCache,
	}
}
