package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nathanvale/mnemosyne-sub011/pkg/tts"
)

func newSpeakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speak <text>...",
		Short: "Synthesize and play text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSpeak,
	}
	cmd.Flags().StringP("provider", "p", "", "Provider to use (openai, elevenlabs, say); default auto-detects")
	cmd.Flags().String("voice", "", "Voice override for this invocation")
	cmd.Flags().Float64("speed", 0, "Playback speed override (OpenAI only)")
	cmd.Flags().Bool("no-fallback", false, "Fail instead of falling back to another provider")
	return cmd
}

func runSpeak(cmd *cobra.Command, args []string) error {
	cfg, _, audioCache, err := loadRuntime()
	if err != nil {
		return err
	}

	tcfg := ttsConfig(cfg, audioCache)
	if name, _ := cmd.Flags().GetString("provider"); name != "" {
		tcfg.Provider = name
	}
	if noFallback, _ := cmd.Flags().GetBool("no-fallback"); noFallback {
		tcfg.FallbackProvider = ""
	}
	if voice, _ := cmd.Flags().GetString("voice"); voice != "" {
		tcfg.OpenAI.Voice = voice
		tcfg.ElevenLabs.VoiceID = voice
		tcfg.Say.Voice = voice
	}
	if speed, _ := cmd.Flags().GetFloat64("speed"); speed != 0 {
		tcfg.OpenAI.Speed = speed
	}

	registry := tts.NewDefaultRegistry()

	var provider tts.Provider
	if noFallback, _ := cmd.Flags().GetBool("no-fallback"); noFallback && tcfg.Provider != "" && tcfg.Provider != tts.ProviderAuto {
		provider, err = registry.Create(tcfg.Provider, tcfg)
	} else {
		provider, err = registry.CreateWithFallback(tcfg)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		provider.CancelSpeech()
	}()

	result := provider.Speak(ctx, strings.Join(args, " "))
	if !result.Success {
		return fmt.Errorf("%s: %s", result.Provider, result.Error)
	}

	if result.Cached {
		fmt.Printf("Spoke via %s (cached, %s)\n", result.Provider, result.Duration.Round(timeRounding))
	} else {
		fmt.Printf("Spoke via %s (%s)\n", result.Provider, result.Duration.Round(timeRounding))
	}
	return nil
}
