package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nathanvale/mnemosyne-sub011/pkg/tts"
)

func newVoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List voices for the active provider",
		RunE:  runVoices,
	}
	cmd.Flags().StringP("provider", "p", "", "Provider to query; default auto-detects")
	return cmd
}

func runVoices(cmd *cobra.Command, args []string) error {
	cfg, _, audioCache, err := loadRuntime()
	if err != nil {
		return err
	}

	tcfg := ttsConfig(cfg, audioCache)
	if name, _ := cmd.Flags().GetString("provider"); name != "" {
		tcfg.Provider = name
	}

	registry := tts.NewDefaultRegistry()

	var provider tts.Provider
	if tcfg.Provider == "" || tcfg.Provider == tts.ProviderAuto {
		provider, _, err = registry.DetectBestProvider(tcfg)
	} else {
		provider, err = registry.Create(tcfg.Provider, tcfg)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	voices, err := provider.Voices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	info := provider.ProviderInfo()
	fmt.Printf("Voices for %s:\n", info.DisplayName)
	for _, v := range voices {
		line := "  " + v.Name
		if v.Language != "" {
			line += " (" + v.Language + ")"
		}
		if v.ID != v.Name && v.ID != "" {
			line += "  " + v.ID
		}
		fmt.Println(line)
	}
	return nil
}
