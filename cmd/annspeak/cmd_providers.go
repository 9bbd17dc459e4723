package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathanvale/mnemosyne-sub011/pkg/tts"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show provider availability",
		RunE:  runProviders,
	}
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, _, audioCache, err := loadRuntime()
	if err != nil {
		return err
	}

	tcfg := ttsConfig(cfg, audioCache)
	registry := tts.NewDefaultRegistry()

	fmt.Println("Providers (in auto-detection order):")
	for _, name := range registry.Names() {
		p, err := registry.Create(name, tcfg)
		if err != nil {
			fmt.Printf("  %-12s error: %v\n", name, err)
			continue
		}
		info := p.ProviderInfo()
		status := "unavailable"
		if p.IsAvailable() {
			status = "available"
		}
		note := ""
		if info.RequiresAPIKey && !p.IsAvailable() {
			note = "  (missing credentials)"
		}
		fmt.Printf("  %-12s %-12s %s%s\n", name, status, info.DisplayName, note)
	}

	if _, name, err := registry.DetectBestProvider(tcfg); err == nil {
		fmt.Printf("\nAuto-detection would select: %s\n", name)
	} else {
		fmt.Println("\nAuto-detection would select: none")
	}
	return nil
}
