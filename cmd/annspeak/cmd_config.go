package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathanvale/mnemosyne-sub011/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage annspeak configuration",
	}
	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
	)
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE:  runConfigInit,
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print effective configuration",
		RunE:  runConfigShow,
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	paths := config.ResolveRuntimePaths()

	if _, err := os.Stat(paths.ConfigPath); err == nil {
		fmt.Printf("Config already exists: %s\n", paths.ConfigPath)
		return nil
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(paths.ConfigPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Wrote %s\n", paths.ConfigPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, paths, _, err := loadRuntime()
	if err != nil {
		return err
	}

	shown := *cfg
	shown.Speech.OpenAI.APIKey = redactSecret(shown.Speech.OpenAI.APIKey)
	shown.Speech.ElevenLabs.APIKey = redactSecret(shown.Speech.ElevenLabs.APIKey)

	out, err := json.MarshalIndent(shown, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("Config file: %s\n\n%s\n", paths.ConfigPath, out)
	return nil
}

func redactSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
