package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the audio cache",
	}
	cmd.AddCommand(
		newCacheStatsCmd(),
		newCacheCleanupCmd(),
	)
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and contents",
		RunE:  runCacheStats,
	}
}

func newCacheCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired and over-budget entries",
		RunE:  runCacheCleanup,
	}
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, _, audioCache, err := loadRuntime()
	if err != nil {
		return err
	}

	if !audioCache.Enabled() {
		fmt.Println("Cache is disabled")
		return nil
	}

	stats := audioCache.Stats()
	fmt.Println("Audio cache:")
	fmt.Printf("  Entries:   %d (max %d)\n", stats.EntryCount, cfg.Cache.MaxEntries)
	fmt.Printf("  Size:      %s (max %s)\n", formatBytes(stats.TotalSize), formatBytes(cfg.Cache.MaxSizeBytes))
	fmt.Printf("  Hit rate:  %.1f%%\n", stats.HitRate*100)
	if !stats.OldestEntry.IsZero() {
		fmt.Printf("  Oldest:    %s\n", stats.OldestEntry.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Newest:    %s\n", stats.NewestEntry.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	_, _, audioCache, err := loadRuntime()
	if err != nil {
		return err
	}

	if !audioCache.Enabled() {
		fmt.Println("Cache is disabled")
		return nil
	}

	removed := audioCache.Cleanup()
	fmt.Printf("Removed %d entries\n", removed)
	return nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
