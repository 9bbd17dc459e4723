// Package cache is a content-addressable store for synthesized audio.
// Each entry is a JSON sidecar under entries/ plus a raw audio blob
// under audio/, both named by the cache key. A miss is always silent:
// corruption, missing blobs and expired entries never surface as errors.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nathanvale/mnemosyne-sub011/pkg/logger"
)

const component = "cache"

// Config bounds the cache. Zero values are replaced by defaults in New.
type Config struct {
	Enabled      bool
	Dir          string
	MaxSizeBytes int64
	MaxAge       time.Duration
	MaxEntries   int
}

// DefaultConfig returns the standard cache budget: 100 MiB, 7 days,
// 1000 entries.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		MaxSizeBytes: 100 * 1024 * 1024,
		MaxAge:       7 * 24 * time.Hour,
		MaxEntries:   1000,
	}
}

// Metadata describes how a cached blob was produced.
type Metadata struct {
	Provider string  `json:"provider"`
	Model    string  `json:"model,omitempty"`
	Voice    string  `json:"voice,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
	Format   string  `json:"format,omitempty"`
}

// entryRecord is the on-disk sidecar shape (entries/<key>.json).
type entryRecord struct {
	Timestamp int64    `json:"timestamp"` // unix milliseconds
	Metadata  Metadata `json:"metadata"`
	AudioFile string   `json:"audio_file"`
}

// CachedAudio is returned on a cache hit.
type CachedAudio struct {
	Data     []byte
	Metadata Metadata
}

// Stats reports cache contents and lifetime hit rate.
type Stats struct {
	EntryCount  int
	TotalSize   int64
	HitRate     float64
	OldestEntry time.Time
	NewestEntry time.Time
}

// AudioCache persists synthesized audio keyed by a hash of the exact
// synthesis parameters. Safe for concurrent use; hit/miss counters are
// atomic.
type AudioCache struct {
	cfg        Config
	entriesDir string
	audioDir   string

	hits   atomic.Int64
	misses atomic.Int64

	now func() time.Time
}

// New creates the cache directories if needed. If the directories cannot
// be created the cache degrades to disabled rather than failing the
// caller.
func New(cfg Config) *AudioCache {
	def := DefaultConfig()
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = def.MaxSizeBytes
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}

	c := &AudioCache{
		cfg:        cfg,
		entriesDir: filepath.Join(cfg.Dir, "entries"),
		audioDir:   filepath.Join(cfg.Dir, "audio"),
		now:        time.Now,
	}

	if cfg.Enabled {
		if cfg.Dir == "" {
			logger.WarnC(component, "Cache enabled but no directory configured, disabling")
			c.cfg.Enabled = false
			return c
		}
		for _, dir := range []string{c.entriesDir, c.audioDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.WarnCF(component, "Failed to create cache directory, disabling cache", map[string]any{
					"dir":   dir,
					"error": err.Error(),
				})
				c.cfg.Enabled = false
				return c
			}
		}
	}

	return c
}

// GenerateKey hashes the exact synthesis parameters. Identical inputs
// always produce the identical key; any single differing input produces
// a different key.
func GenerateKey(text, model, voice string, speed float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s|%d:%s|%d:%s|%s",
		len(text), text,
		len(model), model,
		len(voice), voice,
		strconv.FormatFloat(speed, 'f', -1, 64),
	)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached audio for key, or nil on any miss: disabled
// cache, unknown key, unparsable sidecar, missing blob, expired entry.
func (c *AudioCache) Get(key string) *CachedAudio {
	if !c.cfg.Enabled {
		c.misses.Add(1)
		return nil
	}

	record, ok := c.readRecord(key)
	if !ok {
		c.misses.Add(1)
		return nil
	}

	age := c.now().UnixMilli() - record.Timestamp
	if age > c.cfg.MaxAge.Milliseconds() {
		c.misses.Add(1)
		return nil
	}

	data, err := os.ReadFile(filepath.Join(c.audioDir, record.AudioFile))
	if err != nil {
		c.misses.Add(1)
		return nil
	}

	c.hits.Add(1)
	logger.DebugCF(component, "Cache hit", map[string]any{
		"key":        shortKey(key),
		"size_bytes": len(data),
	})
	return &CachedAudio{Data: data, Metadata: record.Metadata}
}

// Set persists the audio blob and its sidecar record. Storage failures
// are logged and swallowed; caching must never fail the caller's
// synthesis result.
func (c *AudioCache) Set(key string, data []byte, meta Metadata) {
	if !c.cfg.Enabled || len(data) == 0 {
		return
	}

	audioFile := key + "." + blobExtension(meta.Format)
	if err := os.WriteFile(filepath.Join(c.audioDir, audioFile), data, 0o644); err != nil {
		logger.WarnCF(component, "Failed to write cached audio", map[string]any{
			"key":   shortKey(key),
			"error": err.Error(),
		})
		return
	}

	record := entryRecord{
		Timestamp: c.now().UnixMilli(),
		Metadata:  meta,
		AudioFile: audioFile,
	}
	raw, err := json.Marshal(record)
	if err == nil {
		err = os.WriteFile(c.sidecarPath(key), raw, 0o644)
	}
	if err != nil {
		logger.WarnCF(component, "Failed to write cache entry record", map[string]any{
			"key":   shortKey(key),
			"error": err.Error(),
		})
		os.Remove(filepath.Join(c.audioDir, audioFile))
		return
	}

	logger.DebugCF(component, "Cached synthesized audio", map[string]any{
		"key":        shortKey(key),
		"size_bytes": len(data),
		"provider":   meta.Provider,
	})
}

// Stats summarizes current contents and the lifetime hit rate of this
// cache instance.
func (c *AudioCache) Stats() Stats {
	stats := Stats{}

	hits := c.hits.Load()
	misses := c.misses.Load()
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}

	if !c.cfg.Enabled {
		return stats
	}

	for _, e := range c.scanEntries() {
		stats.EntryCount++
		stats.TotalSize += e.size
		ts := time.UnixMilli(e.record.Timestamp)
		if stats.OldestEntry.IsZero() || ts.Before(stats.OldestEntry) {
			stats.OldestEntry = ts
		}
		if ts.After(stats.NewestEntry) {
			stats.NewestEntry = ts
		}
	}

	return stats
}

// Cleanup removes expired entries, then evicts the oldest entries until
// the count and total size fit the configured budget. A failure on any
// single entry is skipped, never fatal to the sweep. Returns the number
// of entries removed.
func (c *AudioCache) Cleanup() int {
	if !c.cfg.Enabled {
		return 0
	}

	entries := c.scanEntries()
	nowMs := c.now().UnixMilli()
	maxAgeMs := c.cfg.MaxAge.Milliseconds()

	removed := 0
	kept := entries[:0]
	for _, e := range entries {
		if nowMs-e.record.Timestamp > maxAgeMs {
			c.removeEntry(e)
			removed++
			continue
		}
		kept = append(kept, e)
	}

	// Newest first, then evict everything past the budget.
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].record.Timestamp > kept[j].record.Timestamp
	})

	var totalSize int64
	for i, e := range kept {
		totalSize += e.size
		if i >= c.cfg.MaxEntries || totalSize > c.cfg.MaxSizeBytes {
			c.removeEntry(e)
			removed++
		}
	}

	if removed > 0 {
		logger.InfoCF(component, "Cache cleanup complete", map[string]any{
			"removed": removed,
		})
	}
	return removed
}

// Enabled reports whether the cache is active.
func (c *AudioCache) Enabled() bool {
	return c.cfg.Enabled
}

type scannedEntry struct {
	key    string
	record entryRecord
	size   int64
}

func (c *AudioCache) scanEntries() []scannedEntry {
	dirEntries, err := os.ReadDir(c.entriesDir)
	if err != nil {
		return nil
	}

	var entries []scannedEntry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")

		record, ok := c.readRecord(key)
		if !ok {
			continue
		}

		var size int64
		if info, err := os.Stat(filepath.Join(c.audioDir, record.AudioFile)); err == nil {
			size = info.Size()
		}

		entries = append(entries, scannedEntry{key: key, record: record, size: size})
	}
	return entries
}

func (c *AudioCache) readRecord(key string) (entryRecord, bool) {
	raw, err := os.ReadFile(c.sidecarPath(key))
	if err != nil {
		return entryRecord{}, false
	}

	var record entryRecord
	if err := json.Unmarshal(raw, &record); err != nil || record.AudioFile == "" {
		return entryRecord{}, false
	}
	// Blob names are derived from keys; reject anything that escapes audio/.
	if record.AudioFile != filepath.Base(record.AudioFile) {
		return entryRecord{}, false
	}
	return record, true
}

func (c *AudioCache) removeEntry(e scannedEntry) {
	if err := os.Remove(c.sidecarPath(e.key)); err != nil && !os.IsNotExist(err) {
		logger.WarnCF(component, "Failed to remove cache entry record", map[string]any{
			"key":   shortKey(e.key),
			"error": err.Error(),
		})
	}
	if err := os.Remove(filepath.Join(c.audioDir, e.record.AudioFile)); err != nil && !os.IsNotExist(err) {
		logger.WarnCF(component, "Failed to remove cached audio", map[string]any{
			"key":   shortKey(e.key),
			"error": err.Error(),
		})
	}
}

func (c *AudioCache) sidecarPath(key string) string {
	return filepath.Join(c.entriesDir, key+".json")
}

// shortKey abbreviates a key for log output.
func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

func blobExtension(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", "mp3":
		return "mp3"
	case "opus", "aac", "flac", "wav", "pcm", "aiff":
		return format
	default:
		return "mp3"
	}
}
