package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvAnnspeakConfig = "ANNSPEAK_CONFIG"
	EnvAnnspeakHome   = "ANNSPEAK_HOME"
)

type RuntimePaths struct {
	HomeDir    string
	ConfigPath string
	CacheDir   string
	LogPath    string
}

// ResolveRuntimePaths determines where config, cache and logs live.
// ANNSPEAK_CONFIG pins the config file directly; otherwise everything
// hangs off ANNSPEAK_HOME or ~/.annspeak.
func ResolveRuntimePaths() RuntimePaths {
	if configPath := ExpandHome(strings.TrimSpace(os.Getenv(EnvAnnspeakConfig))); configPath != "" {
		return buildRuntimePaths(filepath.Dir(configPath), configPath)
	}

	homeDir := ExpandHome(strings.TrimSpace(os.Getenv(EnvAnnspeakHome)))
	if homeDir == "" {
		homeDir = defaultHome()
	}

	return buildRuntimePaths(homeDir, filepath.Join(homeDir, "config.json"))
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".annspeak"
	}
	return filepath.Join(home, ".annspeak")
}

func buildRuntimePaths(homeDir, configPath string) RuntimePaths {
	return RuntimePaths{
		HomeDir:    homeDir,
		ConfigPath: configPath,
		CacheDir:   filepath.Join(homeDir, "cache"),
		LogPath:    filepath.Join(homeDir, "annspeak.log"),
	}
}

// ExpandHome resolves a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
