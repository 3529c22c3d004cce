package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "LANSCOPE_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "lanscope.yaml"

	appDir = "lanscope"
)

// configCandidates lists config locations, highest priority first:
// $LANSCOPE_CONFIG, ./lanscope.yaml, $XDG_CONFIG_HOME/lanscope/config.yaml,
// ~/.config/lanscope/config.yaml, /etc/lanscope/config.yaml
func configCandidates() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, appDir, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", appDir, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", appDir, "config.yaml"))
}

// FindConfigPath returns the first existing candidate, or "" if none exist
func FindConfigPath() string {
	for _, p := range configCandidates() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// DefaultDataDir is where cache files go when the config names none:
// $XDG_DATA_HOME/lanscope, ~/.local/share/lanscope, or the working directory
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "share", appDir)
	}
	return "."
}
