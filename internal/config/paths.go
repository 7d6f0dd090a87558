package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvConfigPath overrides config discovery.
	EnvConfigPath = "YAMLDOCTOR_CONFIG"
	// LocalConfigName is looked up in the working directory.
	LocalConfigName = ".yamldoctor.yaml"
)

// UserConfigPath returns ~/.config/yamldoctor/config.yaml, honoring
// XDG_CONFIG_HOME.
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(dir) == "" {
		home, herr := os.UserHomeDir()
		if herr != nil || strings.TrimSpace(home) == "" {
			home = "."
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "yamldoctor", "config.yaml")
}

// DefaultPath resolves the configuration file to load: $YAMLDOCTOR_CONFIG,
// then ./.yamldoctor.yaml, then the user config path. It returns "" when
// none exists.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	for _, candidate := range []string{LocalConfigName, UserConfigPath()} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// LoadDefault loads the discovered configuration, or the defaults when no
// file exists. It returns the path that was loaded.
func LoadDefault() (*Config, string, error) {
	path := DefaultPath()
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}
