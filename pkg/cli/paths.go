// Package cli wires Omni's components (config, resolver, up engine,
// version manager, dynamic environment, trust, updater) into the `omni`
// command-line surface (§6).
package cli

import (
	"os"
	"path/filepath"

	"github.com/omnicli/omni/pkg/constants"
)

// dataHome resolves $OMNI_DATA_HOME, falling back to
// $XDG_DATA_HOME/omni, then ~/.local/share/omni (§6's persisted state
// layout).
func dataHome() string {
	if v := os.Getenv(constants.EnvOmniDataHome); v != "" {
		return v
	}
	if v := os.Getenv(constants.EnvXDGDataHome); v != "" {
		return filepath.Join(v, "omni")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "omni-data")
	}
	return filepath.Join(home, ".local", "share", "omni")
}

// cacheHome resolves $OMNI_CACHE_HOME, falling back to
// $XDG_CACHE_HOME/omni, then ~/.cache/omni.
func cacheHome() string {
	if v := os.Getenv(constants.EnvOmniCacheHome); v != "" {
		return v
	}
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return filepath.Join(v, "omni")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "omni-cache")
	}
	return filepath.Join(home, ".cache", "omni")
}

// cacheFilePath is the single JSON cache file path (§6: "omni.json").
func cacheFilePath() string {
	return filepath.Join(cacheHome(), "omni.json")
}
