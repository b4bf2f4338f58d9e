package config

import (
	"os"
	"path/filepath"

	"github.com/omnicli/omni/pkg/constants"
)

// DiscoverLayers builds the layer stack in precedence order (lowest first)
// for the given work directory root: built-in defaults (handled inside
// Load, not listed here) → ~/.omni(.yaml) → $XDG_CONFIG_HOME/omni(.yaml) →
// $OMNI_CONFIG → repo-local files, when root sits inside a Git repository.
func DiscoverLayers(root string, inGitRepo bool) []Layer {
	var layers []Layer

	if home, err := os.UserHomeDir(); err == nil {
		layers = append(layers,
			Layer{Path: filepath.Join(home, ".omni"), Scope: ScopeGlobal},
			Layer{Path: filepath.Join(home, ".omni.yaml"), Scope: ScopeGlobal},
		)
	}

	xdgConfigHome := os.Getenv(constants.EnvXDGConfigHome)
	if xdgConfigHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			xdgConfigHome = filepath.Join(home, ".config")
		}
	}
	if xdgConfigHome != "" {
		layers = append(layers,
			Layer{Path: filepath.Join(xdgConfigHome, "omni"), Scope: ScopeGlobal},
			Layer{Path: filepath.Join(xdgConfigHome, "omni.yaml"), Scope: ScopeGlobal},
		)
	}

	if explicit := os.Getenv(constants.EnvOmniConfig); explicit != "" {
		layers = append(layers, Layer{Path: explicit, Scope: ScopeGlobal})
	}

	if inGitRepo {
		layers = append(layers,
			Layer{Path: filepath.Join(root, ".omni"), Scope: ScopeWorkdir},
			Layer{Path: filepath.Join(root, ".omni.yaml"), Scope: ScopeWorkdir},
			Layer{Path: filepath.Join(root, ".omni", "config"), Scope: ScopeWorkdir},
			Layer{Path: filepath.Join(root, ".omni", "config.yaml"), Scope: ScopeWorkdir},
		)
	}

	return layers
}
