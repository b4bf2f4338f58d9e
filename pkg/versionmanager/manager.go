package versionmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/omnicli/omni/pkg/cache"
	"github.com/omnicli/omni/pkg/envops"
	"github.com/omnicli/omni/pkg/gitutil"
	"github.com/omnicli/omni/pkg/logger"
	"github.com/omnicli/omni/pkg/ratelimit"
	"github.com/omnicli/omni/pkg/upengine"
)

var log = logger.New("versionmanager")

// versionsCacheTTL is the Versions cache TTL (§4.4: "≈24h").
const versionsCacheTTL = 24 * time.Hour

// Manager implements upengine.VersionManager against a registry of
// per-tool Plugins, backed by the shared Cache Store for version listings
// (§4.6, key "asdf_operation.<tool>").
type Manager struct {
	DataHome string
	Cache    *cache.Store

	plugins map[string]Plugin
}

var _ upengine.VersionManager = (*Manager)(nil)

// New builds a Manager rooted at dataHome ($OMNI_DATA_HOME), backed by c
// for the versions cache.
func New(dataHome string, c *cache.Store) *Manager {
	return &Manager{DataHome: dataHome, Cache: c, plugins: map[string]Plugin{}}
}

// WithPlugin overrides (or adds) the plugin used for tool. Bundled tools
// otherwise resolve to a shellPlugin rooted at
// $OMNI_DATA_HOME/asdf/plugins/<tool>.
func (m *Manager) WithPlugin(tool string, p Plugin) *Manager {
	if m.plugins == nil {
		m.plugins = map[string]Plugin{}
	}
	m.plugins[tool] = p
	return m
}

func (m *Manager) plugin(tool string) Plugin {
	if p, ok := m.plugins[tool]; ok {
		return p
	}
	return newShellPlugin(tool, filepath.Join(m.DataHome, "asdf", "plugins", tool))
}

func (m *Manager) installDir(tool, version string) string {
	return filepath.Join(m.DataHome, "asdf", "installs", tool, version)
}

// Resolve implements upengine.VersionManager.
func (m *Manager) Resolve(ctx context.Context, tool, requirementStr string, opts upengine.ResolveOptions) (upengine.ResolvedVersion, error) {
	req, err := parseRequirement(requirementStr)
	if err != nil {
		return upengine.ResolvedVersion{}, err
	}
	if req.kind == reqAuto {
		if detected, ok := detectProjectVersion(tool, opts.Workdir); ok {
			req, err = parseRequirement(detected)
			if err != nil {
				return upengine.ResolvedVersion{}, err
			}
		} else {
			req = requirement{kind: reqLatest}
		}
	}

	// A pinned commit SHA bypasses version-list matching entirely: asdf
	// plugins that support git refs take the requirement string verbatim
	// as ASDF_INSTALL_VERSION, and no Versions listing will ever contain
	// an arbitrary ref.
	if req.kind == reqExact && len(req.value) >= 7 && gitutil.IsHexString(req.value) {
		return upengine.ResolvedVersion{Tool: tool, Version: req.value}, nil
	}

	// Exact-match-first, then highest version satisfying requirement
	// (§4.4). An already-installed version is preferred over the
	// refreshed listing unless upgrade mode forces reselection.
	if !opts.Upgrade {
		if installed, err := m.installedVersions(tool); err == nil {
			if v, ok := bestMatch(installed, req, opts); ok {
				return upengine.ResolvedVersion{Tool: tool, Version: v}, nil
			}
		}
	}

	versions, err := m.listVersions(ctx, tool)
	if err != nil {
		return upengine.ResolvedVersion{}, err
	}
	v, ok := bestMatch(versions, req, opts)
	if !ok {
		return upengine.ResolvedVersion{}, fmt.Errorf("versionmanager: no version of %s satisfies %q", tool, requirementStr)
	}
	return upengine.ResolvedVersion{Tool: tool, Version: v}, nil
}

// Ensure implements upengine.VersionManager.
func (m *Manager) Ensure(ctx context.Context, resolved upengine.ResolvedVersion) (string, error) {
	prefix := m.installDir(resolved.Tool, resolved.Version)
	if _, err := os.Stat(prefix); err == nil {
		return prefix, nil
	}

	if err := m.plugin(resolved.Tool).Install(ctx, resolved.Version, prefix); err != nil {
		// Fallback policy (§4.4): rescan installed versions; if any
		// remain, log and succeed with that one instead of failing up.
		if fallback, ok := m.fallbackInstalled(resolved.Tool); ok {
			log.Printf("installing %s %s failed, falling back to installed %s: %v",
				resolved.Tool, resolved.Version, fallback, err)
			return m.installDir(resolved.Tool, fallback), nil
		}
		return "", fmt.Errorf("installing %s %s: %w", resolved.Tool, resolved.Version, err)
	}
	return prefix, nil
}

// ActivationEnv implements upengine.VersionManager.
func (m *Manager) ActivationEnv(tool, activationDir string) envops.Fragment {
	bin := filepath.Join(activationDir, "bin")
	frag := envops.Fragment{
		{Kind: envops.KindPrefix, Var: "PATH", Value: bin + string(os.PathListSeparator)},
	}
	switch tool {
	case "go":
		frag = append(frag, envops.Op{Kind: envops.KindSet, Var: "GOROOT", Value: activationDir})
	case "python":
		frag = append(frag, envops.Op{Kind: envops.KindSet, Var: "VIRTUAL_ENV", Value: activationDir})
	case "ruby":
		frag = append(frag, envops.Op{Kind: envops.KindSet, Var: "GEM_HOME", Value: filepath.Join(activationDir, "lib", "ruby", "gems")})
	case "rust":
		frag = append(frag, envops.Op{Kind: envops.KindSet, Var: "RUSTUP_HOME", Value: activationDir})
	}
	return frag
}

func (m *Manager) installedVersions(tool string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.DataHome, "asdf", "installs", tool))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	return versions, nil
}

func (m *Manager) fallbackInstalled(tool string) (string, bool) {
	versions, err := m.installedVersions(tool)
	if err != nil || len(versions) == 0 {
		return "", false
	}
	return highest(versions), true
}

func (m *Manager) listVersions(ctx context.Context, tool string) ([]string, error) {
	key := "asdf_operation." + tool
	if m.Cache != nil {
		if rec, ok, err := m.Cache.Get(key); err == nil && ok {
			var versions []string
			if err := json.Unmarshal(rec.Value, &versions); err == nil {
				return versions, nil
			}
		}
	}

	if err := ratelimit.Wait(ctx, ratelimit.OperationPluginRegistry); err != nil {
		return nil, fmt.Errorf("versionmanager: %w", err)
	}
	versions, err := m.plugin(tool).ListAll(ctx)
	if err != nil {
		log.Printf("refreshing %s versions failed, degrading to installed versions: %v", tool, err)
		return m.installedVersions(tool)
	}

	if m.Cache != nil {
		if cerr := m.Cache.Set(key, versions, versionsCacheTTL); cerr != nil {
			log.Printf("caching %s versions: %v", tool, cerr)
		}
	}
	return versions, nil
}
