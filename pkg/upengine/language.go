package upengine

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/omnicli/omni/pkg/envops"
)

// VersionManager is the subset of the Version Manager subsystem (§4.4) a
// language-tool operation needs. Implemented by pkg/versionmanager;
// declared here instead of imported to keep upengine's operation contract
// independent of one resolver implementation.
type VersionManager interface {
	// Resolve picks a concrete installed-or-installable version satisfying
	// requirement for tool, per the exact/prefix/range/latest/auto rules.
	Resolve(ctx context.Context, tool, requirement string, opts ResolveOptions) (ResolvedVersion, error)
	// Ensure installs the resolved version under the shared prefix (if not
	// already present) and returns that shared install prefix, which
	// ActivationEnv then points PATH at. No per-workdir activation
	// directory is created.
	Ensure(ctx context.Context, resolved ResolvedVersion) (activationDir string, err error)
	// ActivationEnv returns the env-ops a tool's activation directory
	// contributes (PATH prepend plus tool-specific variables).
	ActivationEnv(tool, activationDir string) envops.Fragment
}

// ResolveOptions carries the upgrade/prerelease/build modifiers from the
// operation params and the global --upgrade / up_command.upgrade flags.
type ResolveOptions struct {
	Upgrade    bool
	Prerelease bool
	Build      bool
	// Workdir lets Resolve honor an "auto" requirement by reading the
	// project's own version file (.ruby-version, go.mod, etc). Empty when
	// the caller hasn't threaded a workdir through yet.
	Workdir string
}

// ResolvedVersion names the concrete version Resolve selected.
type ResolvedVersion struct {
	Tool    string
	Version string
}

var languageTools = []string{"ruby", "python", "node", "go", "rust", "bash"}

func init() {
	for _, tool := range languageTools {
		tool := tool
		Register(tool, func(raw map[string]any) (Operation, error) {
			return newLanguageOp(tool, raw)
		})
	}
	Register("asdf", newAsdfOp)
}

var versionManager VersionManager

// SetVersionManager installs the Version Manager implementation every
// language-tool and asdf operation delegates to. Called once during
// engine construction.
func SetVersionManager(vm VersionManager) {
	versionManager = vm
}

// forceUpgrade mirrors the global --upgrade flag / up_command.upgrade
// config key (§4.3): when set, every language-tool operation reselects the
// highest matching version regardless of its own per-operation `upgrade`.
var forceUpgrade bool

// SetForceUpgrade installs the global upgrade override for the lifetime of
// the next Up/Down pass.
func SetForceUpgrade(v bool) {
	forceUpgrade = v
}

type languageParams struct {
	Version    string `koanf:"version" validate:"required"`
	Upgrade    bool   `koanf:"upgrade"`
	Prerelease bool   `koanf:"prerelease"`
	Build      bool   `koanf:"build"`
}

type languageOp struct {
	tool     string
	params   languageParams
	resolved ResolvedVersion
	dir      string
	workdir  string
}

func newLanguageOp(tool string, raw map[string]any) (Operation, error) {
	if err := ValidateShape("language", raw); err != nil {
		return nil, err
	}
	var p languageParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return &languageOp{tool: tool, params: p}, nil
}

func (o *languageOp) Validate() error {
	return validator.New().Struct(o.params)
}

func (o *languageOp) IsMet(ctx context.Context, workdir string, env map[string]string) (bool, error) {
	o.workdir = workdir
	if versionManager == nil {
		return false, fmt.Errorf("upengine: no version manager configured for %s operation", o.tool)
	}
	resolved, err := versionManager.Resolve(ctx, o.tool, o.params.Version, o.resolveOptions())
	if err != nil {
		return false, err
	}
	o.resolved = resolved
	return false, nil // install state is checked during Up via Ensure's own skip-if-installed logic
}

func (o *languageOp) resolveOptions() ResolveOptions {
	return ResolveOptions{
		Upgrade: o.params.Upgrade || forceUpgrade, Prerelease: o.params.Prerelease, Build: o.params.Build,
		Workdir: o.workdir,
	}
}

func (o *languageOp) Up(ctx context.Context) (OpResult, error) {
	if versionManager == nil {
		return OpResult{Success: false}, fmt.Errorf("upengine: no version manager configured for %s operation", o.tool)
	}
	if o.resolved.Version == "" {
		resolved, err := versionManager.Resolve(ctx, o.tool, o.params.Version, o.resolveOptions())
		if err != nil {
			return OpResult{Success: false}, err
		}
		o.resolved = resolved
	}
	dir, err := versionManager.Ensure(ctx, o.resolved)
	if err != nil {
		return OpResult{Success: false}, err
	}
	o.dir = dir
	return OpResult{Success: true, Env: versionManager.ActivationEnv(o.tool, dir)}, nil
}

func (o *languageOp) Down(ctx context.Context) (OpResult, error) {
	if o.dir == "" {
		return OpResult{Success: true}, nil
	}
	frag := versionManager.ActivationEnv(o.tool, o.dir)
	return OpResult{Success: true, Env: envops.Invert(frag, nil)}, nil
}

// asdfParams additionally names the plugin when the tool isn't one of the
// enumerated language kinds (any asdf/mise-pluggable tool, spec §4.3).
type asdfParams struct {
	Tool       string `koanf:"tool" validate:"required"`
	Version    string `koanf:"version" validate:"required"`
	Upgrade    bool   `koanf:"upgrade"`
	Prerelease bool   `koanf:"prerelease"`
	Build      bool   `koanf:"build"`
}

func newAsdfOp(raw map[string]any) (Operation, error) {
	var p asdfParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return &languageOp{
		tool: p.Tool,
		params: languageParams{
			Version: p.Version, Upgrade: p.Upgrade, Prerelease: p.Prerelease, Build: p.Build,
		},
	}, nil
}
