package upengine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/omnicli/omni/pkg/envops"
	"github.com/omnicli/omni/pkg/ratelimit"
)

func init() {
	Register("go-install", newGoInstall)
}

// goInstallParams is the SUPPLEMENT operation kind implied by the worked
// `up_command.operations.sources` denial example but never enumerated by
// name in the distilled spec's kind list.
type goInstallParams struct {
	Packages []string `koanf:"packages" validate:"required,min=1"`
}

// goInstallOp installs Go module binaries via `go install`, isolated per
// workdir under GOBIN the same way asdf-backed language tools isolate
// their installs under the per-workdir activation directory.
type goInstallOp struct {
	params  goInstallParams
	gobin   string
	sources Allowlist
}

func newGoInstall(raw map[string]any) (Operation, error) {
	if err := ValidateShape("go-install", raw); err != nil {
		return nil, err
	}
	var p goInstallParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return &goInstallOp{params: p}, nil
}

// WithSources attaches the per-kind source allowlist; called by the engine
// before Validate so module paths can be checked against
// `up_command.operations.sources`.
func (o *goInstallOp) WithSources(al Allowlist) *goInstallOp {
	o.sources = al
	return o
}

// WithGobin sets the per-workdir activation directory GOBIN points at.
func (o *goInstallOp) WithGobin(dir string) *goInstallOp {
	o.gobin = dir
	return o
}

func (o *goInstallOp) Validate() error {
	for _, pkg := range o.params.Packages {
		modPath, _ := splitVersion(pkg)
		if err := o.sources.CheckSource("go-install", modPath); err != nil {
			return err
		}
	}
	return nil
}

func (o *goInstallOp) IsMet(ctx context.Context, workdir string, env map[string]string) (bool, error) {
	for _, pkg := range o.params.Packages {
		modPath, _ := splitVersion(pkg)
		binName := filepath.Base(modPath)
		binPath := filepath.Join(o.gobin, binName)
		cmd := exec.CommandContext(ctx, "go", "version", "-m", binPath)
		if err := cmd.Run(); err != nil {
			return false, nil
		}
	}
	return true, nil
}

func (o *goInstallOp) Up(ctx context.Context) (OpResult, error) {
	for _, pkg := range o.params.Packages {
		modPath, version := splitVersion(pkg)
		target := modPath + "@" + version
		if err := ratelimit.Wait(ctx, ratelimit.OperationUpOperation); err != nil {
			return OpResult{Success: false}, fmt.Errorf("go-install: %s: %w", target, err)
		}
		cmd := exec.CommandContext(ctx, "go", "install", target)
		cmd.Env = append(os.Environ(), "GOBIN="+o.gobin)
		if out, err := cmd.CombinedOutput(); err != nil {
			log.Printf("go-install: %s failed: %v\n%s", target, err, out)
			return OpResult{Success: false}, fmt.Errorf("go-install: %s: %w", target, err)
		}
	}
	frag := envops.Fragment{
		{Kind: envops.KindListPrepend, Var: "PATH", Value: o.gobin, Separator: ":"},
	}
	return OpResult{Success: true, Env: frag}, nil
}

func (o *goInstallOp) Down(ctx context.Context) (OpResult, error) {
	frag := envops.Invert(envops.Fragment{
		{Kind: envops.KindListPrepend, Var: "PATH", Value: o.gobin, Separator: ":"},
	}, nil)
	return OpResult{Success: true, Env: frag}, nil
}

func splitVersion(pkg string) (modPath, version string) {
	if idx := strings.LastIndex(pkg, "@"); idx >= 0 {
		return pkg[:idx], pkg[idx+1:]
	}
	return pkg, "latest"
}
