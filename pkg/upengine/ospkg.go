package upengine

import (
	"context"
	"fmt"
	"os/exec"
)

func init() {
	Register("homebrew", newOSPackageFactory("homebrew", homebrewCommands))
	Register("apt", newOSPackageFactory("apt", aptCommands))
	Register("dnf", newOSPackageFactory("dnf", dnfCommands))
	Register("pacman", newOSPackageFactory("pacman", pacmanCommands))
	Register("nix", newOSPackageFactory("nix", nixCommands))
}

// pkgEntry is one package list item: either a bare name, or a map with a
// name plus kind-specific fields (version, cask, tap, channel). OS-package
// operations never elevate privileges themselves; they shell out to a tool
// that may itself invoke sudo.
type pkgEntry struct {
	Name    string
	Version string
	Cask    bool
	Tap     string
	Channel string
}

func parsePackageEntries(raw map[string]any) ([]pkgEntry, error) {
	list, ok := raw["packages"].([]any)
	if !ok {
		return nil, fmt.Errorf("packages must be a list")
	}
	entries := make([]pkgEntry, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case string:
			entries = append(entries, pkgEntry{Name: v})
		case map[string]any:
			e := pkgEntry{}
			if name, ok := v["name"].(string); ok {
				e.Name = name
			} else {
				return nil, fmt.Errorf("packages[%d]: missing name", i)
			}
			if version, ok := v["version"].(string); ok {
				e.Version = version
			}
			if cask, ok := v["cask"].(bool); ok {
				e.Cask = cask
			}
			if tap, ok := v["tap"].(string); ok {
				e.Tap = tap
			}
			if channel, ok := v["channel"].(string); ok {
				e.Channel = channel
			}
			entries = append(entries, e)
		default:
			return nil, fmt.Errorf("packages[%d]: must be a string or object", i)
		}
	}
	return entries, nil
}

// osPackageCommands builds the install/query argv for one package manager.
type osPackageCommands struct {
	// isInstalledArgs returns the argv that exits zero when pkg is already
	// installed.
	isInstalledArgs func(pkg pkgEntry) []string
	// installArgs returns the argv that installs pkg.
	installArgs func(pkg pkgEntry) []string
	// uninstallArgs returns the argv that removes pkg, for down.
	uninstallArgs func(pkg pkgEntry) []string
}

type osPackageOp struct {
	kind    string
	cmds    osPackageCommands
	entries []pkgEntry
}

func newOSPackageFactory(kind string, cmds osPackageCommands) Factory {
	return func(raw map[string]any) (Operation, error) {
		if err := ValidateShape(kind, raw); err != nil {
			return nil, err
		}
		entries, err := parsePackageEntries(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return &osPackageOp{kind: kind, cmds: cmds, entries: entries}, nil
	}
}

func (o *osPackageOp) Validate() error {
	if len(o.entries) == 0 {
		return fmt.Errorf("%s: packages list is empty", o.kind)
	}
	return nil
}

func (o *osPackageOp) IsMet(ctx context.Context, workdir string, env map[string]string) (bool, error) {
	for _, e := range o.entries {
		args := o.cmds.isInstalledArgs(e)
		if len(args) == 0 {
			return false, nil
		}
		if err := exec.CommandContext(ctx, args[0], args[1:]...).Run(); err != nil {
			return false, nil
		}
	}
	return true, nil
}

func (o *osPackageOp) Up(ctx context.Context) (OpResult, error) {
	for _, e := range o.entries {
		args := o.cmds.installArgs(e)
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		if out, err := cmd.CombinedOutput(); err != nil {
			log.Printf("%s: install %s failed: %v\n%s", o.kind, e.Name, err, out)
			return OpResult{Success: false}, fmt.Errorf("%s: installing %s: %w", o.kind, e.Name, err)
		}
	}
	return OpResult{Success: true}, nil
}

func (o *osPackageOp) Down(ctx context.Context) (OpResult, error) {
	ok := true
	for i := len(o.entries) - 1; i >= 0; i-- {
		e := o.entries[i]
		args := o.cmds.uninstallArgs(e)
		if len(args) == 0 {
			continue
		}
		if err := exec.CommandContext(ctx, args[0], args[1:]...).Run(); err != nil {
			ok = false
			log.Printf("%s: uninstall %s failed, continuing best-effort: %v", o.kind, e.Name, err)
		}
	}
	return OpResult{Success: ok}, nil
}

func homebrewCommands() osPackageCommands {
	return osPackageCommands{
		isInstalledArgs: func(e pkgEntry) []string { return []string{"brew", "list", e.Name} },
		installArgs: func(e pkgEntry) []string {
			args := []string{"brew", "install"}
			if e.Cask {
				args = append(args, "--cask")
			}
			name := e.Name
			if e.Tap != "" {
				name = e.Tap + "/" + name
			}
			if e.Version != "" {
				name = name + "@" + e.Version
			}
			return append(args, name)
		},
		uninstallArgs: func(e pkgEntry) []string { return []string{"brew", "uninstall", e.Name} },
	}
}

func aptCommands() osPackageCommands {
	return osPackageCommands{
		isInstalledArgs: func(e pkgEntry) []string { return []string{"dpkg", "-s", e.Name} },
		installArgs: func(e pkgEntry) []string {
			name := e.Name
			if e.Version != "" {
				name = name + "=" + e.Version
			}
			return []string{"apt-get", "install", "-y", name}
		},
		uninstallArgs: func(e pkgEntry) []string { return []string{"apt-get", "remove", "-y", e.Name} },
	}
}

func dnfCommands() osPackageCommands {
	return osPackageCommands{
		isInstalledArgs: func(e pkgEntry) []string { return []string{"rpm", "-q", e.Name} },
		installArgs: func(e pkgEntry) []string {
			name := e.Name
			if e.Version != "" {
				name = name + "-" + e.Version
			}
			return []string{"dnf", "install", "-y", name}
		},
		uninstallArgs: func(e pkgEntry) []string { return []string{"dnf", "remove", "-y", e.Name} },
	}
}

func pacmanCommands() osPackageCommands {
	return osPackageCommands{
		isInstalledArgs: func(e pkgEntry) []string { return []string{"pacman", "-Q", e.Name} },
		installArgs:     func(e pkgEntry) []string { return []string{"pacman", "-S", "--noconfirm", e.Name} },
		uninstallArgs:   func(e pkgEntry) []string { return []string{"pacman", "-R", "--noconfirm", e.Name} },
	}
}

func nixCommands() osPackageCommands {
	return osPackageCommands{
		isInstalledArgs: func(e pkgEntry) []string { return []string{"nix-env", "-q", e.Name} },
		installArgs: func(e pkgEntry) []string {
			pkg := "nixpkgs." + e.Name
			if e.Channel != "" {
				pkg = e.Channel + "." + e.Name
			}
			return []string{"nix-env", "-iA", pkg}
		},
		uninstallArgs: func(e pkgEntry) []string { return []string{"nix-env", "-e", e.Name} },
	}
}
