package versionmanager

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Plugin teaches the Version Manager how to list, install, and uninstall
// versions of one tool (§4.4: "one plugin per tool"). The default
// implementation shells out to an asdf-style plugin directory, the
// protocol asdf plugins themselves use: bin/list-all, bin/install,
// bin/latest-stable, bin/uninstall scripts under the plugin directory.
type Plugin interface {
	ListAll(ctx context.Context) ([]string, error)
	Install(ctx context.Context, version, prefix string) error
	Uninstall(ctx context.Context, prefix string) error
	LatestStable(ctx context.Context) (string, error)
}

type shellPlugin struct {
	tool string
	dir  string
}

func newShellPlugin(tool, pluginDir string) *shellPlugin {
	return &shellPlugin{tool: tool, dir: pluginDir}
}

func (p *shellPlugin) script(name string) string {
	return filepath.Join(p.dir, "bin", name)
}

func (p *shellPlugin) ListAll(ctx context.Context) ([]string, error) {
	out, err := p.run(ctx, "list-all", nil)
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

func (p *shellPlugin) LatestStable(ctx context.Context) (string, error) {
	out, err := p.run(ctx, "latest-stable", nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (p *shellPlugin) Install(ctx context.Context, version, prefix string) error {
	_, err := p.run(ctx, "install", []string{
		"ASDF_INSTALL_TYPE=version",
		"ASDF_INSTALL_VERSION=" + version,
		"ASDF_INSTALL_PATH=" + prefix,
	})
	if err != nil {
		return fmt.Errorf("installing %s %s: %w", p.tool, version, err)
	}
	return nil
}

func (p *shellPlugin) Uninstall(ctx context.Context, prefix string) error {
	if _, statErr := os.Stat(p.script("uninstall")); statErr != nil {
		return os.RemoveAll(prefix)
	}
	_, err := p.run(ctx, "uninstall", []string{"ASDF_INSTALL_PATH=" + prefix})
	if err != nil {
		return fmt.Errorf("uninstalling %s at %s: %w", p.tool, prefix, err)
	}
	return nil
}

func (p *shellPlugin) run(ctx context.Context, script string, extraEnv []string) (string, error) {
	cmd := exec.CommandContext(ctx, p.script(script))
	cmd.Env = append(os.Environ(), extraEnv...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running %s plugin %s: %w", p.tool, script, err)
	}
	return stdout.String(), nil
}
