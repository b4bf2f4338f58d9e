package cli

import (
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omnicli/omni/pkg/envops"
	"github.com/omnicli/omni/pkg/shellenv"
)

// NewScopeCommand builds `omni scope <repo> <command> [args…]`: runs
// command in repo's worktree directory with that workdir's activated
// Environment Snapshot applied, without touching the calling shell (§6).
func NewScopeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:                "scope <repo> <command> [args...]",
		Short:              "Run a command scoped to another repository's directory and environment",
		Args:               cobra.MinimumNArgs(2),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := loadContext()
			if err != nil {
				return err
			}
			dir, err := resolveCdTarget(ctx, args[:1])
			if err != nil {
				return err
			}
			return runScoped(dir, args[1], args[2:])
		},
	}
	return cmd
}

func runScoped(dir, name string, args []string) error {
	store := &shellenv.Store{DataHome: dataHome()}
	env := os.Environ()
	if id, _, ok, err := store.NearestPointer(dir); err == nil && ok {
		if snap, err := store.Load(id); err == nil {
			env = applyEnvFragment(env, snap.Env)
		}
	}

	c := exec.Command(name, args...)
	c.Dir = dir
	c.Env = env
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

// applyEnvFragment applies ops on top of an os.Environ()-style []string,
// returning the result in the same form.
func applyEnvFragment(environ []string, ops envops.Fragment) []string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}
	env = envops.Apply(env, ops)

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
