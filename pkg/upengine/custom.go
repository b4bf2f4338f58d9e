package upengine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

func init() {
	Register("custom", newCustomFromRaw)
}

// customParams is decoded from the raw operation map and checked by
// go-playground/validator's struct tags; custom.json additionally catches
// shapes the tags can't (extra keys).
type customParams struct {
	Meet   string `koanf:"meet" validate:"required"`
	Unmeet string `koanf:"unmeet"`
	Met    string `koanf:"met?"`
}

// customOp runs a POSIX shell script for meet/unmeet, reading the
// $OMNI_ENV file it may append env-ops directives to (spec §4.3).
type customOp struct {
	params customParams
	workdir string
	runner  shellRunner
}

// shellRunner executes a shell script and returns the path to the
// $OMNI_ENV file it may have written to, so tests can substitute a fake.
type shellRunner func(ctx context.Context, script, workdir string) (envFile string, err error)

func newCustomFromRaw(raw map[string]any) (Operation, error) {
	if err := ValidateShape("custom", raw); err != nil {
		return nil, err
	}
	var p customParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return &customOp{params: p, runner: runShellScript}, nil
}

func (o *customOp) Validate() error {
	v := validator.New()
	return v.Struct(o.params)
}

func (o *customOp) IsMet(ctx context.Context, workdir string, env map[string]string) (bool, error) {
	o.workdir = workdir
	if o.params.Met == "" {
		return false, nil
	}
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", o.params.Met)
	cmd.Dir = workdir
	cmd.Env = flattenEnv(env)
	return cmd.Run() == nil, nil
}

func (o *customOp) Up(ctx context.Context) (OpResult, error) {
	return o.run(ctx, o.params.Meet)
}

func (o *customOp) Down(ctx context.Context) (OpResult, error) {
	if o.params.Unmeet == "" {
		return OpResult{Success: true}, nil
	}
	return o.run(ctx, o.params.Unmeet)
}

func (o *customOp) run(ctx context.Context, script string) (OpResult, error) {
	if script == "" {
		return OpResult{Success: true}, nil
	}
	envFile, err := o.runner(ctx, script, o.workdir)
	if err != nil {
		return OpResult{Success: false}, err
	}
	if envFile == "" {
		return OpResult{Success: true}, nil
	}
	defer os.Remove(envFile)
	f, err := os.Open(envFile)
	if err != nil {
		return OpResult{Success: true}, nil // script never wrote directives
	}
	defer f.Close()
	frag, err := ParseDirectives(f)
	if err != nil {
		return OpResult{Success: false}, err
	}
	return OpResult{Success: true, Env: frag}, nil
}

// runShellScript is the default shellRunner: it runs script under /bin/sh
// with $OMNI_ENV pointed at a fresh temp file and returns that file's path.
func runShellScript(ctx context.Context, script, workdir string) (string, error) {
	envFile := filepath.Join(os.TempDir(), fmt.Sprintf("omni-env-%d", os.Getpid()))
	if f, err := os.Create(envFile); err == nil {
		f.Close()
	}
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script)
	cmd.Dir = workdir
	cmd.Env = append(os.Environ(), "OMNI_ENV="+envFile)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("upengine: custom script failed: %w", err)
	}
	return envFile, nil
}

func flattenEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
