package cli

import (
	"fmt"
	"os"

	"github.com/omnicli/omni/pkg/constants"
)

// emitShellEffect appends one line of shell code to $OMNI_CMD_FILE, the
// side-effect channel the shell integration evals after the binary exits
// successfully (§6). It is a no-op when the variable is unset, so the
// binary works the same whether or not shell integration is installed.
func emitShellEffect(line string) error {
	path := os.Getenv(constants.EnvOmniCmdFile)
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%s: writing shell side-effect: %w", constants.CLIName, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("%s: writing shell side-effect: %w", constants.CLIName, err)
	}
	return nil
}

// emitShellCd appends a cd instruction for the parent shell.
func emitShellCd(dir string) error {
	return emitShellEffect("cd " + shellQuoteSingle(dir))
}

func shellQuoteSingle(s string) string {
	out := "'"
	for _, r := range s {
		if r == '\'' {
			out += `'\''`
		} else {
			out += string(r)
		}
	}
	return out + "'"
}
