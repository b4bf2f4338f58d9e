package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/omnicli/omni/pkg/constants"
	"github.com/omnicli/omni/pkg/envops"
	"github.com/omnicli/omni/pkg/shellenv"
)

// NewHookCommand builds `omni hook`, the shell-integration entry points
// (§6): `init <shell>` prints the function the user's rc file sources,
// `env` runs the three-step snapshot hook protocol, `uuid` mints the
// per-invocation id the shell hook passes back as $OMNI_UUID.
func NewHookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Shell integration entry points",
	}
	cmd.AddCommand(newHookInitCommand(), newHookEnvCommand(), newHookUUIDCommand())
	return cmd
}

func newHookInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "init <shell>",
		Short:     "Print the shell function to source from your rc file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			shell, err := parseShell(args[0])
			if err != nil {
				return err
			}
			fmt.Println(shellenv.InitScript(shell))
			return nil
		},
	}
}

func newHookEnvCommand() *cobra.Command {
	var shellName string
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Compute the shell commands to apply this directory's environment snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			shell, err := parseShell(shellName)
			if err != nil {
				return err
			}
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("%s: hook env: %w", constants.CLIName, err)
			}

			h := &shellenv.Hook{Store: &shellenv.Store{DataHome: dataHome()}, Shell: shell}
			script, targetID, err := h.Run(context.Background(), os.Getenv(constants.EnvOmniLoadedSnapshot), dir)
			if err != nil {
				return fmt.Errorf("%s: hook env: %w", constants.CLIName, err)
			}
			fmt.Print(script)
			markerOp := envops.Op{Kind: envops.KindSet, Var: constants.EnvOmniLoadedSnapshot, Value: targetID}
			if targetID == "" {
				markerOp = envops.Op{Kind: envops.KindUnset, Var: constants.EnvOmniLoadedSnapshot}
			}
			marker, err := shellenv.Emit(shell, envops.Fragment{markerOp})
			if err != nil {
				return fmt.Errorf("%s: hook env: %w", constants.CLIName, err)
			}
			fmt.Print(marker)
			return nil
		},
	}
	cmd.Flags().StringVar(&shellName, "shell", os.Getenv("SHELL"), "target shell (bash, zsh, fish)")
	return cmd
}

func newHookUUIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uuid",
		Short: "Print a new random id for OMNI_UUID",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(uuid.NewString())
			return nil
		},
	}
}

func parseShell(name string) (shellenv.Shell, error) {
	switch shellBaseName(name) {
	case "bash":
		return shellenv.Bash, nil
	case "zsh":
		return shellenv.Zsh, nil
	case "fish":
		return shellenv.Fish, nil
	default:
		return "", fmt.Errorf("%s: unsupported shell %q", constants.CLIName, name)
	}
}

// shellBaseName strips a path prefix off $SHELL-style values ("/bin/zsh"
// becomes "zsh") so hook env can default straight off the environment.
func shellBaseName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}
