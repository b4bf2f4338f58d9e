package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/omnicli/omni/pkg/config"
	"github.com/omnicli/omni/pkg/constants"
	"github.com/omnicli/omni/pkg/repoutil"
	"github.com/omnicli/omni/pkg/workdir"
)

// NewCdCommand builds `omni cd [--locate] [repo]`: resolves repo (or the
// current worktree root with no argument) to a directory and asks the
// parent shell to change into it via the $OMNI_CMD_FILE side-effect
// channel (§6).
func NewCdCommand() *cobra.Command {
	var locate bool
	cmd := &cobra.Command{
		Use:   "cd [repo]",
		Short: "Change directory to a repository's canonical worktree path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := loadContext()
			if err != nil {
				return err
			}

			dir, err := resolveCdTarget(ctx, args)
			if err != nil {
				return err
			}

			if locate {
				fmt.Println(dir)
				return nil
			}
			if err := emitShellCd(dir); err != nil {
				return err
			}
			fmt.Println(dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&locate, "locate", false, "print the path instead of asking the shell to cd")
	return cmd
}

// resolveCdTarget returns the repo's worktree-relative path under the
// configured worktree root, or the current Work Directory root with no
// argument.
func resolveCdTarget(ctx *appContext, args []string) (string, error) {
	if len(args) == 0 {
		return ctx.Workdir.Root, nil
	}

	id, err := repoutil.ParseShortForm(args[0], defaultHost(ctx.Config))
	if err != nil {
		return "", fmt.Errorf("%s: cd: %w", constants.CLIName, err)
	}

	root := worktreeRoot(ctx.Config)
	format := ctx.Config.GetString("repo_path_format")
	if format == "" {
		format = constants.DefaultRepoPathFormat
	}
	rel := workdir.RepoPath(id, format)
	dir := filepath.Join(root, rel)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%s: cd: %s is not cloned at %s", constants.CLIName, id, dir)
	}
	return dir, nil
}

func defaultHost(tree *config.Tree) string {
	if h := tree.GetString("clone.default_host"); h != "" {
		return h
	}
	return "github.com"
}

// worktreeRoot returns the configured worktree root, falling back to
// $HOME/git, the teacher-style "somewhere under the user's home" default.
func worktreeRoot(tree *config.Tree) string {
	if root := tree.GetString("worktree"); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "git"
	}
	return filepath.Join(home, "git")
}
