package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	ghrepo "github.com/cli/go-gh/v2/pkg/repository"
	"github.com/spf13/cobra"

	"github.com/omnicli/omni/pkg/console"
	"github.com/omnicli/omni/pkg/constants"
	"github.com/omnicli/omni/pkg/gitutil"
	"github.com/omnicli/omni/pkg/ratelimit"
	"github.com/omnicli/omni/pkg/repoutil"
	"github.com/omnicli/omni/pkg/workdir"
)

// NewCloneCommand builds `omni clone [--package] <repo> [git-args…]`: it
// resolves repo to a Repository Identity (using cli/go-gh for GitHub
// shorthand resolution) and clones it under the worktree root at its
// canonical path (§3's worktree-relative path).
func NewCloneCommand() *cobra.Command {
	var asPackage bool
	cmd := &cobra.Command{
		Use:                "clone <repo> [git-args…]",
		Short:              "Clone a repository into its canonical worktree path",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := loadContext()
			if err != nil {
				return err
			}

			id, err := resolveCloneTarget(args[0], ctx)
			if err != nil {
				return err
			}

			dest := cloneDestination(ctx, id, asPackage)
			if _, err := os.Stat(dest); err == nil {
				return fmt.Errorf("%s: clone: %s already exists", constants.CLIName, dest)
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("%s: clone: %w", constants.CLIName, err)
			}

			url := fmt.Sprintf("https://%s/%s/%s.git", id.Host, id.Org, id.Repo)
			if err := ratelimit.Wait(cmd.Context(), ratelimit.OperationGitHubAPI); err != nil {
				return fmt.Errorf("%s: clone: %w", constants.CLIName, err)
			}
			fmt.Println(console.FormatProgressMessage("cloning " + id.String() + " to " + dest))
			if _, err := git.PlainClone(dest, false, &git.CloneOptions{URL: url}); err != nil {
				if gitutil.IsAuthError(err.Error()) {
					return fmt.Errorf("%s: clone: check your git credentials for %s: %w", constants.CLIName, id.Host, err)
				}
				return fmt.Errorf("%s: clone: %w", constants.CLIName, err)
			}

			if err := emitShellCd(dest); err != nil {
				return err
			}
			fmt.Println(console.FormatSuccessMessage("cloned to " + dest))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asPackage, "package", false, "clone under the package path instead of the worktree's host/org/repo layout")
	return cmd
}

// resolveCloneTarget accepts a bare GitHub "owner/repo" shorthand (resolved
// through cli/go-gh's repository parser, so "owner/repo#branch" and
// "host/owner/repo" forms work the same way `gh` itself accepts them) or
// Omni's own "host:org/repo" short form.
func resolveCloneTarget(input string, ctx *appContext) (repoutil.Identity, error) {
	if strings.Contains(input, ":") && !strings.Contains(input, "://") && !strings.Contains(input, "@") {
		if id, err := repoutil.ParseShortForm(input, defaultHost(ctx.Config)); err == nil {
			return id, nil
		}
	}
	if parsed, err := ghrepo.Parse(input); err == nil {
		return repoutil.Identity{Host: parsed.Host(), Org: parsed.Owner(), Repo: parsed.Name()}, nil
	}
	return repoutil.ParseShortForm(input, defaultHost(ctx.Config))
}

func cloneDestination(ctx *appContext, id repoutil.Identity, asPackage bool) string {
	root := worktreeRoot(ctx.Config)
	if asPackage {
		return filepath.Join(root, "packages", id.Org, id.Repo)
	}
	format := ctx.Config.GetString("repo_path_format")
	if format == "" {
		format = constants.DefaultRepoPathFormat
	}
	return filepath.Join(root, workdir.RepoPath(id, format))
}
