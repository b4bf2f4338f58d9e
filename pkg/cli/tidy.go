package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"github.com/omnicli/omni/pkg/console"
	"github.com/omnicli/omni/pkg/constants"
	"github.com/omnicli/omni/pkg/repoutil"
	"github.com/omnicli/omni/pkg/workdir"
)

// NewTidyCommand builds `omni tidy [--yes] [--search-path DIR]… [--up-all
// -- <up-args>]`: scans the worktree (plus any extra search paths) for Git
// repositories whose directory doesn't match their canonical
// repo_path_format path, and offers to move them there (§3's "clone of a
// repo at a given format, followed by tidy under the same format, is a
// no-op" law).
func NewTidyCommand() *cobra.Command {
	var yes bool
	var searchPaths []string
	var upAll bool

	cmd := &cobra.Command{
		Use:   "tidy",
		Short: "Move repositories under the worktree into their canonical paths",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTidy(yes, searchPaths, upAll, args)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "move every repository without prompting")
	cmd.Flags().StringArrayVar(&searchPaths, "search-path", nil, "additional directory to scan (repeatable)")
	cmd.Flags().BoolVar(&upAll, "up-all", false, "run `omni up` in every repository after tidying; pass extra args after --")
	return cmd
}

func runTidy(yes bool, searchPaths []string, upAll bool, upArgs []string) error {
	app, err := loadContext()
	if err != nil {
		return err
	}
	root := worktreeRoot(app.Config)
	format := app.Config.GetString("repo_path_format")
	if format == "" {
		format = constants.DefaultRepoPathFormat
	}

	roots := append([]string{root}, searchPaths...)
	moved := 0
	for _, r := range roots {
		repos, err := findRepos(r)
		if err != nil {
			continue
		}
		for _, repoDir := range repos {
			did, dest, err := tidyOne(repoDir, root, format, yes)
			if err != nil {
				fmt.Println(console.FormatErrorMessage(err.Error()))
				continue
			}
			if did {
				moved++
			}
			if upAll {
				if dest == "" {
					dest = repoDir
				}
				runUpIn(dest, upArgs)
			}
		}
	}

	fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("tidy complete (%d moved)", moved)))
	return nil
}

// findRepos walks root for directories containing a .git entry, not
// descending into a repository once found.
func findRepos(root string) ([]string, error) {
	var repos []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if _, statErr := os.Stat(filepath.Join(path, ".git")); statErr == nil {
			repos = append(repos, path)
			return filepath.SkipDir
		}
		return nil
	})
	return repos, err
}

func tidyOne(repoDir, root, format string, yes bool) (moved bool, dest string, err error) {
	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		return false, "", nil
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return false, "", nil
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return false, "", nil
	}
	id, err := repoutil.ParseRepoURL(urls[0])
	if err != nil {
		return false, "", nil
	}

	dest = filepath.Join(root, workdir.RepoPath(id, format))
	if sameDir(repoDir, dest) {
		return false, repoDir, nil
	}
	if _, err := os.Stat(dest); err == nil {
		return false, "", nil
	}

	if !yes {
		ok, err := console.ConfirmAction("Move "+repoDir+" to "+dest+"?", "Yes", "No")
		if err != nil || !ok {
			return false, "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, "", err
	}
	if err := os.Rename(repoDir, dest); err != nil {
		return false, "", err
	}
	pruneEmptyParents(filepath.Dir(repoDir), root)
	return true, dest, nil
}

func sameDir(a, b string) bool {
	ap, aerr := filepath.Abs(a)
	bp, berr := filepath.Abs(b)
	return aerr == nil && berr == nil && ap == bp
}

// pruneEmptyParents removes dir and its now-empty ancestors, stopping at
// (and never removing) root.
func pruneEmptyParents(dir, root string) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return
	}
	for {
		abs, err := filepath.Abs(dir)
		if err != nil || abs == rootAbs || len(abs) <= len(rootAbs) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func runUpIn(dir string, upArgs []string) {
	args := append([]string{"up"}, upArgs...)
	c := exec.Command(constants.CLIName, args...)
	c.Dir = dir
	c.Stdout = os.Stderr
	c.Stderr = os.Stderr
	_ = c.Run()
}
