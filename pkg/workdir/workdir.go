// Package workdir resolves the Work Directory and, when it sits inside a
// Git repository, its Repository Identity (§3): the canonical root used to
// anchor repo-local configuration files, and the (host, org, repo) triple
// derived from the origin remote, used as the cache key for trust and
// per-repo update records.
package workdir

import (
	"errors"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/omnicli/omni/pkg/logger"
	"github.com/omnicli/omni/pkg/repoutil"
)

var log = logger.New("workdir:identity")

// Identity describes a resolved Work Directory.
type Identity struct {
	// Dir is the directory Omni was invoked from.
	Dir string
	// Root is the canonical root: the Git top-level if Dir is inside a
	// repository, else Dir itself.
	Root string
	// Repo is the Repository Identity, present only when Root sits inside
	// a Git repository with a resolvable origin remote.
	Repo *repoutil.Identity
}

// InGitRepo reports whether the Work Directory is inside a Git repository.
func (id Identity) InGitRepo() bool {
	return id.Repo != nil
}

// Resolve determines the Work Directory identity for dir, opening the
// enclosing Git repository (if any) and reading its origin remote.
func Resolve(dir string) (Identity, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			log.Printf("not inside a git repository: %s", dir)
			return Identity{Dir: dir, Root: dir}, nil
		}
		return Identity{}, fmt.Errorf("opening git repository at %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		// A bare repository or a repo without a worktree still has a
		// usable identity; it just has no canonical root distinct from dir.
		log.Printf("repository at %s has no worktree: %v", dir, err)
		return Identity{Dir: dir, Root: dir}, nil
	}
	root := wt.Filesystem.Root()

	remote, err := repo.Remote("origin")
	if err != nil {
		log.Printf("no origin remote for repository at %s: %v", root, err)
		return Identity{Dir: dir, Root: root}, nil
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return Identity{Dir: dir, Root: root}, nil
	}

	repoID, err := repoutil.ParseRepoURL(urls[0])
	if err != nil {
		log.Printf("origin remote URL %q did not parse as a repository identity: %v", urls[0], err)
		return Identity{Dir: dir, Root: root}, nil
	}
	repoID = normalize(repoID)

	return Identity{Dir: dir, Root: root, Repo: &repoID}, nil
}

// normalize lowercases the host component only; GitHub and most forges are
// case-sensitive for org/repo but not for host.
func normalize(id repoutil.Identity) repoutil.Identity {
	id.Host = strings.ToLower(id.Host)
	return id
}

// RepoPath renders the identity's worktree-relative path using a template
// containing %{host}, %{org} and %{repo} placeholders (§3's
// repo_path_format, default "%{host}/%{org}/%{repo}").
func RepoPath(id repoutil.Identity, format string) string {
	r := strings.NewReplacer(
		"%{host}", id.Host,
		"%{org}", id.Org,
		"%{repo}", id.Repo,
	)
	return r.Replace(format)
}
