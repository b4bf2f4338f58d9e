// Package repoutil parses repository identities out of git remote URLs and
// the short "org/repo" and "host:org/repo" forms accepted by the clone and
// scope commands. A Repository Identity is always a (host, org, repo)
// triple: when a form omits the host it defaults to github.com, and when it
// omits the org the caller is expected to fill it in from $OMNI_ORG.
package repoutil

import (
	"fmt"
	"strings"
)

// Identity is a normalized (host, org, repo) repository identity.
type Identity struct {
	Host string
	Org  string
	Repo string
}

// Slug returns the "org/repo" short form.
func (id Identity) Slug() string {
	return id.Org + "/" + id.Repo
}

// String returns the "host:org/repo" form used as a cache and worktree key.
func (id Identity) String() string {
	return fmt.Sprintf("%s:%s/%s", id.Host, id.Org, id.Repo)
}

// SplitRepoSlug splits a repository slug (owner/repo) into owner and repo parts.
// Returns an error if the slug format is invalid.
func SplitRepoSlug(slug string) (owner, repo string, err error) {
	parts := strings.Split(slug, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: %s", slug)
	}
	return parts[0], parts[1], nil
}

// ParseRepoURL extracts a repository Identity from a git remote URL. It
// handles SSH (git@host:org/repo.git) and HTTPS/git (scheme://host/org/repo.git)
// forms for any host, not just github.com, since Omni clones from whatever
// git server the caller names.
func ParseRepoURL(url string) (Identity, error) {
	var host, repoPath string

	switch {
	case strings.HasPrefix(url, "git@"):
		rest := strings.TrimPrefix(url, "git@")
		idx := strings.Index(rest, ":")
		if idx < 0 {
			return Identity{}, fmt.Errorf("malformed SSH URL: %s", url)
		}
		host, repoPath = rest[:idx], rest[idx+1:]
	case strings.Contains(url, "://"):
		rest := url[strings.Index(url, "://")+3:]
		idx := strings.Index(rest, "/")
		if idx < 0 {
			return Identity{}, fmt.Errorf("malformed URL: %s", url)
		}
		host, repoPath = rest[:idx], rest[idx+1:]
	default:
		return Identity{}, fmt.Errorf("unrecognized repository URL: %s", url)
	}

	repoPath = strings.TrimSuffix(repoPath, ".git")
	owner, repo, err := SplitRepoSlug(repoPath)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Host: host, Org: owner, Repo: repo}, nil
}

// ParseShortForm parses the "org/repo" or "host:org/repo" forms accepted on
// the command line by clone and scope. defaultHost is used when the input
// omits a host.
func ParseShortForm(input, defaultHost string) (Identity, error) {
	host := defaultHost
	rest := input
	if idx := strings.Index(input, ":"); idx >= 0 && !strings.Contains(input[:idx], "/") {
		host, rest = input[:idx], input[idx+1:]
	}
	owner, repo, err := SplitRepoSlug(rest)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid repository reference %q: %w", input, err)
	}
	return Identity{Host: host, Org: owner, Repo: repo}, nil
}

// ExtractBaseRepo extracts the base repository (owner/repo) from a path that
// may include subfolders, e.g. a monorepo-style plugin reference.
//   - "actions/checkout" -> "actions/checkout"
//   - "actions/cache/restore" -> "actions/cache"
func ExtractBaseRepo(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return path
}

// SanitizeForFilename converts a repository slug (owner/repo) to a
// filename-safe string, for use as a worktree directory name.
// Replaces "/" with "-". Returns "clone-mode" if the slug is empty.
func SanitizeForFilename(slug string) string {
	if slug == "" {
		return "clone-mode"
	}
	return strings.ReplaceAll(slug, "/", "-")
}
