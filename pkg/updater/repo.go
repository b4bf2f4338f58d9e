package updater

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/omnicli/omni/pkg/gitutil"
	"github.com/omnicli/omni/pkg/logger"
	"github.com/omnicli/omni/pkg/ratelimit"
)

var log = logger.New("updater:repo")

// AdvanceResult reports what Advance did to a repo.
type AdvanceResult struct {
	Updated    bool
	FromCommit string
	ToCommit   string
}

// Advance fetches and advances repoPath's tracked ref (§4.7): a branch is
// fast-forwarded, a tag resolves the newest tag matching tagPattern by
// commit date and checks it out directly. tagPattern is ignored when the
// tree tracks a branch. Every remote call is gated through the shared
// git-remote rate limiter, since a large omnipath can otherwise fan out
// into dozens of concurrent fetches against the same origins.
func Advance(ctx context.Context, repoPath, tagPattern string) (AdvanceResult, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("updater: opening %s: %w", repoPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("updater: reading HEAD of %s: %w", repoPath, err)
	}
	from := head.Hash().String()

	if err := ratelimit.Wait(ctx, ratelimit.OperationGitRemote); err != nil {
		return AdvanceResult{}, fmt.Errorf("updater: %w", err)
	}

	if head.Name().IsBranch() {
		return advanceBranch(repo, from)
	}
	return advanceTag(repo, tagPattern, from)
}

func advanceBranch(repo *git.Repository, from string) (AdvanceResult, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("updater: worktree: %w", err)
	}
	err = wt.Pull(&git.PullOptions{RemoteName: "origin", SingleBranch: true})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return AdvanceResult{Updated: false, FromCommit: from, ToCommit: from}, nil
		}
		if errors.Is(err, transport.ErrRepositoryNotFound) {
			return AdvanceResult{}, fmt.Errorf("updater: remote repository not found: %w", err)
		}
		if gitutil.IsAuthError(err.Error()) {
			return AdvanceResult{}, fmt.Errorf("updater: pulling: check your git credentials for this remote: %w", err)
		}
		// Pull only ever fast-forwards or fails; any other failure
		// (diverged history included) surfaces as a skip for this repo.
		return AdvanceResult{}, fmt.Errorf("updater: pulling (not fast-forwardable?): %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("updater: reading HEAD after pull: %w", err)
	}
	to := head.Hash().String()
	return AdvanceResult{Updated: to != from, FromCommit: from, ToCommit: to}, nil
}

func advanceTag(repo *git.Repository, tagPattern, from string) (AdvanceResult, error) {
	remote, err := repo.Remote("origin")
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("updater: remote origin: %w", err)
	}
	// A cheap ls-remote-equivalent check before fetching object data, so an
	// unreachable remote or a credentials problem is reported before any
	// fetch; the fetch below runs whether or not the remote has new refs.
	if _, err := remote.List(&git.ListOptions{}); err != nil {
		if gitutil.IsAuthError(err.Error()) {
			return AdvanceResult{}, fmt.Errorf("updater: listing remote refs: check your git credentials for this remote: %w", err)
		}
		return AdvanceResult{}, fmt.Errorf("updater: listing remote refs: %w", err)
	}

	err = repo.Fetch(&git.FetchOptions{RemoteName: "origin", Tags: git.AllTags})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		if gitutil.IsAuthError(err.Error()) {
			return AdvanceResult{}, fmt.Errorf("updater: fetching: check your git credentials for this remote: %w", err)
		}
		return AdvanceResult{}, fmt.Errorf("updater: fetching: %w", err)
	}

	best, err := newestMatchingTag(repo, tagPattern)
	if err != nil {
		return AdvanceResult{}, err
	}
	if best == nil {
		return AdvanceResult{Updated: false, FromCommit: from, ToCommit: from}, nil
	}

	if best.commit.String() == from {
		return AdvanceResult{Updated: false, FromCommit: from, ToCommit: from}, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("updater: worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: best.commit}); err != nil {
		return AdvanceResult{}, fmt.Errorf("updater: checking out tag %s: %w", best.name, err)
	}
	return AdvanceResult{Updated: true, FromCommit: from, ToCommit: best.commit.String()}, nil
}

type taggedCommit struct {
	name      string
	commit    plumbing.Hash
	createdAt time.Time
}

func newestMatchingTag(repo *git.Repository, pattern string) (*taggedCommit, error) {
	var re *regexp.Regexp
	if pattern != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("updater: invalid tag pattern %q: %w", pattern, err)
		}
		re = compiled
	}

	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("updater: listing tags: %w", err)
	}
	defer iter.Close()

	var candidates []taggedCommit
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if re != nil && !re.MatchString(name) {
			return nil
		}
		commitHash, createdAt, err := resolveTagTime(repo, ref)
		if err != nil {
			log.Printf("skipping tag %s: %v", name, err)
			return nil
		}
		candidates = append(candidates, taggedCommit{name: name, commit: commitHash, createdAt: createdAt})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].createdAt.After(candidates[j].createdAt) })
	return &candidates[0], nil
}

// resolveTagTime peels an annotated tag to its target commit and returns
// the commit's committer time (creation-date ordering, §4.7); lightweight
// tags resolve directly.
func resolveTagTime(repo *git.Repository, ref *plumbing.Reference) (plumbing.Hash, time.Time, error) {
	if tagObj, err := repo.TagObject(ref.Hash()); err == nil {
		commit, err := tagObj.Commit()
		if err != nil {
			return plumbing.ZeroHash, time.Time{}, err
		}
		return commit.Hash, commit.Committer.When, nil
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return plumbing.ZeroHash, time.Time{}, err
	}
	return commit.Hash, commit.Committer.When, nil
}
