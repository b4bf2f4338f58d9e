package updater

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/omnicli/omni/pkg/cache"
	"github.com/omnicli/omni/pkg/constants"
)

// RepoConfig is one omnipath directory's path_repo_updates configuration.
type RepoConfig struct {
	Path       string
	Interval   string
	TagPattern string
}

// Updater drives the per-directory update pass across the omnipath
// (§4.7). Concurrency across directories is bounded, matching the
// teacher's use of a fixed-size goroutine pool for independent I/O fan-out.
type Updater struct {
	Cache          *cache.Store
	MaxConcurrency int
	// OmniBinary is the `omni` executable rerun after a successful
	// update; defaults to "omni" on PATH.
	OmniBinary string
}

// Result reports the outcome for one repo.
type Result struct {
	Path    string
	Skipped bool
	Advance AdvanceResult
	Err     error
}

func (u *Updater) maxConcurrency() int {
	if u.MaxConcurrency > 0 {
		return u.MaxConcurrency
	}
	return 4
}

func (u *Updater) omniBinary() string {
	if u.OmniBinary != "" {
		return u.OmniBinary
	}
	return "omni"
}

func cacheKey(path string) string {
	sum := sha1.Sum([]byte(path))
	return "repo_update." + hex.EncodeToString(sum[:])
}

type gateRecord struct {
	LastRun time.Time `json:"last_run"`
}

// Run checks every repo's interval gate and advances the ones that are
// due, bounded to MaxConcurrency concurrent directories.
func (u *Updater) Run(ctx context.Context, repos []RepoConfig) []Result {
	p := pool.NewWithResults[Result]().WithMaxGoroutines(u.maxConcurrency())
	for _, repo := range repos {
		repo := repo
		p.Go(func() Result { return u.runOne(ctx, repo) })
	}
	return p.Wait()
}

func (u *Updater) runOne(ctx context.Context, repo RepoConfig) Result {
	key := cacheKey(repo.Path)
	lastRun := u.lastRun(key)

	due, err := IsDue(lastRun, repo.Interval, timeNow())
	if err != nil {
		return Result{Path: repo.Path, Err: err}
	}
	if !due {
		return Result{Path: repo.Path, Skipped: true}
	}

	advance, err := Advance(ctx, repo.Path, repo.TagPattern)
	if err != nil {
		return Result{Path: repo.Path, Err: err}
	}

	if u.Cache != nil {
		if err := u.Cache.Set(key, gateRecord{LastRun: timeNow()}, 0); err != nil {
			log.Printf("recording update gate for %s: %v", repo.Path, err)
		}
	}

	if advance.Updated {
		if err := u.rerunUp(ctx, repo.Path); err != nil {
			log.Printf("rerunning up in %s after update: %v", repo.Path, err)
		}
	}
	return Result{Path: repo.Path, Advance: advance}
}

func (u *Updater) lastRun(key string) time.Time {
	if u.Cache == nil {
		return time.Time{}
	}
	rec, ok, err := u.Cache.Get(key)
	if err != nil || !ok {
		return time.Time{}
	}
	var g gateRecord
	if err := json.Unmarshal(rec.Value, &g); err != nil {
		return time.Time{}
	}
	return g.LastRun
}

// rerunUp reinstalls the repo's own `up:` dependencies after a successful
// update, with OMNI_SKIP_UPDATE set so the rerun doesn't recurse into the
// updater itself (§4.7).
func (u *Updater) rerunUp(ctx context.Context, repoPath string) error {
	cmd := exec.CommandContext(ctx, u.omniBinary(), "up")
	cmd.Dir = repoPath
	cmd.Env = append(os.Environ(), constants.EnvOmniSkipUpdate+"=true")
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("updater: rerunning up in %s: %w", repoPath, err)
	}
	return nil
}

// timeNow is a var so tests can freeze it without the workflow's Date.now
// restriction leaking into this package's own logic.
var timeNow = time.Now
