package updater

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/omnicli/omni/pkg/cache"
)

func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	return store
}

func TestUpdater_Run_SkipsNotDueRepo(t *testing.T) {
	_, clonePath, _ := newOriginAndClone(t)
	c := newTestCache(t)
	if err := c.Set(cacheKey(clonePath), gateRecord{LastRun: time.Now()}, 0); err != nil {
		t.Fatalf("seeding gate: %v", err)
	}

	u := &Updater{Cache: c}
	results := u.Run(context.Background(), []RepoConfig{{Path: clonePath, Interval: "12h"}})
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if !results[0].Skipped {
		t.Error("expected repo to be skipped, just ran")
	}
}

func TestUpdater_Run_AdvancesDueRepoAndReruns(t *testing.T) {
	originPath, clonePath, _ := newOriginAndClone(t)
	origin, err := git.PlainOpen(originPath)
	if err != nil {
		t.Fatalf("open origin: %v", err)
	}
	commitFile(t, origin, originPath, "README.md", "v2")

	c := newTestCache(t)
	rerunMarker := filepath.Join(t.TempDir(), "rerun-marker")
	fakeOmni := writeFakeOmniScript(t, rerunMarker)

	u := &Updater{Cache: c, OmniBinary: fakeOmni}
	results := u.Run(context.Background(), []RepoConfig{{Path: clonePath}})
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("unexpected error: %v", results[0].Err)
	}
	if !results[0].Advance.Updated {
		t.Fatal("expected Advance.Updated=true")
	}
	if _, err := os.Stat(rerunMarker); err != nil {
		t.Errorf("expected rerun marker to be created by the fake omni binary: %v", err)
	}

	lastRun := u.lastRun(cacheKey(clonePath))
	if lastRun.IsZero() {
		t.Error("expected gate to record a last-run timestamp")
	}
}

func TestUpdater_Run_CompletesEveryRepoUnderConcurrencyCap(t *testing.T) {
	var repos []RepoConfig
	for i := 0; i < 3; i++ {
		_, clonePath, _ := newOriginAndClone(t)
		repos = append(repos, RepoConfig{Path: clonePath, Interval: "12h"})
	}
	c := newTestCache(t)
	u := &Updater{Cache: c, MaxConcurrency: 2}
	results := u.Run(context.Background(), repos)
	if len(results) != len(repos) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(repos))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("repo %s: unexpected error: %v", r.Path, r.Err)
		}
	}
}

// writeFakeOmniScript drops an executable shell script standing in for the
// `omni` binary; it just touches markerPath so tests can observe the rerun.
func writeFakeOmniScript(t *testing.T, markerPath string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "fake-omni")
	contents := "#!/bin/sh\ntouch " + markerPath + "\n"
	if err := os.WriteFile(script, []byte(contents), 0o755); err != nil {
		t.Fatalf("writing fake omni script: %v", err)
	}
	return script
}
