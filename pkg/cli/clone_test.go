package cli

import (
	"path/filepath"
	"testing"

	"github.com/omnicli/omni/pkg/config"
	"github.com/omnicli/omni/pkg/repoutil"
)

func testAppContext(t *testing.T, worktree string) *appContext {
	t.Helper()
	tree, err := config.Load([]config.Layer{})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return &appContext{Config: tree}
}

func TestCloneDestination_DefaultFormat(t *testing.T) {
	app := testAppContext(t, "")
	id := repoutil.Identity{Host: "github.com", Org: "test1org", Repo: "test1repo"}

	got := cloneDestination(app, id, false)
	want := filepath.Join(worktreeRoot(app.Config), "github.com", "test1org", "test1repo")
	if got != want {
		t.Errorf("cloneDestination = %q, want %q", got, want)
	}
}

func TestCloneDestination_Package(t *testing.T) {
	app := testAppContext(t, "")
	id := repoutil.Identity{Host: "github.com", Org: "test1org", Repo: "test1repo"}

	got := cloneDestination(app, id, true)
	want := filepath.Join(worktreeRoot(app.Config), "packages", "test1org", "test1repo")
	if got != want {
		t.Errorf("cloneDestination(package) = %q, want %q", got, want)
	}
}

func TestResolveCloneTarget_ShortForm(t *testing.T) {
	app := testAppContext(t, "")

	id, err := resolveCloneTarget("test1org/test1repo", app)
	if err != nil {
		t.Fatalf("resolveCloneTarget: %v", err)
	}
	if id.Host != "github.com" || id.Org != "test1org" || id.Repo != "test1repo" {
		t.Errorf("resolveCloneTarget = %+v", id)
	}
}

func TestResolveCloneTarget_HostForm(t *testing.T) {
	app := testAppContext(t, "")

	id, err := resolveCloneTarget("git.example.com:test1org/test1repo", app)
	if err != nil {
		t.Fatalf("resolveCloneTarget: %v", err)
	}
	if id.Host != "git.example.com" {
		t.Errorf("resolveCloneTarget host = %q, want git.example.com", id.Host)
	}
}
