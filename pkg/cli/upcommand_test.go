package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/omnicli/omni/pkg/config"
	"github.com/omnicli/omni/pkg/shellenv"
	"github.com/omnicli/omni/pkg/trust"
	"github.com/omnicli/omni/pkg/upengine"
)

type stringerID string

func (s stringerID) String() string { return string(s) }

func TestResolveTrustDecision_ExplicitModes(t *testing.T) {
	tests := []struct {
		mode string
		want trust.Decision
	}{
		{"always", trust.DecisionAlways},
		{"yes", trust.DecisionYes},
		{"no", trust.DecisionNo},
	}
	for _, tt := range tests {
		got, err := resolveTrustDecision(tt.mode, false, stringerID("test1org/test1repo"))
		if err != nil {
			t.Fatalf("resolveTrustDecision(%q): %v", tt.mode, err)
		}
		if got != tt.want {
			t.Errorf("resolveTrustDecision(%q) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestResolveTrustDecision_BootstrapDefaultsToNo(t *testing.T) {
	got, err := resolveTrustDecision("", true, stringerID("test1org/test1repo"))
	if err != nil {
		t.Fatalf("resolveTrustDecision: %v", err)
	}
	if got != trust.DecisionNo {
		t.Errorf("bootstrap mode = %v, want DecisionNo", got)
	}
}

// TestRunOperationsDown_RunsCustomUnmeetScript is the regression test for a
// `down` run that must execute each operation's real Down, not just diff
// the persisted env snapshot against empty: it rebuilds a `custom`
// operation from config and confirms its unmeet script actually runs.
func TestRunOperationsDown_RunsCustomUnmeetScript(t *testing.T) {
	workdir := t.TempDir()
	marker := filepath.Join(workdir, "down-ran")

	cfgPath := filepath.Join(workdir, "config.yaml")
	cfgYAML := "up:\n  - custom:\n      meet: \"true\"\n      unmeet: \"touch '" + marker + "'\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	tree, err := config.Load([]config.Layer{{Path: cfgPath, Scope: config.ScopeWorkdir}})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	app := testAppContext(t, "")
	app.Config = tree
	app.Workdir.Root = workdir

	snap := shellenv.Snapshot{Operations: []string{"custom"}}
	if _, err := runOperationsDown(context.Background(), app, snap); err != nil {
		t.Fatalf("runOperationsDown: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("expected the custom operation's unmeet script to run and create %s: %v", marker, err)
	}
}

// TestRunOperationsDown_RestoresAnyBranchFromSnapshot is the regression
// test for `any`'s Down only unwinding the branch the matching `up` run
// actually chose, reconstructed from the snapshot's composite state
// rather than a freshly built Instance's zero value.
func TestRunOperationsDown_RestoresAnyBranchFromSnapshot(t *testing.T) {
	workdir := t.TempDir()
	wantMarker := filepath.Join(workdir, "want-down-ran")
	otherMarker := filepath.Join(workdir, "other-down-ran")

	cfgPath := filepath.Join(workdir, "config.yaml")
	cfgYAML := "up:\n" +
		"  - any:\n" +
		"      - custom:\n" +
		"          meet: \"false\"\n" +
		"          unmeet: \"touch '" + otherMarker + "'\"\n" +
		"      - custom:\n" +
		"          meet: \"true\"\n" +
		"          unmeet: \"touch '" + wantMarker + "'\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	tree, err := config.Load([]config.Layer{{Path: cfgPath, Scope: config.ScopeWorkdir}})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	app := testAppContext(t, "")
	app.Config = tree
	app.Workdir.Root = workdir

	entries, err := upEntries(app)
	if err != nil {
		t.Fatalf("upEntries: %v", err)
	}
	engine, err := buildEngine(app)
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}
	instances, err := engine.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := upengine.Up(context.Background(), instances, nil, false); err != nil {
		t.Fatalf("Up: %v", err)
	}
	state := upengine.ExportState(instances)

	snap := shellenv.Snapshot{Operations: []string{"any"}, CompositeState: state}
	if _, err := runOperationsDown(context.Background(), app, snap); err != nil {
		t.Fatalf("runOperationsDown: %v", err)
	}
	if _, err := os.Stat(wantMarker); err != nil {
		t.Errorf("expected the branch that actually ran to be undone: %v", err)
	}
	if _, err := os.Stat(otherMarker); err == nil {
		t.Error("the branch that never ran during up must not be undone")
	}
}
