package upengine

import "testing"

func TestParsePackageEntries_BareStringsAndMaps(t *testing.T) {
	raw := map[string]any{
		"packages": []any{
			"git",
			map[string]any{"name": "node", "version": "20"},
			map[string]any{"name": "wget", "cask": true, "tap": "homebrew/core"},
		},
	}
	entries, err := parsePackageEntries(raw)
	if err != nil {
		t.Fatalf("parsePackageEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Name != "git" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Name != "node" || entries[1].Version != "20" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if !entries[2].Cask || entries[2].Tap != "homebrew/core" {
		t.Errorf("entries[2] = %+v", entries[2])
	}
}

func TestParsePackageEntries_MapWithoutNameErrors(t *testing.T) {
	raw := map[string]any{"packages": []any{map[string]any{"version": "1.0"}}}
	if _, err := parsePackageEntries(raw); err == nil {
		t.Fatal("expected an error for a package map missing name")
	}
}

func TestHomebrewCommands_InstallArgsIncludesCaskAndVersion(t *testing.T) {
	cmds := homebrewCommands()
	args := cmds.installArgs(pkgEntry{Name: "wget", Cask: true, Version: "1.2"})
	want := []string{"brew", "install", "--cask", "wget@1.2"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args = %v, want %v", args, want)
		}
	}
}
