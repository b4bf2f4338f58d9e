package resolver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseMakefile_ExtractsHelpAndCategory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Makefile")
	content := `##@ Build

build: ## Build the binary
	go build ./...

##@ Test

test: ## Run the test suite
	go test ./...

internal-no-help:
	echo skip
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records := parseMakefile(path)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	if records[0].NamePath[0] != "build" || records[0].Metadata.Category != "Build" {
		t.Errorf("build record = %+v", records[0])
	}
	if records[1].NamePath[0] != "test" || records[1].Metadata.Category != "Test" {
		t.Errorf("test record = %+v", records[1])
	}
}

func TestParseHeaderComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.sh")
	content := `#!/usr/bin/env bash
# category: infra
# help: deploy the current workdir
# arg:env:target environment
echo deploying
`
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}

	meta := parseHeaderComments(path)
	if meta.Category != "infra" {
		t.Errorf("Category = %q, want %q", meta.Category, "infra")
	}
	if meta.Help != "deploy the current workdir" {
		t.Errorf("Help = %q", meta.Help)
	}
	if meta.Args["env"] != "target environment" {
		t.Errorf("Args[env] = %q", meta.Args["env"])
	}
}
