package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_DefaultsSurviveWithNoLayers(t *testing.T) {
	tree, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "%{host}/%{org}/%{repo}", tree.GetString("repo_path_format"))
}

func TestLoad_LaterLayerOverridesScalar(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "low.yaml")
	high := filepath.Join(dir, "high.yaml")
	writeFile(t, low, "repo_path_format: \"%{org}/%{repo}\"\n")
	writeFile(t, high, "repo_path_format: \"%{host}-%{org}-%{repo}\"\n")

	tree, err := Load([]Layer{
		{Path: low, Scope: ScopeGlobal},
		{Path: high, Scope: ScopeWorkdir},
	})
	require.NoError(t, err)
	require.Equal(t, "%{host}-%{org}-%{repo}", tree.GetString("repo_path_format"))
}

func TestLoad_ListsReplaceByDefault(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "low.yaml")
	high := filepath.Join(dir, "high.yaml")
	writeFile(t, low, "commands:\n  tags: [a, b]\n")
	writeFile(t, high, "commands:\n  tags: [c]\n")

	tree, err := Load([]Layer{
		{Path: low, Scope: ScopeGlobal},
		{Path: high, Scope: ScopeWorkdir},
	})
	require.NoError(t, err)
	require.Equal(t, []any{"c"}, tree.Get("commands.tags"))
}

func TestLoad_ToAppendSuffixConcatenates(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "low.yaml")
	high := filepath.Join(dir, "high.yaml")
	writeFile(t, low, "commands:\n  tags: [a, b]\n")
	writeFile(t, high, "commands:\n  tags__toappend: [c]\n")

	tree, err := Load([]Layer{
		{Path: low, Scope: ScopeGlobal},
		{Path: high, Scope: ScopeWorkdir},
	})
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b", "c"}, tree.Get("commands.tags"))
}

func TestLoad_PathSectionAlwaysConcatenates(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "low.yaml")
	high := filepath.Join(dir, "high.yaml")
	writeFile(t, low, "path:\n  append: [/opt/tools]\n")
	writeFile(t, high, "path:\n  append: [/opt/more]\n")

	tree, err := Load([]Layer{
		{Path: low, Scope: ScopeGlobal},
		{Path: high, Scope: ScopeWorkdir},
	})
	require.NoError(t, err)
	require.Equal(t, []any{"/opt/tools", "/opt/more"}, tree.Get("path.append"))
}

func TestLoad_MalformedYAMLReturnsSourceError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "commands:\n  - this is not\n a valid: [mapping\n")

	_, err := Load([]Layer{{Path: bad, Scope: ScopeGlobal}})
	require.Error(t, err)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	require.Equal(t, bad, srcErr.Path)
}

func TestLoad_MissingFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	tree, err := Load([]Layer{{Path: filepath.Join(dir, "missing.yaml"), Scope: ScopeGlobal}})
	require.NoError(t, err)
	require.Nil(t, tree.Get("commands"))
}

func TestLoad_Determinism(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "config.yaml")
	writeFile(t, f, "repo_path_format: \"%{org}/%{repo}\"\ncommands:\n  tags: [a, b]\n")
	layers := []Layer{{Path: f, Scope: ScopeWorkdir}}

	t1, err := Load(layers)
	require.NoError(t, err)
	t2, err := Load(layers)
	require.NoError(t, err)
	require.Equal(t, t1.Keys(), t2.Keys())
	require.Equal(t, t1.Get("commands.tags"), t2.Get("commands.tags"))
}

func TestDiscoverLayers_RepoLocalOnlyWhenInGitRepo(t *testing.T) {
	root := "/tmp/some-repo"
	withRepo := DiscoverLayers(root, true)
	withoutRepo := DiscoverLayers(root, false)
	require.Greater(t, len(withRepo), len(withoutRepo))
}
