// Package config implements the Config Loader (§4.1): it reads the layered
// configuration file stack in precedence order, merges them into one
// immutable tree, and labels every leaf with the file it came from so that
// relative paths resolve against the right base directory and workdir-scoped
// suggestions can be extracted later.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/goccy/go-yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"

	"github.com/omnicli/omni/pkg/logger"
	"github.com/omnicli/omni/pkg/omnierr"
)

var log = logger.New("config:loader")

// Scope labels a piece of configuration as belonging to the user's global
// files or to the current workdir's repo-local files.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeWorkdir Scope = "workdir"
)

// Label records where a configuration leaf came from.
type Label struct {
	SourcePath string
	Scope      Scope
}

// listStrategy names the merge strategy a key-suffix selects (§4.1).
type listStrategy int

const (
	strategyReplace listStrategy = iota
	strategyAppend
	strategyPrepend
	strategyIfNone
)

var suffixStrategy = map[string]listStrategy{
	"__toappend":  strategyAppend,
	"__toprepend": strategyPrepend,
	"__toreplace": strategyReplace,
	"__ifnone":    strategyIfNone,
}

// Tree is the fully-merged, immutable configuration produced by Load.
type Tree struct {
	k      *koanf.Koanf
	labels map[string]Label
}

// SourceError describes a malformed configuration file with its location,
// rendered by pkg/console.FormatError the same way the teacher renders a
// compiler diagnostic.
type SourceError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *SourceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *SourceError) Unwrap() error { return omnierr.ErrConfigInvalid }

// Layer is one file in the precedence stack, already resolved to an
// absolute path and tagged with its scope.
type Layer struct {
	Path  string
	Scope Scope
}

// Load reads each layer in order (lowest precedence first) and merges them
// into a single Tree. A missing file is skipped; a malformed one aborts the
// whole load with a *SourceError carrying line/column when goccy/go-yaml can
// report it.
func Load(layers []Layer) (*Tree, error) {
	base, err := newBaseKoanf()
	if err != nil {
		return nil, fmt.Errorf("loading built-in defaults: %w", err)
	}
	t := &Tree{k: base, labels: map[string]Label{}}

	for _, layer := range layers {
		data, err := os.ReadFile(layer.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", layer.Path, err)
		}

		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, sourceErrorFromYAML(layer.Path, data, err)
		}
		if raw == nil {
			continue
		}

		log.Printf("merging layer %s (scope=%s)", layer.Path, layer.Scope)
		if err := t.mergeLayer(raw, layer); err != nil {
			return nil, fmt.Errorf("merging %s: %w", layer.Path, err)
		}
	}

	return t, nil
}

// mergeLayer applies one file's parsed tree onto the accumulator using the
// per-key suffix strategy, then labels every leaf it touched.
func (t *Tree) mergeLayer(raw map[string]any, layer Layer) error {
	normalized, flatKeys := normalizeSuffixes(raw)

	existing := t.k.Raw()
	for key, strategy := range flatKeys {
		if key == "path" {
			continue // path section is always concatenated, handled below.
		}
		applyListStrategy(existing, normalized, key, strategy)
	}

	merged := map[string]any{}
	if err := mergo.Merge(&merged, existing, mergo.WithOverride); err != nil {
		return err
	}
	opts := []func(*mergo.Config){mergo.WithOverride}
	if err := mergo.Merge(&merged, normalized, opts...); err != nil {
		return err
	}
	if pathRaw, ok := raw["path"]; ok {
		merged["path"] = t.k.Raw()["path"]
		mergePathSection(merged, pathRaw)
	}

	newK := koanf.New(".")
	if err := newK.Load(confmap.Provider(merged, "."), nil); err != nil {
		return err
	}
	t.k = newK

	for _, key := range newK.Keys() {
		if _, declared := normalized[strings.SplitN(key, ".", 2)[0]]; declared {
			t.labels[key] = Label{SourcePath: layer.Path, Scope: layer.Scope}
		}
	}
	return nil
}

// normalizeSuffixes strips a __toappend/__toprepend/__toreplace/__ifnone
// suffix from each key of raw (one level; nested maps are handled by
// applyListStrategy), returning the cleaned tree and the
// strategy selected for each affected key (default strategyReplace).
func normalizeSuffixes(raw map[string]any) (map[string]any, map[string]listStrategy) {
	clean := make(map[string]any, len(raw))
	strategies := make(map[string]listStrategy, len(raw))

	for key, value := range raw {
		base := key
		strategy := strategyReplace
		for suffix, s := range suffixStrategy {
			if strings.HasSuffix(key, suffix) {
				base = strings.TrimSuffix(key, suffix)
				strategy = s
				break
			}
		}
		clean[base] = value
		strategies[base] = strategy
	}
	return clean, strategies
}

// applyListStrategy rewrites normalized[key] in place according to strategy,
// combining it with the existing accumulated value at that key. When
// normalized[key] is a map, the suffixes on its own keys are resolved the
// same way, recursively, against the existing map at that key.
func applyListStrategy(existing, normalized map[string]any, key string, strategy listStrategy) {
	if sub, ok := normalized[key].(map[string]any); ok {
		prior, _ := existing[key].(map[string]any)
		clean, strategies := normalizeSuffixes(sub)
		for k, s := range strategies {
			applyListStrategy(prior, clean, k, s)
		}
		normalized[key] = clean
		return
	}
	incoming, ok := normalized[key].([]any)
	if !ok {
		return
	}
	prior, _ := existing[key].([]any)

	switch strategy {
	case strategyAppend:
		normalized[key] = append(append([]any{}, prior...), incoming...)
	case strategyPrepend:
		normalized[key] = append(append([]any{}, incoming...), prior...)
	case strategyIfNone:
		if len(prior) > 0 {
			normalized[key] = prior
		}
	case strategyReplace:
		// incoming already holds the replacement.
	}
}

// mergePathSection concatenates the path.append and path.prepend lists
// across layers instead of replacing them, per §4.1's special case.
func mergePathSection(merged map[string]any, incoming any) {
	incomingMap, ok := incoming.(map[string]any)
	if !ok {
		return
	}
	existing, _ := merged["path"].(map[string]any)
	if existing == nil {
		existing = map[string]any{}
	}
	for _, sub := range []string{"append", "prepend"} {
		incList, _ := incomingMap[sub].([]any)
		existingList, _ := existing[sub].([]any)
		existing[sub] = append(append([]any{}, existingList...), incList...)
	}
	for key, value := range incomingMap {
		if key != "append" && key != "prepend" {
			existing[key] = value
		}
	}
	merged["path"] = existing
}

func sourceErrorFromYAML(path string, data []byte, err error) *SourceError {
	line, col := yamlErrorPosition(err)
	return &SourceError{Path: path, Line: line, Column: col, Message: err.Error()}
}

// yamlErrorPosition extracts a line/column from a goccy/go-yaml error when
// it implements the library's line-reporting interface, falling back to
// (0, 0) for errors that don't carry a position.
func yamlErrorPosition(err error) (line, column int) {
	type positioner interface {
		Line() int
		Column() int
	}
	if pe, ok := err.(positioner); ok {
		return pe.Line(), pe.Column()
	}
	return 0, 0
}

// Get returns the value at the given dotted path, or nil if absent.
func (t *Tree) Get(path string) any {
	return t.k.Get(path)
}

// GetString returns the string value at path, or "" if absent or not a string.
func (t *Tree) GetString(path string) string {
	return t.k.String(path)
}

// Unmarshal decodes the subtree at path into out.
func (t *Tree) Unmarshal(path string, out any) error {
	return t.k.Unmarshal(path, out)
}

// Label returns the source label recorded for the leaf at the given dotted
// path, and whether one was recorded.
func (t *Tree) Label(path string) (Label, bool) {
	l, ok := t.labels[path]
	return l, ok
}

// WorkdirSuggestions returns the subset of keys labeled ScopeWorkdir under
// suggest_config/suggest_clone, preserved verbatim for the user to review
// before merging into their global configuration (never merged silently).
func (t *Tree) WorkdirSuggestions() map[string]any {
	out := map[string]any{}
	for _, prefix := range []string{"suggest_config", "suggest_clone"} {
		v := t.k.Get(prefix)
		if v == nil {
			continue
		}
		for key, l := range t.labels {
			if l.Scope == ScopeWorkdir && (key == prefix || strings.HasPrefix(key, prefix+".")) {
				out[prefix] = v
				break
			}
		}
	}
	return out
}

// Keys returns every leaf key in the merged tree, sorted for deterministic
// iteration (used by `status` rendering and round-trip tests).
func (t *Tree) Keys() []string {
	keys := t.k.Keys()
	sort.Strings(keys)
	return keys
}
