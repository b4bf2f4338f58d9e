package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sourcegraph/conc/pool"

	"github.com/omnicli/omni/pkg/logger"
)

var log = logger.New("resolver:index")

// Index is the rebuilt-per-invocation command table (§4.2: "Stateless per
// invocation; index is rebuilt from disk").
type Index struct {
	records map[string]Record // keyed by Name()
}

// ConfigCommand is one entry under the merged config's `commands` key.
type ConfigCommand struct {
	NamePath []string
	Run      string
	Metadata Metadata
}

// BuildOptions parametrizes index construction.
type BuildOptions struct {
	Builtins        []Record
	ConfigCommands  []ConfigCommand
	WorkdirRoot     string
	RepoRoot        string
	HomeDir         string
	Omnipath        []string
	IgnoreGlobs     []string
	SplitOnDash     bool
	SplitOnSlash    bool
}

// Build indexes all four sources (§4.2). The omnipath scan and the
// Makefile upward walk run concurrently since neither depends on the
// other; first-writer-wins is enforced afterward by insertion order
// (builtin, then config, then makefile, then path-executable).
func Build(opts BuildOptions) *Index {
	var makefileRecords, pathRecords []Record

	p := pool.New().WithMaxGoroutines(2)
	p.Go(func() {
		makefileRecords = walkMakefiles(opts.WorkdirRoot, opts.RepoRoot, opts.HomeDir)
	})
	p.Go(func() {
		pathRecords = scanOmnipath(opts.Omnipath, opts.IgnoreGlobs)
	})
	p.Wait()

	idx := &Index{records: map[string]Record{}}
	for _, r := range opts.Builtins {
		idx.claim(r)
	}
	for _, c := range opts.ConfigCommands {
		for _, namePath := range expandSplits(c.NamePath, opts.SplitOnDash, opts.SplitOnSlash) {
			idx.claim(Record{NamePath: namePath, Source: SourceConfig, Run: c.Run, Metadata: c.Metadata})
		}
	}
	for _, r := range makefileRecords {
		idx.claim(r)
	}
	for _, r := range pathRecords {
		idx.claim(r)
	}
	return idx
}

// claim inserts r only if its name-path isn't already owned — first-writer-wins.
func (idx *Index) claim(r Record) {
	name := r.Name()
	if _, exists := idx.records[name]; exists {
		log.Printf("name-path %q already claimed by %s, dropping %s entry", name, idx.records[name].Source, r.Source)
		return
	}
	idx.records[name] = r
}

// Records returns every indexed record, sorted by name for deterministic
// iteration (completion, `help`).
func (idx *Index) Records() []Record {
	out := make([]Record, 0, len(idx.records))
	for _, r := range idx.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// expandSplits applies config_commands.split_on_dash/split_on_slash: a
// single declared name like "config-path" or "config/path" also registers
// as the multi-token name-path ["config", "path"], in addition to its
// literal single-token form. Once split, a name-path is never re-split
// (§9: "split once, cache the resulting name-path, never re-split aliases").
func expandSplits(namePath []string, splitDash, splitSlash bool) [][]string {
	variants := [][]string{namePath}
	if len(namePath) != 1 {
		return variants
	}
	name := namePath[0]
	sep := ""
	switch {
	case splitDash && strings.Contains(name, "-"):
		sep = "-"
	case splitSlash && strings.Contains(name, "/"):
		sep = "/"
	default:
		return variants
	}
	return append(variants, strings.Split(name, sep))
}

func scanOmnipath(dirs []string, ignoreGlobs []string) []Record {
	var records []Record
	for _, dir := range dirs {
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // tolerate unreadable files silently
			}
			if d.IsDir() {
				for _, pattern := range ignoreGlobs {
					if ok, _ := doublestar.Match(pattern, path); ok {
						return filepath.SkipDir
					}
				}
				return nil
			}
			info, err := d.Info()
			if err != nil || info.Mode()&0o111 == 0 {
				return nil
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			records = append(records, Record{
				NamePath: []string{name},
				Source:   SourcePathExecutable,
				Run:      path,
				Metadata: parseHeaderComments(path),
			})
			return nil
		})
	}
	return records
}
