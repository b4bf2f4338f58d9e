// Package resolver implements the Command Resolver (§4.2): it indexes
// commands from four sources, dispatches tokens to the longest matching
// name-path, and offers did-you-mean suggestions and shell completion.
package resolver

// Source identifies where a Record came from. Order here is also dispatch
// tie-break precedence: builtin > config > makefile > path-executable.
type Source int

const (
	SourceBuiltin Source = iota
	SourceConfig
	SourceMakefile
	SourcePathExecutable
)

func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceConfig:
		return "config"
	case SourceMakefile:
		return "makefile"
	case SourcePathExecutable:
		return "path-executable"
	default:
		return "unknown"
	}
}

// Metadata carries the header-comment fields path-executable commands may
// declare, plus the help text of a Makefile target's trailing "## help"
// comment on its rule line.
type Metadata struct {
	Category      string
	Help          string
	Usage         string
	Autocomplete  string
	ConfigPath    string
	Args          map[string]string
	Opts          map[string]string
}

// Record is one entry in the command index: a name-path (["config",
// "path"] for "config path"), the source that claims it, and where to run
// it from.
type Record struct {
	NamePath []string
	Source   Source
	Run      string // shell command (config/makefile) or executable path (path-executable)
	Metadata Metadata
}

// Name joins the name-path with spaces, e.g. "config path".
func (r Record) Name() string {
	name := ""
	for i, tok := range r.NamePath {
		if i > 0 {
			name += " "
		}
		name += tok
	}
	return name
}
