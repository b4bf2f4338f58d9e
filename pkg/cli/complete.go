package cli

import (
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/omnicli/omni/pkg/resolver"
)

// Complete implements the dynamic half of the `--complete` protocol (§6:
// "Completion is offered via a --complete flag on any command"; §1:
// "delegates completion"). tokens are the command line's arguments
// following `--complete`. COMP_CWORD (§6's env var) names the index of
// the token currently being completed; when absent, the word after the
// last given token is assumed.
//
// If tokens resolve to a command that declares `# autocompletion:`
// metadata, that command is re-invoked with a sentinel flag and the
// residual argv, and its stdout lines become the candidates. Otherwise
// completion falls back to command-name completion over the resolver's
// index.
func Complete(tokens []string) ([]string, error) {
	app, err := loadContext()
	if err != nil {
		return nil, err
	}
	idx := buildResolverIndex(app)

	cword := compCword(len(tokens))
	prefixLen := cword
	if prefixLen > len(tokens) {
		prefixLen = len(tokens)
	}
	current := ""
	if cword < len(tokens) {
		current = tokens[cword]
	}
	prefix := tokens[:prefixLen]

	if rec, argv, ok := idx.Dispatch(prefix); ok && declaresAutocomplete(rec) {
		return delegateAutocomplete(rec.Run, argv, current)
	}

	return completeNames(idx, prefix, current), nil
}

// compCword reads COMP_CWORD, defaulting to "complete the word past every
// token given" when it's unset or unparseable.
func compCword(nTokens int) int {
	if v := os.Getenv("COMP_CWORD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return nTokens
}

// completeNames offers the next name-path token for every record whose
// name-path starts with prefix and whose next token starts with current.
func completeNames(idx *resolver.Index, prefix []string, current string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range idx.Records() {
		if len(rec.NamePath) <= len(prefix) {
			continue
		}
		match := true
		for i, tok := range prefix {
			if rec.NamePath[i] != tok {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		next := rec.NamePath[len(prefix)]
		if !strings.HasPrefix(next, current) || seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
	}
	sort.Strings(out)
	return out
}

// declaresAutocomplete reports whether rec's `# autocompletion:` header
// (or config-declared equivalent) opts into delegated completion.
func declaresAutocomplete(rec resolver.Record) bool {
	switch strings.ToLower(strings.TrimSpace(rec.Metadata.Autocomplete)) {
	case "", "false", "no", "0":
		return false
	default:
		return rec.Run != ""
	}
}

// delegateAutocomplete re-invokes a path-executable command's own
// completion hook, passing the residual argv and the in-progress word,
// with OMNI_COMPLETE=1 as the sentinel the command checks for (§4.2).
func delegateAutocomplete(run string, argv []string, current string) ([]string, error) {
	args := append(append([]string{}, argv...), current)
	cmd := exec.Command(run, args...)
	cmd.Env = append(os.Environ(), "OMNI_COMPLETE=1")
	out, err := cmd.Output()
	if err != nil {
		return nil, nil
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	var candidates []string
	for _, l := range lines {
		if l != "" {
			candidates = append(candidates, l)
		}
	}
	return candidates, nil
}
