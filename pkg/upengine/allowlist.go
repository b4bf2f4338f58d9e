package upengine

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Allowlist implements the `up_command.operations.allowed` / `sources`
// supply-chain controls (spec §4.3): a list entry permits a kind or source
// by glob pattern, a leading `!` denies it. Deny entries take precedence
// over any allow entry for the same value. Patterns are matched with
// doublestar so a source entry like `https://example.com/test/*` can deny
// a whole module-path tree, not just one exact string (§8 #3).
type Allowlist struct {
	allow []string
	deny  []string
}

// NewAllowlist builds an Allowlist from the raw config entries. The zero
// value Allowlist{} is equivalent to NewAllowlist(nil): it permits
// everything, since there is no positive list to be exclusive about.
func NewAllowlist(entries []string) Allowlist {
	var al Allowlist
	for _, e := range entries {
		if strings.HasPrefix(e, "!") {
			al.deny = append(al.deny, strings.TrimPrefix(e, "!"))
		} else {
			al.allow = append(al.allow, e)
		}
	}
	return al
}

// CheckKind validates kind against the operations.allowed list.
func (al Allowlist) CheckKind(kind string) error {
	if matchesAny(al.deny, kind) {
		return fmt.Errorf("%s operation is not allowed", kind)
	}
	if len(al.allow) > 0 && !matchesAny(al.allow, kind) {
		return fmt.Errorf("%s operation is not allowed", kind)
	}
	return nil
}

// CheckSource validates a source value (URL or module/package path) for
// kind against the per-kind sources list.
func (al Allowlist) CheckSource(kind, source string) error {
	if matchesAny(al.deny, source) {
		return fmt.Errorf("%s source not allowed: %s", kind, source)
	}
	if len(al.allow) > 0 && !matchesAny(al.allow, source) {
		return fmt.Errorf("%s source not allowed: %s", kind, source)
	}
	return nil
}

func matchesAny(patterns []string, value string) bool {
	for _, p := range patterns {
		if matchPattern(p, value) {
			return true
		}
	}
	return false
}

// matchPattern glob-matches pattern against value. A leading URL scheme on
// pattern is stripped first, since sources like go-install's module paths
// are checked scheme-less while config authors write deny entries as full
// URLs (e.g. `!https://example.com/test/*` denying `example.com/test/tool`).
func matchPattern(pattern, value string) bool {
	if pattern == value {
		return true
	}
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(pattern, scheme) {
			pattern = strings.TrimPrefix(pattern, scheme)
			break
		}
	}
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}
