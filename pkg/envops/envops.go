// Package envops defines the environment mutation primitives produced by
// up engine operations and consumed by the shell environment channel (§3's
// Environment Snapshot, §4.3's custom operation directive grammar).
package envops

// Kind names one environment mutation.
type Kind string

const (
	KindSet         Kind = "set"
	KindUnset       Kind = "unset"
	KindPrefix      Kind = "prefix"
	KindSuffix      Kind = "suffix"
	KindListPrepend Kind = "list-prepend"
	KindListAppend  Kind = "list-append"
	KindListRemove  Kind = "list-remove"

	// KindUnprefix and KindUnsuffix only ever appear in an inverted
	// Fragment (§4.5 down): they strip the exact substring a prior
	// KindPrefix/KindSuffix added, rather than a list element.
	KindUnprefix Kind = "unprefix"
	KindUnsuffix Kind = "unsuffix"

	// KindListRemoveFirst and KindListRemoveLast only ever appear in an
	// inverted Fragment: unlike the user-authored KindListRemove (which
	// strips every occurrence), these strip exactly one occurrence of
	// Value, from the front or back of the list respectively, undoing a
	// single KindListPrepend/KindListAppend contribution without
	// disturbing any other contributor of the same value (§8: "removes
	// exactly one occurrence of X at the prepended position").
	KindListRemoveFirst Kind = "list-remove-first"
	KindListRemoveLast  Kind = "list-remove-last"
)

// Op is one environment mutation: set VAR=Value, unset VAR, or a
// list/scalar transform of VAR by Value. Separator is only meaningful for
// the list-* kinds (":" for PATH-like variables).
type Op struct {
	Kind      Kind   `json:"kind"`
	Var       string `json:"var"`
	Value     string `json:"value,omitempty"`
	Separator string `json:"separator,omitempty"`
}

// Fragment is the ordered list of Ops one operation's Up (or Down)
// contributes to the Environment Snapshot.
type Fragment []Op

// Apply applies ops in order to a starting environment map, returning the
// resulting map. Used both to compute a snapshot's effect and, with the
// ops reversed and inverted by Invert, to undo one.
func Apply(env map[string]string, ops Fragment) map[string]string {
	result := make(map[string]string, len(env))
	for k, v := range env {
		result[k] = v
	}
	for _, op := range ops {
		applyOne(result, op)
	}
	return result
}

func applyOne(env map[string]string, op Op) {
	sep := op.Separator
	if sep == "" {
		sep = ":"
	}
	switch op.Kind {
	case KindSet:
		env[op.Var] = op.Value
	case KindUnset:
		delete(env, op.Var)
	case KindPrefix:
		env[op.Var] = op.Value + env[op.Var]
	case KindSuffix:
		env[op.Var] = env[op.Var] + op.Value
	case KindListPrepend:
		env[op.Var] = prependList(env[op.Var], op.Value, sep)
	case KindListAppend:
		env[op.Var] = appendList(env[op.Var], op.Value, sep)
	case KindListRemove:
		env[op.Var] = removeFromList(env[op.Var], op.Value, sep)
	case KindListRemoveFirst:
		env[op.Var] = removeOneFromList(env[op.Var], op.Value, sep, true)
	case KindListRemoveLast:
		env[op.Var] = removeOneFromList(env[op.Var], op.Value, sep, false)
	case KindUnprefix:
		env[op.Var] = trimPrefixOnce(env[op.Var], op.Value)
	case KindUnsuffix:
		env[op.Var] = trimSuffixOnce(env[op.Var], op.Value)
	}
}

func trimPrefixOnce(value, prefix string) string {
	if len(value) >= len(prefix) && value[:len(prefix)] == prefix {
		return value[len(prefix):]
	}
	return value
}

func trimSuffixOnce(value, suffix string) string {
	if len(value) >= len(suffix) && value[len(value)-len(suffix):] == suffix {
		return value[:len(value)-len(suffix)]
	}
	return value
}

func splitList(value, sep string) []string {
	if value == "" {
		return nil
	}
	var parts []string
	start := 0
	for i := 0; i+len(sep) <= len(value); i++ {
		if value[i:i+len(sep)] == sep {
			parts = append(parts, value[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	parts = append(parts, value[start:])
	return parts
}

func joinList(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func prependList(value, item, sep string) string {
	return joinList(append([]string{item}, splitList(value, sep)...), sep)
}

func appendList(value, item, sep string) string {
	return joinList(append(splitList(value, sep), item), sep)
}

// removeFromList strips every occurrence of item, the user-authored
// `VAR-=VALUE` custom directive's semantics.
func removeFromList(value, item, sep string) string {
	var out []string
	for _, part := range splitList(value, sep) {
		if part != item {
			out = append(out, part)
		}
	}
	return joinList(out, sep)
}

// removeOneFromList strips exactly one occurrence of item: the first if
// fromFront, otherwise the last. Used to invert a single list-prepend or
// list-append contribution without touching any other contributor of the
// same value.
func removeOneFromList(value, item, sep string, fromFront bool) string {
	parts := splitList(value, sep)
	idx := -1
	if fromFront {
		for i, p := range parts {
			if p == item {
				idx = i
				break
			}
		}
	} else {
		for i := len(parts) - 1; i >= 0; i-- {
			if parts[i] == item {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return joinList(parts, sep)
	}
	out := make([]string, 0, len(parts)-1)
	out = append(out, parts[:idx]...)
	out = append(out, parts[idx+1:]...)
	return joinList(out, sep)
}

// Invert returns the Fragment that undoes ops when applied after it, used
// by `down` to unwind a snapshot's env-ops precisely rather than by a
// blanket reset (§4.5: "must precisely remove the values that were added").
func Invert(ops Fragment, before map[string]string) Fragment {
	inverted := make(Fragment, 0, len(ops))
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		switch op.Kind {
		case KindSet:
			if prior, had := before[op.Var]; had {
				inverted = append(inverted, Op{Kind: KindSet, Var: op.Var, Value: prior})
			} else {
				inverted = append(inverted, Op{Kind: KindUnset, Var: op.Var})
			}
		case KindUnset:
			if prior, had := before[op.Var]; had {
				inverted = append(inverted, Op{Kind: KindSet, Var: op.Var, Value: prior})
			}
		case KindPrefix:
			inverted = append(inverted, Op{Kind: KindUnprefix, Var: op.Var, Value: op.Value})
		case KindSuffix:
			inverted = append(inverted, Op{Kind: KindUnsuffix, Var: op.Var, Value: op.Value})
		case KindListPrepend:
			inverted = append(inverted, Op{Kind: KindListRemoveFirst, Var: op.Var, Value: op.Value, Separator: op.Separator})
		case KindListAppend:
			inverted = append(inverted, Op{Kind: KindListRemoveLast, Var: op.Var, Value: op.Value, Separator: op.Separator})
		case KindListRemove:
			inverted = append(inverted, Op{Kind: KindListAppend, Var: op.Var, Value: op.Value, Separator: op.Separator})
		}
	}
	return inverted
}
