package shellenv

import (
	"fmt"
	"strings"

	"github.com/omnicli/omni/pkg/envops"
	"github.com/omnicli/omni/pkg/stringutil"
)

// Shell names the shell dialect a script is emitted for.
type Shell string

const (
	Bash Shell = "bash"
	Zsh  Shell = "zsh"
	Fish Shell = "fish"
)

// Emit renders ops as shell code for shell, applied against the live
// environment at eval time rather than a value precomputed in Go: list
// mutations read and rewrite "$VAR" in place so concurrent contributors
// compose. Per §4.5, every user-provided value is quoted; nothing is
// interpolated unquoted.
func Emit(shell Shell, ops envops.Fragment) (string, error) {
	switch shell {
	case Bash, Zsh:
		return stringutil.NormalizeWhitespace(emitPosix(ops)), nil
	case Fish:
		return stringutil.NormalizeWhitespace(emitFish(ops)), nil
	default:
		return "", fmt.Errorf("shellenv: unsupported shell %q", shell)
	}
}

// InitScript returns the function the user's rc file sources: a prompt
// hook that calls `omni hook env`, evals its output, and remembers the
// applied snapshot id in $OMNI_LOADED_SNAPSHOT for the next invocation
// (§4.5's shell hook protocol, step 1).
func InitScript(shell Shell) string {
	switch shell {
	case Bash:
		return `_omni_hook() {
	local __omni_script
	__omni_script="$(OMNI_LOADED_SNAPSHOT="$OMNI_LOADED_SNAPSHOT" omni hook env --shell bash)" || return 0
	eval "$__omni_script"
}
if [[ ";${PROMPT_COMMAND:-};" != *";_omni_hook;"* ]]; then
	PROMPT_COMMAND="_omni_hook;${PROMPT_COMMAND:-}"
fi
`
	case Zsh:
		return `_omni_hook() {
	local __omni_script
	__omni_script="$(OMNI_LOADED_SNAPSHOT="$OMNI_LOADED_SNAPSHOT" omni hook env --shell zsh)" || return 0
	eval "$__omni_script"
}
autoload -Uz add-zsh-hook
add-zsh-hook precmd _omni_hook
`
	case Fish:
		return `function _omni_hook --on-event fish_prompt
	set -l __omni_script (env OMNI_LOADED_SNAPSHOT="$OMNI_LOADED_SNAPSHOT" omni hook env --shell fish | string collect)
	if test -n "$__omni_script"
		eval "$__omni_script"
	end
end
`
	default:
		return ""
	}
}

func needsListHelpers(ops envops.Fragment) bool {
	for _, op := range ops {
		switch op.Kind {
		case envops.KindListPrepend, envops.KindListAppend, envops.KindListRemove,
			envops.KindListRemoveFirst, envops.KindListRemoveLast:
			return true
		}
	}
	return false
}

// posixQuote single-quotes s for bash/zsh, closing and reopening the
// quote around any embedded single quote: ' -> '\''. Quoting a pattern
// word this way also makes bash/zsh treat it as a literal match in
// ${VAR#pattern}/${VAR%pattern}, so the same helper serves both
// value-assignment and prefix/suffix-removal positions.
func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func emitPosix(ops envops.Fragment) string {
	var b strings.Builder
	if needsListHelpers(ops) {
		b.WriteString(posixListHelpers)
	}
	for _, op := range ops {
		sep := op.Separator
		if sep == "" {
			sep = ":"
		}
		switch op.Kind {
		case envops.KindSet:
			fmt.Fprintf(&b, "export %s=%s\n", op.Var, posixQuote(op.Value))
		case envops.KindUnset:
			fmt.Fprintf(&b, "unset %s\n", op.Var)
		case envops.KindPrefix:
			fmt.Fprintf(&b, "export %s=%s\"$%s\"\n", op.Var, posixQuote(op.Value), op.Var)
		case envops.KindSuffix:
			fmt.Fprintf(&b, "export %s=\"$%s\"%s\n", op.Var, op.Var, posixQuote(op.Value))
		case envops.KindUnprefix:
			fmt.Fprintf(&b, "export %s=\"${%s#%s}\"\n", op.Var, op.Var, posixQuote(op.Value))
		case envops.KindUnsuffix:
			fmt.Fprintf(&b, "export %s=\"${%s%%%s}\"\n", op.Var, op.Var, posixQuote(op.Value))
		case envops.KindListPrepend:
			fmt.Fprintf(&b, "_omni_list_prepend %s %s %s\n", op.Var, posixQuote(sep), posixQuote(op.Value))
		case envops.KindListAppend:
			fmt.Fprintf(&b, "_omni_list_append %s %s %s\n", op.Var, posixQuote(sep), posixQuote(op.Value))
		case envops.KindListRemove:
			fmt.Fprintf(&b, "_omni_list_remove %s %s %s\n", op.Var, posixQuote(sep), posixQuote(op.Value))
		case envops.KindListRemoveFirst:
			fmt.Fprintf(&b, "_omni_list_remove_first %s %s %s\n", op.Var, posixQuote(sep), posixQuote(op.Value))
		case envops.KindListRemoveLast:
			fmt.Fprintf(&b, "_omni_list_remove_last %s %s %s\n", op.Var, posixQuote(sep), posixQuote(op.Value))
		}
	}
	return b.String()
}

// posixListHelpers are POSIX sh functions (work unmodified under bash and
// zsh) that read a named variable indirectly via eval, since parameter
// name indirection ("${!name}") isn't portable between the two.
const posixListHelpers = `_omni_list_prepend() {
	eval "_omni_cur=\"\${$1-}\""
	if [ -z "$_omni_cur" ]; then
		eval "export $1=\"\$3\""
	else
		eval "export $1=\"\$3\$2\$_omni_cur\""
	fi
	unset _omni_cur
}
_omni_list_append() {
	eval "_omni_cur=\"\${$1-}\""
	if [ -z "$_omni_cur" ]; then
		eval "export $1=\"\$3\""
	else
		eval "export $1=\"\$_omni_cur\$2\$3\""
	fi
	unset _omni_cur
}
_omni_list_remove() {
	eval "_omni_cur=\"\${$1-}\""
	_omni_result=""
	_omni_old_ifs="$IFS"
	IFS="$2"
	for _omni_part in $_omni_cur; do
		if [ "$_omni_part" != "$3" ]; then
			if [ -z "$_omni_result" ]; then
				_omni_result="$_omni_part"
			else
				_omni_result="$_omni_result$2$_omni_part"
			fi
		fi
	done
	IFS="$_omni_old_ifs"
	eval "export $1=\"\$_omni_result\""
	unset _omni_result _omni_old_ifs _omni_part
}
_omni_list_remove_first() {
	eval "_omni_cur=\"\${$1-}\""
	_omni_result=""
	_omni_removed=0
	_omni_old_ifs="$IFS"
	IFS="$2"
	for _omni_part in $_omni_cur; do
		if [ "$_omni_removed" -eq 0 ] && [ "$_omni_part" = "$3" ]; then
			_omni_removed=1
			continue
		fi
		if [ -z "$_omni_result" ]; then
			_omni_result="$_omni_part"
		else
			_omni_result="$_omni_result$2$_omni_part"
		fi
	done
	IFS="$_omni_old_ifs"
	eval "export $1=\"\$_omni_result\""
	unset _omni_result _omni_old_ifs _omni_part _omni_removed
}
_omni_list_remove_last() {
	eval "_omni_cur=\"\${$1-}\""
	_omni_old_ifs="$IFS"
	IFS="$2"
	_omni_last_idx=-1
	_omni_i=0
	for _omni_part in $_omni_cur; do
		if [ "$_omni_part" = "$3" ]; then
			_omni_last_idx=$_omni_i
		fi
		_omni_i=$((_omni_i + 1))
	done
	_omni_result=""
	_omni_i=0
	for _omni_part in $_omni_cur; do
		if [ "$_omni_i" -eq "$_omni_last_idx" ]; then
			_omni_i=$((_omni_i + 1))
			continue
		fi
		if [ -z "$_omni_result" ]; then
			_omni_result="$_omni_part"
		else
			_omni_result="$_omni_result$2$_omni_part"
		fi
		_omni_i=$((_omni_i + 1))
	done
	IFS="$_omni_old_ifs"
	eval "export $1=\"\$_omni_result\""
	unset _omni_result _omni_old_ifs _omni_part _omni_last_idx _omni_i
}
`

// fishQuote single-quotes s for fish, whose single-quoted strings only
// recognize \\ and \' as escapes.
func fishQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func emitFish(ops envops.Fragment) string {
	var b strings.Builder
	if needsListHelpers(ops) {
		b.WriteString(fishListHelpers)
	}
	for _, op := range ops {
		sep := op.Separator
		if sep == "" {
			sep = ":"
		}
		switch op.Kind {
		case envops.KindSet:
			fmt.Fprintf(&b, "set -gx %s %s\n", op.Var, fishQuote(op.Value))
		case envops.KindUnset:
			fmt.Fprintf(&b, "set -e %s\n", op.Var)
		case envops.KindPrefix:
			fmt.Fprintf(&b, "set -gx %s %s\"$%s\"\n", op.Var, fishQuote(op.Value), op.Var)
		case envops.KindSuffix:
			fmt.Fprintf(&b, "set -gx %s \"$%s\"%s\n", op.Var, op.Var, fishQuote(op.Value))
		case envops.KindUnprefix:
			fmt.Fprintf(&b, "_omni_unprefix %s %s\n", op.Var, fishQuote(op.Value))
		case envops.KindUnsuffix:
			fmt.Fprintf(&b, "_omni_unsuffix %s %s\n", op.Var, fishQuote(op.Value))
		case envops.KindListPrepend:
			fmt.Fprintf(&b, "_omni_list_prepend %s %s %s\n", op.Var, fishQuote(sep), fishQuote(op.Value))
		case envops.KindListAppend:
			fmt.Fprintf(&b, "_omni_list_append %s %s %s\n", op.Var, fishQuote(sep), fishQuote(op.Value))
		case envops.KindListRemove:
			fmt.Fprintf(&b, "_omni_list_remove %s %s %s\n", op.Var, fishQuote(sep), fishQuote(op.Value))
		case envops.KindListRemoveFirst:
			fmt.Fprintf(&b, "_omni_list_remove_first %s %s %s\n", op.Var, fishQuote(sep), fishQuote(op.Value))
		case envops.KindListRemoveLast:
			fmt.Fprintf(&b, "_omni_list_remove_last %s %s %s\n", op.Var, fishQuote(sep), fishQuote(op.Value))
		}
	}
	return b.String()
}

const fishListHelpers = `function _omni_unprefix
	set -l cur (set -q $argv[1]; and eval "echo \$$argv[1]"; or echo '')
	set -gx $argv[1] (string replace -- "$argv[2]" '' "$cur")
end
function _omni_unsuffix
	set -l cur (set -q $argv[1]; and eval "echo \$$argv[1]"; or echo '')
	set -gx $argv[1] (string replace -- "$argv[2]" '' "$cur")
end
function _omni_list_prepend
	set -l cur (set -q $argv[1]; and eval "echo \$$argv[1]"; or echo '')
	if test -z "$cur"
		set -gx $argv[1] $argv[3]
	else
		set -gx $argv[1] "$argv[3]$argv[2]$cur"
	end
end
function _omni_list_append
	set -l cur (set -q $argv[1]; and eval "echo \$$argv[1]"; or echo '')
	if test -z "$cur"
		set -gx $argv[1] $argv[3]
	else
		set -gx $argv[1] "$cur$argv[2]$argv[3]"
	end
end
function _omni_list_remove
	set -l cur (set -q $argv[1]; and eval "echo \$$argv[1]"; or echo '')
	set -l parts (string split $argv[2] -- $cur)
	set -l kept
	for part in $parts
		if test "$part" != "$argv[3]"
			set kept $kept $part
		end
	end
	set -gx $argv[1] (string join $argv[2] $kept)
end
function _omni_list_remove_first
	set -l cur (set -q $argv[1]; and eval "echo \$$argv[1]"; or echo '')
	set -l parts (string split $argv[2] -- $cur)
	set -l kept
	set -l removed 0
	for part in $parts
		if test $removed -eq 0
			if test "$part" = "$argv[3]"
				set removed 1
				continue
			end
		end
		set kept $kept $part
	end
	set -gx $argv[1] (string join $argv[2] $kept)
end
function _omni_list_remove_last
	set -l cur (set -q $argv[1]; and eval "echo \$$argv[1]"; or echo '')
	set -l parts (string split $argv[2] -- $cur)
	set -l last_idx -1
	for i in (seq (count $parts))
		if test "$parts[$i]" = "$argv[3]"
			set last_idx $i
		end
	end
	set -l kept
	for i in (seq (count $parts))
		if test $i -eq $last_idx
			continue
		end
		set kept $kept $parts[$i]
	end
	set -gx $argv[1] (string join $argv[2] $kept)
end
`
