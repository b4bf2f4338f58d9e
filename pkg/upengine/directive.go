package upengine

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/omnicli/omni/pkg/envops"
	"github.com/omnicli/omni/pkg/stringutil"
)

// ParseDirectives reads the $OMNI_ENV file format a custom operation's meet
// or unmeet script may append to (spec §4.3): one directive per line, plus
// three here-doc forms for multi-line values. Each operator's VALUE portion
// is re-tokenized with google/shlex so a shell-quoted value (spaces,
// embedded quotes) round-trips correctly instead of being split on
// whitespace.
func ParseDirectives(r io.Reader) (envops.Fragment, error) {
	scanner := bufio.NewScanner(r)
	var frag envops.Fragment
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		op, err := parseDirectiveLine(line, scanner)
		if err != nil {
			return nil, err
		}
		frag = append(frag, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("upengine: reading env-ops directives: %w", err)
	}
	return frag, nil
}

// parseDirectiveLine parses one directive. For here-doc forms it consumes
// further lines from scanner until the delimiter.
func parseDirectiveLine(line string, scanner *bufio.Scanner) (envops.Op, error) {
	if rest, ok := cutPrefixWord(line, "unset"); ok {
		return envops.Op{Kind: envops.KindUnset, Var: strings.TrimSpace(rest)}, nil
	}

	// Scalar/list operators are checked before the bare here-doc forms:
	// "<<=" and ">>=" both contain "<<"/">>", so a naive here-doc-first
	// scan would misparse a list-prepend/append directive as a here-doc.
	for _, op := range scalarOperators {
		if idx := strings.Index(line, op.token); idx >= 0 {
			varName := strings.TrimSpace(line[:idx])
			rawValue := line[idx+len(op.token):]
			value, err := unquoteValue(rawValue)
			if err != nil {
				return envops.Op{}, fmt.Errorf("upengine: directive %q: %w", stringutil.SanitizeErrorMessage(line), err)
			}
			return envops.Op{Kind: op.kind, Var: varName, Value: value, Separator: ":"}, nil
		}
	}

	for _, form := range heredocForms {
		if idx := strings.Index(line, form.token); idx >= 0 {
			varName := strings.TrimSpace(line[:idx])
			delim := strings.TrimSpace(line[idx+len(form.token):])
			value, err := readHeredoc(scanner, delim, form.stripMode)
			if err != nil {
				return envops.Op{}, err
			}
			return envops.Op{Kind: envops.KindSet, Var: varName, Value: value}, nil
		}
	}

	return envops.Op{}, fmt.Errorf("upengine: unrecognized env-ops directive: %q", stringutil.SanitizeErrorMessage(line))
}

type scalarOperator struct {
	token string
	kind  envops.Kind
}

// Ordered longest-token-first so "<<=" isn't mistaken for "<=", etc.
var scalarOperators = []scalarOperator{
	{"<<=", envops.KindListPrepend},
	{">>=", envops.KindListAppend},
	{"<=", envops.KindPrefix},
	{">=", envops.KindSuffix},
	{"-=", envops.KindListRemove},
	{"=", envops.KindSet},
}

type heredocForm struct {
	token     string
	stripMode string // "", "tabs", "indent"
}

var heredocForms = []heredocForm{
	{"<<~", "indent"},
	{"<<-", "tabs"},
	{"<<", ""},
}

func cutPrefixWord(line, word string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == word {
		return "", true
	}
	if strings.HasPrefix(trimmed, word+" ") {
		return strings.TrimPrefix(trimmed, word+" "), true
	}
	return "", false
}

func unquoteValue(raw string) (string, error) {
	tokens, err := shlex.Split(raw)
	if err != nil {
		return "", err
	}
	return strings.Join(tokens, " "), nil
}

func readHeredoc(scanner *bufio.Scanner, delim, stripMode string) (string, error) {
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == delim {
			return finishHeredoc(lines, stripMode), nil
		}
		lines = append(lines, line)
	}
	return "", fmt.Errorf("upengine: unterminated here-doc (missing delimiter %q)", delim)
}

func finishHeredoc(lines []string, stripMode string) string {
	switch stripMode {
	case "tabs":
		for i, l := range lines {
			lines[i] = strings.TrimLeft(l, "\t")
		}
	case "indent":
		lines = stripCommonIndent(lines)
	}
	return strings.Join(lines, "\n")
}

func stripCommonIndent(lines []string) []string {
	minIndent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		indent := len(l) - len(strings.TrimLeft(l, " \t"))
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent <= 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= minIndent {
			out[i] = l[minIndent:]
		} else {
			out[i] = strings.TrimLeft(l, " \t")
		}
	}
	return out
}
