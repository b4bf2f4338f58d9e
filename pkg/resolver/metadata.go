package resolver

import (
	"bufio"
	"os"
	"strings"
)

// parseHeaderComments reads the leading "# key: value" comment block of a
// path-executable file (§4.2). Headers stop at the first non-"#" line.
// Unreadable files yield a zero Metadata rather than an error.
func parseHeaderComments(path string) Metadata {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}
	}
	defer f.Close()

	meta := Metadata{Args: map[string]string{}, Opts: map[string]string{}}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#") {
			break
		}
		body := strings.TrimSpace(strings.TrimPrefix(line, "#"))

		switch {
		case consumeField(body, "category:", &meta.Category):
		case consumeField(body, "autocompletion:", &meta.Autocomplete):
		case consumeField(body, "config:", &meta.ConfigPath):
		case consumeField(body, "help:", &meta.Help):
		case consumeField(body, "usage:", &meta.Usage):
		case strings.HasPrefix(body, "arg:"):
			consumeKeyedField(body, "arg:", meta.Args)
		case strings.HasPrefix(body, "opt:"):
			consumeKeyedField(body, "opt:", meta.Opts)
		}
	}
	return meta
}

// consumeField extracts "<prefix> value" into dest, returning whether the
// prefix matched.
func consumeField(body, prefix string, dest *string) bool {
	if !strings.HasPrefix(body, prefix) {
		return false
	}
	*dest = strings.TrimSpace(strings.TrimPrefix(body, prefix))
	return true
}

// consumeKeyedField parses "<prefix><name>:<desc>" into dest[name] = desc.
func consumeKeyedField(body, prefix string, dest map[string]string) {
	rest := strings.TrimPrefix(body, prefix)
	name, desc, ok := strings.Cut(rest, ":")
	if !ok {
		return
	}
	dest[strings.TrimSpace(name)] = strings.TrimSpace(desc)
}
