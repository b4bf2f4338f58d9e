package versionmanager

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// autoVersionFiles names the project file each language tool's "auto"
// requirement (§4.3: "parse project files") reads a version from, tried in
// order until one exists.
var autoVersionFiles = map[string][]string{
	"ruby":   {".ruby-version"},
	"node":   {".nvmrc", ".node-version"},
	"python": {".python-version"},
	"rust":   {"rust-toolchain", "rust-toolchain.toml"},
}

var goDirectiveRE = regexp.MustCompile(`(?m)^go\s+(\d+\.\d+(?:\.\d+)?)\s*$`)

// detectProjectVersion reads workdir's own version-pinning file for tool,
// returning the requirement string it names. Returns false when no such
// file exists or workdir is unknown.
func detectProjectVersion(tool, workdir string) (string, bool) {
	if workdir == "" {
		return "", false
	}
	if tool == "go" {
		return detectGoVersion(workdir)
	}
	for _, name := range autoVersionFiles[tool] {
		data, err := os.ReadFile(filepath.Join(workdir, name))
		if err != nil {
			continue
		}
		if name == "rust-toolchain.toml" {
			if v, ok := firstQuotedAfter(string(data), "channel"); ok {
				return v, true
			}
			continue
		}
		line := firstNonBlankLine(string(data))
		if line != "" {
			return line, true
		}
	}
	return "", false
}

func detectGoVersion(workdir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(workdir, "go.mod"))
	if err != nil {
		return "", false
	}
	m := goDirectiveRE.FindStringSubmatch(string(data))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func firstNonBlankLine(s string) string {
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line
		}
	}
	return ""
}

func firstQuotedAfter(s, key string) (string, bool) {
	idx := strings.Index(s, key)
	if idx < 0 {
		return "", false
	}
	rest := s[idx+len(key):]
	start := strings.IndexByte(rest, '"')
	if start < 0 {
		return "", false
	}
	rest = rest[start+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
