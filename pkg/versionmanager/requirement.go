// Package versionmanager implements the Version Manager subsystem (§4.4):
// a plugin-based installer that resolves version requirements against a
// cached version listing and installs into an isolated per-user prefix
// shared by all workdirs. A tool is activated by pointing PATH and its
// tool-specific variables at that install prefix; no per-workdir
// activation directory is composed.
package versionmanager

import (
	"fmt"
	"strings"
)

type requirementKind int

const (
	reqLatest requirementKind = iota
	reqAuto
	reqExact
	reqPrefix
	reqRange
	reqOrList
)

// requirement is a small hand-parsed AST for the version requirement
// grammar (§4.3): exact/prefix literals, semver-style range expressions,
// `||` alternations, and the asdf-style `latest`/`auto` sentinels. The
// grammar mixes enough non-semver syntax (bare "auto", glob-style ".x"
// prefixes) that embedding Masterminds/semver/v3's own constraint parser
// directly would mean preprocessing its input anyway, so the AST is parsed
// by hand and only the isolated range nodes are handed to semver.
type requirement struct {
	kind     requirementKind
	value    string
	children []requirement
}

func parseRequirement(s string) (requirement, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return requirement{}, fmt.Errorf("versionmanager: empty version requirement")
	}
	if strings.Contains(s, "||") {
		parts := strings.Split(s, "||")
		children := make([]requirement, 0, len(parts))
		for _, p := range parts {
			child, err := parseRequirement(p)
			if err != nil {
				return requirement{}, err
			}
			children = append(children, child)
		}
		return requirement{kind: reqOrList, children: children}, nil
	}

	switch s {
	case "latest":
		return requirement{kind: reqLatest}, nil
	case "auto":
		return requirement{kind: reqAuto}, nil
	}

	for _, op := range []string{">=", "<=", ">", "<", "~", "^"} {
		if strings.HasPrefix(s, op) {
			return requirement{kind: reqRange, value: s}, nil
		}
	}

	if strings.HasSuffix(s, ".x") || strings.HasSuffix(s, ".X") || strings.HasSuffix(s, ".*") {
		prefix := s[:strings.LastIndexByte(s, '.')]
		return requirement{kind: reqPrefix, value: prefix}, nil
	}
	if s == "x" || s == "*" {
		return requirement{kind: reqLatest}, nil
	}

	return requirement{kind: reqExact, value: s}, nil
}
