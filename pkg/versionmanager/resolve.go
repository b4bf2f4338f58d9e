package versionmanager

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/omnicli/omni/pkg/upengine"
)

// bestMatch returns the highest version in candidates satisfying req,
// honoring the prerelease/build exclusion rules (§4.4: "excluded unless
// the requirement explicitly requests them").
func bestMatch(candidates []string, req requirement, opts upengine.ResolveOptions) (string, bool) {
	var matches []string
	for _, v := range candidates {
		if !allowedByPrereleaseBuild(v, opts) {
			continue
		}
		if satisfies(req, v) {
			matches = append(matches, v)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	return highest(matches), true
}

func satisfies(req requirement, version string) bool {
	switch req.kind {
	case reqLatest:
		return true
	case reqExact:
		return version == req.value
	case reqPrefix:
		return version == req.value || (len(version) > len(req.value) &&
			version[:len(req.value)] == req.value && version[len(req.value)] == '.')
	case reqRange:
		return rangeSatisfies(req.value, version)
	case reqOrList:
		for _, child := range req.children {
			if satisfies(child, version) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func rangeSatisfies(expr, version string) bool {
	constraint, err := semver.NewConstraint(expr)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

func allowedByPrereleaseBuild(version string, opts upengine.ResolveOptions) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		// Non-semver plugin version (dates, codenames): never excluded,
		// since prerelease/build has no meaning for it.
		return true
	}
	if v.Prerelease() != "" && !opts.Prerelease {
		return false
	}
	if v.Metadata() != "" && !opts.Build {
		return false
	}
	return true
}

// highest picks the greatest version string, preferring semver ordering
// when every candidate parses as semver and falling back to lexicographic
// ordering for plugins whose versions aren't strict semver (§4.4).
func highest(versions []string) string {
	parsed := make([]*semver.Version, len(versions))
	allSemver := true
	for i, v := range versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			allSemver = false
			break
		}
		parsed[i] = sv
	}
	if allSemver {
		best := 0
		for i := 1; i < len(parsed); i++ {
			if parsed[i].GreaterThan(parsed[best]) {
				best = i
			}
		}
		return versions[best]
	}

	sorted := append([]string(nil), versions...)
	sort.Strings(sorted)
	return sorted[len(sorted)-1]
}
