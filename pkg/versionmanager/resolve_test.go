package versionmanager

import (
	"testing"

	"github.com/omnicli/omni/pkg/upengine"
)

func TestBestMatch_ExactPrefersExactOverHigherVersions(t *testing.T) {
	req, _ := parseRequirement("3.10.0")
	v, ok := bestMatch([]string{"3.9.0", "3.10.0", "3.11.0"}, req, upengine.ResolveOptions{})
	if !ok || v != "3.10.0" {
		t.Fatalf("bestMatch = %q, %v, want 3.10.0", v, ok)
	}
}

func TestBestMatch_PrefixPicksHighestMatchingMinor(t *testing.T) {
	req, _ := parseRequirement("3.11.x")
	v, ok := bestMatch([]string{"3.10.4", "3.11.0", "3.11.9", "3.12.0"}, req, upengine.ResolveOptions{})
	if !ok || v != "3.11.9" {
		t.Fatalf("bestMatch = %q, %v, want 3.11.9", v, ok)
	}
}

func TestBestMatch_RangeExcludesNonMatching(t *testing.T) {
	req, _ := parseRequirement(">=1.2.0, <2.0.0")
	v, ok := bestMatch([]string{"1.1.0", "1.5.0", "1.9.9", "2.0.0"}, req, upengine.ResolveOptions{})
	if !ok || v != "1.9.9" {
		t.Fatalf("bestMatch = %q, %v, want 1.9.9", v, ok)
	}
}

func TestBestMatch_ExcludesPrereleaseUnlessRequested(t *testing.T) {
	req, _ := parseRequirement("latest")
	v, ok := bestMatch([]string{"1.0.0", "1.1.0-rc1"}, req, upengine.ResolveOptions{})
	if !ok || v != "1.0.0" {
		t.Fatalf("bestMatch = %q, %v, want 1.0.0 (prerelease excluded)", v, ok)
	}

	v, ok = bestMatch([]string{"1.0.0", "1.1.0-rc1"}, req, upengine.ResolveOptions{Prerelease: true})
	if !ok || v != "1.1.0-rc1" {
		t.Fatalf("bestMatch with Prerelease=true = %q, %v, want 1.1.0-rc1", v, ok)
	}
}

func TestBestMatch_OrListMatchesEitherAlternative(t *testing.T) {
	req, _ := parseRequirement("1.x || 3.x")
	v, ok := bestMatch([]string{"1.9.0", "2.5.0", "3.1.0"}, req, upengine.ResolveOptions{})
	if !ok || v != "3.1.0" {
		t.Fatalf("bestMatch = %q, %v, want 3.1.0", v, ok)
	}
}

func TestHighest_FallsBackToLexicographicForNonSemver(t *testing.T) {
	got := highest([]string{"bullseye", "bookworm", "trixie"})
	if got != "trixie" {
		t.Errorf("highest = %q, want trixie", got)
	}
}
