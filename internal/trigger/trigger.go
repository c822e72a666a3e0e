package trigger

import (
	"fmt"
	"path"
	"strings"
)

// ParseRef extracts the tag name from a pushed ref. A fully qualified tag
// ref (refs/tags/v1.2.3) and a bare tag name are both accepted; branch and
// other refs are not tags.
func ParseRef(ref string) (string, bool) {
	if tag, ok := strings.CutPrefix(ref, "refs/tags/"); ok {
		return tag, tag != ""
	}
	if strings.HasPrefix(ref, "refs/") {
		return "", false
	}
	return ref, ref != ""
}

// Matches reports whether the tag matches at least one trigger pattern.
// Patterns use workflow-style globs (v*, v*.*.*, exact names).
func Matches(tag string, patterns []string) bool {
	for _, pattern := range patterns {
		ok, err := path.Match(pattern, tag)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// ShouldFire decides whether a pushed ref fires a pipeline with the given
// tag patterns, and returns the matched tag.
func ShouldFire(ref string, patterns []string) (string, bool) {
	tag, ok := ParseRef(ref)
	if !ok {
		return "", false
	}
	if !Matches(tag, patterns) {
		return "", false
	}
	return tag, true
}

// ValidatePatterns rejects malformed trigger patterns
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if pattern == "" {
			return fmt.Errorf("empty trigger pattern")
		}
		if _, err := path.Match(pattern, "v0.0.0"); err != nil {
			return fmt.Errorf("invalid trigger pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Version returns the version string derived from a tag, with the
// conventional leading v stripped
func Version(tag string) string {
	return strings.TrimPrefix(tag, "v")
}
