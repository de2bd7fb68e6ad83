package scheduler

import "strings"

// TargetsOverlap reports whether two file-target patterns could touch the
// same files. Identical strings always overlap. A pattern ending in the
// directory wildcard "/*" overlaps any path that starts with its fixed
// prefix; the check runs in both directions so "src/*" conflicts with
// "src/api/handler.go" no matter which task declared the wildcard.
//
// Pattern-level only, single trailing wildcard segment. Note the prefix
// comparison strips just the wildcard suffix, so "src/*" also overlaps
// "src2/file.js".
func TargetsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	if strings.HasSuffix(a, "/*") && strings.HasPrefix(b, a[:len(a)-2]) {
		return true
	}
	if strings.HasSuffix(b, "/*") && strings.HasPrefix(a, b[:len(b)-2]) {
		return true
	}
	return false
}

// AnyTargetsOverlap reports whether any pair drawn from the two target
// sets overlaps. Used by the pool to keep tasks with conflicting
// footprints from running concurrently within one project.
func AnyTargetsOverlap(a, b []string) bool {
	for _, ta := range a {
		for _, tb := range b {
			if TargetsOverlap(ta, tb) {
				return true
			}
		}
	}
	return false
}
