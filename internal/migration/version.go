// Package migration applies one-time data migrations between app versions.
package migration

import (
	"strconv"
	"strings"
)

// prereleaseCeiling ranks a release above every prerelease of the same
// version triple.
const prereleaseCeiling = 99

// rank collapses a version string into a single comparable number. Each
// component gets a fixed band: major 1e7, minor 1e5, patch 1e2, prerelease
// the remainder. Missing or malformed components rank as zero.
func rank(version string) int {
	base, prerelease, hasPrerelease := strings.Cut(version, "-")

	parts := strings.SplitN(base, ".", 3)
	var major, minor, patch int
	if len(parts) > 0 {
		major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		patch, _ = strconv.Atoi(parts[2])
	}

	pre := prereleaseCeiling
	if hasPrerelease {
		pre = prereleaseNumber(prerelease)
	}
	return major*1e7 + minor*1e5 + patch*1e2 + pre
}

// prereleaseNumber extracts the trailing number of a prerelease tag such as
// "rc10" or "RC2". A tag without digits ranks lowest.
func prereleaseNumber(tag string) int {
	start := len(tag)
	for start > 0 && tag[start-1] >= '0' && tag[start-1] <= '9' {
		start--
	}
	number, _ := strconv.Atoi(tag[start:])
	return number
}

// Compare orders two version strings. It returns -1 when a precedes b, 1 when
// a follows b and 0 when they rank equally.
func Compare(a, b string) int {
	ra, rb := rank(a), rank(b)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return 0
}
