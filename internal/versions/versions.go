// Package versions holds the Python version business logic: a simplified
// version value that sorts correctly (2.7, 3.1, ..., 3.9, 3.10), the table
// of known releases, and the set operations the checkers build on.
package versions

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Version is a simplified Python version number.
//
// Primarily needed so lists of version numbers sort correctly, i.e.
// 2.7, 3.0, 3.1, 3.2, ..., 3.9, 3.10, ...
//
// Can have an optional prefix, e.g. PyPy3.6 is
// Version{Prefix: "PyPy", Major: 3, Minor: 6}.
//
// Can have an optional suffix, e.g. 3.10-dev is
// Version{Major: 3, Minor: 10, Suffix: "-dev"}.
//
// A Major or Minor of -1 means the component is absent: "PyPy" has neither,
// "3" has no minor. Any string round-trips through Parse and String.
type Version struct {
	Prefix string
	Major  int
	Minor  int
	Suffix string
}

var versionRx = regexp.MustCompile(`^([^-0-9]*)([0-9]*)([.][0-9]+)?(.*)$`)

// Parse converts the canonical string form back into a Version.
// It is the exact inverse of String.
func Parse(v string) Version {
	m := versionRx.FindStringSubmatch(v)
	prefix, major, minor, suffix := m[1], m[2], m[3], m[4]
	ver := Version{Prefix: prefix, Major: -1, Minor: -1, Suffix: suffix}
	if major != "" {
		ver.Major, _ = strconv.Atoi(major)
	}
	if minor != "" {
		ver.Minor, _ = strconv.Atoi(minor[1:])
	}
	return ver
}

// MajorMinor is a shorthand constructor for a plain CPython X.Y version.
func MajorMinor(major, minor int) Version {
	return Version{Prefix: "", Major: major, Minor: minor, Suffix: ""}
}

// String renders the canonical form: {prefix}{major}[.{minor}]{suffix}.
func (v Version) String() string {
	var sb strings.Builder
	sb.WriteString(v.Prefix)
	if v.Major != -1 {
		fmt.Fprintf(&sb, "%d", v.Major)
	}
	if v.Minor != -1 {
		fmt.Fprintf(&sb, ".%d", v.Minor)
	}
	sb.WriteString(v.Suffix)
	return sb.String()
}

// Compare defines the total order: (prefix, major, minor, suffix)
// lexicographically, with numeric major/minor comparison so that
// 3.10 sorts after 3.9.
func (v Version) Compare(other Version) int {
	if c := strings.Compare(v.Prefix, other.Prefix); c != 0 {
		return c
	}
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}
	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}
	return strings.Compare(v.Suffix, other.Suffix)
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Sort orders a version list in place, ascending.
func Sort(vs []Version) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
}

// SortedSet returns a fresh sorted list with duplicates removed.
func SortedSet(vs []Version) []Version {
	out := make([]Version, 0, len(vs))
	seen := make(map[Version]bool, len(vs))
	for _, v := range vs {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	Sort(out)
	return out
}

// Equal reports whether two version lists contain the same set of versions.
func Equal(a, b []Version) bool {
	as, bs := SortedSet(a), SortedSet(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// IsImportant reports whether a version matters for consistency checking.
//
// Different sources can express support for different versions, e.g.
// classifiers can express support for "PyPy" but python_requires can't.
// Also some CI systems allow testing on unreleased Python versions that
// cannot be listed in classifiers, so their presence should not cause
// mismatch errors.
func IsImportant(v Version, rel Releases) bool {
	if strings.HasPrefix(v.Prefix, "PyPy") || strings.HasPrefix(v.Prefix, "Jython") {
		return false
	}
	if v.Prefix == "nightly" {
		return false
	}
	for _, marker := range []string{"-dev", "-alpha", "-beta", "-rc"} {
		if strings.Contains(v.Suffix, marker) {
			return false
		}
	}
	return v != rel.Upcoming()
}

// Important filters out unimportant versions. See IsImportant.
func Important(vs []Version, rel Releases) []Version {
	var out []Version
	for _, v := range vs {
		if IsImportant(v, rel) {
			out = append(out, v)
		}
	}
	return SortedSet(out)
}

// PyPyVersions keeps only the PyPy flavors of a version list.
func PyPyVersions(vs []Version) []Version {
	var out []Version
	for _, v := range vs {
		if strings.HasPrefix(v.Prefix, "PyPy") {
			out = append(out, v)
		}
	}
	return SortedSet(out)
}

// ExpandPyPy determines whether PyPy support means PyPy2 or PyPy3 or both.
//
// Some data sources (like setup.py classifiers) allow you to indicate PyPy
// support without specifying whether you mean PyPy2 or PyPy3. Other data
// sources (like all CI systems) are more explicit. To make these version
// lists directly comparable we look at the supported CPython versions and
// translate that knowledge into PyPy versions.
func ExpandPyPy(vs []Version) []Version {
	supportsPyPy := false
	supportsPy2 := false
	supportsPy3 := false
	for _, v := range vs {
		if v.Prefix == "PyPy" && v.Major == -1 {
			supportsPyPy = true
		}
		if v.Major == 2 {
			supportsPy2 = true
		}
		if v.Major == 3 {
			supportsPy3 = true
		}
	}
	if !supportsPyPy {
		return SortedSet(vs)
	}
	var out []Version
	for _, v := range vs {
		if v.Prefix != "PyPy" {
			out = append(out, v)
		}
	}
	if supportsPy2 {
		out = append(out, Parse("PyPy"))
	}
	if supportsPy3 {
		out = append(out, Parse("PyPy3"))
	}
	return SortedSet(out)
}

// Update computes a new list of supported versions.
//
// add extends the supported versions, drop removes from them, and update
// replaces them outright. add and drop may be combined; combining update
// with either makes no sense and update simply wins.
func Update(vs, add, drop, update []Version) []Version {
	if len(update) > 0 {
		return SortedSet(update)
	}
	dropSet := make(map[Version]bool, len(drop))
	for _, v := range drop {
		dropSet[v] = true
	}
	var out []Version
	for _, v := range append(append([]Version{}, vs...), add...) {
		if !dropSet[v] {
			out = append(out, v)
		}
	}
	return SortedSet(out)
}
