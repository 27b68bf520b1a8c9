package pyversions

import (
	"strings"

	"github.com/mgedmin/check-python-versions/internal/versions"
)

const (
	classifierPrefix = "Programming Language :: Python :: "
	implPrefix       = "Programming Language :: Python :: Implementation :: "
)

// IsVersionClassifier reports whether a PyPI classifier names a Python
// version.
func IsVersionClassifier(s string) bool {
	rest := strings.TrimPrefix(s, classifierPrefix)
	return rest != s && rest != "" && rest[0] >= '0' && rest[0] <= '9'
}

// isMajorVersionClassifier reports whether a classifier names a bare
// major version, like "... :: 3" or "... :: 3 :: Only".
func isMajorVersionClassifier(s string) bool {
	rest := strings.TrimPrefix(s, classifierPrefix)
	if rest == s {
		return false
	}
	rest = strings.ReplaceAll(rest, " :: Only", "")
	if rest == "" {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return false
		}
	}
	return true
}

// VersionsFromClassifiers extracts the supported Python versions from
// PyPI classifiers.  Implementation classifiers other than CPython count
// as versions (PyPy and friends); a bare major classifier is absorbed by
// any X.Y classifier of the same major.
func VersionsFromClassifiers(classifiers []string) []versions.Version {
	seen := map[string]bool{}
	for _, s := range classifiers {
		if IsVersionClassifier(s) {
			v := strings.TrimRight(
				strings.ReplaceAll(s[len(classifierPrefix):], " :: Only", ""), " ")
			seen[v] = true
		} else if strings.HasPrefix(s, implPrefix) && s != implPrefix+"CPython" {
			seen[strings.TrimRight(s[len(implPrefix):], " ")] = true
		}
	}
	for _, major := range []string{"2", "3"} {
		if seen[major] {
			for v := range seen {
				if strings.HasPrefix(v, major+".") {
					delete(seen, major)
					break
				}
			}
		}
	}
	vs := make([]versions.Version, 0, len(seen))
	for v := range seen {
		vs = append(vs, versions.Parse(v))
	}
	return versions.ExpandPyPy(vs)
}

// UpdateClassifiers replaces the version classifiers in a classifier
// list, leaving all other classifiers where they were.  When the old
// list carried bare major classifiers, matching ones are regenerated.
func UpdateClassifiers(classifiers []string, newVersions []versions.Version) []string {
	pos := -1
	for i, s := range classifiers {
		if IsVersionClassifier(s) {
			pos = i
			break
		}
	}

	hadMajor := false
	for _, s := range classifiers {
		if isMajorVersionClassifier(s) {
			hadMajor = true
			break
		}
	}
	vs := versions.SortedSet(newVersions)
	if hadMajor {
		withMajors := append([]versions.Version{}, vs...)
		for _, v := range vs {
			withMajors = append(withMajors, versions.Version{Major: v.Major, Minor: -1})
		}
		vs = versions.SortedSet(withMajors)
	}

	kept := make([]string, 0, len(classifiers))
	for _, s := range classifiers {
		if !IsVersionClassifier(s) {
			kept = append(kept, s)
		}
	}
	if pos < 0 {
		pos = len(kept)
	}
	updated := make([]string, 0, len(kept)+len(vs))
	updated = append(updated, kept[:pos]...)
	for _, v := range vs {
		updated = append(updated, classifierPrefix+v.String())
	}
	updated = append(updated, kept[pos:]...)
	return updated
}
