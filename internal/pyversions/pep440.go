package pyversions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

// https://www.python.org/dev/peps/pep-0440/#version-specifiers
var pep440Rx = regexp.MustCompile(`^(~=|==|!=|<=|>=|<|>|===)\s*(\d+(?:\.\d+)*(?:\.\*)?)$`)

// pep440Handlers compiles one clause per operator into a checker.
var pep440Handlers = map[string]func(clause) (checkFn, error){
	"~=": func(c clause) (checkFn, error) {
		// ~= X.Y more or less means >= X.Y and == X.Y.*
		if len(c.nums) < 2 && !c.wildcard {
			return nil, errBadConstraint{"~= requires a version with at least one dot"}
		}
		if c.wildcard {
			return nil, errBadConstraint{"~= does not allow a .*"}
		}
		return func(major, minor int) bool {
			return tupleEqual([]int{major, minor}, head(c.nums, 2))
		}, nil
	},
	"==": func(c clause) (checkFn, error) {
		switch {
		case c.wildcard && len(c.nums) == 1:
			// == X.* allows any minor of X
			return func(major, minor int) bool {
				return major == c.nums[0]
			}, nil
		case len(c.nums) == 1:
			// == X should imply Python X.0
			return func(major, minor int) bool {
				return major == c.nums[0] && minor == 0
			}, nil
		default:
			// == X.Y.* and == X.Y.Z both imply Python X.Y
			return func(major, minor int) bool {
				return tupleEqual([]int{major, minor}, head(c.nums, 2))
			}, nil
		}
	},
	"!=": func(c clause) (checkFn, error) {
		switch {
		case !c.wildcard:
			// != X or != X.Y or != X.Y.Z are all meaningless for us, because
			// there exists some W != Z where we allow X.Y.W and thus allow
			// Python X.Y.
			return func(major, minor int) bool {
				return true
			}, nil
		case len(c.nums) == 1:
			// != X.* excludes the entirety of a major version
			return func(major, minor int) bool {
				return major != c.nums[0]
			}, nil
		default:
			// != X.Y.* excludes one particular minor version X.Y;
			// != X.Y.Z.* excludes nothing since the candidate tuple is
			// shorter and never compares equal.
			return func(major, minor int) bool {
				return !tupleEqual([]int{major, minor}, c.nums)
			}, nil
		}
	},
	">=": func(c clause) (checkFn, error) {
		// >= X.Y allows X.Y.* or X.(Y+n).*, or (X+n).*
		if c.wildcard {
			return nil, errBadConstraint{">= does not allow a .*"}
		}
		// >= X, >= X.Y, >= X.Y.Z all work out nicely because
		// (3, 0) >= (3,) under tuple comparison
		return func(major, minor int) bool {
			return tupleCompare([]int{major, minor}, head(c.nums, 2)) >= 0
		}, nil
	},
	"<=": func(c clause) (checkFn, error) {
		if c.wildcard {
			return nil, errBadConstraint{"<= does not allow a .*"}
		}
		if len(c.nums) == 1 {
			// <= X allows up to X.0
			return func(major, minor int) bool {
				return tupleCompare([]int{major, minor}, []int{c.nums[0], 0}) <= 0
			}, nil
		}
		// <= X.Y[.Z] allows up to X.Y
		return func(major, minor int) bool {
			return tupleCompare([]int{major, minor}, c.nums) <= 0
		}, nil
	},
	">": func(c clause) (checkFn, error) {
		if c.wildcard {
			return nil, errBadConstraint{"> does not allow a .*"}
		}
		switch len(c.nums) {
		case 1:
			// > X allows X+1.0 etc
			return func(major, minor int) bool {
				return major > c.nums[0]
			}, nil
		case 2:
			// > X.Y allows X.Y+1 etc
			return func(major, minor int) bool {
				return tupleCompare([]int{major, minor}, c.nums) > 0
			}, nil
		default:
			// > X.Y.Z allows X.Y
			return func(major, minor int) bool {
				return tupleCompare([]int{major, minor}, head(c.nums, 2)) >= 0
			}, nil
		}
	},
	"<": func(c clause) (checkFn, error) {
		if c.wildcard {
			return nil, errBadConstraint{"< does not allow a .*"}
		}
		// < X, < X.Y, < X.Y.Z all work out nicely because
		// (3, 0) > (3,), (3, 0) == (3, 0) and (3, 0) < (3, 0, 1)
		return func(major, minor int) bool {
			return tupleCompare([]int{major, minor}, c.nums) < 0
		}, nil
	},
	"===": func(c clause) (checkFn, error) {
		if c.wildcard {
			return nil, errBadConstraint{"=== does not allow a .*"}
		}
		// === X does not allow anything; === X.Y.Z allows X.Y
		return func(major, minor int) bool {
			return tupleEqual([]int{major, minor}, head(c.nums, 2))
		}, nil
	},
}

// ParsePythonRequires computes the Python versions allowed by a
// python_requires expression.
//
// Comma-separated clauses combine by AND. A clause that doesn't parse is
// skipped with a warning naming the offending fragment and the file. The
// second return value is false when no clause could be parsed at all,
// which callers must treat as "not specified" rather than "supports
// nothing".
func ParsePythonRequires(s, name, filename string, rel versions.Releases) ([]versions.Version, bool) {
	var checks []checkFn
	for _, specifier := range strings.Split(s, ",") {
		specifier = strings.TrimSpace(specifier)
		m := pep440Rx.FindStringSubmatch(specifier)
		if m == nil {
			diag.Warnf("Bad %s specifier in %s: %s", name, filename, specifier)
			continue
		}
		op, arg := m[1], m[2]
		check, err := pep440Handlers[op](parseClause(arg))
		if err != nil {
			diag.Warnf("Bad %s specifier in %s: %s (%s)", name, filename, specifier, err)
			continue
		}
		checks = append(checks, check)
	}
	if len(checks) == 0 {
		return nil, false
	}
	return enumerate(checks, rel), true
}

// Style captures how a python_requires string was formatted, so an update
// can match the original file's convention.
type Style struct {
	Comma string // separator between clauses
	Space string // between operator and version
}

// DefaultStyle is used when there is no original text to imitate.
func DefaultStyle() Style {
	return Style{Comma: ", ", Space: ""}
}

// DetectStyle determines how an existing python_requires string was
// formatted.
func DetectStyle(pythonRequires string) Style {
	style := DefaultStyle()
	if strings.Contains(pythonRequires, ",") && !strings.Contains(pythonRequires, ", ") {
		style.Comma = ","
	}
	if strings.Contains(pythonRequires, "> ") || strings.Contains(pythonRequires, "= ") {
		style.Space = " "
	}
	return style
}

// ComputePythonRequires computes a python_requires value matching a set of
// versions: a >= floor plus != exclusions for the known versions above the
// floor that are absent from the set. A single target version that is not
// the very latest release gets the tighter == spelling.
func ComputePythonRequires(newVersions []versions.Version, rel versions.Releases, style Style) string {
	vs := versions.SortedSet(newVersions)
	if len(vs) == 1 && vs[0] != rel.Latest() {
		return fmt.Sprintf("==%s%s.*", style.Space, vs[0])
	}
	minVersion := vs[0]
	specifiers := []string{fmt.Sprintf(">=%s%s", style.Space, minVersion)}
	inSet := make(map[versions.Version]bool, len(vs))
	for _, v := range vs {
		inSet[v] = true
	}
	for _, major := range rel.Majors() {
		for minor := 0; minor <= rel.MaxMinor(major); minor++ {
			ver := versions.MajorMinor(major, minor)
			if !ver.Less(minVersion) && !inSet[ver] {
				specifiers = append(specifiers, fmt.Sprintf("!=%s%s.*", style.Space, ver))
			}
		}
	}
	return strings.Join(specifiers, style.Comma)
}
