package pyversions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

// https://python-poetry.org/docs/dependency-specification/#version-constraints
var poetryRx = regexp.MustCompile(`^(|[~^]|==|!=|<=|>=|<|>)\s*(\d+(?:\.\d+)*(?:\.\*)?)$`)

// poetryHandlers covers the caret, tilde and bare spellings; the PEP 440
// style operators behave the same as in python_requires.
var poetryHandlers = map[string]func(clause) (checkFn, error){
	"^": func(c clause) (checkFn, error) {
		// ^X.Y allows X.Y.* or X.(Y+n).*; ^X allows X.*.  Python versions
		// never have leading zeroes, so the first digit is always non-zero
		// and Poetry's leading-zero caret rules never apply.
		if c.wildcard {
			return nil, errBadConstraint{"^ does not allow a .*"}
		}
		return func(major, minor int) bool {
			return tupleCompare([]int{major, minor}, head(c.nums, 2)) >= 0 &&
				major <= c.nums[0]
		}, nil
	},
	"~": func(c clause) (checkFn, error) {
		// ~X.Y allows X.Y.*; ~X allows X.*.
		if c.wildcard {
			return nil, errBadConstraint{"~ does not allow a .*"}
		}
		if len(c.nums) == 1 {
			return func(major, minor int) bool {
				return major == c.nums[0]
			}, nil
		}
		return func(major, minor int) bool {
			return tupleEqual([]int{major, minor}, head(c.nums, 2))
		}, nil
	},
	// Just X.Y means X.Y, no more, no less; X[.Y].* is allowed.
	"":   poetryExactVersion,
	"==": poetryExactVersion,
	"!=": pep440Handlers["!="],
	">=": pep440Handlers[">="],
	"<=": pep440Handlers["<="],
	">":  pep440Handlers[">"],
	"<":  pep440Handlers["<"],
}

func poetryExactVersion(c clause) (checkFn, error) {
	switch {
	case c.wildcard && len(c.nums) == 1:
		return func(major, minor int) bool {
			return major == c.nums[0]
		}, nil
	case len(c.nums) == 1:
		// X should imply Python X.0
		return func(major, minor int) bool {
			return major == c.nums[0] && minor == 0
		}, nil
	default:
		// X.Y.* and X.Y.Z both imply Python X.Y
		return func(major, minor int) bool {
			return tupleEqual([]int{major, minor}, head(c.nums, 2))
		}, nil
	}
}

// ParsePoetryConstraint computes the Python versions allowed by a Poetry
// version constraint such as "^3.8" or ">=3.8,<4.0".
//
// The clause handling mirrors ParsePythonRequires: bad clauses are warned
// about and skipped, and ok is false when nothing parsed.
func ParsePoetryConstraint(s, name, filename string, rel versions.Releases) ([]versions.Version, bool) {
	var checks []checkFn
	for _, specifier := range strings.Split(s, ",") {
		specifier = strings.TrimSpace(specifier)
		m := poetryRx.FindStringSubmatch(specifier)
		if m == nil {
			diag.Warnf("Bad %s specifier in %s: %s", name, filename, specifier)
			continue
		}
		op, arg := m[1], m[2]
		check, err := poetryHandlers[op](parseClause(arg))
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

// PoetryStyle captures the formatting conventions of an existing Poetry
// constraint string.
type PoetryStyle struct {
	Comma            string
	Space            string
	PreferCaretTilde bool // spell bounds as ^X.Y / ~X.Y when possible
}

// DefaultPoetryStyle is used when there is no original text to imitate.
func DefaultPoetryStyle() PoetryStyle {
	return PoetryStyle{Comma: ", ", Space: "", PreferCaretTilde: true}
}

// DetectPoetryStyle determines how an existing Poetry constraint string
// was formatted.
func DetectPoetryStyle(spec string) PoetryStyle {
	style := PoetryStyle{Comma: ", ", Space: ""}
	if strings.Contains(spec, ",") && !strings.Contains(spec, ", ") {
		style.Comma = ","
	}
	if strings.Contains(spec, "> ") || strings.Contains(spec, "= ") ||
		strings.Contains(spec, "^ ") || strings.Contains(spec, "~ ") {
		style.Space = " "
	}
	style.PreferCaretTilde = strings.ContainsAny(spec, "^~")
	return style
}

// ComputePoetrySpec computes a Poetry constraint matching a set of
// versions.  Unlike python_requires the result carries an upper bound:
// either an explicit < clause one minor past the maximum, or the implicit
// bound of a caret/tilde spelling.
func ComputePoetrySpec(newVersions []versions.Version, rel versions.Releases, style PoetryStyle) string {
	vs := versions.SortedSet(newVersions)
	if len(vs) == 1 && vs[0] != rel.Latest() {
		if style.PreferCaretTilde {
			return fmt.Sprintf("~%s%s", style.Space, vs[0])
		}
		return fmt.Sprintf("%s%s.*", style.Space, vs[0])
	}
	minVersion := vs[0]
	maxVersion := vs[len(vs)-1]
	specifiers := []string{fmt.Sprintf(">=%s%s", style.Space, minVersion)}
	inSet := make(map[versions.Version]bool, len(vs))
	for _, v := range vs {
		inSet[v] = true
	}
	for _, major := range rel.Majors() {
		for minor := 0; minor <= rel.MaxMinor(major); minor++ {
			ver := versions.MajorMinor(major, minor)
			if maxVersion.Less(ver) {
				if major == maxVersion.Major {
					specifiers = append(specifiers, fmt.Sprintf("<%s%s", style.Space, ver))
				}
				break
			}
			if !ver.Less(minVersion) && !inSet[ver] {
				specifiers = append(specifiers, fmt.Sprintf("!=%s%s.*", style.Space, ver))
			}
		}
	}
	if len(specifiers) == 1 && style.PreferCaretTilde {
		specifiers = []string{fmt.Sprintf("^%s%s", style.Space, minVersion)}
	}
	return strings.Join(specifiers, style.Comma)
}
