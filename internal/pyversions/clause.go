// Package pyversions interprets version-range expressions: the PEP 440
// specifier grammar used by python_requires / requires-python, and the
// caret/tilde grammar used by Poetry. Both directions are covered:
// enumerating the concrete major.minor versions a constraint allows, and
// computing a minimal constraint expression back from a version set.
package pyversions

import (
	"strconv"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/versions"
)

// clause is one comma-separated constraint: an operand tuple of numbers
// with an optional trailing ".*" wildcard. PEP 440 calls these "clauses".
type clause struct {
	nums     []int
	wildcard bool
}

// checkFn reports whether a candidate (major, minor) pair satisfies a
// compiled clause. Candidates always have exactly two components: we are
// deliberately not doing a strict PEP 440 implementation, because if a
// specifier allows, say, Python 2.7.16, we want to report that as 2.7.
// Each candidate (X, Y) stands for any version between X.Y.0 and
// X.Y.<whatever>.
type checkFn func(major, minor int) bool

// errBadConstraint marks a clause that is ill-formed for its operator.
type errBadConstraint struct {
	reason string
}

func (e errBadConstraint) Error() string {
	return e.reason
}

// parseClause decodes the operand part of a specifier, e.g. "3.6.*".
func parseClause(arg string) clause {
	var c clause
	for _, segment := range strings.Split(arg, ".") {
		if segment == "*" {
			c.wildcard = true
			break
		}
		n, _ := strconv.Atoi(segment)
		c.nums = append(c.nums, n)
	}
	return c
}

// tupleCompare compares two number tuples the way Python compares tuples:
// element by element, with a strict prefix sorting before the longer tuple,
// so (3, 0) > (3,) and (3, 0) < (3, 0, 1).
func tupleCompare(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// tupleEqual reports exact tuple equality (same length, same elements).
func tupleEqual(a, b []int) bool {
	return tupleCompare(a, b) == 0
}

// head returns at most the first n elements of a tuple.
func head(nums []int, n int) []int {
	if len(nums) > n {
		return nums[:n]
	}
	return nums
}

// enumerate walks all known (major, minor) pairs and keeps those that
// satisfy every compiled constraint, in ascending order.
func enumerate(checks []checkFn, rel versions.Releases) []versions.Version {
	result := []versions.Version{}
	for _, major := range rel.Majors() {
		for minor := 0; minor <= rel.MaxMinor(major); minor++ {
			ok := true
			for _, check := range checks {
				if !check(major, minor) {
					ok = false
					break
				}
			}
			if ok {
				result = append(result, versions.MajorMinor(major, minor))
			}
		}
	}
	return result
}
