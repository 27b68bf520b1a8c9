package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/source"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

// checkOptions tweaks a consistency check.
type checkOptions struct {
	// Expect states which versions should be supported; when empty the
	// first source found sets the expectation.
	Expect []versions.Version

	// Replacements lets the check see the result of an update without
	// performing it.  See updateVersions.
	Replacements map[string][]string

	// Only limits the check to a subset of the files.
	Only map[string]bool

	// MinWidth aligns report columns across multiple packages.
	MinWidth int
}

// checkVersions checks Python version consistency for a single package,
// located in where, reporting to w.
func checkVersions(w io.Writer, where string, opts checkOptions, rel versions.Releases) (bool, error) {
	scanned, err := source.Scan(where, source.ScanOptions{
		Only:         opts.Only,
		Replacements: opts.Replacements,
	}, rel)
	if err != nil {
		return false, err
	}

	if len(scanned) == 0 {
		fmt.Fprintln(w, "no file with version information found")
		return false, nil
	}

	width := 0
	for _, sf := range scanned {
		if n := len(sf.Title) + len(" says:"); n > width {
			width = n
		}
	}
	if len(opts.Expect) > 0 && width < len("expected:") {
		width = len("expected:")
	}
	if width < opts.MinWidth {
		width = opts.MinWidth
	}

	for _, sf := range scanned {
		fmt.Fprintf(w, "%-*s %s\n", width, sf.Title+" says:", joinVersions(sf.Versions))
	}
	if len(opts.Expect) > 0 {
		fmt.Fprintf(w, "%-*s %s\n", width, "expected:", joinVersions(opts.Expect))
	}

	return supportedVersionsMatch(scanned, opts.Expect, rel), nil
}

func joinVersions(vs []versions.Version) string {
	if len(vs) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// supportedVersionsMatch reports whether all the scanned sources agree on
// the set of supported versions, and on PyPy support where they can
// express it.
func supportedVersionsMatch(scanned []source.ScannedFile, expect []versions.Version, rel versions.Releases) bool {
	var versionSets [][]versions.Version
	var pypyVersionSets [][]versions.Version

	for _, sf := range scanned {
		if sf.Source.HasUpperBound {
			versionSets = append(versionSets, versions.Important(sf.Versions, rel))
		}
		if sf.Source.CheckPyPyConsistency {
			pypyVersionSets = append(pypyVersionSets, versions.PyPyVersions(sf.Versions))
		}
	}

	// python_requires usually has no upper bound, which causes trouble
	// when a new Python version gets released.  Give it an artificial
	// upper bound that matches all the other sources.
	maxSupported, haveMax := maxVersion(versionSets)
	for _, sf := range scanned {
		if sf.Source.HasUpperBound {
			continue
		}
		important := versions.Important(sf.Versions, rel)
		if haveMax {
			var capped []versions.Version
			for _, v := range important {
				if v.Compare(maxSupported) <= 0 {
					capped = append(capped, v)
				}
			}
			important = capped
		}
		versionSets = append(versionSets, important)
	}

	if len(expect) == 0 {
		if len(versionSets) == 0 {
			return true
		}
		expect = versionSets[0]
	}
	expect = versions.Important(expect, rel)
	for _, set := range versionSets {
		if !versions.Equal(expect, set) {
			return false
		}
	}

	for _, set := range pypyVersionSets {
		if !versions.Equal(pypyVersionSets[0], set) {
			return false
		}
	}
	return true
}

func maxVersion(sets [][]versions.Version) (versions.Version, bool) {
	var best versions.Version
	found := false
	for _, set := range sets {
		for _, v := range set {
			if !found || best.Less(v) {
				best = v
				found = true
			}
		}
	}
	return best, found
}
