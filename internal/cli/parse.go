package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/versions"
)

// parseVersion parses a Python version number of the form MAJOR.MINOR,
// no more, no less.
func parseVersion(v string) (versions.Version, error) {
	major, minor, ok := strings.Cut(v, ".")
	if !ok {
		return versions.Version{}, fmt.Errorf("bad version: %s", v)
	}
	maj, err := strconv.Atoi(strings.TrimSpace(major))
	if err != nil {
		return versions.Version{}, fmt.Errorf("bad version: %s", v)
	}
	min, err := strconv.Atoi(strings.TrimSpace(minor))
	if err != nil {
		return versions.Version{}, fmt.Errorf("bad version: %s", v)
	}
	return versions.MajorMinor(maj, min), nil
}

// parseVersionList parses a comma-separated list of Python version
// ranges, something like "2.7,3.6-3.8".  Open ranges are allowed:
// "-3.8" starts at MAJOR.0 and "3.6-" extends to the newest known
// release of that major version.
func parseVersionList(v string, rel versions.Releases) ([]versions.Version, error) {
	var vs []versions.Version

	for _, part := range strings.Split(v, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			hi = lo
		}

		var loVer, hiVer versions.Version
		switch {
		case lo != "" && hi != "":
			var err error
			if loVer, err = parseVersion(lo); err != nil {
				return nil, err
			}
			if hiVer, err = parseVersion(hi); err != nil {
				return nil, err
			}
		case hi != "":
			var err error
			if hiVer, err = parseVersion(hi); err != nil {
				return nil, err
			}
			loVer = versions.MajorMinor(hiVer.Major, 0)
		case lo != "":
			var err error
			if loVer, err = parseVersion(lo); err != nil {
				return nil, err
			}
			maxMinor := rel.MaxMinor(loVer.Major)
			if maxMinor < 0 {
				return nil, fmt.Errorf("bad range: %s", part)
			}
			hiVer = versions.MajorMinor(loVer.Major, maxMinor)
		default:
			return nil, fmt.Errorf("bad range: %s", part)
		}

		if loVer.Major != hiVer.Major {
			return nil, fmt.Errorf("bad range: %s (%d != %d)",
				part, loVer.Major, hiVer.Major)
		}

		for minor := loVer.Minor; minor <= hiVer.Minor; minor++ {
			vs = append(vs, versions.MajorMinor(loVer.Major, minor))
		}
	}

	return versions.SortedSet(vs), nil
}

// isPackage checks if there's a Python package in the given directory.
func isPackage(where string) bool {
	setupPy := filepath.Join(where, "setup.py")
	pyprojectToml := filepath.Join(where, "pyproject.toml")
	if _, err := os.Stat(setupPy); err == nil {
		return true
	}
	if _, err := os.Stat(pyprojectToml); err == nil {
		return true
	}
	return false
}

// checkPackage checks if there's a Python package in the given directory,
// emitting diagnostics to w when there isn't.
func checkPackage(w io.Writer, where string) bool {
	info, err := os.Stat(where)
	if err != nil || !info.IsDir() {
		fmt.Fprintln(w, "not a directory")
		return false
	}
	if !isPackage(where) {
		fmt.Fprintln(w, "no setup.py or pyproject.toml -- not a Python package?")
		return false
	}
	return true
}
