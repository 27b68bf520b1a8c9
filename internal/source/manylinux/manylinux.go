// Package manylinux reads and updates the Python versions built by
// .manylinux-install.sh.  This is a shell script used by multiple
// ZopeFoundation packages that builds manylinux wheels inside
// quay.io/pypa/manylinux* Docker images.
//
// The script loops over all installed Pythons and checks if each is a
// supported version using a series of if statements:
//
//	for PYBIN in /opt/python/*/bin; do
//	    if [[ "${PYBIN}" == *"cp27"* ]] || \
//	       [[ "${PYBIN}" == *"cp36"* ]] || \
//	       [[ "${PYBIN}" == *"cp37"* ]]; then
//	        "${PYBIN}/pip" install -e /io/
//	        "${PYBIN}/pip" wheel /io/ -w wheelhouse/
//	        rm -rf /io/build /io/*.egg-info
//	    fi
//	done
package manylinux

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
	"github.com/mgedmin/check-python-versions/internal/source"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

func init() {
	source.Register(source.Source{
		Filename:             ".manylinux-install.sh",
		Extract:              extract,
		Update:               update,
		CheckPyPyConsistency: false,
		HasUpperBound:        true,
		Priority:             70,
	})
}

var (
	extractRx = regexp.MustCompile(`.*\[\[ "\$\{PYBIN\}" == \*"cp(\d)(\d+)"\* \]\]`)
	updateRx  = regexp.MustCompile(`.*\[\[ "\$\{PYBIN\}" == \*"cp(\d)(\d)"\* \]\]`)
)

func extract(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	var vs []versions.Version
	for _, line := range f.Lines {
		if m := extractRx.FindStringSubmatch(line); m != nil {
			vs = append(vs, versions.Parse(m[1]+"."+m[2]))
		}
	}
	return versions.SortedSet(vs), true
}

func update(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
	lines := f.Lines
	start := -1
	for n, line := range lines {
		if updateRx.MatchString(line) {
			start = n
			break
		}
	}
	if start < 0 {
		diag.Warnf("Failed to understand %s", f.Name)
		return f
	}
	end := -1
	for n := start + 1; n < len(lines); n++ {
		if !updateRx.MatchString(lines[n]) {
			end = n
			break
		}
	}
	if end < 0 {
		diag.Warnf("Failed to understand %s", f.Name)
		return f
	}

	indent := strings.Repeat(" ", 4)
	conditions := make([]string, 0, len(newVersions))
	for _, v := range newVersions {
		conditions = append(conditions,
			fmt.Sprintf(`[[ "${PYBIN}" == *"cp%d%d"* ]]`, v.Major, v.Minor))
	}
	replacement := indent + "if " +
		strings.Join(conditions, " || \\\n"+indent+"   ") + "; then\n"

	updated := make([]string, 0, len(lines))
	updated = append(updated, lines[:start]...)
	updated = append(updated, fileutil.SplitLines(replacement)...)
	updated = append(updated, lines[end:]...)
	return fileutil.FromLines(f.Name, updated)
}
