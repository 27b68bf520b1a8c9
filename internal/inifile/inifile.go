// Package inifile rewrites individual settings in .ini files in place.
//
// A standard INI serializer would lose comments and formatting, so the
// update works on raw lines and only touches the setting being changed.
// Reading, by contrast, goes through a real parser (gopkg.in/ini.v1).
package inifile

import (
	"regexp"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
)

// UpdateSetting updates one key in one section of an .ini file,
// preserving formatting and comments.  Multi-line values keep the
// original continuation indent.  A missing section or key is a warning
// and leaves the file unchanged.
func UpdateSetting(f *fileutil.File, section, key, newValue string) *fileutil.File {
	lines := f.Lines
	n := 0
	for ; n < len(lines); n++ {
		if strings.HasPrefix(lines[n], "["+section+"]") {
			break
		}
	}
	if n == len(lines) {
		diag.Warnf("Did not find [%s] section in %s", section, f.Name)
		return f
	}

	keyRx := regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `(\s*)=(\s*)`)
	space, prefix := " ", " "
	start := -1
	for n++; n < len(lines); n++ {
		rstripped := strings.TrimRight(lines[n], " \t\r\n")
		if m := keyRx.FindStringSubmatch(rstripped); m != nil {
			start = n
			space = m[1]
			if !strings.HasSuffix(rstripped, "=") {
				prefix = m[2]
			}
			break
		}
	}
	if start < 0 {
		diag.Warnf("Did not find %s= in [%s] in %s", key, section, f.Name)
		return f
	}

	// scan the continuation lines; comment lines belong to the value only
	// when another continuation line follows them
	end := start + 1
	var comments, pendingComments []string
	indent := "  "
	for n++; n < len(lines); n++ {
		switch {
		case strings.HasPrefix(lines[n], " "):
			indent = fileutil.GetIndent(lines[n])
			comments = append(comments, pendingComments...)
			pendingComments = nil
			end = n + 1
		case strings.HasPrefix(strings.TrimLeft(lines[n], " \t"), "#"):
			pendingComments = append(pendingComments, lines[n])
		default:
			n = len(lines)
		}
	}

	firstLine := strings.ReplaceAll(
		strings.ReplaceAll(strings.TrimSpace(lines[start]), "\t", " "), " ", "")
	if firstLine == key+"=" && end > start+1 {
		prefix = "\n" + strings.Join(comments, "") + indent
	}

	newValue = strings.ReplaceAll(newValue, "\n", "\n"+indent)
	updated := make([]string, 0, len(lines))
	updated = append(updated, lines[:start]...)
	updated = append(updated, fileutil.SplitLines(key+space+"="+prefix+newValue+"\n")...)
	updated = append(updated, lines[end:]...)
	return fileutil.FromLines(f.Name, updated)
}
