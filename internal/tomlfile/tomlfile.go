// Package tomlfile rewrites individual values in TOML files in place.
//
// Like the ini and yaml counterparts it works on raw lines, because
// serializing a decoded document would lose comments and formatting.
// Reading goes through github.com/BurntSushi/toml; this package is only
// the write path.
package tomlfile

import (
	"regexp"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
)

var tableRx = regexp.MustCompile(`^\s*\[\s*([^]]*?)\s*\]`)

// findKey locates the line carrying key inside [table].  The returned
// index is -1 when the table or the key is missing.
func findKey(lines []string, table, key string) int {
	inTable := false
	keyRx := regexp.MustCompile(`^\s*(?:` + regexp.QuoteMeta(key) +
		`|"` + regexp.QuoteMeta(key) + `")\s*=`)
	for n, line := range lines {
		if m := tableRx.FindStringSubmatch(line); m != nil {
			inTable = m[1] == table
			continue
		}
		if inTable && keyRx.MatchString(line) {
			return n
		}
	}
	return -1
}

// UpdateString replaces a string value inside a table, preserving the
// key's spelling, spacing, quote style and any trailing comment.  An
// unrecognized layout is a warning and leaves the file unchanged.
func UpdateString(f *fileutil.File, table, key, newValue string) *fileutil.File {
	lines := f.Lines
	n := findKey(lines, table, key)
	if n < 0 {
		diag.Warnf("Did not find %s = in [%s] in %s", key, table, f.Name)
		return f
	}
	valueRx := regexp.MustCompile(`^(\s*"?` + regexp.QuoteMeta(key) +
		`"?\s*=\s*)(['"])(?:[^'"\\]*)(['"])(.*)$`)
	m := valueRx.FindStringSubmatch(strings.TrimRight(lines[n], "\r\n"))
	if m == nil || m[2] != m[3] {
		diag.Warnf("Did not understand %s = value in %s", key, f.Name)
		return f
	}
	if strings.Contains(newValue, m[2]) {
		diag.Warnf("Did not update %s = in %s: unsafe characters in the new value",
			key, f.Name)
		return f
	}
	terminator := lines[n][len(strings.TrimRight(lines[n], "\r\n")):]
	updated := make([]string, len(lines))
	copy(updated, lines)
	updated[n] = m[1] + m[2] + newValue + m[3] + m[4] + terminator
	return fileutil.FromLines(f.Name, updated)
}

// UpdateList replaces the items of an array of strings inside a table.
// Inline single-line arrays stay on one line; multi-line arrays keep
// their indentation, quote style, interior comments and the closing
// bracket line.
func UpdateList(f *fileutil.File, table, key string, items []string) *fileutil.File {
	lines := f.Lines
	n := findKey(lines, table, key)
	if n < 0 {
		diag.Warnf("Did not find %s = in [%s] in %s", key, table, f.Name)
		return f
	}
	openRx := regexp.MustCompile(`^(\s*"?` + regexp.QuoteMeta(key) +
		`"?\s*=\s*)\[(.*)$`)
	m := openRx.FindStringSubmatch(strings.TrimRight(lines[n], "\r\n"))
	if m == nil {
		diag.Warnf("Did not understand %s = value in %s", key, f.Name)
		return f
	}
	head, rest := m[1], m[2]
	terminator := lines[n][len(strings.TrimRight(lines[n], "\r\n")):]
	if terminator == "" {
		terminator = "\n"
	}
	quote := `"`

	if strings.Contains(rest, "]") {
		// inline array
		if strings.HasPrefix(strings.TrimSpace(rest), "'") {
			quote = "'"
		}
		if !itemsQuotable(items, quote) {
			diag.Warnf("Did not update %s = in %s: unsafe characters in the new value",
				key, f.Name)
			return f
		}
		quoted := make([]string, len(items))
		for i, item := range items {
			quoted[i] = quote + item + quote
		}
		tail := rest[strings.LastIndex(rest, "]"):]
		updated := make([]string, len(lines))
		copy(updated, lines)
		updated[n] = head + "[" + strings.Join(quoted, ", ") + tail + terminator
		return fileutil.FromLines(f.Name, updated)
	}

	// multi-line array: scan for items and the closing bracket
	indent := "    "
	var comments []string
	end := -1
	sawItem := false
	for i := n + 1; i < len(lines); i++ {
		stripped := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(stripped, "]"):
			end = i
		case strings.HasPrefix(stripped, "#"):
			comments = append(comments, lines[i])
			continue
		case stripped == "":
			continue
		default:
			if !sawItem {
				indent = fileutil.GetIndent(lines[i])
				if strings.HasPrefix(stripped, "'") {
					quote = "'"
				}
				sawItem = true
			}
			continue
		}
		break
	}
	if end < 0 {
		diag.Warnf("Did not understand %s = value in %s", key, f.Name)
		return f
	}
	if !itemsQuotable(items, quote) {
		diag.Warnf("Did not update %s = in %s: unsafe characters in the new value",
			key, f.Name)
		return f
	}
	updated := make([]string, 0, len(lines))
	updated = append(updated, lines[:n]...)
	updated = append(updated, head+"["+terminator)
	updated = append(updated, comments...)
	for _, item := range items {
		updated = append(updated, indent+quote+item+quote+","+terminator)
	}
	updated = append(updated, lines[end:]...)
	return fileutil.FromLines(f.Name, updated)
}

func itemsQuotable(items []string, quote string) bool {
	for _, item := range items {
		if strings.Contains(item, quote) || strings.Contains(item, "\\") {
			return false
		}
	}
	return true
}
