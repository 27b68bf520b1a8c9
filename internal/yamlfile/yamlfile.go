// Package yamlfile rewrites lists and nodes in YAML documents in place.
//
// A standard YAML serializer would lose comments and formatting, so
// updates work on raw lines.  Reading is a different story and goes
// through gopkg.in/yaml.v3.
package yamlfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
)

const quoteSafe = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789.-"

// QuoteString converts a string value to a YAML scalar.  Version numbers
// that would decode as a different float get forced quotes: 3.10 in bare
// YAML evaluates to 3.1, not "3.10".  An error means the value contains
// characters this writer refuses to quote.
func QuoteString(value, quoteStyle string) (string, error) {
	for _, c := range value {
		if !strings.ContainsRune(quoteSafe, c) {
			return "", fmt.Errorf("%q has unexpected characters", value)
		}
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		// the canonical spelling keeps a trailing .0, so "3" needs quotes
		// just like "3.10" (which would otherwise decode as 3.1)
		canonical := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(canonical, ".e") {
			canonical += ".0"
		}
		if canonical != value {
			quoteStyle = `"`
		}
	}
	return quoteStyle + value + quoteStyle, nil
}

// UpdateList replaces the items of a list somewhere in a YAML document,
// preserving comments and formatting.  keyPath is the traversal path from
// the root.  Old items for which keep returns true survive the update,
// optionally rewritten via replacements; comments and nested block
// content attached to kept items survive with them.  Items are raw
// strings, no YAML decoding or encoding takes place.
func UpdateList(
	f *fileutil.File,
	keyPath []string,
	newValue []string,
	keep func(string) bool,
	replacements map[string]string,
) *fileutil.File {
	lines := f.Lines
	current := 0
	indents := []int{0}
	n := 0
	found := false
	for ; n < len(lines); n++ {
		stripped := strings.TrimLeft(lines[n], " \t\r\n")
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		indent := len(lines[n]) - len(stripped)
		if current >= len(indents) {
			indents = append(indents, indent)
		} else if indent > indents[current] {
			continue
		} else {
			for current > 0 && indent < indents[current] {
				indents = indents[:current]
				current--
			}
		}
		if strings.HasPrefix(stripped, keyPath[current]+":") {
			current++
			if current == len(keyPath) {
				found = true
				break
			}
		}
	}
	if !found {
		diag.Warnf("Did not find %s: setting in %s", strings.Join(keyPath, "."), f.Name)
		return f
	}

	start := n
	end := n + 1
	indent := 2
	listIndent := -1
	var keepBefore, keepAfter []string
	linesToKeep := &keepBefore
	keptLast := false
	for n++; n < len(lines); n++ {
		line := lines[n]
		stripped := strings.TrimLeft(line, " \t\r\n")
		lineIndent := len(line) - len(stripped)
		if listIndent < 0 && strings.HasPrefix(stripped, "- ") {
			listIndent = lineIndent
		}
		switch {
		case strings.HasPrefix(stripped, "- ") && lineIndent == listIndent:
			indent = lineIndent
			end = n + 1
			value := strings.TrimSpace(stripped[2:])
			keptLast = keep != nil && keep(value)
			if keptLast {
				if replacement, ok := replacements[value]; ok {
					*linesToKeep = append(*linesToKeep,
						strings.Repeat(" ", indent)+"- "+replacement+"\n")
				} else {
					*linesToKeep = append(*linesToKeep, line)
				}
			}
			linesToKeep = &keepAfter
		case strings.HasPrefix(stripped, "#"):
			*linesToKeep = append(*linesToKeep, line)
			end = n + 1
		case lineIndent > indent:
			if keptLast {
				*linesToKeep = append(*linesToKeep, line)
			}
			end = n + 1
		case line != "\n":
			n = len(lines)
		}
	}

	updated := make([]string, 0, len(lines))
	updated = append(updated, lines[:start]...)
	updated = append(updated,
		strings.Repeat(" ", indents[len(indents)-1])+keyPath[len(keyPath)-1]+":\n")
	updated = append(updated, keepBefore...)
	for _, value := range newValue {
		updated = append(updated, strings.Repeat(" ", indent)+"- "+value+"\n")
	}
	updated = append(updated, keepAfter...)
	updated = append(updated, lines[end:]...)
	return fileutil.FromLines(f.Name, updated)
}

// DropNode removes a top-level node and its block from a YAML document.
// An absent key is not an error; a duplicated one gets a warning and the
// last occurrence wins.
func DropNode(f *fileutil.File, key string) *fileutil.File {
	lines := f.Lines
	where := -1
	for n, line := range lines {
		if strings.HasPrefix(line, key+":") {
			if where >= 0 {
				diag.Warnf("Duplicate %s: setting in %s (lines %d and %d)",
					key, f.Name, where+1, n+1)
			}
			where = n
		}
	}
	if where < 0 {
		return f
	}

	end := where + 1
	for n := where + 1; n < len(lines); n++ {
		if lines[n] != "" && lines[n][0] != ' ' {
			break
		}
		end = n + 1
	}
	updated := make([]string, 0, len(lines))
	updated = append(updated, lines[:where]...)
	updated = append(updated, lines[end:]...)
	return fileutil.FromLines(f.Name, updated)
}

// AddNode adds a top-level key: value line to a YAML document, at the end
// or before the first key named in before.
func AddNode(f *fileutil.File, key, value string, before []string) *fileutil.File {
	lines := f.Lines
	where := len(lines)
	for n, line := range lines {
		stop := false
		for _, b := range before {
			if line == b+":\n" {
				stop = true
				break
			}
		}
		if stop {
			where = n
			break
		}
	}
	updated := make([]string, 0, len(lines)+1)
	updated = append(updated, lines[:where]...)
	updated = append(updated, key+": "+value+"\n")
	updated = append(updated, lines[where:]...)
	return fileutil.FromLines(f.Name, updated)
}
