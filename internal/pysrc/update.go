package pysrc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
)

// literalSafe limits the characters allowed into generated string
// literals, so no quoting logic is needed beyond flipping the quote when a
// classifier contains an apostrophe.  python_requires values use all sorts
// of comparison operators, hence the wide set.
const literalSafe = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789 .:,-=><!~*()/+'#"

// ToLiteral converts a string value to a Python string literal.  An error
// means the value contains characters this writer refuses to quote.
func ToLiteral(value, quoteStyle string) (string, error) {
	for _, c := range value {
		if !strings.ContainsRune(literalSafe, c) {
			return "", fmt.Errorf("%q has unexpected characters", value)
		}
	}
	if quoteStyle == "'" && strings.Contains(value, quoteStyle) {
		quoteStyle = `"`
	}
	if strings.Contains(value, quoteStyle) {
		return "", fmt.Errorf("%q cannot be quoted with %s", value, quoteStyle)
	}
	return quoteStyle + value + quoteStyle, nil
}

func mustLiteral(value, quoteStyle string) string {
	literal, err := ToLiteral(value, quoteStyle)
	if err != nil {
		// callers verify safety up front
		panic(err)
	}
	return literal
}

func literalsSafe(value Value) bool {
	items := value.List
	if !value.IsList {
		items = []string{value.Str}
	}
	for _, item := range items {
		if _, err := ToLiteral(item, `"`); err != nil {
			return false
		}
	}
	return true
}

// UpdateCallArg replaces the value passed to a keyword argument of the
// first call to one of functions, preserving the file's indentation,
// quoting and bracket placement.  When the layout is not recognized the
// file is returned unchanged, with a warning naming the argument.
func UpdateCallArg(f *fileutil.File, functions []string, keyword string, newValue Value) *fileutil.File {
	lines := f.Lines
	callRx := callRegexp(functions)
	n := 0
	var fname string
	for ; n < len(lines); n++ {
		if m := callRx.FindStringSubmatch(lines[n]); m != nil {
			fname = m[1]
			break
		}
	}
	if n == len(lines) {
		diag.Warnf("Did not find %s() call in %s", functions[0], f.Name)
		return f
	}

	kwargRx := regexp.MustCompile(`^(?P<indent>\s*)` + regexp.QuoteMeta(keyword) +
		`(?P<eq>\s*=\s*)(?P<rest>.*)`)
	var firstIndent, eq, rest string
	for n++; n < len(lines); n++ {
		if m := kwargRx.FindStringSubmatch(lines[n]); m != nil {
			firstIndent, eq, rest = m[1], m[2], m[3]
			break
		}
	}
	if n == len(lines) {
		diag.Warnf("Did not find %s= argument in %s() call in %s", keyword, fname, f.Name)
		return f
	}
	if !literalsSafe(newValue) {
		diag.Warnf("Did not update %s= in %s: unsafe characters in the new value",
			keyword, f.Name)
		return f
	}

	quoteStyle := `"`
	joined := false
	start := n
	var end int
	indent := firstIndent + "    "
	fixClosingBracket := false

	switch {
	case newValue.IsList:
		if strings.HasPrefix(rest, "[]") {
			fixClosingBracket = true
			end = n + 1
		} else {
			mustFixIndents := strings.TrimRight(rest, " \t\r\n") != "["
			found := false
			for n++; n < len(lines); n++ {
				stripped := strings.TrimLeft(lines[n], " \t")
				if strings.HasPrefix(stripped, "]") {
					end = n
					found = true
					break
				}
				if strings.TrimRight(stripped, "\r\n") != "" {
					if !mustFixIndents {
						indent = fileutil.GetIndent(lines[n])
					}
					if stripped[0] == '"' || stripped[0] == '\'' {
						quoteStyle = string(stripped[0])
					}
					if strings.HasSuffix(strings.TrimRight(lines[n], " \t\r\n"), "],") {
						end = n + 1
						fixClosingBracket = true
						found = true
						break
					}
				}
			}
			if !found {
				diag.Warnf("Did not understand %s= formatting in %s() call in %s",
					keyword, fname, f.Name)
				return f
			}
		}
	case strings.HasSuffix(rest, ".join(["):
		joined = true
		found := false
		for n++; n < len(lines); n++ {
			stripped := strings.TrimLeft(lines[n], " \t")
			if strings.HasPrefix(stripped, "]") {
				end = n + 1
				fixClosingBracket = true
				found = true
				break
			}
		}
		if !found {
			diag.Warnf("Did not understand %s= formatting in %s() call in %s",
				keyword, fname, f.Name)
			return f
		}
	default:
		end = n + 1
	}

	var updated []string
	updated = append(updated, lines[:start]...)
	switch {
	case newValue.IsList:
		updated = append(updated, firstIndent+keyword+eq+"[\n")
		for _, value := range newValue.List {
			updated = append(updated, indent+mustLiteral(value, quoteStyle)+",\n")
		}
		if fixClosingBracket {
			updated = append(updated, firstIndent+"],\n")
		}
	case joined:
		if strings.HasPrefix(rest, "'") {
			quoteStyle = "'"
		}
		comma := ", "
		if !strings.Contains(newValue.Str, comma) {
			comma = ","
		}
		values := strings.Split(newValue.Str, comma)
		updated = append(updated,
			firstIndent+keyword+eq+mustLiteral(comma, quoteStyle)+".join([\n")
		for _, value := range values {
			updated = append(updated, indent+mustLiteral(value, quoteStyle)+",\n")
		}
		if fixClosingBracket {
			updated = append(updated, firstIndent+"]),\n")
		}
	default:
		if strings.HasPrefix(rest, "'") {
			quoteStyle = "'"
		}
		updated = append(updated,
			firstIndent+keyword+eq+mustLiteral(newValue.Str, quoteStyle)+",\n")
	}
	updated = append(updated, lines[end:]...)
	return fileutil.FromLines(f.Name, updated)
}

func callRegexp(functions []string) *regexp.Regexp {
	quoted := make([]string, len(functions))
	for i, fn := range functions {
		quoted[i] = regexp.QuoteMeta(fn)
	}
	return regexp.MustCompile(`^(` + strings.Join(quoted, "|") + `)\s*\(`)
}
