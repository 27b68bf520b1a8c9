// Package fileutil provides the line-oriented file representation that all
// format-preserving updates flow through.
//
// Files are held as a sequence of lines, each retaining its own line
// terminator, so that an updater can splice in replacement lines and leave
// every untouched byte exactly as it was on disk. A File can be loaded from
// the filesystem or built from an in-memory buffer, which lets two updaters
// that target the same physical file be chained without an intermediate
// write (see the replacement-chaining pattern in the cli package).
package fileutil

import (
	"fmt"
	"os"
	"strings"
)

// File is a text file represented as a name plus a sequence of lines.
// Lines retain their terminators. Updaters never mutate Lines in place;
// they return a fresh slice.
type File struct {
	Name  string
	Lines []string
}

// Load reads a file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &File{Name: path, Lines: SplitLines(string(data))}, nil
}

// FromString builds an in-memory File. The name is used for diagnostics
// only; nothing is read from or written to disk.
func FromString(name, content string) *File {
	return &File{Name: name, Lines: SplitLines(content)}
}

// FromLines builds an in-memory File from an already-split line sequence.
func FromLines(name string, lines []string) *File {
	return &File{Name: name, Lines: lines}
}

// Text joins the lines back into the full file content.
func (f *File) Text() string {
	return strings.Join(f.Lines, "")
}

// SplitLines splits content into lines, each keeping its trailing newline.
// A final line without a terminator is kept as-is.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	for {
		i := strings.IndexByte(content, '\n')
		if i < 0 {
			lines = append(lines, content)
			return lines
		}
		lines = append(lines, content[:i+1])
		content = content[i+1:]
		if content == "" {
			return lines
		}
	}
}

// GetIndent returns the leading whitespace of a line.
func GetIndent(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
