// Package source defines the registry of version sources: the files in a
// Python project that declare supported Python versions.
//
// Each file format lives in its own subpackage and registers itself from
// an init function; importing a subpackage for side effects enables it.
package source

import (
	"path/filepath"
	"sort"

	"github.com/mgedmin/check-python-versions/internal/fileutil"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

// ExtractFn reads the declared versions out of a file.  ok is false when
// the file does not declare anything (as opposed to declaring an empty
// set).
type ExtractFn func(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool)

// UpdateFn returns a copy of the file with the declared versions
// replaced, preserving formatting.  Unrecognized layouts warn and return
// the file unchanged.
type UpdateFn func(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File

// Source describes one kind of file that declares Python versions.
type Source struct {
	// Title is used in reports; it defaults to Filename.
	Title string

	// Filename is a glob pattern relative to the project root.
	Filename string

	Extract ExtractFn

	// Update is nil for read-only sources.
	Update UpdateFn

	// CheckPyPyConsistency marks sources that can declare PyPy support,
	// so the checker can compare them against each other.
	CheckPyPyConsistency bool

	// HasUpperBound is false for sources like python_requires that
	// usually declare ">= X" with no ceiling; the checker compensates
	// when comparing against bounded sources.
	HasUpperBound bool

	// Priority orders report output.  It is only mildly important.
	Priority int
}

var registry []Source

// Register adds a source to the registry, typically from an init
// function in the source's package.
func Register(s Source) {
	if s.Title == "" {
		s.Title = s.Filename
	}
	registry = append(registry, s)
}

// All returns the registered sources in presentation order.
func All() []Source {
	sources := make([]Source, len(registry))
	copy(sources, registry)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority < sources[j].Priority
	})
	return sources
}

// ScannedFile is a source matched to an actual file with its extracted
// versions.
type ScannedFile struct {
	Source   Source
	Title    string
	Pathname string
	Versions []versions.Version
}

// ScanOptions controls which files Scan considers and what content it
// reads for them.
type ScanOptions struct {
	// Only, when non-empty, limits the scan to files whose relative
	// path or source pattern is listed.
	Only map[string]bool

	// Replacements substitutes in-memory content for a pathname; it is
	// how multiple updates to the same physical file are chained
	// without intermediate writes.
	Replacements map[string][]string

	// SupportsUpdate skips read-only sources.
	SupportsUpdate bool
}

// Load fetches a file for scanning, honoring any pending replacement.
func (o ScanOptions) Load(pathname string) (*fileutil.File, error) {
	if lines, ok := o.Replacements[pathname]; ok {
		return fileutil.FromLines(pathname, lines), nil
	}
	return fileutil.Load(pathname)
}

// Scan finds all version-declaring files in a project directory.
func Scan(where string, opts ScanOptions, rel versions.Releases) ([]ScannedFile, error) {
	var found []ScannedFile
	for _, src := range All() {
		if opts.SupportsUpdate && src.Update == nil {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(where, src.Filename))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		for _, pathname := range matches {
			relpath, err := filepath.Rel(where, pathname)
			if err != nil {
				relpath = pathname
			}
			relpath = filepath.ToSlash(relpath)
			if len(opts.Only) > 0 && !opts.Only[relpath] && !opts.Only[src.Filename] {
				continue
			}
			f, err := opts.Load(pathname)
			if err != nil {
				return nil, err
			}
			extracted, ok := src.Extract(f, rel)
			if !ok {
				continue
			}
			title := src.Title
			if src.Title == src.Filename {
				title = relpath
			}
			found = append(found, ScannedFile{
				Source:   src,
				Title:    title,
				Pathname: pathname,
				Versions: extracted,
			})
		}
	}
	return found, nil
}
