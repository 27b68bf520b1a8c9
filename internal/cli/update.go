package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/mgedmin/check-python-versions/internal/source"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

// stdin is swapped out by tests that exercise the confirmation prompt.
var stdin io.Reader = os.Stdin

// updateOptions tweaks a version update.
type updateOptions struct {
	// Add extends the supported versions, Drop removes from them, and
	// Update replaces them outright.  Add and Drop may be combined.
	Add    []versions.Version
	Drop   []versions.Version
	Update []versions.Version

	// Diff prints proposed changes to standard output instead of
	// writing any files.
	Diff bool

	// DryRun returns proposed changes in a replacement dict instead of
	// asking for confirmation and writing them to disk.
	DryRun bool

	// Only limits the update to a subset of the files.
	Only map[string]bool
}

// updateVersions updates the supported Python versions for a single
// package, located in where.
//
// Updated file contents are accumulated in a replacement dict keyed by
// pathname, so that two updaters touching the same file (setup.py has
// both classifiers and python_requires) see each other's changes without
// intermediate writes to disk.
func updateVersions(w io.Writer, where string, opts updateOptions, rel versions.Releases) (map[string][]string, error) {
	replacements := map[string][]string{}

	scanOpts := source.ScanOptions{
		Only:           opts.Only,
		Replacements:   replacements,
		SupportsUpdate: true,
	}
	scanned, err := source.Scan(where, scanOpts, rel)
	if err != nil {
		return nil, err
	}

	for _, sf := range scanned {
		vs := versions.Important(sf.Versions, rel)
		newVersions := versions.Update(vs, opts.Add, opts.Drop, opts.Update)
		if versions.Equal(vs, newVersions) {
			continue
		}
		f, err := scanOpts.Load(sf.Pathname)
		if err != nil {
			return nil, err
		}
		updated := sf.Source.Update(f, newVersions, rel)
		if updated == nil {
			continue
		}
		if opts.Diff {
			showDiff(w, sf.Pathname, f.Lines, updated.Lines)
		}
		if opts.DryRun {
			replacements[sf.Pathname] = updated.Lines
		}
		if !opts.Diff && !opts.DryRun {
			if err := confirmAndUpdateFile(w, sf.Pathname, f.Lines, updated.Lines); err != nil {
				return nil, err
			}
		}
	}

	return replacements, nil
}

// confirmAndUpdateFile rewrites a file with new content, after showing a
// diff and asking for confirmation.  The write goes through a temporary
// file with the original permissions, renamed into place.
func confirmAndUpdateFile(w io.Writer, pathname string, oldLines, newLines []string) error {
	if !showDiff(w, pathname, oldLines, newLines) {
		return nil
	}
	if !confirm(w, fmt.Sprintf("Write changes to %s?", pathname)) {
		return nil
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	tempfile := pathname + ".tmp"
	if err := os.WriteFile(tempfile, []byte(strings.Join(newLines, "")), mode); err != nil {
		return err
	}
	// WriteFile's mode is subject to the umask on creation.
	if err := os.Chmod(tempfile, mode); err != nil {
		os.Remove(tempfile)
		return err
	}
	if err := os.Rename(tempfile, pathname); err != nil {
		os.Remove(tempfile)
		return err
	}
	return nil
}

// showDiff prints the difference between two versions of a file and
// reports whether they differ at all.
func showDiff(w io.Writer, filename string, oldLines, newLines []string) bool {
	printDiff(w, oldLines, newLines, filename)
	if len(oldLines) != len(newLines) {
		return true
	}
	for i := range oldLines {
		if oldLines[i] != newLines[i] {
			return true
		}
	}
	return false
}

func printDiff(w io.Writer, a, b []string, filename string) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: filename,
		ToFile:   filename,
		FromDate: "(original)",
		ToDate:   "(updated)",
		Context:  3,
	})
	if err != nil {
		return
	}
	fmt.Fprintln(w, text)
}

// confirm asks the user to confirm an action.
func confirm(w io.Writer, prompt string) bool {
	reader := bufio.NewReader(stdin)
	for {
		fmt.Fprintf(w, "%s [y/N] ", prompt)
		line, err := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y":
			fmt.Fprintln(w)
			return true
		case "", "n":
			fmt.Fprintln(w)
			return false
		}
		if err != nil {
			fmt.Fprintln(w)
			return false
		}
	}
}
