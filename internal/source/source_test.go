package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgedmin/check-python-versions/internal/fileutil"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

var testReleases = versions.Releases{2: 7, 3: 14}

// fakeExtract reads one version number per line.
func fakeExtract(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	var vs []versions.Version
	for _, line := range f.Lines {
		if v := versions.Parse(line[:len(line)-1]); v.Major >= 0 {
			vs = append(vs, v)
		}
	}
	return vs, true
}

func registerTestSources(t *testing.T) {
	t.Helper()
	saved := registry
	registry = nil
	t.Cleanup(func() { registry = saved })
	Register(Source{
		Filename: "versions.txt",
		Extract:  fakeExtract,
		Update: func(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
			var lines []string
			for _, v := range newVersions {
				lines = append(lines, v.String()+"\n")
			}
			return fileutil.FromLines(f.Name, lines)
		},
		Priority: 20,
	})
	Register(Source{
		Title:    "ci versions",
		Filename: "ci/*.txt",
		Extract:  fakeExtract,
		Priority: 10,
	})
}

func TestAllOrdersByPriority(t *testing.T) {
	registerTestSources(t)
	all := All()
	require.Len(t, all, 2)
	assert.Equal(t, "ci versions", all[0].Title)
	assert.Equal(t, "versions.txt", all[1].Title)
}

func TestRegisterDefaultsTitleToFilename(t *testing.T) {
	registerTestSources(t)
	assert.Equal(t, "versions.txt", All()[1].Title)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	pathname := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(pathname), 0755))
	require.NoError(t, os.WriteFile(pathname, []byte(content), 0644))
	return pathname
}

func TestScan(t *testing.T) {
	registerTestSources(t)
	tmp := t.TempDir()
	writeFile(t, tmp, "versions.txt", "2.7\n3.6\n")
	writeFile(t, tmp, "ci/tests.txt", "3.6\n")

	scanned, err := Scan(tmp, ScanOptions{}, testReleases)
	require.NoError(t, err)
	require.Len(t, scanned, 2)
	assert.Equal(t, "ci/tests.txt", scanned[0].Title)
	assert.Equal(t, []versions.Version{versions.Parse("3.6")}, scanned[0].Versions)
	assert.Equal(t, "versions.txt", scanned[1].Title)
	assert.Equal(t, []versions.Version{versions.Parse("2.7"), versions.Parse("3.6")}, scanned[1].Versions)
}

func TestScanOnlyRelpath(t *testing.T) {
	registerTestSources(t)
	tmp := t.TempDir()
	writeFile(t, tmp, "versions.txt", "2.7\n")
	writeFile(t, tmp, "ci/tests.txt", "3.6\n")

	scanned, err := Scan(tmp, ScanOptions{
		Only: map[string]bool{"ci/tests.txt": true},
	}, testReleases)
	require.NoError(t, err)
	require.Len(t, scanned, 1)
	assert.Equal(t, "ci/tests.txt", scanned[0].Title)
}

func TestScanOnlyGlobPattern(t *testing.T) {
	registerTestSources(t)
	tmp := t.TempDir()
	writeFile(t, tmp, "versions.txt", "2.7\n")
	writeFile(t, tmp, "ci/tests.txt", "3.6\n")

	scanned, err := Scan(tmp, ScanOptions{
		Only: map[string]bool{"ci/*.txt": true},
	}, testReleases)
	require.NoError(t, err)
	require.Len(t, scanned, 1)
	assert.Equal(t, "ci/tests.txt", scanned[0].Title)
}

func TestScanSupportsUpdate(t *testing.T) {
	registerTestSources(t)
	tmp := t.TempDir()
	writeFile(t, tmp, "versions.txt", "2.7\n")
	writeFile(t, tmp, "ci/tests.txt", "3.6\n")

	scanned, err := Scan(tmp, ScanOptions{SupportsUpdate: true}, testReleases)
	require.NoError(t, err)
	require.Len(t, scanned, 1)
	assert.Equal(t, "versions.txt", scanned[0].Title)
}

func TestScanReplacements(t *testing.T) {
	registerTestSources(t)
	tmp := t.TempDir()
	pathname := writeFile(t, tmp, "versions.txt", "2.7\n")

	scanned, err := Scan(tmp, ScanOptions{
		Replacements: map[string][]string{
			pathname: {"3.6\n", "3.7\n"},
		},
	}, testReleases)
	require.NoError(t, err)
	require.Len(t, scanned, 1)
	assert.Equal(t, []versions.Version{versions.Parse("3.6"), versions.Parse("3.7")}, scanned[0].Versions)
}
