package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgedmin/check-python-versions/internal/versions"
)

var testReleases = versions.Releases{1: 6, 2: 7, 3: 14}

func vl(vs string) []versions.Version {
	if vs == "" {
		return nil
	}
	var out []versions.Version
	for _, s := range strings.Split(vs, " ") {
		out = append(out, versions.Parse(s))
	}
	return out
}

func TestParseVersionList(t *testing.T) {
	got, err := parseVersionList("2.7,3.4-3.6", testReleases)
	require.NoError(t, err)
	assert.Equal(t, vl("2.7 3.4 3.5 3.6"), got)
}

func TestParseVersionList310(t *testing.T) {
	got, err := parseVersionList("3.7-3.10", testReleases)
	require.NoError(t, err)
	assert.Equal(t, vl("3.7 3.8 3.9 3.10"), got)
}

func TestParseVersionListMagicRange(t *testing.T) {
	rel := versions.Releases{2: 7, 3: 7}

	got, err := parseVersionList("2.7,3.4-", rel)
	require.NoError(t, err)
	assert.Equal(t, vl("2.7 3.4 3.5 3.6 3.7"), got)

	got, err = parseVersionList("2.6,-3.4", rel)
	require.NoError(t, err)
	assert.Equal(t, vl("2.6 3.0 3.1 3.2 3.3 3.4"), got)
}

func TestParseVersionListBadRange(t *testing.T) {
	for _, bad := range []struct {
		arg string
		err string
	}{
		{"4.1-", "bad range: 4.1-"},
		{"-", "bad range: -"},
		{"2.7-3.4", "bad range: 2.7-3.4 (2 != 3)"},
	} {
		_, err := parseVersionList(bad.arg, testReleases)
		assert.EqualError(t, err, bad.err, bad.arg)
	}
}

func TestParseVersionListBadNumber(t *testing.T) {
	for _, bad := range []string{"2.x", "2", "2.7.1", "xyzzy"} {
		_, err := parseVersionList(bad, testReleases)
		assert.Error(t, err, bad)
	}
}

func TestIsPackage(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "setup.py"), nil, 0644))
	assert.True(t, isPackage(tmp))
}

func TestIsPackageWithPyproject(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "pyproject.toml"), nil, 0644))
	assert.True(t, isPackage(tmp))
}

func TestIsPackageNoSetupPy(t *testing.T) {
	assert.False(t, isPackage(t.TempDir()))
}

func TestCheckPackageNotADirectory(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, checkPackage(&buf, filepath.Join(t.TempDir(), "xyzzy")))
	assert.Equal(t, "not a directory\n", buf.String())
}

func TestCheckPackageNotAPackage(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, checkPackage(&buf, t.TempDir()))
	assert.Equal(t,
		"no setup.py or pyproject.toml -- not a Python package?\n",
		buf.String())
}

func TestCheckPackage(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "setup.py"), nil, 0644))
	var buf bytes.Buffer
	assert.True(t, checkPackage(&buf, tmp))
	assert.Empty(t, buf.String())
}
