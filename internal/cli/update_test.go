package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgedmin/check-python-versions/internal/versions"
)

func fakeStdin(t *testing.T, input string) {
	t.Helper()
	old := stdin
	stdin = strings.NewReader(input)
	t.Cleanup(func() { stdin = old })
}

func readFile(t *testing.T, pathname string) string {
	t.Helper()
	content, err := os.ReadFile(pathname)
	require.NoError(t, err)
	return string(content)
}

func TestUpdateVersions(t *testing.T) {
	fakeStdin(t, "y\n")
	tmp := t.TempDir()
	pathname := writeFile(t, tmp, "setup.py", setupPy)
	var buf bytes.Buffer
	_, err := updateVersions(&buf, tmp, updateOptions{
		Add: vl("3.7"),
	}, testReleases)
	require.NoError(t, err)
	assert.Equal(t, `from setuptools import setup
setup(
    name='foo',
    classifiers=[
        'Programming Language :: Python :: 2.7',
        'Programming Language :: Python :: 3.6',
        'Programming Language :: Python :: 3.7',
    ],
)
`, readFile(t, pathname))
	assert.Contains(t, buf.String(), "Write changes to "+pathname+"? [y/N] ")
}

func TestUpdateVersionsRejected(t *testing.T) {
	fakeStdin(t, "n\n")
	tmp := t.TempDir()
	pathname := writeFile(t, tmp, "setup.py", setupPy)
	var buf bytes.Buffer
	_, err := updateVersions(&buf, tmp, updateOptions{
		Add: vl("3.7"),
	}, testReleases)
	require.NoError(t, err)
	assert.Equal(t, setupPy, readFile(t, pathname))
}

func TestUpdateVersionsKeepsFileMode(t *testing.T) {
	fakeStdin(t, "y\n")
	tmp := t.TempDir()
	pathname := writeFile(t, tmp, "setup.py", setupPy)
	require.NoError(t, os.Chmod(pathname, 0755))
	var buf bytes.Buffer
	_, err := updateVersions(&buf, tmp, updateOptions{
		Add: vl("3.7"),
	}, testReleases)
	require.NoError(t, err)
	info, err := os.Stat(pathname)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestUpdateVersionsDryRun(t *testing.T) {
	tmp := t.TempDir()
	pathname := writeFile(t, tmp, "setup.py", setupPy)
	var buf bytes.Buffer
	replacements, err := updateVersions(&buf, tmp, updateOptions{
		Add:    vl("3.7"),
		DryRun: true,
	}, testReleases)
	require.NoError(t, err)
	assert.Equal(t, setupPy, readFile(t, pathname))
	assert.Equal(t, `from setuptools import setup
setup(
    name='foo',
    classifiers=[
        'Programming Language :: Python :: 2.7',
        'Programming Language :: Python :: 3.6',
        'Programming Language :: Python :: 3.7',
    ],
)
`, strings.Join(replacements[pathname], ""))
}

func TestUpdateVersionsDryRunTwoUpdatersOneFile(t *testing.T) {
	rel := versions.Releases{2: 7, 3: 7}
	tmp := t.TempDir()
	pathname := writeFile(t, tmp, "setup.py", `from setuptools import setup
setup(
    name='foo',
    python_requires='>=2.7',
    classifiers=[
        'Programming Language :: Python :: 2.7',
        'Programming Language :: Python :: 3.6',
    ],
)
`)
	var buf bytes.Buffer
	replacements, err := updateVersions(&buf, tmp, updateOptions{
		Update: vl("2.7 3.4 3.5 3.6 3.7"),
		DryRun: true,
	}, rel)
	require.NoError(t, err)
	assert.Equal(t, `from setuptools import setup
setup(
    name='foo',
    python_requires='>=2.7, !=3.0.*, !=3.1.*, !=3.2.*, !=3.3.*',
    classifiers=[
        'Programming Language :: Python :: 2.7',
        'Programming Language :: Python :: 3.4',
        'Programming Language :: Python :: 3.5',
        'Programming Language :: Python :: 3.6',
        'Programming Language :: Python :: 3.7',
    ],
)
`, strings.Join(replacements[pathname], ""))
}

func TestUpdateVersionsDiff(t *testing.T) {
	tmp := t.TempDir()
	pathname := writeFile(t, tmp, "setup.py", setupPy)
	var buf bytes.Buffer
	_, err := updateVersions(&buf, tmp, updateOptions{
		Add:  vl("3.7"),
		Diff: true,
	}, testReleases)
	require.NoError(t, err)
	assert.Equal(t, setupPy, readFile(t, pathname))
	out := buf.String()
	assert.Contains(t, out, "--- "+pathname+"\t(original)\n")
	assert.Contains(t, out, "+++ "+pathname+"\t(updated)\n")
	assert.Contains(t, out,
		"+        'Programming Language :: Python :: 3.7',\n")
	assert.NotContains(t, out, "Write changes")
}

func TestUpdateVersionsNoChange(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "setup.py", setupPy)
	var buf bytes.Buffer
	replacements, err := updateVersions(&buf, tmp, updateOptions{
		Add:    vl("3.6"),
		DryRun: true,
	}, testReleases)
	require.NoError(t, err)
	assert.Empty(t, replacements)
	assert.Empty(t, buf.String())
}

func TestUpdateVersionsOnly(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "setup.py", `from setuptools import setup
setup(
    name='foo',
    classifiers=[
        'Programming Language :: Python :: 2.7',
    ],
)
`)
	toxIni := writeFile(t, tmp, "tox.ini", "[tox]\nenv_list = py27\n")
	var buf bytes.Buffer
	replacements, err := updateVersions(&buf, tmp, updateOptions{
		Add:    vl("3.6"),
		DryRun: true,
		Only:   map[string]bool{"tox.ini": true},
	}, testReleases)
	require.NoError(t, err)
	require.Len(t, replacements, 1)
	assert.Equal(t, "[tox]\nenv_list = py27,py36\n",
		strings.Join(replacements[toxIni], ""))
}

func TestConfirm(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"x\nn\n", false},
		{"x\ny\n", true},
	} {
		fakeStdin(t, tc.input)
		var buf bytes.Buffer
		assert.Equal(t, tc.want, confirm(&buf, "Write changes to setup.py?"), "%q", tc.input)
		assert.Contains(t, buf.String(), "Write changes to setup.py? [y/N] ")
	}
}
