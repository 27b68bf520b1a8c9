package pyproject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgedmin/check-python-versions/internal/fileutil"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

var testReleases = versions.Releases{2: 7, 3: 7}

func vl(vs ...string) []versions.Version {
	out := make([]versions.Version, 0, len(vs))
	for _, v := range vs {
		out = append(out, versions.Parse(v))
	}
	return out
}

const poetryToml = `[tool.poetry]
name = "example"
classifiers = [
    "Development Status :: 4 - Beta",
    "Programming Language :: Python :: 3.6",
]

[tool.poetry.dependencies]
python = "^3.6"
`

const setuptoolsToml = `[build-system]
requires = ["setuptools", "wheel"]
build-backend = "setuptools.build_meta"

[project]
name = "example"
requires-python = ">=3.6"
classifiers = [
    "Programming Language :: Python :: 3.6",
    "Programming Language :: Python :: 3.7",
]
`

func TestBackendDetection(t *testing.T) {
	poetry, _ := decode(fileutil.FromString("pyproject.toml", poetryToml))
	assert.True(t, isPoetry(poetry))
	assert.False(t, isSetuptools(poetry))

	setuptools, _ := decode(fileutil.FromString("pyproject.toml", setuptoolsToml))
	assert.True(t, isSetuptools(setuptools))
	assert.False(t, isPoetry(setuptools))

	flit, _ := decode(fileutil.FromString("pyproject.toml", ""+
		"[build-system]\n"+
		"requires = [\"flit_core >=3.2\"]\n"+
		"build-backend = \"flit_core.buildapi\"\n"))
	assert.True(t, isFlit(flit))
}

func TestExtractClassifiersPoetry(t *testing.T) {
	f := fileutil.FromString("pyproject.toml", poetryToml)
	vs, ok := extractClassifiers(f, testReleases)
	require.True(t, ok)
	assert.Equal(t, vl("3.6"), vs)
}

func TestExtractClassifiersSetuptools(t *testing.T) {
	f := fileutil.FromString("pyproject.toml", setuptoolsToml)
	vs, ok := extractClassifiers(f, testReleases)
	require.True(t, ok)
	assert.Equal(t, vl("3.6", "3.7"), vs)
}

func TestExtractClassifiersNoBackend(t *testing.T) {
	f := fileutil.FromString("pyproject.toml", "[tool.black]\nline-length = 79\n")
	vs, ok := extractClassifiers(f, testReleases)
	require.True(t, ok)
	assert.Empty(t, vs)
}

func TestUpdateClassifiers(t *testing.T) {
	f := fileutil.FromString("pyproject.toml", setuptoolsToml)
	got := updateClassifiers(f, vl("3.7"), testReleases)
	assert.Equal(t, `[build-system]
requires = ["setuptools", "wheel"]
build-backend = "setuptools.build_meta"

[project]
name = "example"
requires-python = ">=3.6"
classifiers = [
    "Programming Language :: Python :: 3.7",
]
`, got.Text())
}

func TestExtractPythonRequiresPoetry(t *testing.T) {
	f := fileutil.FromString("pyproject.toml", poetryToml)
	vs, ok := extractPythonRequires(f, testReleases)
	require.True(t, ok)
	assert.Equal(t, vl("3.6", "3.7"), vs)
}

func TestExtractPythonRequiresSetuptools(t *testing.T) {
	f := fileutil.FromString("pyproject.toml", setuptoolsToml)
	vs, ok := extractPythonRequires(f, testReleases)
	require.True(t, ok)
	assert.Equal(t, vl("3.6", "3.7"), vs)
}

func TestExtractPythonRequiresMissing(t *testing.T) {
	f := fileutil.FromString("pyproject.toml", ""+
		"[tool.poetry]\n"+
		"name = \"example\"\n")
	_, ok := extractPythonRequires(f, testReleases)
	assert.False(t, ok)
}

func TestUpdatePythonRequiresPoetry(t *testing.T) {
	f := fileutil.FromString("pyproject.toml", poetryToml)
	got := updatePythonRequires(f, vl("3.7"), testReleases)
	assert.Contains(t, got.Text(), "python = \"^3.7\"\n")
}

func TestUpdatePythonRequiresSetuptools(t *testing.T) {
	f := fileutil.FromString("pyproject.toml", setuptoolsToml)
	got := updatePythonRequires(f, vl("3.7"), testReleases)
	assert.Contains(t, got.Text(), "requires-python = \">=3.7\"\n")
}
