package yamlfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
)

func travisYml(body string) *fileutil.File {
	return fileutil.FromString(".travis.yml", body)
}

func TestQuoteString(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		style    string
		expected string
	}{
		{"plain minor", "3.9", "", "3.9"},
		{"zero-padded minor needs quotes", "3.10", "", `"3.10"`},
		{"bare major needs quotes", "3", "", `"3"`},
		{"not a number", "pypy3", "", "pypy3"},
		{"explicit style", "3.9", `"`, `"3.9"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quoted, err := QuoteString(tt.value, tt.style)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, quoted)
		})
	}

	_, err := QuoteString(`3.9"`, "")
	assert.Error(t, err)
}

func TestUpdateList(t *testing.T) {
	source := "language: python\n" +
		"python:\n" +
		"  - 2.7\n" +
		"  - 3.6\n" +
		"install: pip install -e .\n"
	result := UpdateList(travisYml(source), []string{"python"},
		[]string{"3.6", "3.7"}, nil, nil)
	assert.Equal(t, "language: python\n"+
		"python:\n"+
		"  - 3.6\n"+
		"  - 3.7\n"+
		"install: pip install -e .\n", result.Text())
}

func TestUpdateListKeep(t *testing.T) {
	source := "python:\n" +
		"  - 2.7\n" +
		"  - pypy\n" +
		"  - 3.6\n"
	result := UpdateList(travisYml(source), []string{"python"},
		[]string{"3.6", "3.7"},
		func(v string) bool { return v == "pypy" }, nil)
	assert.Equal(t, "python:\n"+
		"  - pypy\n"+
		"  - 3.6\n"+
		"  - 3.7\n", result.Text())
}

func TestUpdateListReplacements(t *testing.T) {
	source := "python:\n" +
		"  - 2.7\n" +
		"  - pypy\n"
	result := UpdateList(travisYml(source), []string{"python"},
		[]string{"3.6"},
		func(v string) bool { return v == "pypy" },
		map[string]string{"pypy": "pypy2.7-6.0.0"})
	assert.Equal(t, "python:\n"+
		"  - pypy2.7-6.0.0\n"+
		"  - 3.6\n", result.Text())
}

func TestUpdateListKeepsComments(t *testing.T) {
	source := "python:\n" +
		"  # legacy\n" +
		"  - 2.7\n" +
		"  - 3.6\n"
	result := UpdateList(travisYml(source), []string{"python"},
		[]string{"3.7"}, nil, nil)
	assert.Equal(t, "python:\n"+
		"  # legacy\n"+
		"  - 3.7\n", result.Text())
}

func TestUpdateListNestedKey(t *testing.T) {
	source := "jobs:\n" +
		"  build:\n" +
		"    strategy:\n" +
		"      matrix:\n" +
		"        python-version:\n" +
		"          - 3.6\n" +
		"    steps: []\n"
	result := UpdateList(travisYml(source),
		[]string{"jobs", "build", "strategy", "matrix", "python-version"},
		[]string{"3.8", "3.9"}, nil, nil)
	assert.Equal(t, "jobs:\n"+
		"  build:\n"+
		"    strategy:\n"+
		"      matrix:\n"+
		"        python-version:\n"+
		"          - 3.8\n"+
		"          - 3.9\n"+
		"    steps: []\n", result.Text())
}

func TestUpdateListKeepsNestedBlocks(t *testing.T) {
	source := "matrix:\n" +
		"  include:\n" +
		"    - python: 2.7\n" +
		"      dist: trusty\n" +
		"    - python: 3.6\n" +
		"      dist: xenial\n"
	result := UpdateList(travisYml(source), []string{"matrix", "include"},
		nil,
		func(v string) bool { return v == "python: 3.6" }, nil)
	assert.Equal(t, "matrix:\n"+
		"  include:\n"+
		"    - python: 3.6\n"+
		"      dist: xenial\n", result.Text())
}

func TestUpdateListMissingKey(t *testing.T) {
	var buf bytes.Buffer
	diag.SetOutput(&buf)
	defer diag.SetOutput(nil)

	source := "language: python\n"
	result := UpdateList(travisYml(source), []string{"python"},
		[]string{"3.6"}, nil, nil)
	assert.Equal(t, source, result.Text())
	assert.Contains(t, buf.String(), "Did not find python: setting in .travis.yml")
}

func TestDropNode(t *testing.T) {
	source := "language: python\n" +
		"sudo: false\n" +
		"matrix:\n" +
		"  include:\n" +
		"    - python: 2.7\n" +
		"install: pip install -e .\n"
	result := DropNode(travisYml(source), "matrix")
	assert.Equal(t, "language: python\n"+
		"sudo: false\n"+
		"install: pip install -e .\n", result.Text())
}

func TestDropNodeAbsent(t *testing.T) {
	source := "language: python\n"
	result := DropNode(travisYml(source), "matrix")
	assert.Equal(t, source, result.Text())
}

func TestDropNodeDuplicate(t *testing.T) {
	var buf bytes.Buffer
	diag.SetOutput(&buf)
	defer diag.SetOutput(nil)

	source := "sudo: false\n" +
		"language: python\n" +
		"sudo: required\n"
	result := DropNode(travisYml(source), "sudo")
	assert.Equal(t, "sudo: false\n"+
		"language: python\n", result.Text())
	assert.Contains(t, buf.String(), "Duplicate sudo: setting in .travis.yml (lines 1 and 3)")
}

func TestAddNode(t *testing.T) {
	source := "language: python\n" +
		"python:\n" +
		"  - 3.7\n"
	result := AddNode(travisYml(source), "dist", "xenial", []string{"python", "matrix"})
	assert.Equal(t, "language: python\n"+
		"dist: xenial\n"+
		"python:\n"+
		"  - 3.7\n", result.Text())
}

func TestAddNodeAtEnd(t *testing.T) {
	source := "language: python\n"
	result := AddNode(travisYml(source), "dist", "xenial", []string{"python"})
	assert.Equal(t, "language: python\n"+
		"dist: xenial\n", result.Text())
}
