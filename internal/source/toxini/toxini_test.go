package toxini

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

func vl(vs ...string) []versions.Version {
	out := make([]versions.Version, 0, len(vs))
	for _, v := range vs {
		out = append(out, versions.Parse(v))
	}
	return out
}

func TestBraceExpand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"py37", []string{"py37"}},
		{"py{36,37}", []string{"py36", "py37"}},
		{"py{36,37}-django{20,21}", []string{
			"py36-django20", "py36-django21",
			"py37-django20", "py37-django21",
		}},
		{"py{py,36}", []string{"pypy", "py36"}},
		{"py{36, 37}", []string{"py36", "py37"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, braceExpand(tt.in), tt.in)
	}
}

func TestParseEnvlist(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"py36,py37", []string{"py36", "py37"}},
		{"py36, py37", []string{"py36", "py37"}},
		{"\n  py36,\n  py37", []string{"py36", "py37"}},
		{"py{36,37},flake8", []string{"py36", "py37", "flake8"}},
		{"py36 py37", []string{"py36", "py37"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseEnvlist(tt.in), tt.in)
	}
}

func TestEnvToVersion(t *testing.T) {
	tests := []struct {
		env  string
		want string
		ok   bool
	}{
		{"py36", "3.6", true},
		{"py310", "3.10", true},
		{"py27-django111", "2.7", true},
		{"pypy", "PyPy", true},
		{"pypy3", "PyPy3", true},
		{"pypy3-django21", "PyPy3", true},
		{"flake8", "", false},
		{"py", "", false},
		{"docs", "", false},
	}
	for _, tt := range tests {
		v, ok := EnvToVersion(tt.env)
		assert.Equal(t, tt.ok, ok, tt.env)
		if ok {
			assert.Equal(t, tt.want, v.String(), tt.env)
		}
	}
}

func TestEnvForVersion(t *testing.T) {
	assert.Equal(t, "py37", EnvForVersion(versions.MajorMinor(3, 7)))
	assert.Equal(t, "py310", EnvForVersion(versions.MajorMinor(3, 10)))
	assert.Equal(t, "py3", EnvForVersion(versions.Parse("3")))
}

func TestExtract(t *testing.T) {
	f := fileutil.FromString("tox.ini", ""+
		"[tox]\n"+
		"envlist = py26, py27, py32, py33, pypy, flake8\n")
	vs, ok := extract(f, versions.Releases{})
	require.True(t, ok)
	assert.Equal(t, vl("2.6", "2.7", "3.2", "3.3", "PyPy"), vs)
}

func TestExtractEnvList(t *testing.T) {
	// tox 4 accepts env_list as well as envlist
	f := fileutil.FromString("tox.ini", ""+
		"[tox]\n"+
		"env_list = py38, py39\n")
	vs, ok := extract(f, versions.Releases{})
	require.True(t, ok)
	assert.Equal(t, vl("3.8", "3.9"), vs)
}

func TestExtractBracedGroups(t *testing.T) {
	f := fileutil.FromString("tox.ini", ""+
		"[tox]\n"+
		"envlist = py{27,36,37}-django{111,20},flake8\n")
	vs, ok := extract(f, versions.Releases{})
	require.True(t, ok)
	assert.Equal(t, vl("2.7", "3.6", "3.7"), vs)
}

func TestExtractNoToxSection(t *testing.T) {
	f := fileutil.FromString("tox.ini", "[flake8]\nmax-line-length = 100\n")
	vs, ok := extract(f, versions.Releases{})
	require.True(t, ok)
	assert.Empty(t, vs)
}

func TestUpdateToxIni(t *testing.T) {
	f := fileutil.FromString("tox.ini", ""+
		"[tox]\n"+
		"envlist = py26,py27\n"+
		"usedevelop = true\n")
	got := update(f, vl("3.6", "3.7"), versions.Releases{})
	assert.Equal(t, ""+
		"[tox]\n"+
		"envlist = py36,py37\n"+
		"usedevelop = true\n", got.Text())
}

func TestUpdateToxIniUnparseable(t *testing.T) {
	var buf bytes.Buffer
	diag.SetOutput(&buf)
	defer diag.SetOutput(nil)
	f := fileutil.FromString("tox.ini", "[tox\nenvlist = py36\n")
	got := update(f, vl("3.7"), versions.Releases{})
	assert.Equal(t, f.Text(), got.Text())
	assert.Contains(t, buf.String(), "Could not parse tox.ini")
}

func TestUpdateEnvlist(t *testing.T) {
	tests := []struct {
		title   string
		envlist string
		want    string
	}{
		{"simple", "py26,py27", "py36,py37"},
		{"spaces kept", "py27, py34, py35, pypy3", "py36, py37, pypy3"},
		{"other environments kept", "docs,py26,py27,pypy3,flake8", "docs,py36,py37,pypy3,flake8"},
		{"newline separator", "py27,\npy34,\npy35,\npypy3", "py36,\npy37,\npypy3"},
		{"newlines without commas", "py27\npy34\npy35\npypy3", "py36\npy37\npypy3"},
		{"leading newline", "\npy27,py34,py35,pypy3", "py36,py37,pypy3"},
		{"trailing comma", "py27,\npy34,\npy35,\npypy3,", "py36,\npy37,\npypy3,"},
		{"factors follow their version",
			"py27,py34,py35,py36,py37,py27-numpy,py37-numpy,pypy,pypy3",
			"py36,py37,py37-numpy,pypy3"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, updateEnvlist(tt.envlist, vl("3.6", "3.7")))
		})
	}
}

func TestUpdateEnvlistBracedGroups(t *testing.T) {
	tests := []struct {
		title   string
		envlist string
		want    string
	}{
		{"py brace", "py{27,34,35,36,37}{,-foo,-bar},docs", "py{36,37}{,-foo,-bar},docs"},
		{"pypy inside group", "py{27,34,py,py3}", "py{36,37,py3}"},
		{"brace py", "{py36,py27}-django{15,16}", "{py36,py37}-django{15,16}"},
		{"brace py with spaces", "{py27,py36}-django{ 15, 16 }, docs, flake",
			"{py36,py37}-django{ 15, 16 }, docs, flake"},
		{"versionless group kept", "py27,py30,py{ramid,gmalion}", "py36,py37,py{ramid,gmalion}"},
		{"factor inside group", "py{27,36,27-extra,36-docs}", "py36,py37,py36-docs"},
		{"newline separated groups",
			"lint\ntyping\npy{35,36,37,38}-crypto\npy{35,36,37,38}-nocrypto",
			"lint\ntyping\npy{36,37}-crypto\npy{36,37}-nocrypto"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, updateEnvlist(tt.envlist, vl("3.6", "3.7")))
		})
	}
}

func TestShouldKeep(t *testing.T) {
	newVers := vl("3.6", "3.7")
	tests := []struct {
		env  string
		want bool
	}{
		{"flake8", true},
		{"docs", true},
		{"py36", false},
		{"py27", false},
		{"pypy", false},
		{"pypy3", true},
		{"py36-django20", true},
		{"py27-django111", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldKeep(tt.env, newVers), tt.env)
	}
}
