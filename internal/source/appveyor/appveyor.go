// Package appveyor reads and updates the Python versions tested on
// Appveyor, configured in appveyor.yml.
//
// Appveyor does not directly support specifying Python interpreter
// versions, so most projects that test multiple Python versions do so
// by specifying the desired version in an environment variable.  This
// code assumes that variable is called PYTHON and has either a version
// number or the path to a Python installation ("C:\PythonXY").
// Alternatively it looks for TOXENV, which lists names of tox
// environments (pyXY).
package appveyor

import (
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
	"github.com/mgedmin/check-python-versions/internal/source"
	"github.com/mgedmin/check-python-versions/internal/source/toxini"
	"github.com/mgedmin/check-python-versions/internal/versions"
	"github.com/mgedmin/check-python-versions/internal/yamlfile"
)

func init() {
	source.Register(source.Source{
		Filename:             "appveyor.yml",
		Extract:              extract,
		Update:               update,
		CheckPyPyConsistency: false,
		HasUpperBound:        true,
		Priority:             60,
	})
}

func load(f *fileutil.File) (map[string]any, bool) {
	var conf map[string]any
	if err := yaml.Unmarshal([]byte(f.Text()), &conf); err != nil {
		diag.Warnf("Could not parse %s: %s", f.Name, err)
		return nil, false
	}
	return conf, true
}

func environmentMatrix(conf map[string]any) []map[string]any {
	environment, ok := conf["environment"].(map[string]any)
	if !ok {
		return nil
	}
	matrix, ok := environment["matrix"].([]any)
	if !ok {
		return nil
	}
	var envs []map[string]any
	for _, env := range matrix {
		if env, ok := env.(map[string]any); ok {
			envs = append(envs, env)
		}
	}
	return envs
}

// envNames returns an environment's variable names in a fixed order,
// so that extraction and edits don't depend on map iteration order.
func envNames(env map[string]any) []string {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func scalarString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// normalizePyVersion determines a Python version from the PYTHON
// environment variable: "3.8", "C:\Python38", "C:\Python38-x64" and
// "C:\Python3.8\python.exe" all mean 3.8.
func normalizePyVersion(value any) (versions.Version, bool) {
	ver := strings.ReplaceAll(strings.ToLower(scalarString(value)), `\`, "/")
	ver = strings.TrimPrefix(ver, "c:/python")
	if strings.HasSuffix(ver, "/python.exe") {
		ver = ver[:len(ver)-len("/python.exe")]
	} else {
		ver = strings.TrimSuffix(ver, "/")
	}
	ver = strings.TrimSuffix(ver, "-x64")
	if len(ver) >= 2 && isDigit(ver[0]) && isDigit(ver[1]) {
		return versions.Parse(ver[:1] + "." + ver[1:]), true
	}
	return versions.Version{}, false
}

func extract(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	conf, ok := load(f)
	if !ok {
		return nil, false
	}
	var vs []versions.Version
	for _, env := range environmentMatrix(conf) {
		for _, name := range envNames(env) {
			value := env[name]
			if strings.ToLower(name) == "python" {
				if v, ok := normalizePyVersion(value); ok {
					vs = append(vs, v)
				}
			} else if name == "TOXENV" {
				for _, toxenv := range toxini.ParseEnvlist(scalarString(value)) {
					if !strings.HasPrefix(toxenv, "py") {
						continue
					}
					if v, ok := toxini.EnvToVersion(toxenv); ok {
						vs = append(vs, v)
					}
				}
			}
		}
	}
	return versions.SortedSet(vs), true
}

// detectPattern determines the format of the PYTHON environment
// variable.  It returns a template with a "{}{}" placeholder for the
// major and minor version numbers, e.g. `C:\Python{}{}-x64`.
func detectPattern(value any) (string, bool) {
	ver := scalarString(value)
	pattern := "{}"
	for _, prefix := range []string{`c:\python`, `c:/python`} {
		if strings.HasPrefix(strings.ToLower(ver), prefix) {
			pattern = ver[:len(prefix)] + "{}"
			ver = ver[len(prefix):]
			break
		}
	}
	if strings.HasSuffix(ver, `\`) {
		ver = ver[:len(ver)-1]
		pattern = strings.Replace(pattern, "{}", `{}\`, 1)
	}
	if strings.HasSuffix(strings.ToLower(ver), "-x64") {
		pos := len(ver) - len("-x64")
		pattern = strings.Replace(pattern, "{}", "{}"+ver[pos:], 1)
		ver = ver[:pos]
	}
	if len(ver) >= 2 && isDigit(ver[0]) && isDigit(ver[1]) {
		return strings.Replace(pattern, "{}", "{}{}", 1), true
	}
	return "", false
}

func formatPattern(pattern string, v versions.Version) string {
	s := v.String()
	major, minor := s, ""
	if i := strings.Index(s, "."); i >= 0 {
		major, minor = s[:i], s[i+1:]
	}
	out := strings.Replace(pattern, "{}", major, 1)
	return strings.Replace(out, "{}", minor, 1)
}

// escape prepares a string for embedding inside a double-quoted YAML
// string.
func escape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`)
}

func update(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
	conf, ok := load(f)
	if !ok {
		return f
	}

	varname := "PYTHON"
	patternSet := map[string]bool{}
	for _, env := range environmentMatrix(conf) {
		for _, name := range envNames(env) {
			if strings.ToLower(name) == "python" {
				varname = name
				if pattern, ok := detectPattern(env[name]); ok {
					patternSet[pattern] = true
				}
				break
			}
		}
	}
	if len(patternSet) == 0 {
		diag.Warnf("Did not recognize any PYTHON environments in %s", f.Name)
		return f
	}
	patterns := make([]string, 0, len(patternSet))
	for pattern := range patternSet {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	quote := false
	for _, line := range f.Lines {
		if strings.Contains(line, varname+`: "`) {
			quote = true
		}
	}

	var newEnvironments []string
	for _, v := range newVersions {
		for _, pattern := range patterns {
			python := formatPattern(pattern, v)
			if quote {
				newEnvironments = append(newEnvironments,
					varname+`: "`+escape(python)+`"`)
			} else {
				newEnvironments = append(newEnvironments, varname+": "+python)
			}
		}
	}

	inNew := func(v versions.Version) bool {
		for _, nv := range newVersions {
			if nv == v {
				return true
			}
		}
		return false
	}
	keepComplicated := func(value string) bool {
		if strings.HasPrefix(strings.ToLower(value), "python:") {
			ver := strings.TrimSpace(value[strings.Index(value, ":")+1:])
			if strings.HasPrefix(ver, `"`) {
				if unquoted, err := strconv.Unquote(ver); err == nil {
					ver = unquoted
				}
			}
			if _, ok := normalizePyVersion(ver); ok {
				return false
			}
		} else if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
			var env map[string]any
			if err := yaml.Unmarshal([]byte(value), &env); err == nil {
				for _, name := range envNames(env) {
					if strings.ToLower(name) == "python" {
						if nver, ok := normalizePyVersion(env[name]); ok && !inNew(nver) {
							return false
						}
					}
				}
			}
		}
		return true
	}

	return yamlfile.UpdateList(f, []string{"environment", "matrix"},
		newEnvironments, keepComplicated, nil)
}
