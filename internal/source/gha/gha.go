// Package gha reads and updates the Python versions tested by GitHub
// Actions workflows.
//
// GitHub Actions are very flexible, so this code makes some simplifying
// assumptions: you use a matrix strategy, either on 'python-version'
// containing Python versions, or on 'config' containing lists of
// [python_version, tox_env].
package gha

import (
	"fmt"
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
		Filename:             ".github/workflows/*.yml",
		Extract:              extract,
		Update:               update,
		CheckPyPyConsistency: true,
		HasUpperBound:        true,
		Priority:             50,
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

func scalarString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseVer interprets Python versions used for actions/setup-python.
//
// This format is not fully well documented.  There's support for
// specifying things like
//
//   - "3.x" (latest minor in Python 3.x)
//   - "3.7" (latest bugfix in Python 3.7)
//   - "3.7.2" (specific version to be downloaded and installed)
//   - "pypy2"/"pypy3"
//   - "pypy-2.7"/"pypy-3.6"
//   - "pypy-3.7-v7.3.3"
func parseVer(v any) versions.Version {
	s := scalarString(v)
	switch {
	case strings.HasPrefix(s, "pypy3") || strings.HasPrefix(s, "pypy-3"):
		return versions.Parse("PyPy3")
	case strings.HasPrefix(s, "pypy2") || strings.HasPrefix(s, "pypy-2"):
		return versions.Parse("PyPy")
	default:
		return versions.Parse(s)
	}
}

// jobNames returns the workflow's job names in a fixed order, so that
// edits and warnings always happen in the same sequence.
func jobNames(conf map[string]any) []string {
	jobs, _ := conf["jobs"].(map[string]any)
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func job(conf map[string]any, name string) any {
	jobs, _ := conf["jobs"].(map[string]any)
	return jobs[name]
}

func jobMatrix(job any) map[string]any {
	j, ok := job.(map[string]any)
	if !ok {
		return nil
	}
	strategy, ok := j["strategy"].(map[string]any)
	if !ok {
		return nil
	}
	matrix, _ := strategy["matrix"].(map[string]any)
	return matrix
}

func extract(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	conf, ok := load(f)
	if !ok {
		return nil, false
	}
	var vs []versions.Version
	hadMatrix := false
	for _, name := range jobNames(conf) {
		matrix := jobMatrix(job(conf, name))
		if pythonVersion, ok := matrix["python-version"].([]any); ok {
			hadMatrix = true
			for _, v := range pythonVersion {
				vs = append(vs, parseVer(v))
			}
		}
		if config, ok := matrix["config"].([]any); ok {
			hadMatrix = true
			for _, c := range config {
				if pair, ok := c.([]any); ok && len(pair) > 0 {
					vs = append(vs, parseVer(pair[0]))
				}
			}
		}
		if include, ok := matrix["include"].([]any); ok {
			for _, extra := range include {
				extra, ok := extra.(map[string]any)
				if !ok {
					continue
				}
				if v, ok := extra["python-version"]; ok {
					hadMatrix = true
					vs = append(vs, parseVer(v))
				}
			}
		}
	}
	if !hadMatrix {
		return nil, false
	}
	return versions.SortedSet(vs), true
}

func anyMajor(vs []versions.Version, major int) bool {
	for _, v := range vs {
		if v.Major == major {
			return true
		}
	}
	return false
}

func update(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
	conf, ok := load(f)
	if !ok {
		return f
	}

	keepOldVersion := func(value string) bool {
		var parsed any
		if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
			return true
		}
		switch parseVer(parsed) {
		case versions.Parse("PyPy"):
			return anyMajor(newVersions, 2)
		case versions.Parse("PyPy3"):
			return anyMajor(newVersions, 3)
		}
		return false
	}
	keepOldConfig := func(value string) bool {
		var parsed []any
		if err := yaml.Unmarshal([]byte(value), &parsed); err != nil || len(parsed) != 2 {
			return true
		}
		ver := parseVer(parsed[0])
		toxenv := scalarString(parsed[1])
		switch ver {
		case versions.Parse("PyPy"):
			return anyMajor(newVersions, 2)
		case versions.Parse("PyPy3"):
			return anyMajor(newVersions, 3)
		}
		return toxenv != toxini.EnvForVersion(ver)
	}

	for _, jobName := range jobNames(conf) {
		matrix := jobMatrix(job(conf, jobName))
		if pythonVersion, ok := matrix["python-version"].([]any); ok {
			quoteStyle := ""
			allStrings := true
			for _, v := range pythonVersion {
				if _, ok := v.(string); !ok {
					allStrings = false
				}
			}
			if allStrings {
				quoteStyle = `"`
			}
			yamlNewVersions := make([]string, 0, len(newVersions))
			for _, v := range newVersions {
				quoted, err := yamlfile.QuoteString(v.String(), quoteStyle)
				if err != nil {
					diag.Warnf("Could not update %s: %s", f.Name, err)
					return f
				}
				yamlNewVersions = append(yamlNewVersions, quoted)
			}
			f = yamlfile.UpdateList(f,
				[]string{"jobs", jobName, "strategy", "matrix", "python-version"},
				yamlNewVersions, keepOldVersion, nil)
		}
		if _, ok := matrix["config"]; ok {
			yamlConfigs := make([]string, 0, len(newVersions))
			for _, v := range newVersions {
				quotedVer, err := yamlfile.QuoteString(v.String(), `"`)
				if err != nil {
					diag.Warnf("Could not update %s: %s", f.Name, err)
					return f
				}
				toxenv, err := yamlfile.QuoteString(toxini.EnvForVersion(v), `"`)
				if err != nil {
					diag.Warnf("Could not update %s: %s", f.Name, err)
					return f
				}
				yamlConfigs = append(yamlConfigs,
					fmt.Sprintf("[%-8s %s]", quotedVer+",", toxenv))
			}
			f = yamlfile.UpdateList(f,
				[]string{"jobs", jobName, "strategy", "matrix", "config"},
				yamlConfigs, keepOldConfig, nil)
		}
	}

	return f
}
