// Package travis reads and updates the Python versions tested on
// Travis CI, configured in .travis.yml.
//
// There are multiple ways of selecting Python versions, some more
// canonical than others:
//
//   - via the top-level python list
//   - via python attributes in the jobs defined by jobs.include or its
//     deprecated alias matrix.include
//   - via TOXENV environment variables in the top-level env list (this
//     is discouraged and support for it may be dropped in the future)
package travis

import (
	"fmt"
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
		Filename:             ".travis.yml",
		Extract:              extract,
		Update:               update,
		CheckPyPyConsistency: true,
		HasUpperBound:        true,
		Priority:             40,
	})
}

// Back in the day xenial did not recognize 'pypy' or 'pypy3' and wanted
// full version numbers like 'pypy2.7-6.0.0' instead, and updates would
// rewrite the short spellings.  Happily this is no longer necessary, so
// the table is empty.
var xenialSupportedPyPyVersions = map[string]string{}

func load(f *fileutil.File) (map[string]any, bool) {
	var conf map[string]any
	if err := yaml.Unmarshal([]byte(f.Text()), &conf); err != nil {
		diag.Warnf("Could not parse %s: %s", f.Name, err)
		return nil, false
	}
	return conf, true
}

// scalarString renders a YAML scalar the way Python's str() would, so
// that an unquoted 3.7 reads back as "3.7".  Note that an unquoted 3.10
// reads back as "3.1"; this is the reason updates quote version numbers.
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

// normalizePyVersion determines a Python version from a Travis python
// value.  'pypy3', 'pypy3.5' and 'pypy3.5-5.10.0' all mean PyPy3.
func normalizePyVersion(v any) versions.Version {
	s := scalarString(v)
	switch {
	case strings.HasPrefix(s, "pypy3"):
		return versions.Parse("PyPy3")
	case strings.HasPrefix(s, "pypy"):
		return versions.Parse("PyPy")
	default:
		return versions.Parse(s)
	}
}

// truthy mirrors Python truth testing for decoded YAML values.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func hasInclude(conf map[string]any, toplevel string) bool {
	section, ok := conf[toplevel].(map[string]any)
	if !ok {
		return false
	}
	_, ok = section["include"]
	return ok
}

func includedJobs(conf map[string]any, toplevel string) []map[string]any {
	section, ok := conf[toplevel].(map[string]any)
	if !ok {
		return nil
	}
	include, ok := section["include"].([]any)
	if !ok {
		return nil
	}
	var jobs []map[string]any
	for _, job := range include {
		if job, ok := job.(map[string]any); ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

func extract(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	conf, ok := load(f)
	if !ok {
		return nil, false
	}
	var vs []versions.Version
	if python := conf["python"]; truthy(python) {
		if list, ok := python.([]any); ok {
			for _, v := range list {
				vs = append(vs, normalizePyVersion(v))
			}
		} else {
			vs = append(vs, normalizePyVersion(python))
		}
	}
	for _, toplevel := range []string{"matrix", "jobs"} {
		for _, job := range includedJobs(conf, toplevel) {
			if v, ok := job["python"]; ok {
				vs = append(vs, normalizePyVersion(v))
			}
		}
	}
	if env, ok := conf["env"].([]any); ok {
		for _, e := range env {
			s, ok := e.(string)
			if !ok || !strings.HasPrefix(s, "TOXENV=") {
				continue
			}
			for _, toxenv := range toxini.ParseEnvlist(s[len("TOXENV="):]) {
				if v, ok := toxini.EnvToVersion(toxenv); ok {
					vs = append(vs, v)
				}
			}
		}
	}
	return versions.SortedSet(vs), true
}

// needsXenial reports whether a Python version needs dist: xenial.
// Obsolete now that xenial is the default, but it still tells us when
// to drop old dist: trusty nodes.
func needsXenial(v versions.Version) bool {
	return v.Compare(versions.MajorMinor(3, 7)) >= 0
}

func update(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
	conf, ok := load(f)
	if !ok {
		return f
	}

	xenial := false
	for _, v := range newVersions {
		if needsXenial(v) {
			xenial = true
		}
	}
	replacements := map[string]string{}
	if xenial {
		for k, v := range xenialSupportedPyPyVersions {
			replacements[k] = v
		}
		if conf["dist"] == "trusty" {
			f = yamlfile.DropNode(f, "dist")
		}
		if conf["sudo"] == false {
			// sudo is ignored nowadays, but in earlier times you needed
			// both dist: xenial and sudo: required to get Python 3.7
			f = yamlfile.DropNode(f, "sudo")
		}
	}

	keepOld := func(value string) bool {
		ver := normalizePyVersion(value)
		if ver == versions.Parse("PyPy") {
			for _, v := range newVersions {
				if v.Major == 2 {
					return true
				}
			}
			return false
		}
		if ver == versions.Parse("PyPy3") {
			for _, v := range newVersions {
				if v.Major == 3 {
					return true
				}
			}
			return false
		}
		return !versions.IsImportant(ver, rel)
	}
	keepOldJob := func(job string) bool {
		if strings.HasPrefix(job, "python:") {
			ver := strings.TrimSpace(job[len("python:"):])
			return !versions.IsImportant(normalizePyVersion(ver), rel)
		}
		return true
	}

	var oldVersions []any
	switch python := conf["python"].(type) {
	case nil:
	case []any:
		oldVersions = python
	default:
		oldVersions = []any{python}
	}
	for _, toplevel := range []string{"matrix", "jobs"} {
		for _, job := range includedJobs(conf, toplevel) {
			if v, ok := job["python"]; ok {
				oldVersions = append(oldVersions, v)
			}
		}
	}
	quoteStyle := ""
	if len(oldVersions) > 0 {
		allStrings := true
		for _, v := range oldVersions {
			if _, ok := v.(string); !ok {
				allStrings = false
			}
		}
		if allStrings {
			quoteStyle = `"`
		}
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

	if truthy(conf["python"]) {
		f = yamlfile.UpdateList(f, []string{"python"}, yamlNewVersions,
			keepOld, replacements)
	} else {
		jobReplacements := make(map[string]string, len(replacements))
		for k, v := range replacements {
			jobReplacements["python: "+k] = "python: " + v
		}
		for _, toplevel := range []string{"matrix", "jobs"} {
			if !hasInclude(conf, toplevel) {
				continue
			}
			newJobs := make([]string, 0, len(yamlNewVersions))
			for _, ver := range yamlNewVersions {
				newJobs = append(newJobs, "python: "+ver)
			}
			f = yamlfile.UpdateList(f, []string{toplevel, "include"}, newJobs,
				keepOldJob, jobReplacements)
		}
	}

	// If python 3.7 was enabled via matrix.include, the code above has
	// just added a second 3.7 entry directly to top-level python.  So
	// drop the matrix, when it holds nothing else of value.
	if truthy(conf["python"]) && hasInclude(conf, "matrix") {
		droppable := true
		for _, job := range includedJobs(conf, "matrix") {
			if job["dist"] != "xenial" {
				droppable = false
				break
			}
			for key := range job {
				if key != "python" && key != "dist" && key != "sudo" {
					droppable = false
				}
			}
		}
		if droppable {
			// XXX: this may drop too much or too little!
			f = yamlfile.DropNode(f, "matrix")
		}
	}

	return f
}
