// Package toxini reads and updates the supported Python versions in a
// tox.ini envlist.
//
// Environment names like py38 or py27-django111 map to Python versions;
// anything else (flake8, docs) is left alone by updates.  Brace groups
// like py{36,37} are preserved where possible.
package toxini

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
	"github.com/mgedmin/check-python-versions/internal/inifile"
	"github.com/mgedmin/check-python-versions/internal/source"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

func init() {
	source.Register(source.Source{
		Filename:             "tox.ini",
		Extract:              extract,
		Update:               update,
		CheckPyPyConsistency: true,
		HasUpperBound:        true,
		Priority:             30,
	})
}

var loadOptions = ini.LoadOptions{
	AllowPythonMultilineValues: true,
}

// readEnvlist fetches the tox envlist, under either of its two accepted
// spellings.
func readEnvlist(f *fileutil.File) (envlist, optionName string, err error) {
	cfg, err := ini.LoadSources(loadOptions, []byte(f.Text()))
	if err != nil {
		return "", "", err
	}
	section, err := cfg.GetSection("tox")
	if err != nil {
		return "", "", err
	}
	for _, name := range []string{"env_list", "envlist"} {
		if section.HasKey(name) {
			return section.Key(name).Value(), name, nil
		}
	}
	return "", "", errNoEnvlist
}

var errNoEnvlist = errors.New("no tox:envlist setting")

// extract never reports absence: a tox.ini that fails to list Python
// environments reads as an empty set.
func extract(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	envlist, _, err := readEnvlist(f)
	if err != nil {
		return []versions.Version{}, true
	}
	var vs []versions.Version
	for _, env := range ParseEnvlist(envlist) {
		if v, ok := EnvToVersion(env); ok {
			vs = append(vs, v)
		}
	}
	return versions.SortedSet(vs), true
}

func update(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
	envlist, optionName, err := readEnvlist(f)
	if err != nil {
		diag.Warnf("Could not parse %s: %s", f.Name, err)
		return f
	}
	updated := updateEnvlist(envlist, newVersions)
	return inifile.UpdateSetting(f, "tox", optionName, updated)
}

var envlistSplitRx = regexp.MustCompile(`((?:[{][^}]*[}]|[^,{\s])+)|,|\s+`)

// splitEnvlist splits an environment list into items.  Tox allows commas
// or whitespace as separators; commas inside {...} brace groups do not
// count.  Brace groups are not expanded.
func splitEnvlist(envlist string) []string {
	var parts []string
	for _, m := range envlistSplitRx.FindAllStringSubmatch(envlist, -1) {
		if part := strings.TrimSpace(m[1]); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// ParseEnvlist splits an environment list and expands brace groups.
func ParseEnvlist(envlist string) []string {
	var envs []string
	for _, part := range splitEnvlist(envlist) {
		envs = append(envs, braceExpand(part)...)
	}
	return envs
}

var braceRx = regexp.MustCompile(`^([^{]*)[{]([^}]*)[}](.*)$`)

// braceExpand expands one level of brace groups:
// a{1,2}{b,c}x becomes a1bx, a1cx, a2bx, a2cx.
func braceExpand(s string) []string {
	m := braceRx.FindStringSubmatch(s)
	if m == nil {
		return []string{s}
	}
	var result []string
	for _, alt := range strings.Split(m[2], ",") {
		result = append(result, braceExpand(m[1]+strings.TrimSpace(alt)+m[3])...)
	}
	return result
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// EnvToVersion converts a tox environment name to a Python version:
// py34 becomes 3.4, pypy3 becomes PyPy3.  When the name has dashes only
// the first part counts, so py34-django20 is still 3.4.
func EnvToVersion(env string) (versions.Version, bool) {
	if i := strings.Index(env, "-"); i >= 0 {
		env = env[:i]
	}
	switch {
	case strings.HasPrefix(env, "pypy"):
		return versions.Parse("PyPy" + env[4:]), true
	case strings.HasPrefix(env, "py") && len(env) >= 4 && isDigits(env[2:]):
		return versions.Parse(env[2:3] + "." + env[3:]), true
	default:
		return versions.Version{}, false
	}
}

// EnvForVersion computes a tox environment name for a Python version.
func EnvForVersion(v versions.Version) string {
	if v.Minor < 0 {
		return fmt.Sprintf("py%d", v.Major)
	}
	return fmt.Sprintf("py%d%d", v.Major, v.Minor)
}

var (
	sepRx        = regexp.MustCompile(`,\s*|\n`)
	braceStripRx = regexp.MustCompile(`[{][^}]*[}]`)
	pyBraceRx    = regexp.MustCompile(`^(py[{](?:\d+|py\d*)(?:,(?:\d+|py\d*))*[}])(.*)$`)
	bracePyRx    = regexp.MustCompile(`^([{]py(?:\d+|py\d*)(?:,py(?:\d+|py\d*))*[}])(.*)$`)
	envRx        = regexp.MustCompile(`^py(py)?\d*($|-)`)
)

// updateEnvlist makes sure all of newVersions are in the list and all
// Python versions not in it are gone, leaving other environments alone
// and preserving the separator style, trailing commas and brace groups.
func updateEnvlist(envlist string, newVersions []versions.Version) string {
	sep := ","
	if m := sepRx.FindString(
		braceStripRx.ReplaceAllString(strings.TrimSpace(envlist), "")); m != "" {
		sep = m
	}
	trailingComma := strings.HasSuffix(strings.TrimRight(envlist, " \t\n"), ",")

	newEnvs := make([]string, 0, len(newVersions))
	for _, v := range newVersions {
		newEnvs = append(newEnvs, EnvForVersion(v))
	}

	if strings.Contains(envlist, "py{") || strings.Contains(envlist, "{py") {
		// try to preserve braced groups
		var parts []string
		addedVers := false
		for _, part := range splitEnvlist(envlist) {
			if m := pyBraceRx.FindStringSubmatch(part); m != nil {
				suffixes := make([]string, 0, len(newEnvs))
				for _, env := range newEnvs {
					suffixes = append(suffixes, env[len("py"):])
				}
				for _, env := range braceExpand(m[1]) {
					if shouldKeep(env, newVersions) {
						suffixes = append(suffixes, env[len("py"):])
					}
				}
				parts = append(parts, "py{"+strings.Join(suffixes, ",")+"}"+m[2])
				addedVers = true
				continue
			}
			if m := bracePyRx.FindStringSubmatch(part); m != nil {
				envs := append([]string{}, newEnvs...)
				for _, env := range braceExpand(m[1]) {
					if shouldKeep(env, newVersions) {
						envs = append(envs, env)
					}
				}
				parts = append(parts, "{"+strings.Join(envs, ",")+"}"+m[2])
				addedVers = true
				continue
			}
			vers := braceExpand(part)
			kept := make([]string, 0, len(vers))
			for _, ver := range vers {
				if shouldKeep(ver, newVersions) {
					kept = append(kept, ver)
				}
			}
			switch len(kept) {
			case 0:
			case len(vers):
				parts = append(parts, part)
			default:
				parts = append(parts, strings.Join(kept, sep))
			}
		}
		if !addedVers {
			parts = append(newEnvs, parts...)
		}
		return strings.Join(parts, sep)
	}

	// universal expansion, might destroy braced groups
	var keepBefore, keepAfter []string
	keep := &keepBefore
	for _, env := range ParseEnvlist(envlist) {
		if shouldKeep(env, newVersions) {
			*keep = append(*keep, env)
		} else {
			keep = &keepAfter
		}
	}
	combined := append(append(append([]string{}, keepBefore...), newEnvs...), keepAfter...)
	updated := strings.Join(combined, sep)
	if trailingComma {
		updated += ","
	}
	return updated
}

// shouldKeep decides whether an existing environment survives the
// update.  Environments naming a specific Python version not in
// newVersions go away; pypy and pypy3 stay only while a matching 2.x or
// 3.x remains; everything else stays.
func shouldKeep(env string, newVersions []versions.Version) bool {
	if !envRx.MatchString(env) {
		return true
	}
	if env == "pypy" {
		for _, v := range newVersions {
			if v.Major == 2 {
				return true
			}
		}
		return false
	}
	if env == "pypy3" {
		for _, v := range newVersions {
			if v.Major == 3 {
				return true
			}
		}
		return false
	}
	if strings.Contains(env, "-") {
		if base, ok := EnvToVersion(env); ok {
			for _, v := range newVersions {
				if v == base {
					return true
				}
			}
		}
	}
	return false
}
