// Package pyproject reads and updates Python version declarations in
// pyproject.toml: trove classifiers and the interpreter constraint.
//
// Poetry projects declare the constraint at
// tool.poetry.dependencies.python in Poetry's grammar; setuptools and
// flit projects use project.requires-python in PEP 440 syntax.  The
// build backend is detected from [tool.X], the build-system backend
// name, and build-system.requires.
package pyproject

import (
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
	"github.com/mgedmin/check-python-versions/internal/pyversions"
	"github.com/mgedmin/check-python-versions/internal/source"
	"github.com/mgedmin/check-python-versions/internal/tomlfile"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

func init() {
	source.Register(source.Source{
		Filename:             "pyproject.toml",
		Extract:              extractClassifiers,
		Update:               updateClassifiers,
		CheckPyPyConsistency: true,
		HasUpperBound:        true,
		Priority:             20,
	})
	source.Register(source.Source{
		Title:    "- python_requires",
		Filename: "pyproject.toml",
		Extract:  extractPythonRequires,
		Update:   updatePythonRequires,
		Priority: 21,
	})
}

type document map[string]any

func decode(f *fileutil.File) (document, bool) {
	var doc document
	if err := toml.Unmarshal([]byte(f.Text()), &doc); err != nil {
		diag.Warnf("Could not parse %s: %s", f.Name, err)
		return nil, false
	}
	return doc, true
}

func lookup(doc document, path ...string) (any, bool) {
	var node any = map[string]any(doc)
	for _, key := range path {
		table, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = table[key]; !ok {
			return nil, false
		}
	}
	return node, true
}

// backendMentioned reports whether a build backend is named in
// build-system.build-backend or among build-system.requires.
func backendMentioned(doc document, name string) bool {
	if backend, ok := lookup(doc, "build-system", "build-backend"); ok {
		if s, ok := backend.(string); ok && strings.Contains(s, name) {
			return true
		}
	}
	if requires, ok := lookup(doc, "build-system", "requires"); ok {
		if items, ok := requires.([]any); ok {
			for _, item := range items {
				if s, ok := item.(string); ok && strings.Contains(s, name) {
					return true
				}
			}
		}
	}
	return false
}

func isPoetry(doc document) bool {
	if _, ok := lookup(doc, "tool", "poetry"); ok {
		return true
	}
	return backendMentioned(doc, "poetry")
}

func isSetuptools(doc document) bool {
	if _, ok := lookup(doc, "tool", "setuptools"); ok {
		return true
	}
	return backendMentioned(doc, "setuptools")
}

func isFlit(doc document) bool {
	if _, ok := lookup(doc, "tool", "flit"); ok {
		return true
	}
	return backendMentioned(doc, "flit")
}

// classifiersLocation returns where this backend keeps its classifiers.
func classifiersLocation(doc document) (table, key string) {
	table, key = "", ""
	if isPoetry(doc) {
		table, key = "tool.poetry", "classifiers"
	}
	if isSetuptools(doc) || isFlit(doc) {
		table, key = "project", "classifiers"
	}
	return table, key
}

func rawClassifiers(doc document) (any, bool) {
	table, key := classifiersLocation(doc)
	if table == "" {
		return nil, false
	}
	return lookup(doc, append(strings.Split(table, "."), key)...)
}

func stringList(raw any) ([]string, bool) {
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	list := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		list = append(list, s)
	}
	return list, true
}

// extractClassifiers treats pyproject.toml like setup.py: not an
// optional source, so missing classifiers read as an empty set rather
// than as absence.
func extractClassifiers(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	doc, ok := decode(f)
	if !ok {
		return nil, false
	}
	raw, found := rawClassifiers(doc)
	if !found {
		return []versions.Version{}, true
	}
	list, ok := stringList(raw)
	if !ok {
		diag.Warnf("The value specified for classifiers in %s is not a list of strings", f.Name)
		return []versions.Version{}, true
	}
	return pyversions.VersionsFromClassifiers(list), true
}

func updateClassifiers(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
	doc, ok := decode(f)
	if !ok {
		return f
	}
	raw, found := rawClassifiers(doc)
	if !found {
		return f
	}
	list, ok := stringList(raw)
	if !ok {
		diag.Warnf("The value specified for classifiers in %s is not a list of strings", f.Name)
		return f
	}
	table, key := classifiersLocation(doc)
	updated := pyversions.UpdateClassifiers(list, newVersions)
	return tomlfile.UpdateList(f, table, key, updated)
}

// pythonConstraint locates the interpreter constraint and remembers
// which grammar applies to it.
func pythonConstraint(doc document, filename string) (spec, table, key string, poetry, found bool) {
	if isPoetry(doc) {
		if raw, ok := lookup(doc, "tool", "poetry", "dependencies", "python"); ok {
			s, ok := raw.(string)
			if !ok {
				diag.Warnf("The value specified for the python dependency in %s is not a string", filename)
				return "", "", "", false, false
			}
			spec, table, key = s, "tool.poetry.dependencies", "python"
			poetry, found = true, true
		}
	}
	if isSetuptools(doc) || isFlit(doc) {
		if raw, ok := lookup(doc, "project", "requires-python"); ok {
			s, ok := raw.(string)
			if !ok {
				diag.Warnf("The value specified for requires-python in %s is not a string", filename)
				return "", "", "", false, false
			}
			spec, table, key = s, "project", "requires-python"
			poetry, found = false, true
		}
	}
	return spec, table, key, poetry, found
}

func extractPythonRequires(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	doc, ok := decode(f)
	if !ok {
		return nil, false
	}
	spec, _, _, poetry, found := pythonConstraint(doc, f.Name)
	if !found {
		return nil, false
	}
	if poetry {
		return pyversions.ParsePoetryConstraint(
			spec, "tool.poetry.dependencies.python", f.Name, rel)
	}
	return pyversions.ParsePythonRequires(spec, "requires-python", f.Name, rel)
}

func updatePythonRequires(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
	doc, ok := decode(f)
	if !ok {
		return f
	}
	spec, table, key, poetry, found := pythonConstraint(doc, f.Name)
	if !found {
		return f
	}
	var computed string
	if poetry {
		computed = pyversions.ComputePoetrySpec(
			newVersions, rel, pyversions.DetectPoetryStyle(spec))
	} else {
		computed = pyversions.ComputePythonRequires(
			newVersions, rel, pyversions.DetectStyle(spec))
	}
	return tomlfile.UpdateString(f, table, key, computed)
}
