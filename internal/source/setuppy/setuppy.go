// Package setuppy reads and updates Python version declarations in
// setup.py: trove classifiers and the python_requires argument.
package setuppy

import (
	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
	"github.com/mgedmin/check-python-versions/internal/pysrc"
	"github.com/mgedmin/check-python-versions/internal/pyversions"
	"github.com/mgedmin/check-python-versions/internal/source"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

var setupCalls = []string{"setup", "setuptools.setup"}

func init() {
	source.Register(source.Source{
		Filename:             "setup.py",
		Extract:              extractClassifiers,
		Update:               updateClassifiers,
		CheckPyPyConsistency: true,
		HasUpperBound:        true,
		Priority:             10,
	})
	// relies on being listed right after the classifiers source
	source.Register(source.Source{
		Title:    "- python_requires",
		Filename: "setup.py",
		Extract:  extractPythonRequires,
		Update:   updatePythonRequires,
		Priority: 11,
	})
}

// extractClassifiers never reports absence: setup.py is not an optional
// source, and a setup.py that fails to declare versions in classifiers
// should show up as an empty set in the report.
func extractClassifiers(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	value, ok := pysrc.FindSetupKeyword(f, setupCalls, "classifiers")
	if !ok {
		return []versions.Version{}, true
	}
	if !value.IsList {
		diag.Warnf("The value passed to setup(classifiers=...) is not a list")
		return []versions.Version{}, true
	}
	return pyversions.VersionsFromClassifiers(value.List), true
}

func updateClassifiers(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
	value, ok := pysrc.FindSetupKeyword(f, setupCalls, "classifiers")
	if !ok {
		return f
	}
	if !value.IsList {
		diag.Warnf("The value passed to setup(classifiers=...) is not a list")
		return f
	}
	updated := pyversions.UpdateClassifiers(value.List, newVersions)
	return pysrc.UpdateCallArg(f, setupCalls, "classifiers", pysrc.ListValue(updated))
}

func extractPythonRequires(f *fileutil.File, rel versions.Releases) ([]versions.Version, bool) {
	value, ok := pysrc.FindSetupKeyword(f, setupCalls, "python_requires")
	if !ok {
		return nil, false
	}
	if value.IsList {
		diag.Warnf("The value passed to setup(python_requires=...) is not a string")
		return nil, false
	}
	return pyversions.ParsePythonRequires(value.Str, "python_requires", f.Name, rel)
}

func updatePythonRequires(f *fileutil.File, newVersions []versions.Version, rel versions.Releases) *fileutil.File {
	value, ok := pysrc.FindSetupKeyword(f, setupCalls, "python_requires")
	if !ok || value.IsList {
		return f
	}
	style := pyversions.DetectStyle(value.Str)
	computed := pyversions.ComputePythonRequires(newVersions, rel, style)
	return pysrc.UpdateCallArg(f, setupCalls, "python_requires", pysrc.StringValue(computed))
}
