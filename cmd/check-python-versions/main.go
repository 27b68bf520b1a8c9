package main

import (
	"os"

	"github.com/mgedmin/check-python-versions/internal/cli"
	_ "github.com/mgedmin/check-python-versions/internal/source/appveyor"
	_ "github.com/mgedmin/check-python-versions/internal/source/gha"
	_ "github.com/mgedmin/check-python-versions/internal/source/manylinux"
	_ "github.com/mgedmin/check-python-versions/internal/source/pyproject"
	_ "github.com/mgedmin/check-python-versions/internal/source/setuppy"
	_ "github.com/mgedmin/check-python-versions/internal/source/toxini"
	_ "github.com/mgedmin/check-python-versions/internal/source/travis"
)

func main() {
	os.Exit(cli.Main())
}
