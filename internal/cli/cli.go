// Package cli implements the check-python-versions command line
// interface: it parses arguments, extracts information about supported
// Python versions from the various sources, presents it to the user and
// possibly makes modifications.
package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sethvargo/go-githubactions"
	"github.com/spf13/cobra"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/source"
	"github.com/mgedmin/check-python-versions/internal/versions"
)

const version = "0.21.3"

var (
	expectArg        string
	skipNonPackages  bool
	allowNonPackages bool
	onlyArg          string
	addArg           string
	dropArg          string
	updateArg        string
	diffFlag         bool
	dryRun           bool
	verbose          bool
)

var rootCmd = &cobra.Command{
	Use:   "check-python-versions [where ...]",
	Short: "verify that supported Python versions are the same" +
		" in setup.py, tox.ini, .travis.yml and appveyor.yml",
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&expectArg, "expect", "",
		"expect these versions to be supported, e.g. --expect 2.7,3.5-3.7")
	flags.BoolVar(&skipNonPackages, "skip-non-packages", false,
		"skip arguments that are not Python packages without warning about them")
	flags.BoolVar(&allowNonPackages, "allow-non-packages", false,
		"try to work on directories that are not Python packages"+
			" but have a tox.ini or .github/workflows")
	flags.StringVar(&onlyArg, "only", "",
		"check only the specified files"+
			" (comma-separated list, e.g. --only tox.ini,appveyor.yml)")
	flags.StringVar(&addArg, "add", "",
		"add these versions to supported ones, e.g. --add 3.8")
	flags.StringVar(&dropArg, "drop", "",
		"drop these versions from supported ones, e.g. --drop 2.6,3.4")
	flags.StringVar(&updateArg, "update", "",
		"update the set of supported versions, e.g. --update 2.7,3.5-3.7")
	flags.BoolVar(&diffFlag, "diff", false,
		"show a diff of proposed changes")
	flags.BoolVar(&dryRun, "dry-run", false,
		"verify proposed changes without writing them to disk")
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"print debugging information")
	rootCmd.SetVersionTemplate("check-python-versions version " + version + "\n")
}

// mismatchError carries the final verdict out of run as a bare message
// printed to standard error, the way sys.exit(msg) would.
type mismatchError struct {
	msg string
}

func (e *mismatchError) Error() string { return e.msg }

func run(cmd *cobra.Command, args []string) error {
	diag.SetVerbose(verbose)

	rel, err := versions.LoadReleases(cmd.Context())
	if err != nil {
		return err
	}

	var expect, add, drop, update []versions.Version
	for _, arg := range []struct {
		name  string
		value string
		dest  *[]versions.Version
	}{
		{"--expect", expectArg, &expect},
		{"--add", addArg, &add},
		{"--drop", dropArg, &drop},
		{"--update", updateArg, &update},
	} {
		if arg.value == "" {
			continue
		}
		parsed, err := parseVersionList(arg.value, rel)
		if err != nil {
			return fmt.Errorf("argument %s: %w", arg.name, err)
		}
		*arg.dest = parsed
	}

	if len(update) > 0 && len(add) > 0 {
		return errors.New("argument --add: not allowed with argument --update")
	}
	if len(update) > 0 && len(drop) > 0 {
		return errors.New("argument --drop: not allowed with argument --update")
	}
	if skipNonPackages && allowNonPackages {
		return errors.New("use either --skip-non-packages or --allow-non-packages, not both")
	}
	updating := len(update) > 0 || len(add) > 0 || len(drop) > 0
	if diffFlag && !updating {
		return errors.New("argument --diff: not allowed without --update/--add/--drop")
	}
	if dryRun && !updating {
		return errors.New("argument --dry-run: not allowed without --update/--add/--drop")
	}
	if len(expect) > 0 && diffFlag && !dryRun {
		return errors.New("argument --expect: not allowed with --diff," +
			" unless you also add --dry-run")
	}

	where := args
	if len(where) == 0 {
		where = []string{"."}
	}
	if skipNonPackages {
		var packages []string
		for _, path := range where {
			if isPackage(path) {
				packages = append(packages, path)
			}
		}
		where = packages
	}

	var only map[string]bool
	if onlyArg != "" {
		only = make(map[string]bool)
		for _, name := range strings.Split(onlyArg, ",") {
			only[strings.TrimSpace(name)] = true
		}
	}

	multiple := len(where) > 1
	minWidth := 0
	if multiple {
		for _, src := range source.All() {
			if n := len(src.Title) + len("says: "); n > minWidth {
				minWidth = n
			}
		}
	}

	out := cmd.OutOrStdout()
	var mismatches []string
	for n, path := range where {
		if multiple && (!diffFlag || dryRun) {
			if n > 0 {
				fmt.Fprint(out, "\n\n")
			}
			fmt.Fprintf(out, "%s:\n\n", path)
		}
		if !allowNonPackages {
			if !checkPackage(out, path) {
				mismatches = append(mismatches, path)
				continue
			}
		}
		var replacements map[string][]string
		if updating {
			replacements, err = updateVersions(out, path, updateOptions{
				Add:    add,
				Drop:   drop,
				Update: update,
				Diff:   diffFlag,
				DryRun: dryRun,
				Only:   only,
			}, rel)
			if err != nil {
				return err
			}
		}
		if !diffFlag || dryRun {
			ok, err := checkVersions(out, path, checkOptions{
				Expect:       expect,
				Replacements: replacements,
				Only:         only,
				MinWidth:     minWidth,
			}, rel)
			if err != nil {
				return err
			}
			if !ok {
				mismatches = append(mismatches, path)
				continue
			}
		}
	}

	if !diffFlag || dryRun {
		if len(mismatches) > 0 {
			annotateMismatches(mismatches)
			if multiple {
				return &mismatchError{
					msg: fmt.Sprintf("\n\nmismatch in %s!", strings.Join(mismatches, " ")),
				}
			}
			return &mismatchError{msg: "\nmismatch!"}
		}
		if multiple {
			fmt.Fprintln(out, "\n\nall ok!")
		}
	}
	return nil
}

// annotateMismatches emits GitHub Actions error annotations so that a CI
// failure points at the offending package directly.
func annotateMismatches(mismatches []string) {
	if os.Getenv("GITHUB_ACTIONS") != "true" {
		return
	}
	action := githubactions.New()
	for _, path := range mismatches {
		action.Errorf("supported Python versions are inconsistent in %s", path)
	}
}

// Main runs the command line interface and returns the process exit code.
func Main() int {
	// Terminate quietly on Ctrl+C instead of dumping a stack trace.
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)
	go func() {
		<-interrupted
		os.Exit(2)
	}()

	if err := rootCmd.Execute(); err != nil {
		var mismatch *mismatchError
		if errors.As(err, &mismatch) {
			fmt.Fprintln(os.Stderr, mismatch.msg)
			return 1
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	return 0
}
