// Package diag is the advisory diagnostics channel.
//
// Extractors and updaters report recoverable problems (a malformed
// constraint clause, an unrecognized layout) here and carry on; nothing in
// this package ever terminates the process. Messages go to standard error,
// away from the normal report output.
package diag

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
})

// Warnf reports a recoverable problem with a file being checked or updated.
func Warnf(format string, args ...any) {
	logger.Warnf(format, args...)
}

// Debugf reports tracing detail, visible only in verbose mode.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// SetVerbose lowers the logging threshold to debug level.
func SetVerbose(verbose bool) {
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}

// SetOutput redirects diagnostics, used by tests to capture warnings.
// A nil writer restores standard error.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)
}
