// Package logging wraps logrus behind a small level-gated interface, in
// the manner of vorteil's pkg/elog but stripped of its progress-bar
// machinery: a single-pass scanner has no interactive bars to draw.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the narrow logging surface every component depends on,
// rather than importing logrus directly.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	IsDebugEnabled() bool
}

// CLI is the concrete Logger backing the command-line tool. Verbose
// controls whether Infof messages are emitted; Debug additionally
// unlocks Debugf. Both default to false, matching a quiet, report-only
// run.
type CLI struct {
	Verbose bool
	Debug   bool
}

// New constructs a CLI logger and, when logFile is non-empty, duplicates
// logrus's output to that file alongside stderr.
func New(verbose bool, debug bool, logFile string) (*CLI, error) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	if debug {
		logrus.SetLevel(logrus.TraceLevel)
	} else if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	return &CLI{Verbose: verbose, Debug: debug}, nil
}

func (c *CLI) Debugf(format string, args ...interface{}) {
	logrus.Tracef(format, args...)
}

func (c *CLI) Infof(format string, args ...interface{}) {
	logrus.Debugf(format, args...)
}

func (c *CLI) Warnf(format string, args ...interface{}) {
	logrus.Warnf(format, args...)
}

func (c *CLI) Errorf(format string, args ...interface{}) {
	logrus.Errorf(format, args...)
}

func (c *CLI) IsDebugEnabled() bool {
	return logrus.IsLevelEnabled(logrus.TraceLevel)
}

// Nil is a Logger that discards everything, useful for tests that don't
// care about log output.
type Nil struct{}

func (Nil) Debugf(string, ...interface{}) {}
func (Nil) Infof(string, ...interface{})  {}
func (Nil) Warnf(string, ...interface{})  {}
func (Nil) Errorf(string, ...interface{}) {}
func (Nil) IsDebugEnabled() bool          { return false }
