// Package log builds the daemon's structured logger. One *logrus.Entry is
// constructed at startup and threaded explicitly into every component that
// needs to log, the way lazydocker's pkg/log builds app.Log for its App.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Info is the subset of process identity a logger tags every entry with.
type Info struct {
	Debug     bool
	Version   string
	Commit    string
	BuildDate string
	StateDir  string
}

// New returns a logger tagged with process identity fields. In debug mode
// (or with DEBUG=TRUE) it writes structured JSON lines to a log file under
// the state directory; otherwise it stays quiet, matching cupsd's
// foreground-vs-background logging split.
func New(info Info) *logrus.Entry {
	var base *logrus.Logger
	if info.Debug || os.Getenv("DEBUG") == "TRUE" {
		base = developmentLogger(info.StateDir)
	} else {
		base = productionLogger()
	}

	base.Formatter = &logrus.JSONFormatter{}

	return base.WithFields(logrus.Fields{
		"debug":     info.Debug,
		"version":   info.Version,
		"commit":    info.Commit,
		"buildDate": info.BuildDate,
	})
}

func level() logrus.Level {
	lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.DebugLevel
	}
	return lvl
}

func developmentLogger(stateDir string) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level())

	if stateDir == "" {
		l.SetOutput(os.Stderr)
		return l
	}

	file, err := os.OpenFile(filepath.Join(stateDir, "printsched.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "unable to log to file, falling back to stderr:", err)
		l.SetOutput(os.Stderr)
		return l
	}
	l.SetOutput(file)
	return l
}

func productionLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.SetLevel(logrus.ErrorLevel)
	return l
}
