package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/integrii/flaggy"
	"github.com/samber/lo"

	"printsched/pkg/app"
	"printsched/pkg/config"
	applog "printsched/pkg/log"
	"printsched/pkg/utils"
)

const defaultVersion = "unversioned"

var (
	commit  string
	version = defaultVersion
	date    string

	configDirFlag  string
	foregroundFlag bool
	testConfigFlag bool
	debugFlag      bool
)

func main() {
	updateBuildInfo()

	info := fmt.Sprintf(
		"%s\nDate: %s\nCommit: %s\nOS: %s\nArch: %s",
		version, date, commit, runtime.GOOS, runtime.GOARCH,
	)

	flaggy.SetName("printsched")
	flaggy.SetDescription("Print-service scheduler daemon")
	flaggy.String(&configDirFlag, "c", "config-dir", "Configuration directory")
	flaggy.Bool(&foregroundFlag, "f", "foreground", "Run in the foreground instead of as a daemon")
	flaggy.Bool(&testConfigFlag, "t", "test-config", "Validate configuration and exit")
	flaggy.Bool(&debugFlag, "d", "debug", "Enable debug logging")
	flaggy.SetVersion(info)
	flaggy.Parse()

	proc := config.DefaultProcessConfig()
	if configDirFlag != "" {
		proc.ConfigDir = configDirFlag
		proc.MimeTypeDirs = []string{filepath.Join(configDirFlag, "mime")}
	}
	proc.Foreground = foregroundFlag
	proc.TestConfig = testConfigFlag
	proc.Debug = debugFlag

	logger := applog.New(applog.Info{
		Debug:     debugFlag,
		Version:   version,
		Commit:    commit,
		BuildDate: date,
		StateDir:  proc.StateDir,
	})

	core := app.New(logger, proc)

	printersFile := filepath.Join(proc.StateDir, "printers")
	if err := core.FullReload(context.Background(), printersFile); err != nil {
		logger.WithError(err).Warn("reload completed with recoverable errors")
	}

	if proc.TestConfig {
		fmt.Println("configuration OK")
		return
	}

	if err := run(core, printersFile); err != nil {
		fatal(logger, err)
	}
}

func run(core *app.Core, printersFile string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := core.Run(ctx, 1*time.Second)
	if writeErr := core.WritePrintersFile(printersFile); writeErr != nil {
		core.Log.WithError(writeErr).Warn("failed to persist printers file on shutdown")
	}
	return err
}

// fatal prints a stack trace exactly as lazydocker's main.go does on an
// unrecovered error: this is the only place in the daemon a stack trace is
// printed.
func fatal(logger interface{ Error(args ...interface{}) }, err error) {
	wrapped := goerrors.Wrap(err, 0)
	stackTrace := wrapped.ErrorStack()
	logger.Error(stackTrace)
	log.Fatalf("printsched: fatal error\n\n%s", stackTrace)
}

func updateBuildInfo() {
	if version != defaultVersion {
		return
	}
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	revision, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
		return setting.Key == "vcs.revision"
	})
	if ok {
		commit = revision.Value
		version = utils.SafeTruncate(revision.Value, 7)
	}
	buildTime, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
		return setting.Key == "vcs.time"
	})
	if ok {
		date = buildTime.Value
	}
}
