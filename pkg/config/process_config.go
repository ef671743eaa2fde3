package config

import (
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
)

// ReloadKind distinguishes the two reload transitions spec §4.6 describes.
type ReloadKind int

const (
	// ReloadPartial only rebuilds common attributes and re-runs the
	// attribute builder.
	ReloadPartial ReloadKind = iota
	// ReloadFull deletes subscriptions/jobs/printers, rebuilds the MIME
	// graph from the two type/filter directories, then reloads
	// printers/classes/subscriptions/jobs.
	ReloadFull
)

// ProcessConfig is the process-wide configuration this daemon resolves at
// startup, backed by CLI flags (see main.go) with xdg-resolved defaults for
// any directory the operator didn't pin explicitly.
type ProcessConfig struct {
	ConfigDir string
	StateDir  string
	CacheDir  string

	Foreground bool
	TestConfig bool
	Debug      bool

	ServerName string

	// FatalErrorsMask selects which recoverable error kinds elevate to a
	// fatal startup abort (spec §7: "Elevates to fatal only when a
	// configured FatalErrors bit selects it").
	FatalErrorsMask uint32

	MimeTypeDirs []string
}

const appName = "printsched"

// DefaultProcessConfig resolves directories via xdg when the caller hasn't
// pinned them with a CLI flag.
func DefaultProcessConfig() ProcessConfig {
	dirs := xdg.New("", appName)
	return ProcessConfig{
		ConfigDir:    dirs.ConfigHome(),
		StateDir:     dirs.DataHome(),
		CacheDir:     dirs.CacheHome(),
		ServerName:   "localhost",
		MimeTypeDirs: []string{filepath.Join(dirs.ConfigHome(), "mime")},
	}
}

// FatalBit names one recoverable-error kind that can be promoted to fatal
// via FatalErrorsMask.
type FatalBit uint32

const (
	FatalConfig      FatalBit = 1 << 0
	FatalPermissions FatalBit = 1 << 1
)

// IsFatal reports whether bit is set in the mask.
func (c ProcessConfig) IsFatal(bit FatalBit) bool {
	return c.FatalErrorsMask&uint32(bit) != 0
}
