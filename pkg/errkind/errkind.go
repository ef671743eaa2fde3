// Package errkind classifies the scheduler core's recoverable and fatal
// error conditions (spec §7) behind a small error code, the way
// pkg/commands/errors.go in lazydocker carries a ComplexError code so
// callers don't have to string-match error text.
package errkind

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// Kind enumerates the error kinds named in spec.md §7.
type Kind int

const (
	// ConfigSyntax is a malformed directive or value. Recoverable: skip the
	// directive, continue.
	ConfigSyntax Kind = iota
	// ConfigSemantic is a semantically invalid but syntactically well formed
	// directive (e.g. Group == SystemGroup). Recoverable by resetting to a
	// safe default.
	ConfigSemantic
	// GraphAbsent means no filter chain exists for a (src, printer) pair.
	GraphAbsent
	// MaskParse is an invalid IP or name mask; the rule is rejected, the
	// location keeps its remaining masks.
	MaskParse
	// PolicyDenied is the authorization evaluator's deny outcome.
	PolicyDenied
	// AuthRequired means credentials are missing or of the wrong type.
	AuthRequired
	// EncryptionRequired means encryption is required but not present.
	EncryptionRequired
	// RegistryInvariant is a duplicate id or an over-bound collection (e.g.
	// more than 64 reasons).
	RegistryInvariant
	// IOTransient is an unreadable .types/.convs/printers-file entry; logged
	// and skipped.
	IOTransient
	// IOFatal is an unreadable configuration file; startup aborts.
	IOFatal
)

func (k Kind) String() string {
	switch k {
	case ConfigSyntax:
		return "config-syntax"
	case ConfigSemantic:
		return "config-semantic"
	case GraphAbsent:
		return "graph-absent"
	case MaskParse:
		return "mask-parse"
	case PolicyDenied:
		return "policy-denied"
	case AuthRequired:
		return "auth-required"
	case EncryptionRequired:
		return "encryption-required"
	case RegistryInvariant:
		return "registry-invariant"
	case IOTransient:
		return "io-transient"
	case IOFatal:
		return "io-fatal"
	default:
		return "unknown"
	}
}

// Error is a code-carrying error modeled on lazydocker's ComplexError: it
// keeps a stack frame so a top-level handler can print one if it chooses to,
// but callers normally just inspect Kind().
type Error struct {
	Kind    Kind
	Message string
	frame   xerrors.Frame
}

// New builds an Error of the given kind, capturing the caller's frame.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		frame:   xerrors.Caller(1),
	}
}

func (e *Error) FormatError(p xerrors.Printer) error {
	p.Printf("%s: %s", e.Kind, e.Message)
	e.frame.Format(p)
	return nil
}

func (e *Error) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether err, or an error it wraps, is an *Error of the given
// kind (errkind.Is(err, errkind.ConfigSyntax)), mirroring HasErrorCode in
// the teacher's errors.go.
func Is(err error, kind Kind) bool {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// WrapFatal wraps an error for a top-level stack trace print, exactly as
// main.go wraps the top-level error before logging it and exiting.
func WrapFatal(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, 0)
}
