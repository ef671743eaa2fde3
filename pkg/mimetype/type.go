// Package mimetype implements the MIME type/filter graph: a registry of
// document types and cost-weighted conversion filters, with a shortest-cost
// path search from a source type to a printer's pseudo-type (spec §4.1).
package mimetype

import (
	"fmt"
	"strings"
)

const (
	maxSuperLen = 15
	maxTypeLen  = 255

	// SuperPrinter marks the pseudo-type "input acceptable by printer <name>".
	SuperPrinter = "printer"
	// SuperPrefilter marks the pre-stage pseudo-type for a printer.
	SuperPrefilter = "prefilter"

	wildcard = "*"
)

// Type is a lowercase (super, type) pair identifying a document content
// kind, or a pseudo-type of the form printer/<name> or prefilter/<name>.
type Type struct {
	Super string
	Sub   string
}

// Parse lowercases and bounds-checks a "super/type" string.
func Parse(s string) (Type, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Type{}, fmt.Errorf("mimetype: malformed type %q", s)
	}
	super := strings.ToLower(parts[0])
	sub := strings.ToLower(parts[1])
	if len(super) > maxSuperLen {
		return Type{}, fmt.Errorf("mimetype: super %q exceeds %d characters", super, maxSuperLen)
	}
	if len(sub) > maxTypeLen {
		return Type{}, fmt.Errorf("mimetype: type %q exceeds %d characters", sub, maxTypeLen)
	}
	return Type{Super: super, Sub: sub}, nil
}

// New builds a Type from already-validated parts, lowercasing them.
func New(super, sub string) Type {
	return Type{Super: strings.ToLower(super), Sub: strings.ToLower(sub)}
}

func (t Type) String() string {
	return t.Super + "/" + t.Sub
}

// IsWildcard reports whether either half of the type is "*".
func (t Type) IsWildcard() bool {
	return t.Super == wildcard || t.Sub == wildcard
}

// Matches reports whether t (a concrete type) satisfies pattern, which may
// have a wildcard super and/or sub.
func (t Type) Matches(pattern Type) bool {
	if pattern.Super != wildcard && pattern.Super != t.Super {
		return false
	}
	if pattern.Sub != wildcard && pattern.Sub != t.Sub {
		return false
	}
	return true
}

// PrinterType returns the printer/<name> pseudo-type for name.
func PrinterType(name string) Type {
	return Type{Super: SuperPrinter, Sub: strings.ToLower(name)}
}

// PrefilterType returns the prefilter/<name> pseudo-type for name.
func PrefilterType(name string) Type {
	return Type{Super: SuperPrefilter, Sub: strings.ToLower(name)}
}

// PrinterName returns the printer name encoded in a printer/<name> or
// prefilter/<name> pseudo-type, and whether t was actually such a type.
func PrinterName(t Type) (string, bool) {
	if t.Super == SuperPrinter || t.Super == SuperPrefilter {
		return t.Sub, true
	}
	return "", false
}
