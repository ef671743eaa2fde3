package config

import (
	"strings"

	"printsched/pkg/errkind"
)

// EnvBlock enforces the process-wide blocklist on SetEnv/PassEnv (spec §6
// "Environment variables (semantic)"): names that would alter dynamic
// linker behavior, credential-carrying names, and the names the service
// sets itself for filter child processes.
type EnvBlock struct {
	vars    map[string]string
	passed  map[string]struct{}
}

// NewEnvBlock returns an empty EnvBlock.
func NewEnvBlock() EnvBlock {
	return EnvBlock{vars: make(map[string]string), passed: make(map[string]struct{})}
}

// forbiddenExact is the set of filter-process-owned names a directive may
// never set or pass through.
var forbiddenExact = map[string]struct{}{
	"DEVICE_URI": {},
	"PRINTER":    {},
	"PPD":        {},
	"CHARSET":    {},
	"CONTENT_TYPE": {},
	"FINAL_CONTENT_TYPE": {},
}

// forbiddenPrefixes covers entire families: dynamic-linker variables,
// credential-carrying variables, and the CUPS_* family the service
// reserves for itself.
var forbiddenPrefixes = []string{
	"LD_",
	"DYLD_",
	"AUTH_",
	"CUPS_",
}

// IsForbidden reports whether name may never be set or passed through.
func IsForbidden(name string) bool {
	upper := strings.ToUpper(name)
	if _, ok := forbiddenExact[upper]; ok {
		return true
	}
	for _, prefix := range forbiddenPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// SetEnv records a fixed name=value binding for filter child processes,
// rejecting forbidden names (spec §7 ConfigSyntax-class rejection:
// skip the directive, continue).
func (e *EnvBlock) SetEnv(name, value string) error {
	if IsForbidden(name) {
		return errkind.New(errkind.ConfigSyntax, "SetEnv of forbidden variable %q", name)
	}
	e.vars[name] = value
	return nil
}

// PassEnv records that the named variables should be inherited from the
// daemon's own environment into filter child processes, rejecting
// forbidden names.
func (e *EnvBlock) PassEnv(names ...string) error {
	var first error
	for _, name := range names {
		if IsForbidden(name) {
			if first == nil {
				first = errkind.New(errkind.ConfigSyntax, "PassEnv of forbidden variable %q", name)
			}
			continue
		}
		e.passed[name] = struct{}{}
	}
	return first
}

// Vars returns the fixed SetEnv bindings.
func (e *EnvBlock) Vars() map[string]string {
	return e.vars
}

// PassedNames returns the PassEnv-selected variable names.
func (e *EnvBlock) PassedNames() []string {
	out := make([]string, 0, len(e.passed))
	for n := range e.passed {
		out = append(out, n)
	}
	return out
}
