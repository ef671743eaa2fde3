package mimetype

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spkg/bom"

	"printsched/pkg/errkind"
)

// defaultFilterDest is the destination a .convs line binds to when it omits
// one (spec §6: "destination type defaults to the builder's 'filter'
// pseudo-type"). Real driver pipelines converge on PostScript before the
// final device-specific filter, so that is the type this loader defaults to.
var defaultFilterDest = New("application", "vnd.cups-postscript")

// octetStream is what the distinguished wildcard pair */* is rewritten to.
var octetStream = New("application", "octet-stream")

// LoadTypesFile reads one .types file into db. Every line is either blank,
// a comment (#...), a line continuation (trailing backslash, folded into
// the next), or "super/type rule...". The rules are opaque to this core and
// are discarded once the type itself is registered.
//
// An unreadable file is an IOTransient error (spec §7): logged by the
// caller and skipped, never fatal.
func (db *Database) LoadTypesFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errkind.New(errkind.IOTransient, "open types file %s: %v", path, err)
	}
	defer f.Close()

	var errs *multierror.Error
	for i, line := range foldLines(f) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		t, err := Parse(fields[0])
		if err != nil {
			errs = multierror.Append(errs, errkind.New(errkind.IOTransient, "%s:%d: %v", path, i+1, err))
			continue
		}
		db.AddType(t)
	}
	return errs.ErrorOrNil()
}

// LoadConvsFile reads one .convs file into db, recognizing the four line
// shapes from spec §6:
//
//	source/type cost program
//	source/type cost maxsize(nnnn) program
//	source/type dest/type cost program
//	source/type dest/type cost maxsize(nnnn) program
func (db *Database) LoadConvsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errkind.New(errkind.IOTransient, "open convs file %s: %v", path, err)
	}
	defer f.Close()

	var errs *multierror.Error
	for i, line := range foldLines(f) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := db.loadConvsLine(line); err != nil {
			errs = multierror.Append(errs, errkind.New(errkind.IOTransient, "%s:%d: %v", path, i+1, err))
		}
	}
	return errs.ErrorOrNil()
}

func (db *Database) loadConvsLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return fmt.Errorf("malformed convs line %q", line)
	}

	src, err := parseConvsType(fields[0])
	if err != nil {
		return err
	}

	rest := fields[1:]

	dst := defaultFilterDest
	if strings.Contains(rest[0], "/") {
		dst, err = parseConvsType(rest[0])
		if err != nil {
			return err
		}
		rest = rest[1:]
	}

	if len(rest) < 2 {
		return fmt.Errorf("malformed convs line %q", line)
	}
	cost, err := strconv.Atoi(rest[0])
	if err != nil {
		return fmt.Errorf("bad cost in %q: %w", line, err)
	}
	rest = rest[1:]

	var maxSize int64
	if strings.HasPrefix(rest[0], "maxsize(") && strings.HasSuffix(rest[0], ")") {
		n, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(rest[0], "maxsize("), ")"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad maxsize in %q: %w", line, err)
		}
		maxSize = n
		rest = rest[1:]
	}

	if len(rest) != 1 {
		return fmt.Errorf("malformed convs line %q", line)
	}
	program := rest[0]

	db.AddFilter(src, dst, cost, maxSize, program)
	return nil
}

// parseConvsType parses a source/dest field from a .convs line, applying
// the */* -> application/octet-stream rewrite and leaving single-sided
// wildcards (source/* or */type) intact for AddFilter's expansion.
func parseConvsType(s string) (Type, error) {
	if s == "*/*" {
		return octetStream, nil
	}
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Type{}, fmt.Errorf("malformed type %q", s)
	}
	return New(parts[0], parts[1]), nil
}

// LoadDirectory loads every .types and every .convs file directly under
// dir (non-recursive, matching the two well-known-directory layout in spec
// §6). Per-file IOTransient errors are aggregated and returned together;
// callers treat a non-nil return as "some files were skipped", not as
// reason to abort.
func (db *Database) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errkind.New(errkind.IOTransient, "read mime directory %s: %v", dir, err)
	}

	var errs *multierror.Error
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		full := filepath.Join(dir, ent.Name())
		switch filepath.Ext(ent.Name()) {
		case ".types":
			if err := db.LoadTypesFile(full); err != nil {
				errs = multierror.Append(errs, err)
			}
		case ".convs":
			if err := db.LoadConvsFile(full); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	return errs.ErrorOrNil()
}

// foldLines returns r's lines with trailing-backslash continuations joined,
// after stripping a leading UTF-8 BOM if present.
func foldLines(r io.Reader) []string {
	scanner := bufio.NewScanner(bom.NewReader(r))
	var lines []string
	var pending string
	for scanner.Scan() {
		text := scanner.Text()
		if strings.HasSuffix(text, "\\") {
			pending += strings.TrimSuffix(text, "\\")
			continue
		}
		lines = append(lines, pending+text)
		pending = ""
	}
	if pending != "" {
		lines = append(lines, pending)
	}
	return lines
}
