package mimetype

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTypesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.types")
	content := "# comment\napplication/pdf pdf string(0,<)\n\napplication/postscript postscript string(0,%!)\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	db := NewDatabase()
	if err := db.LoadTypesFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !db.HasType(New("application", "pdf")) {
		t.Fatalf("expected application/pdf to be registered")
	}
	if !db.HasType(New("application", "postscript")) {
		t.Fatalf("expected application/postscript to be registered")
	}
}

func TestLoadConvsFileAllFourShapes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.convs")
	content := "" +
		"application/pdf 33 pdftops\n" +
		"application/octet-stream 50 maxsize(1000) rawtops\n" +
		"application/postscript printer/foo 10 pstoraster\n" +
		"application/vnd.cups-raw printer/foo 0 maxsize(2000) -\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	db := NewDatabase()
	db.AddType(New("application", "pdf"))
	db.AddType(New("application", "octet-stream"))
	db.AddType(New("application", "postscript"))
	db.AddType(New("application", "vnd.cups-raw"))
	db.AddType(PrinterType("foo"))

	if err := db.LoadConvsFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, ok := db.FindFilter(New("application", "pdf"), defaultFilterDest)
	if !ok || f.Cost != 33 || f.Program != "pdftops" {
		t.Fatalf("shape 1 (no dest, no maxsize) not parsed correctly: %+v ok=%v", f, ok)
	}

	f, ok = db.FindFilter(New("application", "octet-stream"), defaultFilterDest)
	if !ok || f.Cost != 50 || f.MaxSize != 1000 || f.Program != "rawtops" {
		t.Fatalf("shape 2 (no dest, maxsize) not parsed correctly: %+v ok=%v", f, ok)
	}

	f, ok = db.FindFilter(New("application", "postscript"), PrinterType("foo"))
	if !ok || f.Cost != 10 || f.Program != "pstoraster" {
		t.Fatalf("shape 3 (dest, no maxsize) not parsed correctly: %+v ok=%v", f, ok)
	}

	f, ok = db.FindFilter(New("application", "vnd.cups-raw"), PrinterType("foo"))
	if !ok || f.MaxSize != 2000 || !f.IsIdentity() {
		t.Fatalf("shape 4 (dest, maxsize, identity program) not parsed correctly: %+v ok=%v", f, ok)
	}
}

func TestLoadConvsFileWildcardAllRewrittenToOctetStream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.convs")
	content := "*/* 0 -\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	db := NewDatabase()
	db.AddType(New("application", "octet-stream"))

	if err := db.LoadConvsFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := db.FindFilter(octetStream, defaultFilterDest); !ok {
		t.Fatalf("expected */* to be rewritten to application/octet-stream")
	}
}

func TestLoadTypesFileUnreadableIsIOTransient(t *testing.T) {
	db := NewDatabase()
	err := db.LoadTypesFile(filepath.Join(t.TempDir(), "does-not-exist.types"))
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
