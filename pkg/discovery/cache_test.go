package discovery

import (
	"os"
	"testing"

	"printsched/pkg/mimetype"
)

func buildTestGraph() *mimetype.Database {
	db := mimetype.NewDatabase()
	pdf := mimetype.New("application", "pdf")
	ps := mimetype.New("application", "postscript")
	foo := mimetype.PrinterType("foo")
	db.AddType(pdf)
	db.AddType(ps)
	db.AddType(foo)
	db.AddFilter(pdf, ps, 10, 0, "pdftops")
	db.AddFilter(ps, foo, 10, 0, "pstoraster")
	return db
}

func TestPopulateForPrinterFindsReachableTypes(t *testing.T) {
	db := buildTestGraph()
	c := NewCache()
	c.Init()

	types, metrics := c.PopulateForPrinter(db, "AcmeModel", mimetype.PrinterType("foo"))
	if len(types) != 2 {
		t.Fatalf("expected 2 reachable types, got %v", types)
	}
	if metrics.UsedCache {
		t.Fatalf("expected first call to be a miss")
	}
}

func TestPopulateForPrinterCacheHitWhenEnabled(t *testing.T) {
	os.Setenv(discoveryEnableEnv, "1")
	defer os.Unsetenv(discoveryEnableEnv)

	db := buildTestGraph()
	c := NewCache()
	c.Init()

	c.PopulateForPrinter(db, "AcmeModel", mimetype.PrinterType("foo"))
	_, metrics := c.PopulateForPrinter(db, "AcmeModel", mimetype.PrinterType("foo"))
	if !metrics.UsedCache {
		t.Fatalf("expected second call for the same model to hit the cache")
	}
}

func TestPopulateForPrinterDisabledByDefault(t *testing.T) {
	os.Unsetenv(discoveryEnableEnv)
	db := buildTestGraph()
	c := NewCache()
	c.Init()

	c.PopulateForPrinter(db, "AcmeModel", mimetype.PrinterType("foo"))
	_, metrics := c.PopulateForPrinter(db, "AcmeModel", mimetype.PrinterType("foo"))
	if metrics.UsedCache {
		t.Fatalf("expected cache disabled by default")
	}
}

func TestFormatAttrsPrefersURFThenPDFThenOctetStream(t *testing.T) {
	supported, preferred := FormatAttrsFromTypes([]string{"image/urf", "application/pdf"})
	if preferred[0] != "image/urf" {
		t.Fatalf("expected image/urf preferred, got %v", preferred)
	}
	if !has(supported, "application/octet-stream") {
		t.Fatalf("expected octet-stream fallback present, got %v", supported)
	}

	_, preferred = FormatAttrsFromTypes([]string{"application/pdf"})
	if preferred[0] != "application/pdf" {
		t.Fatalf("expected pdf preferred when urf absent, got %v", preferred)
	}

	_, preferred = FormatAttrsFromTypes(nil)
	if preferred[0] != "application/octet-stream" {
		t.Fatalf("expected octet-stream preferred as last resort, got %v", preferred)
	}
}
