package printerreg

import (
	"context"
	"fmt"
	"testing"
)

func TestLoadDriverCachesSkipsPrintersWithoutDriverPath(t *testing.T) {
	p1 := NewPrinter("p1")
	p2 := NewPrinter("p2")
	p2.DriverPath = "p2.yaml"

	opened := make(map[string]bool)
	open := func(path string) ([]byte, error) {
		opened[path] = true
		return []byte("make_and_model: Test\ncolor_device: true\n"), nil
	}

	results, err := LoadDriverCaches(context.Background(), []*Printer{p1, p2}, open)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := results["p1"]; ok {
		t.Error("p1 has no DriverPath and should be skipped")
	}
	drv, ok := results["p2"]
	if !ok {
		t.Fatal("expected p2's driver to load")
	}
	if drv.MakeAndModel != "Test" {
		t.Errorf("MakeAndModel = %q, want Test", drv.MakeAndModel)
	}
	if !opened["p2.yaml"] {
		t.Error("expected p2.yaml to be opened")
	}
}

func TestLoadDriverCachesOneFailureDoesNotAbortOthers(t *testing.T) {
	p1 := NewPrinter("p1")
	p1.DriverPath = "bad.yaml"
	p2 := NewPrinter("p2")
	p2.DriverPath = "good.yaml"

	open := func(path string) ([]byte, error) {
		if path == "bad.yaml" {
			return nil, fmt.Errorf("boom")
		}
		return []byte("make_and_model: Good\n"), nil
	}

	results, err := LoadDriverCaches(context.Background(), []*Printer{p1, p2}, open)
	if err != nil {
		t.Fatalf("unexpected aggregate error: %v", err)
	}
	if _, ok := results["p1"]; ok {
		t.Error("p1's bad cache should not appear in results")
	}
	if drv, ok := results["p2"]; !ok || drv.MakeAndModel != "Good" {
		t.Error("p2's good cache should still load")
	}
}
