package printerreg

import (
	"testing"

	"printsched/pkg/mimetype"
	"printsched/pkg/policy"
	"printsched/pkg/ppd"
)

func TestSetPrinterAttributesFallbackWithoutDriver(t *testing.T) {
	r := NewRegistry(mimetype.NewDatabase(), policy.NewPolicySet(), nil, "host")
	p, _ := r.AddPrinter("foo")

	r.SetPrinterAttributes(p, DefaultCommonAttrs(), nil)

	if _, ok := p.Attributes["printer-make-and-model"]; !ok {
		t.Fatalf("expected a fallback printer-make-and-model attribute")
	}
	if _, ok := p.Attributes["printer-uuid"]; !ok {
		t.Fatalf("expected printer-uuid to be set")
	}
}

func TestSetPrinterAttributesColorAndDuplexFlags(t *testing.T) {
	r := NewRegistry(mimetype.NewDatabase(), policy.NewPolicySet(), nil, "host")
	p, _ := r.AddPrinter("foo")

	drv := &ppd.Description{
		MakeAndModel: "Acme LaserMax 9000",
		ColorDevice:  true,
		Options: map[string]ppd.Option{
			"Duplex":     {Default: "DuplexTumble", Choices: []string{"None", "DuplexTumble"}},
			"Resolution": {Default: "600x600", Choices: []string{"300x300", "600x600"}},
		},
	}

	r.SetPrinterAttributes(p, DefaultCommonAttrs(), drv)

	sides := p.Attributes["sides-default"]
	if len(sides) != 1 || sides[0] != "two-sided-short-edge" {
		t.Fatalf("expected tumble duplex default to yield two-sided-short-edge, got %v", sides)
	}

	colorSupported := p.Attributes["color-supported"]
	if len(colorSupported) != 1 || colorSupported[0] != "true" {
		t.Fatalf("expected color-supported=true, got %v", colorSupported)
	}
}

func TestSetPrinterAttributesPreservesMarkerKeys(t *testing.T) {
	r := NewRegistry(mimetype.NewDatabase(), policy.NewPolicySet(), nil, "host")
	p, _ := r.AddPrinter("foo")
	p.Attributes["marker-levels"] = []string{"80"}

	r.SetPrinterAttributes(p, DefaultCommonAttrs(), nil)

	got := p.Attributes["marker-levels"]
	if len(got) != 1 || got[0] != "80" {
		t.Fatalf("expected marker-levels to survive the rebuild, got %v", got)
	}
}

func TestSetPrinterAttributesRemoteFlag(t *testing.T) {
	r := NewRegistry(mimetype.NewDatabase(), policy.NewPolicySet(), nil, "host")
	p, _ := r.AddPrinter("foo")
	p.DeviceURI = "ipp://otherhost/printers/bar"

	r.SetPrinterAttributes(p, DefaultCommonAttrs(), nil)

	mm := p.Attributes["printer-make-and-model"]
	if len(mm) != 1 || mm[0] != "Remote Printer" {
		t.Fatalf("expected remote fallback make-and-model, got %v", mm)
	}
}
