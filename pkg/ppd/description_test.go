package ppd

import "testing"

func TestUniqueMarginsDeduplicates(t *testing.T) {
	d := &Description{
		PageSizes: []PageSize{
			{Name: "Letter", TopMargin: 18},
			{Name: "A4", TopMargin: 18},
			{Name: "Legal", TopMargin: 24},
		},
	}
	margins := d.UniqueMargins(MarginTop)
	if len(margins) != 2 {
		t.Fatalf("expected 2 unique top margins, got %v", margins)
	}
}

func TestFinishingsSetsFlags(t *testing.T) {
	d := &Description{Finishes: []string{"Staple", "Punch3Hole"}}
	supported, flags := d.Finishings()
	if len(supported) != 2 {
		t.Fatalf("expected both finishings listed, got %v", supported)
	}
	foundStaple, foundPunch := false, false
	for _, f := range flags {
		if f == "staple" {
			foundStaple = true
		}
		if f == "punch" {
			foundPunch = true
		}
	}
	if !foundStaple || !foundPunch {
		t.Fatalf("expected staple and punch flags, got %v", flags)
	}
}

func TestCacheDecodesYAML(t *testing.T) {
	raw := []byte("make_and_model: Acme 9000\ncolor_device: true\n")
	d, err := Cache("fake.yaml", func(string) ([]byte, error) { return raw, nil })
	if err != nil {
		t.Fatal(err)
	}
	if d.MakeAndModel != "Acme 9000" || !d.ColorDevice {
		t.Fatalf("unexpected decode result: %+v", d)
	}
}
