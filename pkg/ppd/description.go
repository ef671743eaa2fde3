// Package ppd consumes an already-parsed driver description: a disk cache
// built by an upstream driver-parsing collaborator that this core reads but
// never produces (spec §6 "Driver description cache file"). The core
// consumes it through Cache(open_by_path); it does not parse the original
// driver description format itself.
package ppd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// MarginSide names one of the four media margin directions a driver
// description records (spec §4.2).
type MarginSide int

const (
	MarginTop MarginSide = iota
	MarginBottom
	MarginLeft
	MarginRight
)

// Option is one named driver option: its default choice and the full list
// of choices offered.
type Option struct {
	Default string   `yaml:"default"`
	Choices []string `yaml:"choices"`
}

// PageSize is one page-size record contributing to media-supported and
// media-size-supported.
type PageSize struct {
	Name            string  `yaml:"name"`
	WidthPts        float64 `yaml:"width"`
	HeightPts       float64 `yaml:"height"`
	TopMargin       float64 `yaml:"top_margin"`
	BottomMargin    float64 `yaml:"bottom_margin"`
	LeftMargin      float64 `yaml:"left_margin"`
	RightMargin     float64 `yaml:"right_margin"`
}

// Description is the parsed driver description this core consumes. Field
// names mirror the derivation rules in spec §4.2.
type Description struct {
	MakeAndModel string `yaml:"make_and_model"`
	Model        string `yaml:"model"`

	ColorDevice bool `yaml:"color_device"`

	Options map[string]Option `yaml:"options"`

	PageSizes []PageSize `yaml:"page_sizes"`

	// Finishes lists the raw finishing capability tokens the driver
	// declares (e.g. "bind", "cover", "punch", "staple").
	Finishes []string `yaml:"finishings"`

	QualityLevels []string `yaml:"quality_levels"`

	// SupportedSourceTypes is the set of MIME source types this driver's
	// pipeline accepts directly, prior to the MIME graph search deciding
	// what else can reach it via conversion.
	SupportedSourceTypes []string `yaml:"supported_source_types"`
}

// Cache reads and decodes a driver description cache file at path. The
// core never parses the original driver-description format; it only
// consumes this already-parsed representation (spec §6).
func Cache(path string, open func(path string) ([]byte, error)) (*Description, error) {
	raw, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("ppd: open %s: %w", path, err)
	}

	var d Description
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("ppd: decode %s: %w", path, err)
	}
	return &d, nil
}

// MediaNames returns the page size names in declaration order.
func (d *Description) MediaNames() []string {
	out := make([]string, len(d.PageSizes))
	for i, ps := range d.PageSizes {
		out[i] = ps.Name
	}
	return out
}

// MediaSizeStrings returns one "WIDTHxHEIGHT" entry per page size,
// representing the media-size-supported collection.
func (d *Description) MediaSizeStrings() []string {
	out := make([]string, len(d.PageSizes))
	for i, ps := range d.PageSizes {
		out[i] = fmt.Sprintf("%gx%g", ps.WidthPts, ps.HeightPts)
	}
	return out
}

// UniqueMargins returns the unique margin values on the given side across
// all page sizes, in first-seen order (spec §4.2: "four
// media-*-margin-supported lists (unique margin values)").
func (d *Description) UniqueMargins(side MarginSide) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ps := range d.PageSizes {
		var v float64
		switch side {
		case MarginTop:
			v = ps.TopMargin
		case MarginBottom:
			v = ps.BottomMargin
		case MarginLeft:
			v = ps.LeftMargin
		case MarginRight:
			v = ps.RightMargin
		}
		s := fmt.Sprintf("%g", v)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// finishingFlags maps a declared finishing token to the printer type flag it
// sets (spec §4.2: "Finishings produce finishings-supported and set flags
// for bind, cover, punch, staple").
var finishingFlags = map[string]string{
	"bind":   "bind",
	"cover":  "cover",
	"punch":  "punch",
	"staple": "staple",
}

// Finishings returns the finishings-supported values together with the
// subset of type flags they activate.
func (d *Description) Finishings() (supported []string, flags []string) {
	for _, f := range d.Finishes {
		supported = append(supported, f)
		key := strings.ToLower(f)
		for token, flag := range finishingFlags {
			if strings.Contains(key, token) {
				flags = append(flags, flag)
			}
		}
	}
	return supported, flags
}
