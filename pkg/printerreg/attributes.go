package printerreg

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/imdario/mergo"

	"printsched/pkg/discovery"
	"printsched/pkg/ppd"
)

// commonAttrs holds the attribute keys built once per reload and shared by
// every printer's builder pass (spec §4.2: "common data built once per
// reload (supported operations, versions, notify schemes, etc.)").
type commonAttrs struct {
	OperationsSupported []string
	IPPVersionsSupported []string
	NotifyEventsSupported []string
}

// DefaultCommonAttrs returns the fixed common-data block this core
// advertises.
func DefaultCommonAttrs() commonAttrs {
	return commonAttrs{
		OperationsSupported:   []string{"Print-Job", "Validate-Job", "Cancel-Job", "Get-Job-Attributes", "Get-Printer-Attributes", "Pause-Printer", "Resume-Printer"},
		IPPVersionsSupported:  []string{"1.1", "2.0"},
		NotifyEventsSupported: []string{"job-completed", "job-created", "printer-state-changed"},
	}
}

// markerAttrPrefix identifies the marker-state attributes that survive an
// attribute rebuild and are re-attached verbatim (spec §4.2 invariant:
// "Marker-state attributes from the previous attribute set survive the
// rebuild and are re-attached.").
const markerAttrPrefix = "marker-"

// SetPrinterAttributes is the attribute builder: it derives the advertised
// attribute set from the common data, the parsed driver description (if
// any), and live state, replacing the printer's Attributes map wholesale
// except for marker-* keys, which survive (spec §4.2).
func (r *Registry) SetPrinterAttributes(p *Printer, common commonAttrs, drv *ppd.Description) {
	p.mu.Lock()
	defer p.mu.Unlock()

	preserved := make(map[string][]string)
	for k, v := range p.Attributes {
		if strings.HasPrefix(k, markerAttrPrefix) {
			preserved[k] = v
		}
	}

	next := map[string][]string{
		"operations-supported":       common.OperationsSupported,
		"ipp-versions-supported":     common.IPPVersionsSupported,
		"notify-events-supported":    common.NotifyEventsSupported,
		"printer-uuid":               {p.UUID},
		"printer-state":              {strconv.Itoa(int(p.State))},
		"printer-state-reasons":      sortedKeys(p.reasons),
		"printer-is-accepting-jobs":  {strconv.FormatBool(p.Accepting)},
	}

	if drv != nil {
		buildFromDriver(next, drv)
	} else if isRemoteURI(p.DeviceURI) {
		next["printer-make-and-model"] = []string{"Remote Printer"}
		next["printer-type-remote"] = []string{"true"}
		next["printer-type-raw"] = []string{"true"}
	} else {
		buildFallback(next, p)
	}

	if err := mergo.Merge(&next, preserved); err != nil {
		// Preserved marker attributes are best-effort; a merge failure just
		// means they don't survive this rebuild.
		for k, v := range preserved {
			if _, exists := next[k]; !exists {
				next[k] = v
			}
		}
	}

	p.Attributes = next
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func isRemoteURI(uri string) bool {
	return strings.HasPrefix(uri, "ipp://") || strings.HasPrefix(uri, "ipps://") || strings.HasPrefix(uri, "lpd://") || strings.HasPrefix(uri, "socket://")
}

func buildFallback(attrs map[string][]string, p *Printer) {
	attrs["printer-make-and-model"] = []string{"Unknown"}
	attrs["document-format-supported"] = []string{"application/octet-stream"}
	attrs["document-format-preferred"] = []string{"application/octet-stream"}
	attrs["sides-supported"] = []string{"one-sided"}
	attrs["urf-supported"] = []string{"V1.4", "CP1", "W8", "PQ4", "RS300"}
}

// duplexOptionKeywords is the prioritized list of option keywords searched
// for the duplex option (spec §4.2).
var duplexOptionKeywords = []string{"Duplex", "JCLDuplex", "EFDuplex", "KD03Duplex"}

// resolutionOptionKeywords is the prioritized list searched for resolution
// choices (spec §4.2).
var resolutionOptionKeywords = []string{"Resolution", "JCLResolution", "SetResolution", "CNRes1"}

func buildFromDriver(attrs map[string][]string, drv *ppd.Description) {
	var typeFlags []string

	if drv.ColorDevice {
		typeFlags = append(typeFlags, "color")
		attrs["color-supported"] = []string{"true"}
		attrs["print-color-mode-supported"] = []string{"monochrome", "color"}
	} else {
		attrs["color-supported"] = []string{"false"}
		attrs["print-color-mode-supported"] = []string{"monochrome"}
	}

	duplexDefault, hasDuplex := findOption(drv, duplexOptionKeywords)
	var sidesDefault string
	switch {
	case hasDuplex && strings.Contains(strings.ToLower(duplexDefault), "tumble"):
		sidesDefault = "two-sided-short-edge"
		typeFlags = append(typeFlags, "duplex")
	case hasDuplex:
		sidesDefault = "two-sided-long-edge"
		typeFlags = append(typeFlags, "duplex")
	default:
		sidesDefault = "one-sided"
	}
	attrs["sides-default"] = []string{sidesDefault}
	if hasDuplex {
		attrs["sides-supported"] = []string{"one-sided", "two-sided-long-edge", "two-sided-short-edge"}
	} else {
		attrs["sides-supported"] = []string{"one-sided"}
	}

	resolutions := harvestResolutions(drv)
	attrs["printer-resolution-supported"] = resolutions

	attrs["media-supported"] = drv.MediaNames()
	attrs["media-size-supported"] = drv.MediaSizeStrings()
	attrs["media-top-margin-supported"] = drv.UniqueMargins(ppd.MarginTop)
	attrs["media-bottom-margin-supported"] = drv.UniqueMargins(ppd.MarginBottom)
	attrs["media-left-margin-supported"] = drv.UniqueMargins(ppd.MarginLeft)
	attrs["media-right-margin-supported"] = drv.UniqueMargins(ppd.MarginRight)

	finishings, finishFlags := drv.Finishings()
	attrs["finishings-supported"] = finishings
	typeFlags = append(typeFlags, finishFlags...)

	attrs["printer-type-flags"] = typeFlags
	attrs["printer-make-and-model"] = []string{drv.MakeAndModel}

	urf := []string{"V1.4", "CP1", "W8"}
	urf = append(urf, qualityChain(drv)...)
	for _, r := range resolutions {
		urf = append(urf, "RS"+strings.SplitN(r, "x", 2)[0])
	}
	if hasDuplex {
		urf = append(urf, "DM1")
	}
	attrs["urf-supported"] = urf

	formats, preferred := discovery.FormatAttrsFromTypes(drv.SupportedSourceTypes)
	attrs["document-format-supported"] = formats
	attrs["document-format-preferred"] = preferred
}

func findOption(drv *ppd.Description, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if opt, ok := drv.Options[kw]; ok {
			return opt.Default, true
		}
	}
	return "", false
}

// harvestResolutions parses each numeric NxM choice of the resolution
// option into a printer-resolution-supported entry, falling back to 300
// dpi for malformed choices (spec §4.2).
func harvestResolutions(drv *ppd.Description) []string {
	for _, kw := range resolutionOptionKeywords {
		opt, ok := drv.Options[kw]
		if !ok {
			continue
		}
		var out []string
		for _, choice := range opt.Choices {
			if _, _, ok := parseResolution(choice); ok {
				out = append(out, choice)
			} else {
				out = append(out, "300x300")
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{"300x300"}
}

func parseResolution(s string) (int, int, bool) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	x, err1 := strconv.Atoi(parts[0])
	y, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || x <= 0 || y <= 0 {
		return 0, 0, false
	}
	return x, y, true
}

// qualityChain builds the print-quality segment of urf-supported as a
// single "PQ<n>" token, where n is the number of print-quality levels the
// driver declares (1 when it declares none). It does not emit the
// hyphenated PQN-M-H form listing each level.
func qualityChain(drv *ppd.Description) []string {
	n := len(drv.QualityLevels)
	if n == 0 {
		n = 1
	}
	return []string{fmt.Sprintf("PQ%d", n)}
}
