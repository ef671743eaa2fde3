package discovery

// FormatAttrsFromTypes builds the document-format-supported and
// document-format-preferred attribute values from a list of raw MIME type
// strings: document-format-preferred favors image/urf, escalating to
// application/pdf if present, and application/octet-stream is always
// included as the universal fallback (spec §4.5 AddPrinterFormats).
func FormatAttrsFromTypes(types []string) (supported []string, preferred []string) {
	seen := make(map[string]struct{}, len(types)+1)
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		supported = append(supported, t)
	}

	if _, ok := seen["application/octet-stream"]; !ok {
		supported = append(supported, "application/octet-stream")
		seen["application/octet-stream"] = struct{}{}
	}

	switch {
	case has(supported, "image/urf"):
		preferred = []string{"image/urf"}
	case has(supported, "application/pdf"):
		preferred = []string{"application/pdf"}
	default:
		preferred = []string{"application/octet-stream"}
	}

	return supported, preferred
}

func has(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}

// AddPrinterFormats populates attrs in place with the document-format
// attributes derived from the given candidate type list (spec §4.5).
func AddPrinterFormats(attrs map[string][]string, candidateTypes []string) {
	supported, preferred := FormatAttrsFromTypes(candidateTypes)
	attrs["document-format-supported"] = supported
	attrs["document-format-preferred"] = preferred
}
