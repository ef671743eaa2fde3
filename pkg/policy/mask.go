// Package policy implements the location- and policy-based authorization
// engine (spec §4.3): address/name masks, longest-prefix location lookup,
// and the Allow/Deny/Require/Satisfy evaluation chain.
package policy

import (
	"net"
	"strings"

	"printsched/pkg/errkind"
)

// Mask is a tagged union: either an IP network or a hostname/domain
// pattern. Exactly one of the two forms is populated.
type Mask struct {
	raw string

	isIP    bool
	ipNet   *net.IPNet // always stored in the 16-byte (IPv6-mapped) form
	pattern string      // lowercase; suffix match if it began with "." or "*"
	suffix  bool
}

// ParseMask parses one of the wire forms from spec §6 ("Authorization
// masks on the wire"):
//
//	1.2.3.4            implicit /32
//	1.2.3.              partial /24-style prefix
//	1.2.3.4/24
//	1.2.3.4/255.255.255.0
//	[ipv6/prefix]
//	hostname or .suffix or *suffix
//
// A malformed mask returns a MaskParse error; the caller drops the rule and
// keeps the rest (spec §7).
func ParseMask(s string) (Mask, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Mask{}, errkind.New(errkind.MaskParse, "empty mask")
	}

	if strings.HasPrefix(s, "[") {
		return parseIPMask(strings.Trim(s, "[]"))
	}

	if looksLikeIPPattern(s) {
		return parseIPMask(s)
	}

	return Mask{raw: s, pattern: strings.ToLower(s), suffix: strings.HasPrefix(s, ".") || strings.HasPrefix(s, "*")}, nil
}

// looksLikeIPPattern distinguishes "1.2.3." (a dotted-decimal prefix, which
// net.ParseCIDR rejects) and bracket-less IPv6 from hostnames, without
// committing to IP parsing for things that are plainly names.
func looksLikeIPPattern(s string) bool {
	head := s
	if i := strings.IndexAny(s, "/"); i >= 0 {
		head = s[:i]
	}
	if strings.Count(head, ":") > 0 {
		return true
	}
	for _, r := range head {
		if r != '.' && (r < '0' || r > '9') {
			return false
		}
	}
	return strings.Count(head, ".") > 0
}

func parseIPMask(s string) (Mask, error) {
	if ip, ipNet, err := net.ParseCIDR(s); err == nil {
		return Mask{raw: s, isIP: true, ipNet: &net.IPNet{IP: to16(ip), Mask: to16Mask(ipNet.Mask)}}, nil
	}

	if strings.Contains(s, "/") {
		parts := strings.SplitN(s, "/", 2)
		ip := net.ParseIP(parts[0])
		if ip == nil {
			return Mask{}, errkind.New(errkind.MaskParse, "invalid IP %q", parts[0])
		}
		maskIP := net.ParseIP(parts[1])
		if maskIP == nil {
			return Mask{}, errkind.New(errkind.MaskParse, "invalid netmask %q", parts[1])
		}
		m := maskIP.To4()
		if m == nil {
			m = maskIP.To16()
		}
		return Mask{raw: s, isIP: true, ipNet: &net.IPNet{IP: to16(ip), Mask: to16Mask(net.IPMask(m))}}, nil
	}

	// A dotted-decimal partial prefix like "10.1." stands for the CIDR
	// implied by how many octets were supplied: one octet = /8, two = /16,
	// three = /24.
	if strings.HasSuffix(s, ".") && strings.Count(s, ".") <= 3 {
		octets := strings.Split(strings.TrimSuffix(s, "."), ".")
		padded := append(append([]string{}, octets...), "0", "0", "0", "0")[:4]
		ip := net.ParseIP(strings.Join(padded, "."))
		if ip == nil {
			return Mask{}, errkind.New(errkind.MaskParse, "invalid partial prefix %q", s)
		}
		bits := len(octets) * 8
		return Mask{raw: s, isIP: true, ipNet: &net.IPNet{IP: to16(ip), Mask: to16Mask(net.CIDRMask(bits, 32))}}, nil
	}

	ip := net.ParseIP(s)
	if ip == nil {
		return Mask{}, errkind.New(errkind.MaskParse, "invalid mask %q", s)
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	return Mask{raw: s, isIP: true, ipNet: &net.IPNet{IP: to16(ip), Mask: to16Mask(net.CIDRMask(bits, bitsFor(ip)))}}, nil
}

func bitsFor(ip net.IP) int {
	if ip.To4() != nil {
		return 32
	}
	return 128
}

// to16 normalizes an address into the 4x32-bit (16-byte) IPv6 layout, with
// IPv4 addresses mapped into the last word, matching how CUPS compares
// masks regardless of the address family on the wire (spec §4.3).
func to16(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4.To16()
	}
	return ip.To16()
}

// to16Mask widens a 4-byte IPv4 mask into the equivalent 16-byte mask with
// the top 96 bits set, so it compares correctly against a to16-normalized
// address.
func to16Mask(m net.IPMask) net.IPMask {
	if len(m) == net.IPv6len {
		return m
	}
	out := make(net.IPMask, net.IPv6len)
	for i := 0; i < 12; i++ {
		out[i] = 0xff
	}
	copy(out[12:], m)
	return out
}

// MatchesAddr reports whether addr satisfies an IP mask.
func (m Mask) MatchesAddr(addr net.IP) bool {
	if !m.isIP {
		return false
	}
	return m.ipNet.Contains(to16(addr))
}

// MatchesName reports whether host satisfies a name mask: suffix masks
// (leading "." or "*") match as a case-insensitive suffix, others require
// an exact case-insensitive match.
func (m Mask) MatchesName(host string) bool {
	if m.isIP {
		return false
	}
	host = strings.ToLower(host)
	pattern := strings.TrimPrefix(strings.TrimPrefix(m.pattern, "*"), ".")
	if m.suffix {
		return host == pattern || strings.HasSuffix(host, "."+pattern)
	}
	return host == pattern
}

// Matches reports whether either the address or the hostname satisfies m,
// whichever form m carries.
func (m Mask) Matches(addr net.IP, host string) bool {
	if m.isIP {
		return m.MatchesAddr(addr)
	}
	return m.MatchesName(host)
}
