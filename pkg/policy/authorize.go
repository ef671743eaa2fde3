package policy

import (
	"net"
	"strings"
)

// Verdict is the unique outcome of an authorization check (spec §4.3
// "Failure semantics").
type Verdict int

const (
	OK Verdict = iota
	Forbidden
	Unauthorized
	UpgradeRequired
)

// Principal is the resolved identity of a request: either anonymous, or an
// authenticated user optionally carrying group memberships.
type Principal struct {
	Anonymous bool
	Name      string
	Groups    []string
}

// IsMember reports whether p belongs to group, case-insensitively.
func (p Principal) IsMember(group string) bool {
	for _, g := range p.Groups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// Request is the subset of an incoming request IsAuthorized needs: where it
// came from, who (if anyone) it authenticated as, and whether the
// transport is already encrypted.
type Request struct {
	Addr      net.IP
	Host      string
	Method    uint32
	Principal Principal
	Encrypted bool
}

// Authorize resolves the principal for req against loc's authentication
// type. A location requiring credentials that req doesn't carry yields
// Unauthorized. The credential scheme is not inspected: any non-anonymous
// principal is accepted whenever loc.Type is not AuthNone. Authorize itself never denies on address or Require rules — that is
// IsAuthorized's job.
func Authorize(loc *Location, req Request) (Principal, Verdict) {
	if loc.Type == AuthNone {
		return Principal{Anonymous: true}, OK
	}
	if req.Principal.Anonymous {
		return req.Principal, Unauthorized
	}
	return req.Principal, OK
}

// IsAuthorized evaluates the full chain from spec §4.3 steps 2-6 for a
// request already resolved to loc via FindBest, against the given job
// owner (used for @OWNER checks).
func IsAuthorized(loc *Location, req Request, owner string) Verdict {
	addrOK := matchesAllow(loc, req.Addr, req.Host)
	authOK, authVerdict := authContractSatisfied(loc, req, owner)

	var combined bool
	switch loc.Satisfy {
	case SatisfyAny:
		combined = addrOK || authOK
	default: // SatisfyAll
		combined = addrOK && authOK
	}

	if !combined {
		if authVerdict == Unauthorized {
			return Unauthorized
		}
		return Forbidden
	}

	if loc.Encryption == EncryptionRequired && !req.Encrypted {
		return UpgradeRequired
	}

	return OK
}

// matchesAllow combines the allow/deny mask lists per order_type (spec
// §4.3 steps 2-3).
func matchesAllow(loc *Location, addr net.IP, host string) bool {
	allowed := anyMatches(loc.Allow, addr, host)
	denied := anyMatches(loc.Deny, addr, host)

	if loc.OrderType == AllowDeny {
		// "start from denied, allow on match-unless-denied": default deny,
		// an Allow match permits unless a Deny also matches.
		return allowed && !denied
	}
	// DenyAllow: "start from allowed, deny on match-unless-allowed": default
	// allow, a Deny match forbids unless an Allow also matches.
	return !denied || allowed
}

func anyMatches(masks []Mask, addr net.IP, host string) bool {
	for _, m := range masks {
		if m.Matches(addr, host) {
			return true
		}
	}
	return false
}

// authContractSatisfied implements step 4: the authentication level
// contract, after @OWNER/@SYSTEM expansion.
func authContractSatisfied(loc *Location, req Request, owner string) (bool, Verdict) {
	switch loc.Level {
	case LevelAnonymous:
		return true, OK

	case LevelUser:
		if req.Principal.Anonymous {
			return false, Unauthorized
		}
		if len(loc.Names) == 0 {
			return true, OK
		}
		for _, name := range loc.Names {
			switch name {
			case "@OWNER":
				if strings.EqualFold(req.Principal.Name, owner) {
					return true, OK
				}
			case "@SYSTEM":
				if req.Principal.IsMember("SYSTEM") || req.Principal.IsMember("root") || req.Principal.IsMember("wheel") {
					return true, OK
				}
			default:
				if strings.EqualFold(req.Principal.Name, name) {
					return true, OK
				}
			}
		}
		return false, Forbidden

	case LevelGroup:
		if req.Principal.Anonymous {
			return false, Unauthorized
		}
		for _, name := range loc.Names {
			group := strings.TrimPrefix(name, "@")
			if req.Principal.IsMember(group) {
				return true, OK
			}
		}
		return false, Forbidden
	}

	return false, Forbidden
}

// PrivateAttrs returns the set of attribute keys the caller is permitted to
// see: the full attribute set minus policy.PrivateAttrs, unless the caller
// is authorized for the printer (owner or a member of an allowed group via
// the policy's private-access list), in which case nothing is redacted.
func PrivateAttrs(p *Policy, req Request, owner string, allAttrs []string) []string {
	if callerMayReadPrivate(p, req, owner) {
		return allAttrs
	}

	private := make(map[string]struct{}, len(p.PrivateAttrs))
	for _, a := range p.PrivateAttrs {
		private[a] = struct{}{}
	}

	visible := make([]string, 0, len(allAttrs))
	for _, a := range allAttrs {
		if _, hidden := private[a]; !hidden {
			visible = append(visible, a)
		}
	}
	return visible
}

func callerMayReadPrivate(p *Policy, req Request, owner string) bool {
	if req.Principal.Anonymous {
		return false
	}
	if strings.EqualFold(req.Principal.Name, owner) {
		return true
	}
	for _, name := range p.PrivateAccess {
		switch name {
		case "@OWNER":
			// already checked above
		case "@SYSTEM":
			if req.Principal.IsMember("SYSTEM") || req.Principal.IsMember("root") {
				return true
			}
		default:
			if strings.EqualFold(req.Principal.Name, name) || req.Principal.IsMember(name) {
				return true
			}
		}
	}
	return false
}
