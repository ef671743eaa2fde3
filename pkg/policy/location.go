package policy

import "strings"

// OrderType selects which side of an Allow/Deny pair is consulted first
// (spec §4.3 step 3). The wire keyword naming is the historically inverted
// one: "Order Deny,Allow" means AllowDeny internally and vice versa — see
// setOrder in pkg/config/materialize.go.
type OrderType int

const (
	// AllowDeny starts from denied, then allows on a matching Allow rule
	// unless a Deny rule also matches.
	AllowDeny OrderType = iota
	// DenyAllow starts from allowed, then denies on a matching Deny rule
	// unless an Allow rule also matches.
	DenyAllow
)

// AuthLevel is the authentication contract's required level.
type AuthLevel int

const (
	LevelAnonymous AuthLevel = iota
	LevelUser
	LevelGroup
)

// Encryption is the location's encryption requirement.
type Encryption int

const (
	EncryptionNever Encryption = iota
	EncryptionIfRequested
	EncryptionRequired
)

// Satisfy selects how the address check and the auth check combine.
type Satisfy int

const (
	SatisfyAll Satisfy = iota
	SatisfyAny
)

// AuthType names the credential scheme a location accepts.
type AuthType int

const (
	AuthNone AuthType = iota
	AuthBasic
	AuthNegotiate
)

// Location is a per-path access rule set (spec §3 "Location").
type Location struct {
	Path      string
	Limit     uint32 // bitmask of request methods this rule applies to
	OrderType OrderType
	Allow     []Mask
	Deny      []Mask

	Type       AuthType
	Level      AuthLevel
	Satisfy    Satisfy
	Names      []string // Require-style user/group names, including @OWNER/@SYSTEM
	Encryption Encryption
}

// LimitAll is the bitmask value meaning "every request method".
const LimitAll uint32 = ^uint32(0)

// MatchesLimit reports whether method is included in the location's limit
// bitmask. A limit of 0 matches nothing: the location is dormant
// (invariant 11).
func (l *Location) MatchesLimit(method uint32) bool {
	return l.Limit != 0 && l.Limit&method != 0
}

// LocationSet is an ordered collection of Locations, as stored by the
// configuration materializer.
type LocationSet struct {
	byPath map[string]*Location
	order  []string // insertion order of paths, for deterministic iteration
}

// NewLocationSet returns an empty set.
func NewLocationSet() *LocationSet {
	return &LocationSet{byPath: make(map[string]*Location)}
}

// Put inserts or replaces the location at loc.Path.
func (s *LocationSet) Put(loc *Location) {
	if _, exists := s.byPath[loc.Path]; !exists {
		s.order = append(s.order, loc.Path)
	}
	s.byPath[loc.Path] = loc
}

// Get returns the location registered exactly at path, if any.
func (s *LocationSet) Get(path string) (*Location, bool) {
	l, ok := s.byPath[path]
	return l, ok
}

// FindBest returns the location with the longest matching prefix of path
// whose limit bitmask contains method; ties are broken by insertion order
// (spec invariant 12).
func (s *LocationSet) FindBest(path string, method uint32) (*Location, bool) {
	var best *Location
	bestLen := -1

	for _, p := range s.order {
		loc := s.byPath[p]
		if !strings.HasPrefix(path, p) {
			continue
		}
		if !loc.MatchesLimit(method) {
			continue
		}
		if len(p) > bestLen {
			best = loc
			bestLen = len(p)
		}
	}

	return best, best != nil
}
