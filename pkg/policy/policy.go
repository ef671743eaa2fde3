package policy

// AnyOperation is the implicit fallback operation id matching operations
// not otherwise listed in a policy (spec §3).
const AnyOperation = "ANY_OPERATION"

// Policy is a named collection of per-operation authorization rules, plus
// the private-data and private-attribute lists consulted by PrivateAttrs.
type Policy struct {
	Name string

	// Ops holds one Location-shaped rule set per operation id. ANY_OPERATION
	// is consulted when an op id has no specific entry.
	Ops map[string]*Location

	PrivateAccess []string // who may read private job/subscription data
	PrivateAttrs  []string // which attribute names are private
}

// NewPolicy returns an empty policy named name, with an implicit
// ANY_OPERATION entry that requires no authentication (LevelAnonymous).
// That entry's order is AllowDeny with no Allow masks, so IsAuthorized
// denies every address until Allow rules are added to it.
func NewPolicy(name string) *Policy {
	return &Policy{
		Name: name,
		Ops: map[string]*Location{
			AnyOperation: {Limit: LimitAll, OrderType: AllowDeny, Level: LevelAnonymous, Satisfy: SatisfyAll},
		},
	}
}

// FindPolicyOp returns the rule set for opID, falling back to the implicit
// ANY_OPERATION entry if opID has no specific entry (spec §3).
func (p *Policy) FindPolicyOp(opID string) (*Location, bool) {
	if loc, ok := p.Ops[opID]; ok {
		return loc, true
	}
	loc, ok := p.Ops[AnyOperation]
	return loc, ok
}

// PolicySet is an ordered collection of named policies plus the bound
// default-policy reference (spec §4.6 "DefaultPolicy").
type PolicySet struct {
	byName  map[string]*Policy
	order   []string
	Default string
}

// NewPolicySet returns an empty set with a synthesized "default" policy
// bound as the default, matching the materializer's "created synthetically
// if missing" rule for DefaultPolicy.
func NewPolicySet() *PolicySet {
	s := &PolicySet{byName: make(map[string]*Policy)}
	s.Put(NewPolicy("default"))
	s.Default = "default"
	return s
}

// Put inserts or replaces the named policy.
func (s *PolicySet) Put(p *Policy) {
	if _, exists := s.byName[p.Name]; !exists {
		s.order = append(s.order, p.Name)
	}
	s.byName[p.Name] = p
}

// Get returns the named policy.
func (s *PolicySet) Get(name string) (*Policy, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// DefaultPolicy returns the bound default policy, synthesizing one named
// "default" if the binding is dangling.
func (s *PolicySet) DefaultPolicy() *Policy {
	if p, ok := s.byName[s.Default]; ok {
		return p
	}
	p := NewPolicy("default")
	s.Put(p)
	s.Default = p.Name
	return p
}
