package config

import (
	"strings"

	"printsched/pkg/errkind"
	"printsched/pkg/policy"
)

// Materializer applies a directive stream to a LocationSet and PolicySet
// (spec §4.6). It is the orchestrator: configuration-file tokenization
// itself is out of scope (§1); this consumes the resulting Directive
// stream.
type Materializer struct {
	Locations *policy.LocationSet
	Policies  *policy.PolicySet

	BrowseLocalProtocols uint32
	RemoteAccessDisabled bool

	Env EnvBlock

	stack []scopeFrame
}

type scopeFrame struct {
	kind Kind
	loc  *policy.Location // the rule set subsequent directives mutate
	name string           // location path or policy name
}

// NewMaterializer returns a Materializer writing into locs/policies.
func NewMaterializer(locs *policy.LocationSet, policies *policy.PolicySet) *Materializer {
	return &Materializer{Locations: locs, Policies: policies, Env: NewEnvBlock()}
}

// Apply processes the directive stream in order, mutating Locations and
// Policies. Per-directive errors (ConfigSyntax/ConfigSemantic/MaskParse)
// are collected and returned together; the materializer keeps going so one
// bad directive doesn't abort the whole reload (spec §7 "All loaders
// recover locally").
func (m *Materializer) Apply(directives []Directive) []error {
	var errs []error
	for _, d := range directives {
		if err := m.apply(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (m *Materializer) apply(d Directive) error {
	switch d.Kind {
	case KindLocationOpen:
		return m.openLocation(d)
	case KindLocationClose:
		return m.closeScope(KindLocationOpen)
	case KindPolicyOpen:
		return m.openPolicy(d)
	case KindPolicyClose:
		return m.closeScope(KindPolicyOpen)
	case KindLimitMethodsOpen:
		return m.openLimitMethods(d)
	case KindLimitOpsOpen:
		return m.openLimitOps(d)
	case KindLimitClose:
		return m.closeLimit()

	case KindAllow:
		return m.appendMask(d, true)
	case KindDeny:
		return m.appendMask(d, false)
	case KindOrder:
		return m.setOrder(d)
	case KindAuthType:
		return m.setAuthType(d)
	case KindRequire:
		return m.setRequire(d)
	case KindSatisfy:
		return m.setSatisfy(d)
	case KindEncryption:
		return m.setEncryption(d)
	case KindBrowseLocalProtocols:
		return m.setBrowseLocalProtocols(d)
	case KindDefaultPolicy:
		return m.setDefaultPolicy(d)
	case KindSetEnv:
		return m.Env.SetEnv(argAt(d.Args, 0), argAt(d.Args, 1))
	case KindPassEnv:
		return m.Env.PassEnv(d.Args...)

	case KindUnknownTolerated:
		return nil
	default:
		return errkind.New(errkind.ConfigSyntax, "unrecognized directive (args=%v)", d.Args)
	}
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (m *Materializer) currentLoc() *policy.Location {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1].loc
}

func (m *Materializer) openLocation(d Directive) error {
	path := argAt(d.Args, 0)
	loc, ok := m.Locations.Get(path)
	if !ok {
		loc = Location_(path)
		m.Locations.Put(loc)
	}
	m.stack = append(m.stack, scopeFrame{kind: KindLocationOpen, loc: loc, name: path})
	return nil
}

// Location_ constructs a fresh Location with spec defaults: Limit = all
// methods, OrderType = AllowDeny, Satisfy = All.
func Location_(path string) *policy.Location {
	return &policy.Location{
		Path:      path,
		Limit:     policy.LimitAll,
		OrderType: policy.AllowDeny,
		Satisfy:   policy.SatisfyAll,
	}
}

func (m *Materializer) openPolicy(d Directive) error {
	name := argAt(d.Args, 0)
	p, ok := m.Policies.Get(name)
	if !ok {
		p = policy.NewPolicy(name)
		m.Policies.Put(p)
	}
	// Policy-scoped directives (Allow/Deny/Order/...) outside any nested
	// Limit apply to the implicit ANY_OPERATION entry.
	loc, _ := p.FindPolicyOp(policy.AnyOperation)
	m.stack = append(m.stack, scopeFrame{kind: KindPolicyOpen, loc: loc, name: name})
	return nil
}

func (m *Materializer) openLimitMethods(d Directive) error {
	outer := m.currentLoc()
	if outer == nil {
		return errkind.New(errkind.ConfigSyntax, "Limit outside a Location")
	}
	clone := *outer
	clone.Limit = parseMethodBitmask(d.Args)
	m.stack = append(m.stack, scopeFrame{kind: KindLimitMethodsOpen, loc: &clone})
	return nil
}

func (m *Materializer) openLimitOps(d Directive) error {
	if len(m.stack) == 0 || m.stack[len(m.stack)-1].kind != KindPolicyOpen {
		return errkind.New(errkind.ConfigSyntax, "Limit op outside a Policy")
	}
	policyName := m.stack[len(m.stack)-1].name
	p, _ := m.Policies.Get(policyName)

	loc := Location_("")
	for _, opID := range d.Args {
		p.Ops[opID] = loc
	}
	m.stack = append(m.stack, scopeFrame{kind: KindLimitOpsOpen, loc: loc})
	return nil
}

func (m *Materializer) closeLimit() error {
	if len(m.stack) == 0 {
		return errkind.New(errkind.ConfigSyntax, "unmatched /Limit")
	}
	top := m.stack[len(m.stack)-1]
	if top.kind != KindLimitMethodsOpen && top.kind != KindLimitOpsOpen {
		return errkind.New(errkind.ConfigSyntax, "unmatched /Limit")
	}
	m.stack = m.stack[:len(m.stack)-1]
	return nil
}

func (m *Materializer) closeScope(want Kind) error {
	if len(m.stack) == 0 || m.stack[len(m.stack)-1].kind != want {
		return errkind.New(errkind.ConfigSyntax, "unmatched close for %v", want)
	}
	m.stack = m.stack[:len(m.stack)-1]
	return nil
}

func parseMethodBitmask(methods []string) uint32 {
	var mask uint32
	for _, meth := range methods {
		switch strings.ToUpper(meth) {
		case "GET":
			mask |= 1 << 0
		case "PUT":
			mask |= 1 << 1
		case "POST":
			mask |= 1 << 2
		case "DELETE":
			mask |= 1 << 3
		default:
			mask |= 1 << 31
		}
	}
	if mask == 0 {
		return policy.LimitAll
	}
	return mask
}

func (m *Materializer) appendMask(d Directive, allow bool) error {
	loc := m.currentLoc()
	if loc == nil {
		return errkind.New(errkind.ConfigSyntax, "Allow/Deny outside a Location or Policy")
	}
	maskStr := argAt(d.Args, len(d.Args)-1)
	mask, err := policy.ParseMask(maskStr)
	if err != nil {
		// MaskParse rejects only the rule; the location keeps the rest
		// (spec §7).
		return err
	}
	if allow {
		loc.Allow = append(loc.Allow, mask)
	} else {
		loc.Deny = append(loc.Deny, mask)
	}
	return nil
}

// setOrder implements "Order Allow,Deny" / "Order Deny,Allow" (spec §4.6,
// the historically inverted keyword-to-behavior naming: the keyword names
// which list is consulted FIRST as the overriding one, per spec §4.3 step
// 3's "start from denied, allow on match" / "start from allowed, deny on
// match" descriptions).
func (m *Materializer) setOrder(d Directive) error {
	loc := m.currentLoc()
	if loc == nil {
		return errkind.New(errkind.ConfigSyntax, "Order outside a Location or Policy")
	}
	switch strings.ToLower(strings.Join(d.Args, ",")) {
	case "allow,deny":
		loc.OrderType = policy.AllowDeny
	case "deny,allow":
		loc.OrderType = policy.DenyAllow
	default:
		return errkind.New(errkind.ConfigSyntax, "unrecognized Order value %v", d.Args)
	}
	return nil
}

func (m *Materializer) setAuthType(d Directive) error {
	loc := m.currentLoc()
	if loc == nil {
		return errkind.New(errkind.ConfigSyntax, "AuthType outside a Location or Policy")
	}
	switch strings.ToLower(argAt(d.Args, 0)) {
	case "none", "":
		loc.Type = policy.AuthNone
	case "basic":
		loc.Type = policy.AuthBasic
	case "negotiate":
		loc.Type = policy.AuthNegotiate
	default:
		return errkind.New(errkind.ConfigSyntax, "unrecognized AuthType %q", argAt(d.Args, 0))
	}
	return nil
}

func (m *Materializer) setRequire(d Directive) error {
	loc := m.currentLoc()
	if loc == nil {
		return errkind.New(errkind.ConfigSyntax, "Require outside a Location or Policy")
	}
	if len(d.Args) == 0 {
		return errkind.New(errkind.ConfigSyntax, "Require with no arguments")
	}
	switch strings.ToLower(d.Args[0]) {
	case "user":
		loc.Level = policy.LevelUser
	case "group":
		loc.Level = policy.LevelGroup
	case "valid-user":
		loc.Level = policy.LevelUser
	default:
		return errkind.New(errkind.ConfigSemantic, "unrecognized Require level %q", d.Args[0])
	}
	loc.Names = append([]string{}, d.Args[1:]...)
	return nil
}

func (m *Materializer) setSatisfy(d Directive) error {
	loc := m.currentLoc()
	if loc == nil {
		return errkind.New(errkind.ConfigSyntax, "Satisfy outside a Location or Policy")
	}
	switch strings.ToLower(argAt(d.Args, 0)) {
	case "all":
		loc.Satisfy = policy.SatisfyAll
	case "any":
		loc.Satisfy = policy.SatisfyAny
	default:
		return errkind.New(errkind.ConfigSyntax, "unrecognized Satisfy value %q", argAt(d.Args, 0))
	}
	return nil
}

func (m *Materializer) setEncryption(d Directive) error {
	loc := m.currentLoc()
	if loc == nil {
		return errkind.New(errkind.ConfigSyntax, "Encryption outside a Location or Policy")
	}
	switch strings.ToLower(argAt(d.Args, 0)) {
	case "never":
		loc.Encryption = policy.EncryptionNever
	case "ifrequested":
		loc.Encryption = policy.EncryptionIfRequested
	case "required":
		loc.Encryption = policy.EncryptionRequired
	default:
		return errkind.New(errkind.ConfigSyntax, "unrecognized Encryption value %q", argAt(d.Args, 0))
	}
	return nil
}

func (m *Materializer) setBrowseLocalProtocols(d Directive) error {
	var mask uint32
	for i := range d.Args {
		mask |= 1 << uint(i)
	}
	if m.RemoteAccessDisabled {
		mask &= 0x1 // restricted to local when remote access is disabled
	}
	m.BrowseLocalProtocols = mask
	return nil
}

// setDefaultPolicy binds the default policy reference, creating it
// synthetically if missing (spec §4.6).
func (m *Materializer) setDefaultPolicy(d Directive) error {
	name := argAt(d.Args, 0)
	if _, ok := m.Policies.Get(name); !ok {
		m.Policies.Put(policy.NewPolicy(name))
	}
	m.Policies.Default = name
	return nil
}
