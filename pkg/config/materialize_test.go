package config

import (
	"testing"

	"printsched/pkg/policy"
)

func newTestMaterializer() (*Materializer, *policy.LocationSet, *policy.PolicySet) {
	locs := policy.NewLocationSet()
	policies := policy.NewPolicySet()
	return NewMaterializer(locs, policies), locs, policies
}

// TestScenarioS5ViaDirectiveStream re-derives spec scenario S5 by feeding
// the materializer the equivalent directive stream, then checking the
// resulting Location matches what authorize_test.go exercises directly.
func TestScenarioS5ViaDirectiveStream(t *testing.T) {
	m, locs, _ := newTestMaterializer()

	directives := []Directive{
		{Kind: KindLocationOpen, Args: []string{"/printers/foo"}},
		{Kind: KindOrder, Args: []string{"Allow", "Deny"}},
		{Kind: KindAllow, Args: []string{"From", "10.0.0.0/8"}},
		{Kind: KindAuthType, Args: []string{"Basic"}},
		{Kind: KindRequire, Args: []string{"user", "@OWNER", "@SYSTEM"}},
		{Kind: KindLocationClose},
	}

	if errs := m.Apply(directives); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	loc, ok := locs.Get("/printers/foo")
	if !ok {
		t.Fatal("expected /printers/foo location to exist")
	}
	if loc.OrderType != policy.AllowDeny {
		t.Errorf("OrderType = %v, want AllowDeny", loc.OrderType)
	}
	if len(loc.Allow) != 1 {
		t.Fatalf("expected 1 allow mask, got %d", len(loc.Allow))
	}
	if loc.Type != policy.AuthBasic {
		t.Errorf("Type = %v, want AuthBasic", loc.Type)
	}
	if loc.Level != policy.LevelUser {
		t.Errorf("Level = %v, want LevelUser", loc.Level)
	}
	if len(loc.Names) != 2 || loc.Names[0] != "@OWNER" || loc.Names[1] != "@SYSTEM" {
		t.Errorf("Names = %v, want [@OWNER @SYSTEM]", loc.Names)
	}
}

func TestSetOrderDenyAllowMapping(t *testing.T) {
	m, locs, _ := newTestMaterializer()
	directives := []Directive{
		{Kind: KindLocationOpen, Args: []string{"/admin"}},
		{Kind: KindOrder, Args: []string{"Deny", "Allow"}},
		{Kind: KindLocationClose},
	}
	if errs := m.Apply(directives); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	loc, _ := locs.Get("/admin")
	if loc.OrderType != policy.DenyAllow {
		t.Errorf("OrderType = %v, want DenyAllow", loc.OrderType)
	}
}

func TestNestedLimitOpsWithinPolicy(t *testing.T) {
	m, _, policies := newTestMaterializer()
	directives := []Directive{
		{Kind: KindPolicyOpen, Args: []string{"myPolicy"}},
		{Kind: KindLimitOpsOpen, Args: []string{"Create-Job", "Send-Document"}},
		{Kind: KindRequire, Args: []string{"user"}},
		{Kind: KindLimitClose},
		{Kind: KindPolicyClose},
	}
	if errs := m.Apply(directives); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	p, ok := policies.Get("myPolicy")
	if !ok {
		t.Fatal("expected myPolicy to exist")
	}
	loc, ok := p.FindPolicyOp("Create-Job")
	if !ok {
		t.Fatal("expected Create-Job entry")
	}
	if loc.Level != policy.LevelUser {
		t.Errorf("Create-Job Level = %v, want LevelUser", loc.Level)
	}
	// ANY_OPERATION is untouched by the nested Limit.
	anyLoc, _ := p.FindPolicyOp("Some-Other-Op")
	if anyLoc.Level != policy.LevelAnonymous {
		t.Errorf("ANY_OPERATION Level = %v, want LevelAnonymous (untouched)", anyLoc.Level)
	}
}

func TestLimitMethodsClonesOuterLocation(t *testing.T) {
	m, locs, _ := newTestMaterializer()
	directives := []Directive{
		{Kind: KindLocationOpen, Args: []string{"/jobs"}},
		{Kind: KindAuthType, Args: []string{"Basic"}},
		{Kind: KindLimitMethodsOpen, Args: []string{"POST"}},
		{Kind: KindRequire, Args: []string{"user"}},
		{Kind: KindLimitClose},
		{Kind: KindLocationClose},
	}
	if errs := m.Apply(directives); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	loc, ok := locs.Get("/jobs")
	if !ok {
		t.Fatal("expected /jobs to exist")
	}
	// The outer location itself is unaffected by the nested Limit's Require.
	if loc.Level != policy.LevelAnonymous {
		t.Errorf("outer Level = %v, want LevelAnonymous", loc.Level)
	}
	if loc.Type != policy.AuthBasic {
		t.Errorf("outer Type = %v, want AuthBasic (carried from before the nested Limit)", loc.Type)
	}
}

func TestSetEnvAndPassEnvRejectForbiddenNames(t *testing.T) {
	m, _, _ := newTestMaterializer()
	directives := []Directive{
		{Kind: KindSetEnv, Args: []string{"LD_PRELOAD", "/evil.so"}},
		{Kind: KindSetEnv, Args: []string{"MY_VAR", "value"}},
		{Kind: KindPassEnv, Args: []string{"CUPS_SERVER", "HOME"}},
	}
	errs := m.Apply(directives)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors (LD_PRELOAD set, CUPS_SERVER pass), got %d: %v", len(errs), errs)
	}
	if v := m.Env.Vars()["MY_VAR"]; v != "value" {
		t.Errorf("MY_VAR = %q, want value", v)
	}
	if _, ok := m.Env.Vars()["LD_PRELOAD"]; ok {
		t.Error("LD_PRELOAD should not have been recorded")
	}
	passed := m.Env.PassedNames()
	found := false
	for _, n := range passed {
		if n == "HOME" {
			found = true
		}
		if n == "CUPS_SERVER" {
			t.Error("CUPS_SERVER should not have been recorded as passed")
		}
	}
	if !found {
		t.Error("expected HOME to be recorded as passed")
	}
}

func TestDefaultPolicySynthesizesWhenMissing(t *testing.T) {
	m, _, policies := newTestMaterializer()
	directives := []Directive{
		{Kind: KindDefaultPolicy, Args: []string{"custom"}},
	}
	if errs := m.Apply(directives); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if policies.Default != "custom" {
		t.Errorf("Default = %q, want custom", policies.Default)
	}
	if _, ok := policies.Get("custom"); !ok {
		t.Error("expected custom policy to be synthesized")
	}
}

func TestBrowseLocalProtocolsRestrictedWhenRemoteDisabled(t *testing.T) {
	m, _, _ := newTestMaterializer()
	m.RemoteAccessDisabled = true
	directives := []Directive{
		{Kind: KindBrowseLocalProtocols, Args: []string{"dnssd", "cups"}},
	}
	if errs := m.Apply(directives); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if m.BrowseLocalProtocols != 0x1 {
		t.Errorf("BrowseLocalProtocols = %#x, want 0x1 (restricted to local)", m.BrowseLocalProtocols)
	}
}

func TestMaskParseErrorIsLocalAndContinuesStream(t *testing.T) {
	m, locs, _ := newTestMaterializer()
	directives := []Directive{
		{Kind: KindLocationOpen, Args: []string{"/bad"}},
		{Kind: KindAllow, Args: []string{"From", "1.2.3.4/299"}},
		{Kind: KindAuthType, Args: []string{"Basic"}},
		{Kind: KindLocationClose},
	}
	errs := m.Apply(directives)
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 error from the bad mask, got %d: %v", len(errs), errs)
	}
	loc, ok := locs.Get("/bad")
	if !ok {
		t.Fatal("expected /bad location to still exist despite the mask error")
	}
	if loc.Type != policy.AuthBasic {
		t.Error("subsequent directives after the bad mask should still apply")
	}
}

func TestUnmatchedCloseIsConfigSyntaxError(t *testing.T) {
	m, _, _ := newTestMaterializer()
	errs := m.Apply([]Directive{{Kind: KindLocationClose}})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
}
