package printerreg

import (
	"testing"

	"printsched/pkg/mimetype"
	"printsched/pkg/policy"
)

func TestSetJobSheetsRecoversUnknownToNone(t *testing.T) {
	p := NewPrinter("foo")
	err := p.SetJobSheets("bogus", "standard")
	if err == nil {
		t.Fatalf("expected a ConfigSemantic error for an unrecognized job-sheets value")
	}
	if p.JobSheetsStart != "none" {
		t.Fatalf("expected recovery to none, got %q", p.JobSheetsStart)
	}
	if p.JobSheetsEnd != "standard" {
		t.Fatalf("expected the valid end value to survive, got %q", p.JobSheetsEnd)
	}
}

func TestApplyDefaultOptionsDoesNotOverwriteExplicit(t *testing.T) {
	p := NewPrinter("foo")
	p.Options["sides"] = "two-sided-long-edge"
	p.Options["media"] = "a4"

	job := map[string]string{"sides": "one-sided"}
	p.ApplyDefaultOptions(job, []string{"sides", "media"})

	if job["sides"] != "one-sided" {
		t.Fatalf("expected explicit job option to survive, got %q", job["sides"])
	}
	if job["media"] != "a4" {
		t.Fatalf("expected default to be seeded for missing option, got %q", job["media"])
	}
}

func TestApplyErrorPolicyStopPrinterTransitionsState(t *testing.T) {
	r := NewRegistry(mimetype.NewDatabase(), policy.NewPolicySet(), nil, "host")
	p, _ := r.AddPrinter("foo")
	p.ErrorPolicy = ErrorPolicyStopPrinter
	p.SetReasons("-paused")

	outcome := r.ApplyErrorPolicy(p)
	if outcome != JobPrinterStopped {
		t.Fatalf("expected JobPrinterStopped outcome, got %v", outcome)
	}
	if p.State != StateStopped {
		t.Fatalf("expected printer to transition to Stopped")
	}
	if !p.HasReason("cups-missing-filter-warning") {
		t.Fatalf("expected missing-filter warning reason to be set")
	}
}

func TestApplyErrorPolicyAbortJob(t *testing.T) {
	r := NewRegistry(mimetype.NewDatabase(), policy.NewPolicySet(), nil, "host")
	p, _ := r.AddPrinter("foo")
	p.ErrorPolicy = ErrorPolicyAbortJob

	if got := r.ApplyErrorPolicy(p); got != JobAbort {
		t.Fatalf("expected JobAbort, got %v", got)
	}
}
