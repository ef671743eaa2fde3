package printerreg

import "printsched/pkg/errkind"

// validJobSheets is the recognized banner/job-sheets vocabulary; "none" is
// always valid and is the safe default a bad value recovers to.
var validJobSheets = map[string]struct{}{
	"none":          {},
	"standard":      {},
	"classified":    {},
	"confidential":  {},
	"secret":        {},
	"topsecret":     {},
	"unclassified":  {},
}

// SetJobSheets validates and applies the banner/job-sheets pair from the
// printers file's "JobSheets <start> <end>" directive. An unrecognized
// name recovers to "none" with a ConfigSemantic error rather than
// rejecting the whole directive, matching the recovery behavior spec §7
// describes for ConfigSemantic.
func (p *Printer) SetJobSheets(start, end string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if _, ok := validJobSheets[start]; !ok {
		err = errkind.New(errkind.ConfigSemantic, "unrecognized job-sheets start %q, using none", start)
		start = "none"
	}
	if _, ok := validJobSheets[end]; !ok {
		if err == nil {
			err = errkind.New(errkind.ConfigSemantic, "unrecognized job-sheets end %q, using none", end)
		}
		end = "none"
	}

	p.JobSheetsStart = start
	p.JobSheetsEnd = end
	return err
}

// DefaultOption returns the option's configured default value, falling
// back to "" if the printer never set it. This is the printer-level
// counterpart of the lpoptions default-seeding the original command-line
// tooling performs before a job is submitted.
func (p *Printer) DefaultOption(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.Options[name]
	return v, ok
}

// ApplyDefaultOptions seeds any option in names that the printer has a
// configured default for but that the supplied job options map is missing,
// without overwriting options the caller already set explicitly.
func (p *Printer) ApplyDefaultOptions(jobOptions map[string]string, names []string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, name := range names {
		if _, already := jobOptions[name]; already {
			continue
		}
		if v, ok := p.Options[name]; ok {
			jobOptions[name] = v
		}
	}
}

// JobOutcome is what happened to a job that failed on this printer.
type JobOutcome int

const (
	JobRetryCurrent JobOutcome = iota
	JobAbort
	JobRetryAsNew
	JobPrinterStopped
)

// ApplyErrorPolicy translates the printer's configured ErrorPolicy into the
// action the job subsystem collaborator should take after a job fails,
// and — for StopPrinter — transitions the printer itself to Stopped with
// the reason spec §3 names for a missing/broken filter chain.
func (r *Registry) ApplyErrorPolicy(p *Printer) JobOutcome {
	p.mu.RLock()
	ep := p.ErrorPolicy
	p.mu.RUnlock()

	switch ep {
	case ErrorPolicyAbortJob:
		return JobAbort
	case ErrorPolicyRetryJob:
		return JobRetryAsNew
	case ErrorPolicyStopPrinter:
		p.SetReasons("+cups-missing-filter-warning")
		r.SetPrinterState(p, StateStopped, true)
		return JobPrinterStopped
	default: // ErrorPolicyRetryCurrentJob
		return JobRetryCurrent
	}
}
