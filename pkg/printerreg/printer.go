// Package printerreg is the canonical collection of printers and classes,
// their configured attributes, filter bindings derived from driver
// description files, and the attribute builder that derives advertised
// capabilities from those files (spec §4.2).
package printerreg

import (
	"strings"
	"time"

	"github.com/google/uuid"
	deadlock "github.com/sasha-s/go-deadlock"

	"printsched/pkg/mimetype"
)

// State is a printer's lifecycle state.
type State int

const (
	StateIdle State = iota + 3
	StateProcessing
	StateStopped
)

// ErrorPolicy names the recovery behavior after a job fails on this
// printer (spec §6 printers-file ErrorPolicy keys).
type ErrorPolicy string

const (
	ErrorPolicyRetryCurrentJob ErrorPolicy = "retry-current-job"
	ErrorPolicyAbortJob        ErrorPolicy = "abort-job"
	ErrorPolicyRetryJob        ErrorPolicy = "retry-job"
	ErrorPolicyStopPrinter     ErrorPolicy = "stop-printer"
)

// maxReasons bounds the printer-state-reasons array (spec §3, RegistryInvariant).
const maxReasons = 64

// Printer is a single destination: its identity, persisted configuration,
// live state, derived pseudo-types, and advertised attribute set.
//
// Each Printer carries its own reader/writer exclusion, taken whenever a
// driver description is loaded lazily in response to a query (spec §5).
type Printer struct {
	mu deadlock.RWMutex

	Name string
	UUID string

	PrinterID  int
	Info       string
	MakeModel  string
	Location   string
	GeoLocation string
	Organization string
	OrganizationalUnit string
	DeviceURI  string

	State       State
	StateMessage string
	StateTime   time.Time
	ConfigTime  time.Time
	reasons     map[string]struct{}

	Accepting bool
	Shared    bool

	PolicyName  string
	ErrorPolicy ErrorPolicy
	JobSheetsStart string
	JobSheetsEnd   string

	AllowUser []string
	DenyUser  []string

	Options    map[string]string
	Attributes map[string][]string

	// DestType and PrefilterType are this printer's pseudo-types in the
	// MIME graph (spec §3 "Printer"); classes have neither.
	DestType      mimetype.Type
	PrefilterType mimetype.Type
	HasPrefilter  bool

	IsClass bool
	Members []string // for classes: member printer/class names, in order

	Model string // driver model string, used as the discovery cache key

	// DriverPath locates this printer's driver description cache file
	// (spec §6 "Driver description cache file"), empty for raw/remote
	// printers that carry no driver.
	DriverPath string
}

// NewPrinter allocates a printer named name with the defaults from spec
// §4.2 AddPrinter: state Stopped, device URI the null device, policy
// unset (the registry binds the default policy).
func NewPrinter(name string) *Printer {
	now := time.Now()
	return &Printer{
		Name:       name,
		UUID:       "urn:uuid:" + uuid.NewString(),
		State:      StateStopped,
		StateTime:  now,
		ConfigTime: now,
		Accepting:  true,
		DeviceURI:  "file:///dev/null",
		ErrorPolicy: ErrorPolicyStopPrinter,
		reasons:    map[string]struct{}{"paused": {}},
		Options:    make(map[string]string),
		Attributes: make(map[string][]string),
		DestType:      mimetype.PrinterType(name),
		PrefilterType: mimetype.PrefilterType(name),
	}
}

// Reasons returns a snapshot of the current printer-state-reasons set.
func (p *Printer) Reasons() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.reasons))
	for r := range p.reasons {
		out = append(out, r)
	}
	return out
}

// HasReason reports whether reason is currently set.
func (p *Printer) HasReason(reason string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.reasons[reason]
	return ok
}

// SetReasons implements spec §4.2's SetPrinterReasons: a string beginning
// with "+" adds reasons, "-" removes them, neither replaces the whole set.
// Returns whether anything changed, whether the change should dirty the
// persisted printers file (adding/removing only "connecting-to-device" does
// not count as dirtying), and whether any reason was dropped for hitting
// the 64-slot cap. A truncated add leaves the rest of the set unchanged
// rather than silently losing state (spec §9 Open Question: the reasons-
// slot-allocation failure is surfaced as an explicit signal, not swallowed).
func (p *Printer) SetReasons(spec string) (changed bool, dirty bool, truncated bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tokens := strings.Fields(strings.TrimLeft(spec, "+-"))

	switch {
	case strings.HasPrefix(spec, "+"):
		for _, tok := range tokens {
			if _, exists := p.reasons[tok]; exists {
				continue
			}
			if len(p.reasons) >= maxReasons {
				truncated = true
				continue
			}
			p.reasons[tok] = struct{}{}
			changed = true
			if tok != "connecting-to-device" {
				dirty = true
			}
		}

	case strings.HasPrefix(spec, "-"):
		for _, tok := range tokens {
			if _, exists := p.reasons[tok]; !exists {
				continue
			}
			delete(p.reasons, tok)
			changed = true
			if tok != "connecting-to-device" {
				dirty = true
			}
		}

	default:
		next := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if len(next) >= maxReasons {
				truncated = true
				break
			}
			next[tok] = struct{}{}
		}
		changed = !sameReasonSet(p.reasons, next)
		p.reasons = next
		dirty = changed
	}

	if changed {
		p.applyPausedReasonLocked()
	}

	return changed, dirty, truncated
}

func sameReasonSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// applyPausedReasonLocked implements "adding the reserved reason 'paused'
// forces state to Stopped; removing it while stopped restores state to
// Idle" (spec §4.2). Caller holds the write lock.
func (p *Printer) applyPausedReasonLocked() {
	_, paused := p.reasons["paused"]
	if paused {
		p.State = StateStopped
	} else if p.State == StateStopped {
		p.State = StateIdle
	}
}
