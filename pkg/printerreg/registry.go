package printerreg

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"

	"printsched/pkg/errkind"
	"printsched/pkg/mimetype"
	"printsched/pkg/policy"
)

// StateChangeEvent is the contract the registry requires of the external
// event collaborator (spec §4.2 SetPrinterState: "emits a state-change
// event via external event collaborator").
type StateChangeEvent struct {
	Printer  string
	Old, New State
}

// EventSink receives state-change notifications. The registry never blocks
// on it; a slow or absent sink only means the event is dropped.
type EventSink interface {
	PrinterStateChanged(StateChangeEvent)
}

type noopEventSink struct{}

func (noopEventSink) PrinterStateChanged(StateChangeEvent) {}

// Registry is the canonical collection of printers and classes (spec
// §3/§4.2). It owns the local name index; the MIME graph that backs each
// printer's pseudo-types is injected so registry and graph mutations can be
// sequenced by the caller (e.g. under one reload transaction).
type Registry struct {
	mu deadlock.RWMutex

	byName map[string]*Printer // lowercase name -> printer/class
	order  []string            // lowercase names, insertion order

	graph    *mimetype.Database
	policies *policy.PolicySet
	events   EventSink

	serverName string // used to localize destination URIs
}

// NewRegistry returns an empty registry bound to graph and policies.
// events may be nil, in which case state-change notifications are dropped.
func NewRegistry(graph *mimetype.Database, policies *policy.PolicySet, events EventSink, serverName string) *Registry {
	if events == nil {
		events = noopEventSink{}
	}
	return &Registry{
		byName:     make(map[string]*Printer),
		graph:      graph,
		policies:   policies,
		events:     events,
		serverName: serverName,
	}
}

// AddPrinter allocates a printer, inserts its pseudo-type into the MIME
// graph, initializes state = Stopped, policy = default, device URI = null
// device, and attaches it to the ordered set under case-insensitive name
// collation (spec §4.2).
func (r *Registry) AddPrinter(name string) (*Printer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(name)
	if _, exists := r.byName[key]; exists {
		return nil, errkind.New(errkind.RegistryInvariant, "duplicate printer id %q", name)
	}

	p := NewPrinter(name)
	p.PolicyName = r.policies.DefaultPolicy().Name

	r.graph.AddType(p.DestType)

	r.byName[key] = p
	r.order = append(r.order, key)
	return p, nil
}

// DeletePrinter transitions state to Stopped, removes any class
// memberships, tears down pseudo-types and associated filters, and
// deregisters the name. All sub-steps are best-effort: a failure in one
// does not abort the rest (spec §7 "State-change operations are
// best-effort").
func (r *Registry) DeletePrinter(p *Printer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.mu.Lock()
	p.State = StateStopped
	p.mu.Unlock()

	key := strings.ToLower(p.Name)

	for _, name := range r.order {
		other := r.byName[name]
		if other == nil || !other.IsClass {
			continue
		}
		other.Members = removeString(other.Members, p.Name)
	}

	dsts := []mimetype.Type{p.DestType}
	if p.HasPrefilter {
		dsts = append(dsts, p.PrefilterType)
	}
	r.graph.DeleteFiltersTo(dsts...)
	r.graph.DeleteType(p.DestType)
	if p.HasPrefilter {
		r.graph.DeleteType(p.PrefilterType)
	}

	delete(r.byName, key)
	r.order = removeString(r.order, key)
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// RenamePrinter is equivalent to a delete/create of the pseudo-types,
// preserving all other state (spec §4.2).
func (r *Registry) RenamePrinter(p *Printer, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldKey := strings.ToLower(p.Name)
	newKey := strings.ToLower(newName)
	if _, exists := r.byName[newKey]; exists {
		return errkind.New(errkind.RegistryInvariant, "duplicate printer id %q", newName)
	}

	dsts := []mimetype.Type{p.DestType}
	if p.HasPrefilter {
		dsts = append(dsts, p.PrefilterType)
	}
	r.graph.DeleteFiltersTo(dsts...)
	r.graph.DeleteType(p.DestType)
	if p.HasPrefilter {
		r.graph.DeleteType(p.PrefilterType)
	}

	p.mu.Lock()
	p.Name = newName
	p.DestType = mimetype.PrinterType(newName)
	p.PrefilterType = mimetype.PrefilterType(newName)
	p.mu.Unlock()

	r.graph.AddType(p.DestType)
	if p.HasPrefilter {
		r.graph.AddType(p.PrefilterType)
	}

	delete(r.byName, oldKey)
	r.byName[newKey] = p
	r.order = removeString(r.order, oldKey)
	r.order = append(r.order, newKey)
	return nil
}

// FindPrinter is a case-insensitive name lookup restricted to printers
// (not classes).
func (r *Registry) FindPrinter(name string) (*Printer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[strings.ToLower(name)]
	if !ok || p.IsClass {
		return nil, false
	}
	return p, true
}

// FindDestination is a case-insensitive name lookup over both printers and
// classes.
func (r *Registry) FindDestination(name string) (*Printer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[strings.ToLower(name)]
	return p, ok
}

// ValidateDestination parses a destination URI, localizes the hostname
// against the registry's configured server name, and returns the matching
// printer/class (spec §4.2).
func (r *Registry) ValidateDestination(rawURI string) (string, *Printer, bool) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", nil, false
	}
	if u.Hostname() != "" && u.Hostname() != r.serverName && u.Hostname() != "localhost" {
		return "", nil, false
	}
	name := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	p, ok := r.FindDestination(name)
	return name, p, ok
}

// SetPrinterState updates state_time, notifies the event sink, updates the
// "paused" reason accordingly, and (left to the caller's job subsystem
// integration) signals pending jobs via the returned old state (spec
// §4.2).
func (r *Registry) SetPrinterState(p *Printer, newState State, persist bool) State {
	p.mu.Lock()
	old := p.State
	p.State = newState
	p.StateTime = time.Now()
	if newState == StateStopped {
		p.reasons["paused"] = struct{}{}
	} else {
		delete(p.reasons, "paused")
	}
	p.mu.Unlock()

	r.events.PrinterStateChanged(StateChangeEvent{Printer: p.Name, Old: old, New: newState})
	return old
}

// SetPrinterReasons applies the reason-set edit described by spec (see
// Printer.SetReasons) and returns whether the printers file should be
// marked dirty, plus whether the 64-slot cap truncated the requested
// addition — callers are expected to warn on a true truncated result
// rather than let it pass silently (spec §9 Open Question).
func (r *Registry) SetPrinterReasons(p *Printer, spec string) (changed, dirty, truncated bool) {
	return p.SetReasons(spec)
}

// Printers returns a snapshot of every registered printer (not classes), in
// insertion order.
func (r *Registry) Printers() []*Printer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Printer, 0, len(r.order))
	for _, k := range r.order {
		if p := r.byName[k]; !p.IsClass {
			out = append(out, p)
		}
	}
	return out
}

// String satisfies fmt.Stringer for State, used in log fields and printers
// file serialization.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateProcessing:
		return "Processing"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
