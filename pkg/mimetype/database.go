package mimetype

import (
	"github.com/samber/lo"
	deadlock "github.com/sasha-s/go-deadlock"
)

// Database owns the set of known MIME types and the set of conversion
// filters between them, plus two lazily-rebuilt lookup caches (spec §3/§4.1).
//
// It is guarded by a single reader/writer lock: the printer-attribute
// builder and the driver-description loader run concurrently with the
// search path during startup (spec §5), so mutations take a writer hold and
// FilterChain/FindFilter take a reader hold.
type Database struct {
	mu deadlock.RWMutex

	typeSet   map[Type]struct{}
	typeOrder []Type // insertion order, used when expanding wildcard filters

	filters []*Filter // canonical store, insertion order

	cachesValid bool
	pairIndex   map[pairKey]*Filter
	srcIndex    map[Type][]*Filter // filters keyed by Src, insertion order preserved
	dstIndex    map[Type][]*Filter // filters keyed by Dst
}

// NewDatabase returns an empty MIME database.
func NewDatabase() *Database {
	return &Database{
		typeSet: make(map[Type]struct{}),
	}
}

// AddType inserts t if absent and returns it either way (operations are
// idempotent by design: callers don't need to check existence first).
func (db *Database) AddType(t Type) Type {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.addTypeLocked(t)
	return t
}

func (db *Database) addTypeLocked(t Type) {
	if _, ok := db.typeSet[t]; ok {
		return
	}
	db.typeSet[t] = struct{}{}
	db.typeOrder = append(db.typeOrder, t)
}

// HasType reports whether t is a member of the type set.
func (db *Database) HasType(t Type) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.typeSet[t]
	return ok
}

// DeleteType removes t from the type set. It does not touch filters; callers
// that want the cascading delete-filters-that-reference-this-type behavior
// (e.g. DeletePrinter) call DeleteFiltersTo explicitly.
func (db *Database) DeleteType(t Type) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.typeSet, t)
	db.typeOrder = lo.Filter(db.typeOrder, func(x Type, _ int) bool { return x != t })
}

// Types returns a snapshot of all known types in insertion order.
func (db *Database) Types() []Type {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]Type(nil), db.typeOrder...)
}

// AddFilter inserts the edge src->dst, or replaces the existing edge between
// the same pair if the new cost is lower (spec §3: "lower cost wins; equal
// or lower cost is kept" i.e. replace only on a strictly higher existing
// cost). A wildcard src or dst is expanded into one concrete filter per
// matching known type instead of being stored literally (spec §4.1).
//
// AddFilter invalidates the derived caches.
func (db *Database) AddFilter(src, dst Type, cost int, maxSize int64, program string) []*Filter {
	db.mu.Lock()
	defer db.mu.Unlock()

	if src.IsWildcard() || dst.IsWildcard() {
		added := make([]*Filter, 0, len(db.typeOrder))
		for _, concreteSrc := range append([]Type(nil), db.typeOrder...) {
			if !concreteSrc.Matches(src) {
				continue
			}
			for _, concreteDst := range append([]Type(nil), db.typeOrder...) {
				if !concreteDst.Matches(dst) {
					continue
				}
				if concreteSrc == concreteDst {
					continue
				}
				added = append(added, db.putFilterLocked(concreteSrc, concreteDst, cost, maxSize, program))
			}
		}
		return added
	}

	return []*Filter{db.putFilterLocked(src, dst, cost, maxSize, program)}
}

// putFilterLocked implements the merge-on-conflict rule for a single
// concrete (src, dst) pair. Caller holds the write lock.
func (db *Database) putFilterLocked(src, dst Type, cost int, maxSize int64, program string) *Filter {
	db.ensureIndexLocked()

	if existing, ok := db.pairIndex[pairKey{src, dst}]; ok {
		if cost >= existing.Cost {
			return existing
		}
		db.removeFilterLocked(existing)
	}

	f := &Filter{Src: src, Dst: dst, Cost: cost, MaxSize: maxSize, Program: program}
	db.filters = append(db.filters, f)
	db.cachesValid = false
	db.ensureIndexLocked()
	return f
}

// DeleteFilter removes f from the filter set and invalidates the caches.
func (db *Database) DeleteFilter(f *Filter) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.removeFilterLocked(f)
}

func (db *Database) removeFilterLocked(f *Filter) {
	db.filters = lo.Filter(db.filters, func(x *Filter, _ int) bool { return x != f })
	db.cachesValid = false
}

// DeleteFiltersTo removes every filter whose destination is in dsts, as used
// by DeletePrinter tearing down a printer's pseudo-types (spec §4.2,
// invariant 3).
func (db *Database) DeleteFiltersTo(dsts ...Type) {
	db.mu.Lock()
	defer db.mu.Unlock()
	set := make(map[Type]struct{}, len(dsts))
	for _, d := range dsts {
		set[d] = struct{}{}
	}
	db.filters = lo.Filter(db.filters, func(f *Filter, _ int) bool {
		_, match := set[f.Dst]
		return !match
	})
	db.cachesValid = false
}

// FindFilter returns the filter for (src, dst), if any, in constant expected
// time via the by-pair cache (invariant 1).
func (db *Database) FindFilter(src, dst Type) (*Filter, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	// ensureIndexLocked mutates db.cachesValid/indices, so it needs the
	// write path; rebuild under a short writer hold if stale.
	if !db.cachesValid {
		db.mu.RUnlock()
		db.mu.Lock()
		db.ensureIndexLocked()
		db.mu.Unlock()
		db.mu.RLock()
	}
	f, ok := db.pairIndex[pairKey{src, dst}]
	return f, ok
}

// ensureIndexLocked rebuilds the derived caches if they were invalidated by
// a mutation. Caller must hold the write lock.
func (db *Database) ensureIndexLocked() {
	if db.cachesValid {
		return
	}
	db.pairIndex = make(map[pairKey]*Filter, len(db.filters))
	db.srcIndex = make(map[Type][]*Filter)
	db.dstIndex = make(map[Type][]*Filter)
	for _, f := range db.filters {
		db.pairIndex[pairKey{f.Src, f.Dst}] = f
		db.srcIndex[f.Src] = append(db.srcIndex[f.Src], f)
		db.dstIndex[f.Dst] = append(db.dstIndex[f.Dst], f)
	}
	db.cachesValid = true
}

// filtersFrom returns, in insertion order, every filter whose source is src.
// It reads the cached index as is; caller must hold at least a read lock
// with current caches (see withReadIndex) and must not rely on the slice
// surviving past the lock.
func (db *Database) filtersFrom(src Type) []*Filter {
	return db.srcIndex[src]
}

func (db *Database) filtersTo(dst Type) []*Filter {
	return db.dstIndex[dst]
}

// withReadIndex runs fn with a consistent, up-to-date index under a read
// lock, rebuilding first under a write lock if necessary.
func (db *Database) withReadIndex(fn func()) {
	db.mu.RLock()
	if !db.cachesValid {
		db.mu.RUnlock()
		db.mu.Lock()
		db.ensureIndexLocked()
		db.mu.Unlock()
		db.mu.RLock()
	}
	defer db.mu.RUnlock()
	fn()
}
