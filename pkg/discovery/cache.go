// Package discovery memoizes the MIME graph's format-discovery search per
// printer model, so printers sharing a model don't repeat the identical
// FilterChain enumeration (spec §4.5).
package discovery

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"printsched/pkg/mimetype"
)

// Metrics records one PopulateForPrinter call's cost, for observability.
type Metrics struct {
	Elapsed      time.Duration
	GraphSearch  time.Duration
	TypesTested  int
	UsedCache    bool
}

// Cache is the per-model format-discovery memo. Cache must be cleared on
// any reload that rebuilds the MIME graph (spec §4.5 "Consistency").
type Cache struct {
	mu      sync.RWMutex
	enabled bool
	byModel map[string][]mimetype.Type

	group singleflight.Group
}

// NewCache returns a disabled cache; call Init to read the process-wide
// enable flag.
func NewCache() *Cache {
	return &Cache{byModel: make(map[string][]mimetype.Type)}
}

// discoveryEnableEnv is the environment variable that turns the cache on.
// Caches are disabled by default (spec §4.5).
const discoveryEnableEnv = "PRINTSCHED_FORMAT_CACHE"

// Init reads the process-wide enable flag from the environment.
func (c *Cache) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = os.Getenv(discoveryEnableEnv) != ""
}

// Clear discards every memoized entry, as required after a MIME-graph
// rebuild.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byModel = make(map[string][]mimetype.Type)
}

// modelKey returns a stable key for a possibly-empty model string (spec
// §4.5 "a stable placeholder if unknown").
func modelKey(model string) string {
	if model == "" {
		return "unknown"
	}
	return model
}

// PopulateForPrinter returns the list of MIME types the MIME graph search
// finds reachable for dest (a printer's destination pseudo-type), using
// the memo keyed by model when enabled. On a concurrent miss for the same
// model, only one search actually runs; other callers wait on it
// (golang.org/x/sync/singleflight), matching the cooperative single-loop
// contract without duplicating the quadratic-ish search.
func (c *Cache) PopulateForPrinter(db *mimetype.Database, model string, dest mimetype.Type) ([]mimetype.Type, Metrics) {
	start := time.Now()
	key := modelKey(model)

	c.mu.RLock()
	enabled := c.enabled
	c.mu.RUnlock()

	if enabled {
		c.mu.RLock()
		if cached, ok := c.byModel[key]; ok {
			c.mu.RUnlock()
			out := append([]mimetype.Type(nil), cached...)
			return out, Metrics{Elapsed: time.Since(start), UsedCache: true, TypesTested: len(out)}
		}
		c.mu.RUnlock()
	}

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		searchStart := time.Now()
		found := discoverTypes(db, dest)
		searchElapsed := time.Since(searchStart)
		if enabled {
			c.mu.Lock()
			c.byModel[key] = found
			c.mu.Unlock()
		}
		return populateResult{types: found, graphSearch: searchElapsed, tested: countAll(db)}, nil
	})

	res := v.(populateResult)
	return append([]mimetype.Type(nil), res.types...), Metrics{
		Elapsed:     time.Since(start),
		GraphSearch: res.graphSearch,
		TypesTested: res.tested,
		UsedCache:   false,
	}
}

type populateResult struct {
	types       []mimetype.Type
	graphSearch time.Duration
	tested      int
}

// discoverTypes iterates every non-printer/* type and keeps those for
// which FilterChain(t, infinite-size, dest) returns a chain (spec §4.5
// "Value").
func discoverTypes(db *mimetype.Database, dest mimetype.Type) []mimetype.Type {
	const unbounded = int64(1) << 62

	var out []mimetype.Type
	for _, t := range db.Types() {
		if t.Super == mimetype.SuperPrinter {
			continue
		}
		if _, ok := db.FilterChain(t, dest, unbounded); ok {
			out = append(out, t)
		}
	}
	return out
}

func countAll(db *mimetype.Database) int {
	n := 0
	for _, t := range db.Types() {
		if t.Super != mimetype.SuperPrinter {
			n++
		}
	}
	return n
}
