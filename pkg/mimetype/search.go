package mimetype

// Chain is the ordered sequence of filters that converts a document from
// its source type into a printer's pseudo-type, together with the summed
// cost of traversing them (spec §4.1).
type Chain struct {
	Filters []*Filter
	Cost    int
}

// FilterChain finds the lowest-cost sequence of filters converting a
// document of type src and size srcSize into dst. Cycle breaking is
// path-local (a type may not recur within one candidate chain, but may be
// revisited by a different candidate chain), so a cyclic graph never hangs
// the search; it only prunes that one path (spec §4.1 step 3, invariant 10).
//
// Returns ok == false if no chain exists (GraphAbsent, spec §7).
func (db *Database) FilterChain(src, dst Type, srcSize int64) (Chain, bool) {
	if src == dst {
		return Chain{Filters: []*Filter{}, Cost: 0}, true
	}

	var best Chain
	var found bool

	db.withReadIndex(func() {
		visited := map[Type]bool{src: true}
		filters, cost, ok := db.search(src, dst, srcSize, visited)
		if ok {
			best = Chain{Filters: filters, Cost: cost}
			found = true
		}
	})

	return best, found
}

// search performs a depth-first walk from current to target, tracking a
// path-local visited set so a loop in the graph only kills the branch that
// re-enters it rather than the whole search. Caller must hold the read
// lock (via withReadIndex) and the index must be up to date.
func (db *Database) search(current, target Type, srcSize int64, visited map[Type]bool) ([]*Filter, int, bool) {
	if current == target {
		return []*Filter{}, 0, true
	}

	var bestChain []*Filter
	bestCost := 0
	found := false

	for _, f := range db.filtersFrom(current) {
		if f.MaxSize != 0 && srcSize > f.MaxSize {
			continue
		}
		if visited[f.Dst] {
			continue
		}

		visited[f.Dst] = true
		subChain, subCost, ok := db.search(f.Dst, target, srcSize, visited)
		delete(visited, f.Dst)

		if !ok {
			continue
		}

		total := f.Cost + subCost
		if !found || total < bestCost {
			chain := make([]*Filter, 0, len(subChain)+1)
			chain = append(chain, f)
			chain = append(chain, subChain...)
			bestChain = chain
			bestCost = total
			found = true
		}
	}

	return bestChain, bestCost, found
}

// EnumerateSourcesFor walks backward from dst through the filter graph,
// returning the sources of filters into dst. It descends further only
// through printer/* sources, up to maxDepth levels; the sources of other
// types are not followed, so a type that reaches dst only through an
// intermediate non-printer type is not returned.
func (db *Database) EnumerateSourcesFor(dst Type, maxDepth int) []Type {
	seen := map[Type]bool{dst: true}
	var result []Type

	db.withReadIndex(func() {
		db.walkSourcesLocked(dst, maxDepth, seen, &result)
	})

	return result
}

func (db *Database) walkSourcesLocked(dst Type, depthLeft int, seen map[Type]bool, result *[]Type) {
	if depthLeft <= 0 {
		return
	}
	for _, f := range db.filtersTo(dst) {
		if seen[f.Src] {
			continue
		}
		seen[f.Src] = true

		if f.Src.Super == SuperPrinter {
			// A chain that passes through another printer's destination
			// set; keep unwinding to find the concrete types behind it.
			db.walkSourcesLocked(f.Src, depthLeft-1, seen, result)
			continue
		}

		*result = append(*result, f.Src)
	}
}
