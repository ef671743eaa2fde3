package mimetype

// IdentityProgram is the sentinel program name meaning "no-op identity
// transform" (spec §3).
const IdentityProgram = "-"

// Filter is a directed weighted edge src -> dst representing a document
// transformation.
type Filter struct {
	Src     Type
	Dst     Type
	Cost    int
	MaxSize int64 // 0 means unbounded
	Program string
}

// IsIdentity reports whether the filter is the no-op identity transform.
func (f *Filter) IsIdentity() bool {
	return f.Program == IdentityProgram
}

// Accepts reports whether a source document of size docSize may traverse
// this filter (spec §4.1 step 2 and invariant 6: maxsize = 0 is unbounded).
func (f *Filter) Accepts(docSize int64) bool {
	return f.MaxSize == 0 || docSize <= f.MaxSize
}

type pairKey struct {
	src Type
	dst Type
}
