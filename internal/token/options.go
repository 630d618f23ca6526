package token

// Options is the fixed, small set of compile-time choices the token
// processor needs, passed as a plain struct rather than dynamic kwargs
// (spec.md §9: "configuration as enum, not dynamic kwargs").
type Options struct {
	// MaxDefineExpansions bounds recursive define expansion; spec.md §4.1
	// step 2 fixes this at 10 iterations per define.
	MaxDefineExpansions int
}

// DefaultOptions returns the spec-mandated defaults.
func DefaultOptions() Options {
	return Options{MaxDefineExpansions: 10}
}
