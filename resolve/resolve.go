// Package resolve expands scan inputs into a concrete, ordered file list.
//
// An input path may be a literal file, a directory, a glob pattern or a
// remote object-store location. Expansion is deterministic: every input
// expands to a lexicographically sorted list, inputs are concatenated in
// order and duplicates are dropped keeping the first occurrence.
//
// When partition discovery is requested the resolver also reports the path
// component index at which hive partition directories begin.
package resolve

import (
	"context"

	"github.com/hugr-lab/lazyscan/cloud"
)

// Source is the scan request as seen by a Resolver.
// The scan core implements it; resolvers only read from it.
type Source interface {
	// Paths returns the raw input paths. MUST NOT be mutated.
	Paths() []string

	// DiscoverPartitions reports whether the caller explicitly enabled
	// hive partitioning and expects a start index in the Expansion.
	DiscoverPartitions() bool

	// Remote returns the object-store options, nil when none were given.
	Remote() *cloud.Options
}

// Expansion is the outcome of resolving a Source.
type Expansion struct {
	// Paths is the ordered, deduplicated file list.
	Paths []string

	// StartIndex is the component index where partition directories begin.
	// Set only when Source.DiscoverPartitions() was true.
	StartIndex *int
}

// Resolver expands scan inputs.
// Implementations MUST be deterministic for an unchanged storage state.
type Resolver interface {
	// Resolve expands src. Errors are *Error values matching ErrResolution.
	Resolve(ctx context.Context, src Source) (*Expansion, error)

	// IsDir reports whether a local path is an existing directory.
	// Always false for remote paths.
	IsDir(ctx context.Context, path string) bool
}

// Listing is the expansion of a single input path.
type Listing struct {
	// Files is the sorted list of files the input expanded to.
	Files []string

	// Depth is the component count of the input's literal base directory:
	// 0 for a literal file, the directory depth for a directory, the depth
	// of the non-glob prefix for a pattern.
	Depth int
}

// Expander expands one input path against a single storage backend.
type Expander interface {
	Expand(ctx context.Context, path string) (Listing, error)
}
