package lazyscan

import (
	"context"

	"github.com/hugr-lab/lazyscan/cloud"
	"github.com/hugr-lab/lazyscan/plan"
	"github.com/hugr-lab/lazyscan/resolve"
)

// dirChecker reports whether a local path is a directory.
type dirChecker interface {
	IsDir(ctx context.Context, path string) bool
}

// resolvePartitioning settles the discovery toggle and its start index.
// An explicit toggle is kept verbatim. StartIndex is set only when the
// result is enabled; a caller supplied StartIndex is discarded.
func resolvePartitioning(ctx context.Context, dirs dirChecker, inputs []string, exp *resolve.Expansion, opts plan.PartitionOptions) plan.PartitionOptions {
	if !opts.Enabled.IsSet() {
		opts.Enabled = plan.ToggleOf(inferPartitioning(ctx, dirs, inputs, exp.Paths))
	}

	opts.StartIndex = nil
	if opts.Enabled == plan.ToggleEnabled {
		var idx int
		if exp.StartIndex != nil {
			idx = *exp.StartIndex
		} else {
			idx = divergenceIndex(inputs, exp.Paths)
		}
		opts.StartIndex = &idx
	}
	return opts
}

// inferPartitioning enables discovery only for a single literal location
// that expansion turned into something other than itself: a local
// directory, or a remote prefix listing different keys.
func inferPartitioning(ctx context.Context, dirs dirChecker, inputs, expanded []string) bool {
	if len(inputs) != 1 || len(expanded) == 0 {
		return false
	}
	p0 := inputs[0]
	if resolve.HasGlob(p0) {
		return false
	}
	if !cloud.IsURL(p0) && dirs.IsDir(ctx, p0) {
		return true
	}
	return !resolve.SamePath(expanded[0], p0)
}

// divergenceIndex is the number of leading path components shared by every
// input and every resolved file. It never reaches a file name component,
// so the result always addresses a directory level.
func divergenceIndex(inputs, files []string) int {
	if len(files) == 0 {
		return 0
	}

	prefix := resolve.Components(files[0])
	limit := len(prefix) - 1
	for _, f := range files[1:] {
		c := resolve.Components(f)
		limit = min(limit, len(c)-1)
		prefix = commonPrefix(prefix, c)
	}
	for _, in := range inputs {
		prefix = commonPrefix(prefix, resolve.Components(in))
	}
	return max(min(len(prefix), limit), 0)
}

func commonPrefix(a, b []string) []string {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return a[:n]
}
