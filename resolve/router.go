package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/lazyscan/cloud"
)

// RemoteFactory builds an Expander for remote paths from the scan's options.
// It is called at most once per Resolve call.
type RemoteFactory func(ctx context.Context, opts *cloud.Options) (Expander, error)

// Router is the default Resolver. It dispatches each input path to the
// local expander or, for object-store URLs, to a remote expander.
type Router struct {
	local  *Local
	remote RemoteFactory
	logger *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRemote replaces the S3 client factory (tests, custom endpoints).
func WithRemote(factory RemoteFactory) RouterOption {
	return func(r *Router) {
		r.remote = factory
	}
}

// WithLogger sets the router logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter creates a Router. A nil local uses the host filesystem.
func NewRouter(local *Local, opts ...RouterOption) *Router {
	if local == nil {
		local = NewOSLocal()
	}
	r := &Router{
		local:  local,
		remote: defaultRemote,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultRemote(ctx context.Context, opts *cloud.Options) (Expander, error) {
	client, err := cloud.NewS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewS3(client), nil
}

// IsDir implements Resolver.
func (r *Router) IsDir(_ context.Context, p string) bool {
	if cloud.IsURL(p) {
		return false
	}
	return r.local.IsDir(p)
}

// Resolve implements Resolver.
func (r *Router) Resolve(ctx context.Context, src Source) (*Expansion, error) {
	inputs := src.Paths()
	if len(inputs) == 0 {
		return nil, &Error{Op: "resolve", Err: ErrEmptyInput}
	}

	discover := src.DiscoverPartitions()
	seen := make(map[string]struct{})

	var (
		out    []string
		levels levelTracker
		remote Expander
	)

	for _, p := range inputs {
		exp := Expander(r.local)
		if cloud.IsURL(p) {
			if remote == nil {
				var err error
				remote, err = r.remote(ctx, src.Remote())
				if err != nil {
					return nil, &Error{Op: "list", Path: p, Err: fmt.Errorf("%w: %w", ErrListing, err)}
				}
			}
			exp = remote
		}

		listing, err := exp.Expand(ctx, p)
		if err != nil {
			r.logger.Debug("Path expansion failed", "path", p, "error", err)
			return nil, err
		}
		if discover {
			if err := levels.update(p, listing.Depth); err != nil {
				return nil, err
			}
		}

		for _, f := range listing.Files {
			key := f
			if !cloud.IsURL(f) {
				key = Clean(f)
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, f)
		}
	}

	expansion := &Expansion{Paths: out}
	if discover {
		depth := levels.depth
		expansion.StartIndex = &depth
	}

	r.logger.Debug("Paths expanded",
		"inputs", len(inputs),
		"files", len(out),
		"discover_partitions", discover,
		"remote", src.Remote(),
	)

	return expansion, nil
}

// levelTracker checks that every input agrees on the partition start depth.
type levelTracker struct {
	depth int
	first string
	set   bool
}

func (t *levelTracker) update(p string, depth int) error {
	if !t.set {
		t.depth, t.first, t.set = depth, p, true
		return nil
	}
	if depth != t.depth {
		return &Error{
			Op:   "resolve",
			Path: p,
			Err:  fmt.Errorf("%w: %q starts at %d, %q at %d", ErrMixedLevels, t.first, t.depth, p, depth),
		}
	}
	return nil
}
