package lazyscan

import (
	"context"
	"log/slog"
	"slices"

	"github.com/hugr-lab/lazyscan/cloud"
	"github.com/hugr-lab/lazyscan/internal/ipcmeta"
	"github.com/hugr-lab/lazyscan/plan"
	"github.com/hugr-lab/lazyscan/resolve"
)

// Scan builds a deferred IPC scan over a single path: a file, a directory,
// a glob pattern or an object storage URL.
//
// Nothing is read except what resolution needs: directory listings and the
// footer of the first file. Resolution failures match ErrResolution and
// builder rejections match ErrPlan; both are returned unchanged.
//
// Example:
//
//	lf, err := lazyscan.Scan(ctx, "/data/events", lazyscan.DefaultScanConfig())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(lf.Explain())
func Scan(ctx context.Context, path string, cfg ScanConfig) (*plan.LazyFrame, error) {
	return ScanMany(ctx, []string{path}, cfg)
}

// ScanMany builds one deferred IPC scan over several paths.
// paths is only read. An empty slice fails with ErrResolution.
func ScanMany(ctx context.Context, paths []string, cfg ScanConfig) (*plan.LazyFrame, error) {
	src := &ipcSource{
		cfg:   cfg,
		paths: slices.Clone(paths),
	}
	return finishScan(ctx, src)
}

// fileListReader is the resolution contract of a file based scan.
type fileListReader interface {
	// globbing reports whether inputs may be glob patterns or directories.
	globbing() bool
	// finish expands inputs into files and builds the plan.
	finish(ctx context.Context) (*plan.LazyFrame, error)
	// finishNoGlob builds the plan from literal file paths only.
	finishNoGlob(ctx context.Context) (*plan.LazyFrame, error)
}

func finishScan(ctx context.Context, r fileListReader) (*plan.LazyFrame, error) {
	if r.globbing() {
		return r.finish(ctx)
	}
	return r.finishNoGlob(ctx)
}

// ipcSource is a single scan request. It implements resolve.Source.
type ipcSource struct {
	cfg   ScanConfig
	paths []string
}

var (
	_ resolve.Source = (*ipcSource)(nil)
	_ fileListReader = (*ipcSource)(nil)
)

// Paths implements resolve.Source.
func (s *ipcSource) Paths() []string {
	return slices.Clone(s.paths)
}

// DiscoverPartitions implements resolve.Source. Discovery during expansion
// only happens on explicit request; otherwise it is inferred afterwards.
func (s *ipcSource) DiscoverPartitions() bool {
	return s.cfg.Partitioning.Enabled == plan.ToggleEnabled
}

// Remote implements resolve.Source.
func (s *ipcSource) Remote() *cloud.Options {
	return s.cfg.Remote
}

func (s *ipcSource) globbing() bool { return true }

func (s *ipcSource) finishNoGlob(context.Context) (*plan.LazyFrame, error) {
	panic("lazyscan: IPC scans always expand globs and directories")
}

func (s *ipcSource) finish(ctx context.Context) (*plan.LazyFrame, error) {
	logger := s.logger()
	resolver := s.resolver(logger)

	exp, err := resolver.Resolve(ctx, s)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		exp = &resolve.Expansion{}
	}

	part := resolvePartitioning(ctx, resolver, s.paths, exp, s.cfg.Partitioning)
	logger.Debug("Hive partitioning resolved",
		"explicit", s.cfg.Partitioning.Enabled.IsSet(),
		"partitioning", part.Enabled,
		"start_index", part.StartIndex,
	)

	node, err := s.builder(logger).BuildScan(ctx, plan.ScanArgs{
		Paths:        exp.Paths,
		Format:       plan.IPCOptions{MemoryMap: s.cfg.MemoryMap},
		RowLimit:     s.cfg.RowLimit,
		Cache:        s.cfg.Cache,
		RowIndex:     s.cfg.RowIndex,
		Rechunk:      s.cfg.Rechunk,
		Remote:       s.cfg.Remote,
		Partitioning: part,
	})
	if err != nil {
		return nil, err
	}

	lf := plan.NewLazyFrame(node)
	lf.OptState.FileCaching = true

	logger.Debug("IPC scan constructed",
		"inputs", len(s.paths),
		"files", len(node.Paths),
	)
	return lf, nil
}

func (s *ipcSource) logger() *slog.Logger {
	if s.cfg.Logger != nil {
		return s.cfg.Logger
	}
	return slog.Default()
}

func (s *ipcSource) resolver(logger *slog.Logger) resolve.Resolver {
	if s.cfg.Resolver != nil {
		return s.cfg.Resolver
	}
	return resolve.NewRouter(nil, resolve.WithLogger(logger))
}

func (s *ipcSource) builder(logger *slog.Logger) plan.Builder {
	if s.cfg.Builder != nil {
		return s.cfg.Builder
	}
	return plan.NewBuilder(ipcmeta.NewOSProbe(ipcmeta.WithLogger(logger)), logger)
}
