package lazyscan

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/hugr-lab/lazyscan/cloud"
	"github.com/hugr-lab/lazyscan/internal/ipcmeta"
	"github.com/hugr-lab/lazyscan/plan"
	"github.com/hugr-lab/lazyscan/resolve"
)

var fileSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

func ipcBytes(t *testing.T) []byte {
	t.Helper()
	mem := memory.NewGoAllocator()

	b := array.NewRecordBuilder(mem, fileSchema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"a", "b", "c"}, nil)
	rec := b.NewRecordBatch()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(fileSchema), ipc.WithAllocator(mem))
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

// newScanFS writes an IPC file at every path and returns a config scanning it.
func newScanFS(t *testing.T, files ...string) (billy.Filesystem, ScanConfig) {
	t.Helper()
	fs := memfs.New()
	data := ipcBytes(t)
	for _, f := range files {
		if err := util.WriteFile(fs, f, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}

	cfg := DefaultScanConfig()
	cfg.Resolver = resolve.NewRouter(resolve.NewLocal(fs))
	cfg.Builder = plan.NewBuilder(ipcmeta.NewProbe(fs), nil)
	return fs, cfg
}

func intPtr(v int) *int { return &v }

// TestDefaultScanConfig tests the documented scan defaults.
func TestDefaultScanConfig(t *testing.T) {
	cfg := DefaultScanConfig()
	if !cfg.Cache || !cfg.MemoryMap || cfg.Rechunk {
		t.Errorf("cache/memory_map/rechunk = %t/%t/%t, want true/true/false", cfg.Cache, cfg.MemoryMap, cfg.Rechunk)
	}
	if cfg.RowLimit != nil || cfg.RowIndex != nil || cfg.Remote != nil {
		t.Error("optional fields must be unset")
	}
	if cfg.Partitioning.Enabled != PartitioningAuto || cfg.Partitioning.StartIndex != nil {
		t.Errorf("partitioning = %+v, want auto", cfg.Partitioning)
	}
}

// TestScanConfigHelpersCopy tests that With helpers leave the receiver untouched.
func TestScanConfigHelpersCopy(t *testing.T) {
	base := DefaultScanConfig()
	cfg := base.WithRowLimit(10).WithRowIndex("idx", 5).WithHivePartitioning(false)

	if base.RowLimit != nil || base.RowIndex != nil || base.Partitioning.Enabled != PartitioningAuto {
		t.Error("helpers modified the receiver")
	}
	if *cfg.RowLimit != 10 || cfg.RowIndex.Name != "idx" || cfg.RowIndex.Offset != 5 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Partitioning.Enabled != PartitioningOff {
		t.Errorf("partitioning = %s, want disabled", cfg.Partitioning.Enabled)
	}
}

// TestScanDirectoryEnablesPartitioning tests inference on a directory input.
func TestScanDirectoryEnablesPartitioning(t *testing.T) {
	_, cfg := newScanFS(t, "/data/events/date=2024-01-01/part-0.ipc")

	lf, err := Scan(context.Background(), "/data/events", cfg)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	node := lf.Plan
	if want := []string{"/data/events/date=2024-01-01/part-0.ipc"}; !reflect.DeepEqual(node.Paths, want) {
		t.Errorf("Paths = %v, want %v", node.Paths, want)
	}
	if node.Partitioning.Enabled != PartitioningOn {
		t.Fatalf("partitioning = %s, want enabled", node.Partitioning.Enabled)
	}
	if node.Partitioning.StartIndex == nil || *node.Partitioning.StartIndex != 3 {
		t.Errorf("StartIndex = %v, want 3", node.Partitioning.StartIndex)
	}
	if !lf.OptState.FileCaching {
		t.Error("FileCaching must be set on scan frames")
	}

	names := make([]string, 0, node.Schema.NumFields())
	for _, f := range node.Schema.Fields() {
		names = append(names, f.Name)
	}
	if want := []string{"id", "name", "date"}; !reflect.DeepEqual(names, want) {
		t.Errorf("schema fields = %v, want %v", names, want)
	}
}

// TestScanLiteralFileDisablesPartitioning tests inference on a single file.
func TestScanLiteralFileDisablesPartitioning(t *testing.T) {
	_, cfg := newScanFS(t, "/data/single.ipc", "/data/other.ipc")

	lf, err := Scan(context.Background(), "/data/single.ipc", cfg)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if want := []string{"/data/single.ipc"}; !reflect.DeepEqual(lf.Plan.Paths, want) {
		t.Errorf("Paths = %v, want %v", lf.Plan.Paths, want)
	}
	if lf.Plan.Partitioning.Enabled != PartitioningOff || lf.Plan.Partitioning.StartIndex != nil {
		t.Errorf("partitioning = %+v, want disabled without start index", lf.Plan.Partitioning)
	}
}

// TestScanNestedLiteralFileDisablesPartitioning tests inference on a file inside partition directories.
func TestScanNestedLiteralFileDisablesPartitioning(t *testing.T) {
	_, cfg := newScanFS(t, "/data/events/date=2024-01-01/part-0.ipc")

	lf, err := Scan(context.Background(), "/data/events/date=2024-01-01/part-0.ipc", cfg)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if lf.Plan.Partitioning.Enabled != PartitioningOff {
		t.Errorf("partitioning = %s, want disabled", lf.Plan.Partitioning.Enabled)
	}
	if len(lf.Plan.PartitionFields) != 0 {
		t.Errorf("PartitionFields = %v, want none", lf.Plan.PartitionFields)
	}
}

// TestScanGlobSingleMatchDisablesPartitioning tests inference on a glob input.
func TestScanGlobSingleMatchDisablesPartitioning(t *testing.T) {
	_, cfg := newScanFS(t, "/data/a.ipc")

	lf, err := Scan(context.Background(), "/data/*.ipc", cfg)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if want := []string{"/data/a.ipc"}; !reflect.DeepEqual(lf.Plan.Paths, want) {
		t.Errorf("Paths = %v, want %v", lf.Plan.Paths, want)
	}
	if lf.Plan.Partitioning.Enabled != PartitioningOff {
		t.Errorf("partitioning = %s, want disabled", lf.Plan.Partitioning.Enabled)
	}
}

// TestScanExplicitToggle tests that an explicit toggle is kept.
func TestScanExplicitToggle(t *testing.T) {
	_, cfg := newScanFS(t, "/data/single.ipc", "/data/events/date=2024-01-01/part-0.ipc")
	ctx := context.Background()

	t.Run("on for literal file", func(t *testing.T) {
		lf, err := Scan(ctx, "/data/single.ipc", cfg.WithHivePartitioning(true))
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		part := lf.Plan.Partitioning
		if part.Enabled != PartitioningOn || part.StartIndex == nil || *part.StartIndex != 0 {
			t.Errorf("partitioning = %s start %v, want enabled at 0", part.Enabled, part.StartIndex)
		}
	})

	t.Run("on for directory", func(t *testing.T) {
		lf, err := Scan(ctx, "/data/events", cfg.WithHivePartitioning(true))
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		part := lf.Plan.Partitioning
		if part.StartIndex == nil || *part.StartIndex != 3 {
			t.Errorf("StartIndex = %v, want 3", part.StartIndex)
		}
	})

	t.Run("off for directory", func(t *testing.T) {
		c := cfg.WithHivePartitioning(false)
		c.Partitioning.StartIndex = intPtr(2)

		lf, err := Scan(ctx, "/data/events", c)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		part := lf.Plan.Partitioning
		if part.Enabled != PartitioningOff || part.StartIndex != nil {
			t.Errorf("partitioning = %+v, want disabled without start index", part)
		}
		if len(lf.Plan.PartitionFields) != 0 {
			t.Errorf("PartitionFields = %v, want none", lf.Plan.PartitionFields)
		}
	})
}

// TestScanManyMultipleInputsDisablesPartitioning tests inference with several inputs.
func TestScanManyMultipleInputsDisablesPartitioning(t *testing.T) {
	_, cfg := newScanFS(t,
		"/data/a/date=2024-01-01/part-0.ipc",
		"/data/b/date=2024-01-02/part-0.ipc",
	)

	lf, err := ScanMany(context.Background(), []string{"/data/b", "/data/a"}, cfg)
	if err != nil {
		t.Fatalf("ScanMany() error = %v", err)
	}
	want := []string{"/data/b/date=2024-01-02/part-0.ipc", "/data/a/date=2024-01-01/part-0.ipc"}
	if !reflect.DeepEqual(lf.Plan.Paths, want) {
		t.Errorf("Paths = %v, want %v", lf.Plan.Paths, want)
	}
	if lf.Plan.Partitioning.Enabled != PartitioningOff {
		t.Errorf("partitioning = %s, want disabled", lf.Plan.Partitioning.Enabled)
	}
}

// TestScanManyDoesNotMutateInput tests that the caller's slice is left as is.
func TestScanManyDoesNotMutateInput(t *testing.T) {
	_, cfg := newScanFS(t, "/data/a.ipc", "/data/b.ipc")

	paths := []string{"/data/b.ipc", "/data/*.ipc"}
	orig := slices.Clone(paths)
	lf, err := ScanMany(context.Background(), paths, cfg)
	if err != nil {
		t.Fatalf("ScanMany() error = %v", err)
	}
	if !reflect.DeepEqual(paths, orig) {
		t.Errorf("input mutated: %v", paths)
	}
	if want := []string{"/data/b.ipc", "/data/a.ipc"}; !reflect.DeepEqual(lf.Plan.Paths, want) {
		t.Errorf("Paths = %v, want %v", lf.Plan.Paths, want)
	}
}

// TestScanManyDeduplicatesSpellings tests that a file named twice with
// different spellings is planned once.
func TestScanManyDeduplicatesSpellings(t *testing.T) {
	_, cfg := newScanFS(t, "/data/a.ipc", "/data/b.ipc")

	lf, err := ScanMany(context.Background(), []string{"/data//a.ipc", "/data"}, cfg)
	if err != nil {
		t.Fatalf("ScanMany() error = %v", err)
	}
	if want := []string{"/data/a.ipc", "/data/b.ipc"}; !reflect.DeepEqual(lf.Plan.Paths, want) {
		t.Errorf("Paths = %v, want %v", lf.Plan.Paths, want)
	}
}

// TestScanResolutionErrors tests resolution failures surfacing from Scan.
func TestScanResolutionErrors(t *testing.T) {
	_, cfg := newScanFS(t, "/data/a.ipc")
	ctx := context.Background()

	tests := []struct {
		name   string
		paths  []string
		reason error
	}{
		{name: "empty input", paths: nil, reason: resolve.ErrEmptyInput},
		{name: "missing path", paths: []string{"/data/missing.ipc"}, reason: resolve.ErrNotFound},
		{name: "glob without match", paths: []string{"/data/*.arrow"}, reason: resolve.ErrNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf, err := ScanMany(ctx, tt.paths, cfg)
			if lf != nil {
				t.Error("expected no frame")
			}
			if !errors.Is(err, ErrResolution) {
				t.Fatalf("error = %v, want ErrResolution", err)
			}
			if !errors.Is(err, tt.reason) {
				t.Errorf("error = %v, want %v", err, tt.reason)
			}
		})
	}
}

// TestScanIdempotent tests that repeated scans plan the same node.
func TestScanIdempotent(t *testing.T) {
	_, cfg := newScanFS(t,
		"/data/events/date=2024-01-01/part-0.ipc",
		"/data/events/date=2024-01-02/part-0.ipc",
	)
	ctx := context.Background()

	a, err := Scan(ctx, "/data/events", cfg)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	b, err := Scan(ctx, "/data/events", cfg)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if !reflect.DeepEqual(a.Plan.Paths, b.Plan.Paths) {
		t.Errorf("paths differ: %v vs %v", a.Plan.Paths, b.Plan.Paths)
	}
	if !reflect.DeepEqual(a.Plan.Partitioning, b.Plan.Partitioning) {
		t.Errorf("partitioning differs: %+v vs %+v", a.Plan.Partitioning, b.Plan.Partitioning)
	}
	if a.Plan.Fingerprint() != b.Plan.Fingerprint() {
		t.Error("fingerprints differ")
	}
	if counts := plan.FileFingerprints(a, b); counts[a.Plan.Fingerprint()] != 2 {
		t.Errorf("FileFingerprints() = %v, want a shared read", counts)
	}
}

// TestScanRowIndexAndOptionsReachBuilder tests that read options reach the builder.
func TestScanRowIndexAndOptionsReachBuilder(t *testing.T) {
	_, cfg := newScanFS(t, "/data/a.ipc")
	remote := &cloud.Options{Region: "eu-west-1"}
	cfg = cfg.WithRowLimit(100).WithRowIndex("row_nr", 10).WithRemote(remote)
	cfg.MemoryMap = false
	cfg.Rechunk = true

	lf, err := Scan(context.Background(), "/data/a.ipc", cfg)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	node := lf.Plan
	if node.RowLimit == nil || *node.RowLimit != 100 {
		t.Errorf("RowLimit = %v", node.RowLimit)
	}
	if node.Format.MemoryMap || !node.Rechunk || !node.Cache {
		t.Errorf("format/rechunk/cache = %+v/%t/%t", node.Format, node.Rechunk, node.Cache)
	}
	if node.Remote != remote {
		t.Error("remote options not forwarded")
	}
	if got := node.Schema.Field(0); got.Name != "row_nr" || !arrow.TypeEqual(got.Type, arrow.PrimitiveTypes.Uint32) {
		t.Errorf("first field = %s", got)
	}
}

// TestScanRowIndexCollisionIsPlanError tests a row index named like a file column.
func TestScanRowIndexCollisionIsPlanError(t *testing.T) {
	_, cfg := newScanFS(t, "/data/a.ipc")

	_, err := Scan(context.Background(), "/data/a.ipc", cfg.WithRowIndex("id", 0))
	if !errors.Is(err, ErrPlan) {
		t.Fatalf("error = %v, want ErrPlan", err)
	}
}

type stubResolver struct {
	exp   *resolve.Expansion
	err   error
	dirs  map[string]bool
	calls int
	src   resolve.Source
}

func (r *stubResolver) Resolve(_ context.Context, src resolve.Source) (*resolve.Expansion, error) {
	r.calls++
	r.src = src
	return r.exp, r.err
}

func (r *stubResolver) IsDir(_ context.Context, p string) bool { return r.dirs[p] }

type stubBuilder struct {
	args plan.ScanArgs
	err  error
}

func (b *stubBuilder) BuildScan(_ context.Context, args plan.ScanArgs) (*plan.ScanNode, error) {
	b.args = args
	if b.err != nil {
		return nil, b.err
	}
	return &plan.ScanNode{Paths: args.Paths, Partitioning: args.Partitioning}, nil
}

// TestScanPropagatesCollaboratorErrors tests that resolver and builder errors are returned as is.
func TestScanPropagatesCollaboratorErrors(t *testing.T) {
	ctx := context.Background()

	resolveErr := errors.New("listing exploded")
	cfg := DefaultScanConfig()
	cfg.Resolver = &stubResolver{err: resolveErr}
	cfg.Builder = &stubBuilder{}
	if _, err := Scan(ctx, "/x", cfg); err != resolveErr {
		t.Errorf("resolver error = %v, want it unchanged", err)
	}

	buildErr := &plan.Error{Reason: "nope"}
	cfg.Resolver = &stubResolver{exp: &resolve.Expansion{Paths: []string{"/x"}}}
	cfg.Builder = &stubBuilder{err: buildErr}
	if _, err := Scan(ctx, "/x", cfg); err != buildErr {
		t.Errorf("builder error = %v, want it unchanged", err)
	}
}

// TestScanSourceContract tests what the resolver sees of a scan.
func TestScanSourceContract(t *testing.T) {
	remote := &cloud.Options{Region: "us-east-1"}
	res := &stubResolver{exp: &resolve.Expansion{Paths: []string{"/x/a.ipc"}, StartIndex: intPtr(2)}}
	b := &stubBuilder{}

	cfg := DefaultScanConfig().WithRemote(remote).WithHivePartitioning(true)
	cfg.Resolver = res
	cfg.Builder = b

	if _, err := Scan(context.Background(), "/x", cfg); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.calls != 1 {
		t.Errorf("Resolve called %d times, want 1", res.calls)
	}
	if !res.src.DiscoverPartitions() || res.src.Remote() != remote {
		t.Error("source must request discovery and carry remote options")
	}
	if got := res.src.Paths(); !reflect.DeepEqual(got, []string{"/x"}) {
		t.Errorf("source paths = %v", got)
	}
	if b.args.Partitioning.StartIndex == nil || *b.args.Partitioning.StartIndex != 2 {
		t.Errorf("StartIndex = %v, want the expansion's 2", b.args.Partitioning.StartIndex)
	}
}

// TestScanEmptyExpansionIsPlanError tests an expansion without files.
func TestScanEmptyExpansionIsPlanError(t *testing.T) {
	cfg := DefaultScanConfig()
	cfg.Resolver = &stubResolver{exp: &resolve.Expansion{}, dirs: map[string]bool{"/empty": true}}
	cfg.Builder = plan.NewBuilder(nil, nil)

	_, err := Scan(context.Background(), "/empty", cfg)
	if !errors.Is(err, ErrPlan) {
		t.Fatalf("error = %v, want ErrPlan", err)
	}
}

type remoteExpander struct {
	files []string
}

func (e remoteExpander) Expand(_ context.Context, p string) (resolve.Listing, error) {
	return resolve.Listing{Files: e.files, Depth: len(resolve.Components(p))}, nil
}

// TestScanRemotePrefixEnablesPartitioning tests inference on an object store prefix.
func TestScanRemotePrefixEnablesPartitioning(t *testing.T) {
	var gotOpts *cloud.Options
	router := resolve.NewRouter(resolve.NewLocal(memfs.New()), resolve.WithRemote(
		func(_ context.Context, opts *cloud.Options) (resolve.Expander, error) {
			gotOpts = opts
			return remoteExpander{files: []string{
				"s3://bucket/events/date=2024-01-01/part-0.ipc",
				"s3://bucket/events/date=2024-01-02/part-0.ipc",
			}}, nil
		}))

	remote := &cloud.Options{Region: "eu-central-1"}
	cfg := DefaultScanConfig().WithRemote(remote)
	cfg.Resolver = router
	cfg.Builder = plan.NewBuilder(nil, nil)

	lf, err := Scan(context.Background(), "s3://bucket/events", cfg)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if gotOpts != remote {
		t.Error("remote options not forwarded to the resolver")
	}
	part := lf.Plan.Partitioning
	if part.Enabled != PartitioningOn || part.StartIndex == nil || *part.StartIndex != 4 {
		t.Errorf("partitioning = %s start %v, want enabled at 4", part.Enabled, part.StartIndex)
	}
	if len(lf.Plan.PartitionFields) != 1 || lf.Plan.PartitionFields[0].Name != "date" {
		t.Errorf("PartitionFields = %v", lf.Plan.PartitionFields)
	}
}

// TestFinishNoGlobPanics tests that the glob-unaware path is unreachable.
func TestFinishNoGlobPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("finishNoGlob must panic")
		}
	}()
	src := &ipcSource{cfg: DefaultScanConfig(), paths: []string{"/x"}}
	_, _ = src.finishNoGlob(context.Background())
}

type literalReader struct {
	noGlob bool
}

func (r *literalReader) globbing() bool { return false }

func (r *literalReader) finish(context.Context) (*plan.LazyFrame, error) {
	return nil, errors.New("glob path taken")
}

func (r *literalReader) finishNoGlob(context.Context) (*plan.LazyFrame, error) {
	r.noGlob = true
	return &plan.LazyFrame{}, nil
}

// TestFinishScanDispatch tests dispatch on glob support.
func TestFinishScanDispatch(t *testing.T) {
	r := &literalReader{}
	if _, err := finishScan(context.Background(), r); err != nil {
		t.Fatalf("finishScan() error = %v", err)
	}
	if !r.noGlob {
		t.Error("a reader without glob support must use finishNoGlob")
	}

	if !(&ipcSource{}).globbing() {
		t.Error("IPC scans must support globbing")
	}
}
