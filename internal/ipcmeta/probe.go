// Package ipcmeta reads Arrow IPC file footers without decoding record
// batches. It backs the schema probe of the scan builder.
package ipcmeta

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/exp/mmap"

	"github.com/hugr-lab/lazyscan/cloud"
	"github.com/hugr-lab/lazyscan/plan"
)

// ErrNotIPC is returned for files without a valid IPC footer.
var ErrNotIPC = errors.New("ipcmeta: not an arrow ipc file")

// ObjectGetter is the subset of the S3 client used to fetch remote files.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// GetterFactory builds an ObjectGetter for the remote options of a scan.
type GetterFactory func(ctx context.Context, opts *cloud.Options) (ObjectGetter, error)

// Probe implements plan.SchemaProbe over a billy filesystem and S3.
type Probe struct {
	fs     billy.Filesystem
	mmap   bool
	remote GetterFactory
	alloc  memory.Allocator
	logger *slog.Logger
}

var _ plan.SchemaProbe = (*Probe)(nil)

// Option configures a Probe.
type Option func(*Probe)

// WithRemote replaces the S3 client factory.
func WithRemote(f GetterFactory) Option {
	return func(p *Probe) { p.remote = f }
}

// WithAllocator sets the allocator used while reading footers.
func WithAllocator(alloc memory.Allocator) Option {
	return func(p *Probe) { p.alloc = alloc }
}

// WithLogger sets the probe logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Probe) { p.logger = logger }
}

// NewProbe creates a probe reading local files through fs.
// Memory mapping is never used: fs need not be backed by the OS.
func NewProbe(fs billy.Filesystem, opts ...Option) *Probe {
	p := &Probe{
		fs:     fs,
		remote: defaultRemote,
		alloc:  memory.DefaultAllocator,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewOSProbe creates a probe over the OS filesystem that honours the
// memory-map option of a scan.
func NewOSProbe(opts ...Option) *Probe {
	p := NewProbe(osfs.New(""), opts...)
	p.mmap = true
	return p
}

func defaultRemote(ctx context.Context, opts *cloud.Options) (ObjectGetter, error) {
	client, err := cloud.NewS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// FileSchema returns the schema stored in the footer of path.
func (p *Probe) FileSchema(ctx context.Context, path string, format plan.IPCOptions, remote *cloud.Options) (*arrow.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cloud.IsURL(path) {
		return p.remoteSchema(ctx, path, remote)
	}
	if p.mmap && format.MemoryMap {
		return p.mappedSchema(path)
	}

	f, err := p.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ipcmeta: open %q: %w", path, err)
	}
	defer f.Close()

	return p.readSchema(f, path)
}

func (p *Probe) mappedSchema(path string) (*arrow.Schema, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ipcmeta: map %q: %w", path, err)
	}
	defer m.Close()

	return p.readSchema(io.NewSectionReader(m, 0, int64(m.Len())), path)
}

// remoteSchema fetches the whole object.
// TODO: read the footer with two ranged GETs (trailer, then metadata block).
func (p *Probe) remoteSchema(ctx context.Context, path string, opts *cloud.Options) (*arrow.Schema, error) {
	u, err := cloud.Parse(path)
	if err != nil {
		return nil, err
	}
	if !u.IsS3() {
		return nil, fmt.Errorf("ipcmeta: %q: %w", path, cloud.ErrUnsupportedScheme)
	}

	client, err := p.remote(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("ipcmeta: s3 client: %w", err)
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(u.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("ipcmeta: get %q: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("ipcmeta: read %q: %w", path, err)
	}
	p.logger.Debug("Fetched remote IPC file", "path", path, "bytes", len(data))

	return p.readSchema(bytes.NewReader(data), path)
}

func (p *Probe) readSchema(r ipc.ReadAtSeeker, path string) (*arrow.Schema, error) {
	rdr, err := ipc.NewFileReader(r, ipc.WithAllocator(p.alloc))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrNotIPC, path, err)
	}
	defer rdr.Close()

	return rdr.Schema(), nil
}
