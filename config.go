package lazyscan

import (
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/lazyscan/auth"
	"github.com/hugr-lab/lazyscan/cloud"
	"github.com/hugr-lab/lazyscan/plan"
	"github.com/hugr-lab/lazyscan/resolve"
)

// Toggle is the three-way partition discovery switch.
type Toggle = plan.Toggle

const (
	// PartitioningAuto lets the scan infer partition discovery from the input shape.
	PartitioningAuto = plan.ToggleUnset
	// PartitioningOff disables partition discovery.
	PartitioningOff = plan.ToggleDisabled
	// PartitioningOn enables partition discovery.
	PartitioningOn = plan.ToggleEnabled
)

// RowIndex requests a synthetic row-number column.
type RowIndex = plan.RowIndex

// PartitionOptions controls hive partition discovery.
type PartitionOptions = plan.PartitionOptions

// ScanConfig configures one IPC scan.
// It is a value type: every call works on its own copy.
type ScanConfig struct {
	// RowLimit caps the number of rows read.
	// OPTIONAL: nil means unbounded.
	RowLimit *uint64

	// Cache lets structurally identical scans within one query share a read.
	// Default: true.
	Cache bool

	// Rechunk coalesces column chunks after reading.
	// Default: false.
	Rechunk bool

	// RowIndex injects a synthetic row-number column.
	// OPTIONAL: nil means no row index.
	RowIndex *RowIndex

	// MemoryMap maps files into memory instead of copying them.
	// Default: true.
	MemoryMap bool

	// Remote is forwarded untouched to the resolver and the schema probe
	// when paths refer to object storage.
	// OPTIONAL.
	Remote *cloud.Options

	// Partitioning controls hive partition discovery.
	// Default: Enabled == PartitioningAuto.
	Partitioning PartitionOptions

	// Resolver expands paths into files.
	// OPTIONAL: uses resolve.NewRouter over the OS filesystem if nil.
	Resolver resolve.Resolver

	// Builder turns the resolved scan into a plan node.
	// OPTIONAL: uses plan.NewBuilder with an IPC footer probe if nil.
	Builder plan.Builder

	// Logger for scan construction.
	// OPTIONAL: uses slog.Default() if nil.
	Logger *slog.Logger
}

// DefaultScanConfig returns the documented defaults.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Cache:     true,
		MemoryMap: true,
	}
}

// WithRowLimit returns a copy of c reading at most n rows.
func (c ScanConfig) WithRowLimit(n uint64) ScanConfig {
	c.RowLimit = &n
	return c
}

// WithRowIndex returns a copy of c that injects a row index column.
func (c ScanConfig) WithRowIndex(name string, offset uint32) ScanConfig {
	c.RowIndex = &RowIndex{Name: name, Offset: offset}
	return c
}

// WithHivePartitioning returns a copy of c with an explicit discovery decision.
func (c ScanConfig) WithHivePartitioning(enabled bool) ScanConfig {
	c.Partitioning.Enabled = plan.ToggleOf(enabled)
	return c
}

// WithRemote returns a copy of c using opts for object storage.
func (c ScanConfig) WithRemote(opts *cloud.Options) ScanConfig {
	c.Remote = opts
	return c
}

// Dataset is a named scan served by the planning service.
type Dataset struct {
	// Path is a file, directory, glob pattern or object storage URL.
	// REQUIRED.
	Path string

	// Config is the scan configuration for the dataset.
	// OPTIONAL: the zero value is replaced by DefaultScanConfig(). A partial
	// config should start from DefaultScanConfig(), since Cache and MemoryMap
	// are otherwise off.
	// Resolver, Builder and Logger default to the server's.
	Config ScanConfig
}

// ServerConfig contains configuration for the Flight planning server.
type ServerConfig struct {
	// Datasets maps dataset names to their scans.
	// REQUIRED: at least one dataset unless AllowAdHoc is set.
	Datasets map[string]Dataset

	// Auth provides authentication logic.
	// OPTIONAL: If nil, no authentication (all requests allowed).
	// An Authenticator that also implements auth.DatasetAuthorizer is
	// consulted for every dataset and ad-hoc scan.
	Auth auth.Authenticator

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// If LogLevel is set and Logger is nil, a text logger with that level is created.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	MaxMessageSize int

	// Address is the server's public address (e.g., "localhost:50051").
	// OPTIONAL: If empty, endpoints carry no location.
	Address string

	// Resolver and Builder are shared by all scans that do not set their own.
	// OPTIONAL.
	Resolver resolve.Resolver
	Builder  plan.Builder

	// AllowAdHoc accepts CMD descriptors naming arbitrary paths.
	// Default: false, only registered datasets can be planned.
	AllowAdHoc bool
}

// Standard errors returned by lazyscan package.
var (
	// ErrResolution matches every path expansion failure.
	ErrResolution = resolve.ErrResolution

	// ErrPlan matches every option combination rejected by the plan builder.
	ErrPlan = plan.ErrPlan

	// ErrUnauthorized indicates authentication failed.
	// Return this from Authenticator.Authenticate() for invalid tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidConfig indicates ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid server config")
)
