package lazyscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/lazyscan/auth"
	"github.com/hugr-lab/lazyscan/flight"
	"github.com/hugr-lab/lazyscan/internal/ipcmeta"
	"github.com/hugr-lab/lazyscan/plan"
	"github.com/hugr-lab/lazyscan/resolve"
)

// NewServer registers the Flight planning service on the provided gRPC server.
//
// The function:
//  1. Validates the ServerConfig
//  2. Creates the Flight service over the configured datasets
//  3. Registers it on grpcServer
//
// Does NOT start the gRPC server - user controls lifecycle via grpcServer.Serve().
//
// For authentication, create the gRPC server with ServerOptions:
//
//	config := lazyscan.ServerConfig{
//	    Datasets: map[string]lazyscan.Dataset{
//	        "events": {Path: "/data/events", Config: lazyscan.DefaultScanConfig()},
//	    },
//	    Auth: lazyscan.BearerAuth(validateToken),
//	}
//	grpcServer := grpc.NewServer(lazyscan.ServerOptions(config)...)
//	if err := lazyscan.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) error {
	srv, err := newFlightServer(config)
	if err != nil {
		return err
	}
	flight.RegisterFlightServer(grpcServer, srv)
	return nil
}

func newFlightServer(config ServerConfig) (*flight.Server, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := serverLogger(config)

	planner := newDatasetPlanner(config, allocator, logger)

	var authorizer auth.DatasetAuthorizer
	if da, ok := config.Auth.(auth.DatasetAuthorizer); ok {
		authorizer = da
	}

	srv, err := flight.NewServer(flight.Options{
		Planner:    planner,
		Authorizer: authorizer,
		Allocator:  allocator,
		Logger:     logger,
		Address:    config.Address,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Flight planning server registered",
		"datasets", len(config.Datasets),
		"ad_hoc", config.AllowAdHoc,
		"has_auth", config.Auth != nil,
		"max_message_size", config.MaxMessageSize,
	)
	return srv, nil
}

// validateConfig checks that required ServerConfig fields are valid.
func validateConfig(config ServerConfig) error {
	if len(config.Datasets) == 0 && !config.AllowAdHoc {
		return errors.New("at least one dataset is required")
	}
	for name, ds := range config.Datasets {
		if name == "" {
			return errors.New("dataset name cannot be empty")
		}
		if ds.Path == "" {
			return fmt.Errorf("dataset %q has no path", name)
		}
	}
	return nil
}

func serverLogger(config ServerConfig) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options with authentication interceptors.
// Use this when creating a gRPC server if you want authentication enabled.
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	var opts []grpc.ServerOption

	if config.Auth != nil {
		opts = append(opts,
			grpc.UnaryInterceptor(auth.UnaryServerInterceptor(config.Auth)),
			grpc.StreamInterceptor(auth.StreamServerInterceptor(config.Auth)),
		)
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}

	return opts
}

// datasetPlanner implements flight.Planner over the configured datasets.
type datasetPlanner struct {
	datasets map[string]Dataset
	names    []string
	resolver resolve.Resolver
	builder  plan.Builder
	logger   *slog.Logger
	adHoc    bool
}

func newDatasetPlanner(config ServerConfig, allocator memory.Allocator, logger *slog.Logger) *datasetPlanner {
	p := &datasetPlanner{
		datasets: make(map[string]Dataset, len(config.Datasets)),
		resolver: config.Resolver,
		builder:  config.Builder,
		logger:   logger,
		adHoc:    config.AllowAdHoc,
	}
	for name, ds := range config.Datasets {
		if ds.Config == (ScanConfig{}) {
			ds.Config = DefaultScanConfig()
		}
		p.datasets[name] = ds
		p.names = append(p.names, name)
	}
	slices.Sort(p.names)

	if p.resolver == nil {
		p.resolver = resolve.NewRouter(nil, resolve.WithLogger(logger))
	}
	if p.builder == nil {
		probe := ipcmeta.NewOSProbe(ipcmeta.WithAllocator(allocator), ipcmeta.WithLogger(logger))
		p.builder = plan.NewBuilder(probe, logger)
	}
	return p
}

func (p *datasetPlanner) Datasets() []string {
	return slices.Clone(p.names)
}

func (p *datasetPlanner) PlanDataset(ctx context.Context, name string) (*plan.LazyFrame, error) {
	ds, ok := p.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", flight.ErrDatasetNotFound, name)
	}
	return Scan(ctx, ds.Path, p.withDefaults(ds.Config))
}

func (p *datasetPlanner) PlanCommand(ctx context.Context, cmd *flight.ScanCommand) (*plan.LazyFrame, error) {
	if !p.adHoc {
		return nil, flight.ErrAdHocDisabled
	}

	toggle, err := cmd.PartitionToggle()
	if err != nil {
		return nil, err
	}

	cfg := DefaultScanConfig()
	cfg.RowLimit = cmd.RowLimit
	cfg.Partitioning.Enabled = toggle
	if cmd.RowIndexName != "" {
		cfg = cfg.WithRowIndex(cmd.RowIndexName, cmd.RowIndexOffset)
	}
	if cmd.MemoryMap != nil {
		cfg.MemoryMap = *cmd.MemoryMap
	}
	return ScanMany(ctx, cmd.Paths, p.withDefaults(cfg))
}

func (p *datasetPlanner) withDefaults(cfg ScanConfig) ScanConfig {
	if cfg.Resolver == nil {
		cfg.Resolver = p.resolver
	}
	if cfg.Builder == nil {
		cfg.Builder = p.builder
	}
	if cfg.Logger == nil {
		cfg.Logger = p.logger
	}
	return cfg
}
