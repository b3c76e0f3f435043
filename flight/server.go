// Package flight provides the Flight RPC handlers of the planning service.
//
// The service plans scans: GetFlightInfo and ListFlights resolve paths,
// infer hive partitioning and return the output schema with one endpoint
// per file. Tickets describe a single file read; executing them is left to
// the reader side.
package flight

import (
	"context"
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/lazyscan/auth"
	"github.com/hugr-lab/lazyscan/plan"
)

// Planner plans the scans served by the service.
// Implementations MUST be goroutine-safe.
type Planner interface {
	// Datasets lists registered dataset names in a stable order.
	Datasets() []string

	// PlanDataset plans a registered dataset.
	// Unknown names return an error matching ErrDatasetNotFound.
	PlanDataset(ctx context.Context, name string) (*plan.LazyFrame, error)

	// PlanCommand plans an ad-hoc scan.
	// Return ErrAdHocDisabled to refuse ad-hoc scans.
	PlanCommand(ctx context.Context, cmd *ScanCommand) (*plan.LazyFrame, error)
}

// Options configures a Server.
type Options struct {
	// Planner is REQUIRED.
	Planner Planner
	// Authorizer restricts datasets per identity. OPTIONAL.
	Authorizer auth.DatasetAuthorizer
	// Allocator serializes schemas. OPTIONAL: memory.DefaultAllocator.
	Allocator memory.Allocator
	// Logger OPTIONAL: slog.Default().
	Logger *slog.Logger
	// Address is the public address put into endpoint locations. OPTIONAL.
	Address string
}

// Server implements the Flight service handlers.
// Embeds BaseFlightServer for forward compatibility with protocol changes;
// RPCs other than GetFlightInfo and ListFlights report Unimplemented.
type Server struct {
	flight.BaseFlightServer

	planner    Planner
	authorizer auth.DatasetAuthorizer
	allocator  memory.Allocator
	logger     *slog.Logger
	address    string // Server's public address for FlightEndpoint locations
	tickets    *TicketCodec
}

// NewServer creates a Flight server. Call Close to release the ticket codec.
func NewServer(opts Options) (*Server, error) {
	if opts.Planner == nil {
		return nil, errors.New("flight: planner is required")
	}
	if opts.Allocator == nil {
		opts.Allocator = memory.DefaultAllocator
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	codec, err := NewTicketCodec()
	if err != nil {
		return nil, err
	}

	return &Server{
		planner:    opts.Planner,
		authorizer: opts.Authorizer,
		allocator:  opts.Allocator,
		logger:     opts.Logger,
		address:    opts.Address,
		tickets:    codec,
	}, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.tickets.Close()
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}

// authorize consults the dataset authorizer, if any.
// dataset is empty for ad-hoc scans.
func (s *Server) authorize(ctx context.Context, dataset string) (context.Context, error) {
	if s.authorizer == nil {
		return ctx, nil
	}
	return s.authorizer.AuthorizeDataset(ctx, dataset)
}
