package flight

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/lazyscan/internal/recovery"
	"github.com/hugr-lab/lazyscan/plan"
)

// GetFlightInfo plans a scan and returns its schema and file endpoints.
//
// Descriptors:
//   - PATH [dataset]: plan a registered dataset
//   - CMD: plan the MessagePack encoded ScanCommand
//
// Returns FlightInfo with:
//   - Schema: output schema of the scan (row index, file and partition columns)
//   - Endpoints: one per resolved file, in resolution order
//   - AppMetadata: the rendered plan
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)
	logger := requestLogger(ctx, s.logger)

	logger.Debug("GetFlightInfo called",
		"type", desc.GetType(),
		"path_length", len(desc.GetPath()),
	)

	switch desc.GetType() {
	case flight.DescriptorPATH:
		path := desc.GetPath()
		if len(path) != 1 {
			return nil, status.Error(codes.InvalidArgument, "path must contain exactly 1 element: [dataset]")
		}
		return s.planDataset(ctx, logger, desc, path[0])
	case flight.DescriptorCMD:
		cmd, err := DecodeCommand(desc.GetCmd())
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return s.planCommand(ctx, logger, desc, cmd)
	default:
		return nil, status.Error(codes.InvalidArgument, "descriptor must be PATH or CMD type")
	}
}

func (s *Server) planDataset(ctx context.Context, logger *slog.Logger, desc *flight.FlightDescriptor, name string) (*flight.FlightInfo, error) {
	ctx, err := s.authorize(ctx, name)
	if err != nil {
		return nil, status.Errorf(codes.PermissionDenied, "dataset authorization failed: %v", err)
	}

	lf, err := recovery.RecoverToValue(logger, "PlanDataset", func() (*plan.LazyFrame, error) {
		return s.planner.PlanDataset(ctx, name)
	})
	if err != nil {
		logger.Error("Failed to plan dataset", "dataset", name, "error", err)
		return nil, planStatus(err)
	}
	return s.flightInfo(logger, desc, name, lf)
}

func (s *Server) planCommand(ctx context.Context, logger *slog.Logger, desc *flight.FlightDescriptor, cmd *ScanCommand) (*flight.FlightInfo, error) {
	ctx, err := s.authorize(ctx, "")
	if err != nil {
		return nil, status.Errorf(codes.PermissionDenied, "scan authorization failed: %v", err)
	}

	lf, err := recovery.RecoverToValue(logger, "PlanCommand", func() (*plan.LazyFrame, error) {
		return s.planner.PlanCommand(ctx, cmd)
	})
	if err != nil {
		logger.Error("Failed to plan scan command", "paths", cmd.Paths, "error", err)
		return nil, planStatus(err)
	}
	return s.flightInfo(logger, desc, "", lf)
}

// flightInfo renders a planned frame. dataset is empty for ad-hoc scans.
func (s *Server) flightInfo(logger *slog.Logger, desc *flight.FlightDescriptor, dataset string, lf *plan.LazyFrame) (*flight.FlightInfo, error) {
	if lf == nil || lf.Plan == nil || lf.Plan.Schema == nil {
		return nil, status.Error(codes.Internal, "planner returned an incomplete plan")
	}
	node := lf.Plan

	tickets := fileTickets(dataset, node)
	endpoints := make([]*flight.FlightEndpoint, 0, len(tickets))
	for _, t := range tickets {
		data, err := s.tickets.Encode(t)
		if err != nil {
			logger.Error("Failed to encode ticket", "path", t.Path, "error", err)
			return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
		}

		endpoint := &flight.FlightEndpoint{
			Ticket: &flight.Ticket{Ticket: data},
		}
		// Add location if server address is configured
		if s.address != "" {
			endpoint.Location = []*flight.Location{
				{Uri: "grpc://" + s.address},
			}
		}
		endpoints = append(endpoints, endpoint)
	}

	info := &flight.FlightInfo{
		Schema:           flight.SerializeSchema(node.Schema, s.allocator),
		FlightDescriptor: desc,
		Endpoint:         endpoints,
		TotalRecords:     -1, // Unknown until read
		TotalBytes:       -1,
		Ordered:          true,
		AppMetadata:      []byte(lf.Explain()),
	}

	logger.Debug("GetFlightInfo successful",
		"dataset", dataset,
		"files", len(endpoints),
		"num_fields", node.Schema.NumFields(),
		"hive", node.Partitioning.Enabled,
	)
	return info, nil
}
