package flight

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListFlights returns one FlightInfo per registered dataset, planned on
// demand. The criteria expression, when set, keeps datasets whose name
// starts with it.
//
// Datasets the caller may not access are left out. A dataset that fails to
// plan is logged and skipped so one broken path does not hide the others.
func (s *Server) ListFlights(criteria *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := requestLogger(ctx, s.logger)

	prefix := string(criteria.GetExpression())
	logger.Debug("ListFlights called", "prefix", prefix)

	sent := 0
	for _, name := range s.planner.Datasets() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return status.FromContextError(err).Err()
		}

		desc := &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{name},
		}
		info, err := s.planDataset(ctx, logger, desc, name)
		if err != nil {
			code := status.Code(err)
			if code == codes.PermissionDenied {
				continue
			}
			logger.Warn("Skipping dataset that failed to plan", "dataset", name, "code", code, "error", err)
			continue
		}

		if err := stream.Send(info); err != nil {
			logger.Error("Failed to send FlightInfo", "error", err)
			return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
		}
		sent++
	}

	logger.Debug("ListFlights completed", "datasets", sent)
	return nil
}
