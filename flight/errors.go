package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/lazyscan/plan"
	"github.com/hugr-lab/lazyscan/resolve"
)

var (
	// ErrDatasetNotFound is returned when a requested dataset is not registered.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrAdHocDisabled is returned when ad-hoc path scans are not allowed.
	ErrAdHocDisabled = errors.New("ad-hoc scans are disabled")
	// ErrInvalidCommand is returned for malformed scan commands.
	ErrInvalidCommand = errors.New("invalid scan command")
)

// statusCode maps planning errors to gRPC codes.
func statusCode(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, ErrDatasetNotFound),
		errors.Is(err, resolve.ErrNotFound),
		errors.Is(err, resolve.ErrNoMatch):
		return codes.NotFound
	case errors.Is(err, resolve.ErrListing):
		return codes.Unavailable
	case errors.Is(err, ErrAdHocDisabled):
		return codes.PermissionDenied
	case errors.Is(err, ErrInvalidCommand),
		errors.Is(err, resolve.ErrResolution),
		errors.Is(err, plan.ErrPlan):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// planStatus converts a planning error into a gRPC status error.
// Errors that already carry a status are returned as is.
func planStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(statusCode(err), err.Error())
}
