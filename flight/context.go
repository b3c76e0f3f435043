package flight

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/metadata"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey int

const (
	metaKey contextKey = iota
)

// Metadata header keys for observability.
const (
	// HeaderTraceID is the gRPC metadata header for distributed trace identifier.
	HeaderTraceID = "lazyscan-trace-id"
	// HeaderSessionID is the gRPC metadata header for client session identifier.
	HeaderSessionID = "lazyscan-client-session-id"
)

// ContextMeta holds request metadata extracted from gRPC headers.
type ContextMeta struct {
	TraceID   string
	SessionID string
}

// WithContextMeta stores meta in ctx.
func WithContextMeta(ctx context.Context, meta ContextMeta) context.Context {
	return context.WithValue(ctx, metaKey, &meta)
}

// MetaFromContext returns the stored metadata or nil.
func MetaFromContext(ctx context.Context) *ContextMeta {
	meta, _ := ctx.Value(metaKey).(*ContextMeta)
	return meta
}

// EnrichContextMetadata extracts metadata from gRPC context and
// returns a new context with the metadata stored.
// If the context is already enriched, it is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if MetaFromContext(ctx) != nil {
		return ctx
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	var meta ContextMeta
	if values := md.Get(HeaderTraceID); len(values) > 0 {
		meta.TraceID = values[0]
	}
	if values := md.Get(HeaderSessionID); len(values) > 0 {
		meta.SessionID = values[0]
	}
	return WithContextMeta(ctx, meta)
}

// requestLogger returns logger annotated with the request metadata of ctx.
func requestLogger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	meta := MetaFromContext(ctx)
	if meta == nil {
		return logger
	}
	if meta.TraceID != "" {
		logger = logger.With("trace_id", meta.TraceID)
	}
	if meta.SessionID != "" {
		logger = logger.With("session_id", meta.SessionID)
	}
	return logger
}
