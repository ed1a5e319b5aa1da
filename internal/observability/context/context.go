// Package obscontext carries correlation identifiers through request
// contexts so logs, traces, and metrics can be joined per request.
package obscontext

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type orgIDKey struct{}
type actorKey struct{}

type actorValue struct {
	kind string
	id   string
}

// WithRequestID stores the request correlation id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

// RequestIDFromContext returns the request correlation id, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithOrgID stores the acting organization id in the context.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDKey{}, strings.TrimSpace(orgID))
}

// OrgIDFromContext returns the acting organization id, or "".
func OrgIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(orgIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithActor stores the actor kind and id in the context.
func WithActor(ctx context.Context, kind, id string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorValue{
		kind: strings.TrimSpace(kind),
		id:   strings.TrimSpace(id),
	})
}

// ActorFromContext returns the actor kind and id, or empty strings.
func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	if actor, ok := ctx.Value(actorKey{}).(actorValue); ok {
		return actor.kind, actor.id
	}
	return "", ""
}
