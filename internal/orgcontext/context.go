package orgcontext

import (
	"context"
	"strconv"
	"strings"

	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

// ActorContextKey is the request context key for the active actor identity.
type ActorContextKey struct{}

// WithActor stores the actor identity in the context.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, actor)
}

// ActorFromContext returns the actor identity from context, if set.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	if ctx == nil {
		return domain.Actor{}, false
	}
	if actor, ok := ctx.Value(ActorContextKey{}).(domain.Actor); ok {
		return actor, true
	}
	return domain.Actor{}, false
}

// ParseActor builds an actor from raw header values. Malformed values yield
// a zero field rather than an error; the classifier treats a zero actor as
// unrelated with no eligible actions.
func ParseActor(orgID, orgKind, userID string) domain.Actor {
	actor := domain.Actor{}

	if id, err := strconv.ParseInt(strings.TrimSpace(orgID), 10, 64); err == nil {
		actor.OrgID = id
	}
	kind := domain.OrgKind(strings.ToLower(strings.TrimSpace(orgKind)))
	if kind.Valid() {
		actor.OrgKind = kind
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64); err == nil {
		actor.UserID = id
	}

	if actor.OrgID == 0 || !actor.OrgKind.Valid() {
		actor.OrgID = 0
		actor.OrgKind = ""
	}
	return actor
}
