package server

import (
	"github.com/gin-gonic/gin"
	"github.com/orgmesh/orgmesh/internal/orgcontext"
	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

const (
	HeaderOrgID   = "X-Org-ID"
	HeaderOrgKind = "X-Org-Kind"
	HeaderUserID  = "X-User-ID"
)

// ActorContext resolves the actor identity from request headers and injects
// it into the request context. Malformed headers produce a zero actor, never
// an error; downstream classification treats a zero actor as unrelated.
func (s *Server) ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := orgcontext.ParseActor(
			c.GetHeader(HeaderOrgID),
			c.GetHeader(HeaderOrgKind),
			c.GetHeader(HeaderUserID),
		)
		ctx := orgcontext.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	actor, _ := orgcontext.ActorFromContext(c.Request.Context())
	return actor
}
