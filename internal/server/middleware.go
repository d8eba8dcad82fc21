package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tirta/internal/auditcontext"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// ActorContext puts the operator resolved by the upstream gateway on the
// request context. Requests without both headers carry no actor, and
// privileged operations reject them as unauthenticated.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		role := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorRole)))
		if id != "" && role != "" {
			ctx := auditcontext.WithActor(c.Request.Context(), auditcontext.Actor{
				Type: auditcontext.ActorTypeUser,
				ID:   id,
				Role: role,
			})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
