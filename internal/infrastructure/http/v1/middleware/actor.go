package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "stockledger/internal/core/context"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderSessionID = "X-Session-ID"
)

// Actor middleware captures who is making the request.
// Identity headers are trusted here because authentication is handled
// upstream (gateway); the ledger stamps these onto every entry.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := &appctx.Actor{
			UserID:    c.GetHeader(HeaderUserID),
			Role:      c.GetHeader(HeaderUserRole),
			SessionID: c.GetHeader(HeaderSessionID),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}

		ctx := appctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)

		if actor.UserID != "" {
			c.Set("user_id", actor.UserID)
		}

		c.Next()
	}
}
