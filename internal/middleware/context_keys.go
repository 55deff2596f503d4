package middleware

import "github.com/gin-gonic/gin"

// actorHeader identifies the caller for audit fields. Authentication is
// handled upstream of this service; the header carries the resolved identity.
const actorHeader = "X-Actor-ID"

// defaultActor is used when no actor header is supplied.
const defaultActor = "system"

// GetActorFromContext retrieves the acting identity for audit fields.
func GetActorFromContext(c *gin.Context) string {
	actor := c.GetHeader(actorHeader)
	if actor == "" {
		return defaultActor
	}
	return actor
}
