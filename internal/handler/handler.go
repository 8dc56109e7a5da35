package handler

import (
	"agromed-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorFrom builds the acting identity from the values the auth middleware
// stored on the context.
func actorFrom(c *gin.Context) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				actor.ID = id
			}
		}
	}
	if v, ok := c.Get("userRole"); ok {
		if s, ok := v.(string); ok {
			actor.Role = s
		}
	}
	return actor
}
