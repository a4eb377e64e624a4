package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hostelhq/maintenance-api/internal/dto"
	"github.com/hostelhq/maintenance-api/internal/middleware"
	"github.com/hostelhq/maintenance-api/internal/models"
)

// bindJSON decodes the body and runs the payload's validation rules.
func bindJSON(c *gin.Context, payload interface{}) error {
	if err := c.ShouldBindJSON(payload); err != nil {
		return err
	}
	return dto.Validate(payload)
}

func claimsFromContext(c *gin.Context) *models.ActorClaims {
	value, exists := c.Get(middleware.ContextActorKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.ActorClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorIDFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.ActorID
}
