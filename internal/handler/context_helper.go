package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-plan-api/internal/middleware"
	"github.com/noah-isme/study-plan-api/internal/models"
	appErrors "github.com/noah-isme/study-plan-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// learnerFromContext resolves the authenticated learner id or an unauthorized error.
func learnerFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.LearnerID == "" {
		return "", appErrors.ErrUnauthorized
	}
	return claims.LearnerID, nil
}
