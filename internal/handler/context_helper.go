package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tutordesk/tutordesk-api/internal/middleware"
	"github.com/tutordesk/tutordesk-api/internal/models"
	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
	"github.com/tutordesk/tutordesk-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.TutorClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.TutorClaims)
	if !ok {
		return nil
	}
	return claims
}

// tutorID resolves the authenticated tutor or writes a 401 and reports false.
func tutorID(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.TutorID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.TutorID, true
}
