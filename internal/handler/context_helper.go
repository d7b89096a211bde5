package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opencampus/course-portal-api/internal/middleware"
	"github.com/opencampus/course-portal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}
