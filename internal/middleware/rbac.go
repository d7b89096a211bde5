package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/opencampus/course-portal-api/internal/models"
	appErrors "github.com/opencampus/course-portal-api/pkg/errors"
	"github.com/opencampus/course-portal-api/pkg/response"
)

// RequireRoles blocks requests from users outside the allowed roles. It must
// be mounted after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStudentIdentity rejects accounts with no linked academic record.
// Staff accounts can browse the catalog but cannot enroll.
func RequireStudentIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.StudentID == nil || *claims.StudentID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no student record"))
			c.Abort()
			return
		}
		c.Next()
	}
}
