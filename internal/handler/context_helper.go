package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nodues-go-api/internal/middleware"
	"github.com/noah-isme/nodues-go-api/internal/models"
)

// claimsFromContext returns the authenticated staff claims, or nil when the
// request did not pass through the JWT middleware.
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

// departmentAllowed checks that non-admin staff only act on their own
// department's rows. Department names compare case-insensitively to match
// the catalog's lookup rules.
func departmentAllowed(claims *models.JWTClaims, department string) bool {
	if claims.Role == models.RoleAdmin {
		return true
	}
	return strings.EqualFold(claims.DepartmentName, department)
}
