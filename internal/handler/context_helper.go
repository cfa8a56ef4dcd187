package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gradtrack/mentor-api/internal/middleware"
	"github.com/gradtrack/mentor-api/internal/models"
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

// actorFrom returns the identifier stamped into tracking fields for writes.
func actorFrom(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return "system"
	}
	if claims.Email != "" {
		return claims.Email
	}
	return claims.UserID
}

func parseActiveQuery(c *gin.Context) *bool {
	switch c.Query("active") {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}

func parsePageQuery(c *gin.Context) (page, size int) {
	page, size = 1, 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}
