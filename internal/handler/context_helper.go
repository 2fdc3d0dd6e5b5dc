package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bimbel-api/internal/middleware"
	"github.com/noah-isme/bimbel-api/internal/models"
)

// currentClaims extracts the authenticated user's claims from the context.
func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}

// queryInt reads an integer query parameter with a fallback.
func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// pageParams reads the common page/page_size pair.
func pageParams(c *gin.Context) (int, int) {
	return queryInt(c, "page", 1), queryInt(c, "page_size", 20)
}
