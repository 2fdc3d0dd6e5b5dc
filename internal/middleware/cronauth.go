package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/response"
)

// CronAuth protects the batch endpoints with a shared bearer secret. All
// cron routes authenticate the same way; an empty configured secret
// rejects every request.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if secret == "" || subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid cron secret"))
			c.Abort()
			return
		}
		c.Next()
	}
}
