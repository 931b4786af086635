package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireDSpaceSession chặn các route cần session DSpace khi request không
// mang cookie JSESSIONID. Server không giữ session, chỉ relay cookie của client.
func RequireDSpaceSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie := c.GetHeader("Cookie")
		if !strings.Contains(cookie, "JSESSIONID") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Chưa đăng nhập DSpace"})
			c.Abort()
			return
		}
		c.Next()
	}
}
