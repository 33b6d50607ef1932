// Package middleware holds peripheral, front-end concerns: user-agent
// allow-listing for callers of the inbound API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserAgentAllowList aborts with 403 unless the request's User-Agent header
// is in the configured allow-list. An empty allow-list permits everything —
// useful for local development where whitelistedUserAgentList is unset.
func UserAgentAllowList(allowed []string) gin.HandlerFunc {
	permitted := make(map[string]struct{}, len(allowed))
	for _, ua := range allowed {
		permitted[ua] = struct{}{}
	}

	return func(c *gin.Context) {
		if len(permitted) == 0 {
			c.Next()
			return
		}
		if _, ok := permitted[c.GetHeader("User-Agent")]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden user agent"})
			return
		}
		c.Next()
	}
}
