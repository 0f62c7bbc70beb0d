package middlewares

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/metrika/internal/misc"
)

// VerifyHashSHA256 rejects requests whose HashSHA256 header does not match
// the HMAC of the (decompressed) body. Install it after GzipRequest: the
// worker signs the raw JSON, not the gzip stream. Requests without the
// header pass through; an empty key disables verification entirely.
func VerifyHashSHA256(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	if key == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		got := strings.TrimSpace(c.GetHeader("HashSHA256"))
		if got == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
			return
		}
		if err := c.Request.Body.Close(); err != nil {
			_ = c.Error(err)
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if len(body) > 0 && !misc.ValidSignature(body, key, got) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid hash"})
			return
		}
		c.Next()
	}
}
