package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/httputil"
)

// DefaultMaxBodySize fits a full consultation note with room to spare.
const DefaultMaxBodySize = 1 << 20

// SizeLimit rejects bodies above max bytes. Bodies without a declared length
// are capped by MaxBytesReader and fail at bind time.
func SizeLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			httputil.AbortWithError(c, errors.Validationf("request body exceeds %d bytes", max))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
