package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/encounter-api/pkg/httputil"
)

// ErrorHandler writes the error envelope for handlers that recorded an error
// with c.Error but did not respond.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		httputil.RespondWithError(c, c.Errors.Last().Err)
	}
}
