package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindease/booking-api/internal/handler"
	"github.com/mindease/booking-api/pkg/logger"
)

// Recovery converts panics into a 500 response instead of dropping the
// connection.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error(fmt.Errorf("panic: %v", rec), "panic recovered",
					"path", c.Request.URL.Path,
					"request_id", c.GetString("request_id"),
				)
				c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
				c.Abort()
			}
		}()
		c.Next()
	}
}
