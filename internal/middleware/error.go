package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/echocare/caregiver-api/internal/handler"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

// ErrorHandler renders the last error recorded with c.Error as the
// standard envelope stamped with the request id. Application errors keep
// their status, message and field errors; anything else becomes a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		if appErr, ok := apperrors.As(lastErr); ok {
			c.JSON(appErr.StatusCode(), handler.NewAppErrorResponse(appErr).WithRequestID(requestID))
			return
		}

		status := http.StatusInternalServerError
		if err, ok := lastErr.(interface{ StatusCode() int }); ok {
			status = err.StatusCode()
		}
		c.JSON(status, handler.NewErrorResponse(lastErr.Error()).WithRequestID(requestID))
	}
}
