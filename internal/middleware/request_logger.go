package middleware

import (
	"io"
	"time"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestLogger records timestamp, method and path of every inbound
// request and always passes control on.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		log.WithFields(logrus.Fields{
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": requestID,
		}).Info("Incoming request")

		c.Next()
	}
}

// AccessLog emits one structured line per completed request with status
// and latency.
func AccessLog(out io.Writer) gin.HandlerFunc {
	return ginlog.SetLogger(
		ginlog.WithWriter(out),
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/health"}),
		ginlog.WithLogger(func(c *gin.Context, l zerolog.Logger) zerolog.Logger {
			return l.With().Str(RequestIDKey, c.GetString(RequestIDKey)).Logger()
		}),
	)
}
