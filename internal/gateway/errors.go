package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type notFoundResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
	Method  string `json:"method"`
}

type serverErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func (g *Gateway) notFound(c *gin.Context) {
	path := c.Request.RequestURI
	if path == "" {
		path = c.Request.URL.RequestURI()
	}
	g.log.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   path,
	}).Warn("Route not found")

	c.JSON(http.StatusNotFound, notFoundResponse{
		Message: "Route not found",
		Path:    path,
		Method:  c.Request.Method,
	})
}

// errorHandler turns errors attached with c.Error, and panics, into a 500.
// The underlying message is only exposed outside production.
func errorHandler(log logrus.FieldLogger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			if errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			handleServerError(c, log, err, production)
		}()

		c.Next()

		if err := c.Errors.Last(); err != nil {
			handleServerError(c, log, err.Err, production)
		}
	}
}

func handleServerError(c *gin.Context, log logrus.FieldLogger, err error, production bool) {
	entry := log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
	if c.Writer.Written() {
		entry.WithField("status", c.Writer.Status()).Warn("Request error after response was written")
		return
	}
	entry.Error("Server error")

	body := serverErrorResponse{Message: "Internal server error"}
	if !production {
		body.Error = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
