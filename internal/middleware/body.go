package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	size "github.com/gin-contrib/size"
	"github.com/gin-gonic/gin"
)

const (
	// FormKey holds the nested map produced by URLEncodedBody.
	FormKey = "codebuddy.form"

	mimeForm = "application/x-www-form-urlencoded"
)

var errBodyTooLarge = errors.New("request entity too large")

// JSONBody buffers application/json bodies up to limit bytes and rejects
// oversized (413) or malformed (400) payloads before any handler runs.
// Handlers can still bind the body as usual.
func JSONBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasBody(c.Request) || c.ContentType() != gin.MIMEJSON {
			c.Next()
			return
		}

		body, err := readLimited(c.Request, limit)
		if err != nil {
			abortBody(c, err)
			return
		}

		if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON payload"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// URLEncodedBody parses form bodies, including bracketed keys such as
// user[name]=x or tags[]=a, into a nested map stored under FormKey.
func URLEncodedBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasBody(c.Request) || c.ContentType() != mimeForm {
			c.Next()
			return
		}

		body, err := readLimited(c.Request, limit)
		if err != nil {
			abortBody(c, err)
			return
		}

		values, err := url.ParseQuery(string(body))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid form payload"})
			return
		}
		form, err := ParseNestedForm(values)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		c.Set(FormKey, form)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// BodyLimit caps every request body at limit bytes whatever its content
// type. A declared Content-Length over the limit is refused up front;
// chunked bodies are cut off while the handler reads them.
func BodyLimit(limit int64) gin.HandlerFunc {
	capped := size.RequestSizeLimiter(limit)
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			abortBody(c, errBodyTooLarge)
			return
		}
		capped(c)
	}
}

// NestedForm returns the parsed form body, or nil when the request had none.
func NestedForm(c *gin.Context) map[string]any {
	v, ok := c.Get(FormKey)
	if !ok {
		return nil
	}
	form, _ := v.(map[string]any)
	return form
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody
}

func readLimited(r *http.Request, limit int64) ([]byte, error) {
	if r.ContentLength > limit {
		return nil, errBodyTooLarge
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func abortBody(c *gin.Context, err error) {
	if errors.Is(err, errBodyTooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Request entity too large"})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Could not read request body"})
}
