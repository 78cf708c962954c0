package swaggerserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Result is what a bound handler returns: the response status, the body
// content and any headers to set.
type Result struct {
	Status  int
	Content any
	Headers map[string]string
}

// NewResult builds a Result. A nil content becomes an empty JSON object and
// nil headers become an empty map. The status is not validated.
func NewResult(status int, content any, headers map[string]string) Result {
	if content == nil {
		content = map[string]any{}
	}
	if headers == nil {
		headers = map[string]string{}
	}
	return Result{Status: status, Content: content, Headers: headers}
}

// write sends r to the client. Headers are set, replacing any existing
// value. A status outside 100-999 is answered with a 500 problem. A Content-Type header from the handler wins over the default chosen
// for the content.
func (r Result) write(c *gin.Context) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	if !validStatus(status) {
		writeProblem(c, fmt.Errorf("handler returned invalid status %d", r.Status))
		return
	}
	for k, v := range r.Headers {
		c.Header(k, v)
	}
	switch body := r.Content.(type) {
	case nil:
		c.Status(status)
	case string:
		c.Data(status, "text/plain; charset=utf-8", []byte(body))
	case []byte:
		c.Data(status, "application/octet-stream", body)
	default:
		c.JSON(status, body)
	}
}
