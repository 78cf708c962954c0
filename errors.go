package swaggerserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Setup errors. Build fails with one of these, wrapped in a *BindError when
// the failure belongs to a specific operation.
var (
	ErrInvalidSpecFormat        = errors.New("invalid spec format")
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")
	ErrMissingOperationID       = errors.New("operationId not provided")
	ErrMissingImplementation    = errors.New("implementation not given")
	ErrHandlerSignature         = errors.New("handler signature mismatch")
	ErrUnsupportedType          = errors.New("unsupported argument type")
	ErrRouteConflict            = errors.New("route conflict")
	ErrPathTemplate             = errors.New("unsupported path template")
)

// ErrUnparsableValue reports a request value that cannot be converted to
// the declared parameter type. It is answered with 400 Bad Request.
var ErrUnparsableValue = errors.New("unparsable value")

// BindError attributes a setup failure to the path template, method and
// operation it was found in.
type BindError struct {
	Path        string
	Method      string
	OperationID string
	Err         error
}

func (e *BindError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.OperationID != "" {
		fmt.Fprintf(&b, " for operation %q", e.OperationID)
	}
	fmt.Fprintf(&b, " for '%s' at path '%s'", strings.ToLower(e.Method), e.Path)
	return b.String()
}

func (e *BindError) Unwrap() error { return e.Err }

// ParamError reports a parameter that could not be extracted or converted
// while serving a request.
type ParamError struct {
	Name string
	In   string
	Err  error
}

func (e *ParamError) Error() string {
	if e.In == "" {
		return fmt.Sprintf("argument %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s parameter %q: %v", e.In, e.Name, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// StatusCode returns http.StatusBadRequest.
func (e *ParamError) StatusCode() int { return http.StatusBadRequest }

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ProblemDetail is an RFC 9457 problem details response.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// HTTPError is an error a handler can return to pick the response status.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder
// or carries a code outside 100-999.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) && validStatus(sc.StatusCode()) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

func validStatus(code int) bool { return code >= 100 && code <= 999 }

// writeProblem answers with err as problem JSON. A *ProblemDetail from the
// handler is copied before Instance is filled in.
func writeProblem(c *gin.Context, err error) {
	var pd *ProblemDetail
	if errors.As(err, &pd) {
		cp := *pd
		pd = &cp
		if !validStatus(pd.Status) {
			pd.Status = http.StatusInternalServerError
		}
	} else {
		status := ErrorStatus(err)
		pd = &ProblemDetail{
			Type:   "about:blank",
			Title:  http.StatusText(status),
			Status: status,
			Detail: err.Error(),
		}
	}
	if pd.Instance == "" && c.Request != nil {
		pd.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", "application/problem+json")
	c.JSON(pd.Status, pd)
}
