package swaggerserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/gin-gonic/gin"

	"github.com/mark3labs/swaggerserver/internal/spec"
)

// Route describes one bound operation.
type Route struct {
	Method      string
	Path        string // path template as declared, e.g. /pets/{petId}
	Pattern     string // router pattern, e.g. /pets/:petId
	OperationID string
}

type boundRoute struct {
	Route
	handler gin.HandlerFunc
}

// bindOperation builds the route for method on the path entry item. It
// returns nil when item declares no operation for method.
func bindOperation(doc *openapi2.T, method, path string, item *openapi2.PathItem, reg Registry, logger *slog.Logger) (*boundRoute, error) {
	op := item.GetOperation(method)
	if op == nil {
		return nil, nil
	}
	fail := func(err error) error {
		return &BindError{Path: path, Method: method, OperationID: op.OperationID, Err: err}
	}
	if err := spec.CheckTemplate(path); err != nil {
		return nil, fail(fmt.Errorf("%w: %w", ErrPathTemplate, err))
	}
	if strings.TrimSpace(op.OperationID) == "" {
		return nil, fail(ErrMissingOperationID)
	}
	h, ok := reg[op.OperationID]
	if !ok || (!h.valid() && h.err == nil) {
		return nil, fail(ErrMissingImplementation)
	}
	if h.err != nil {
		return nil, fail(h.err)
	}
	params, err := spec.EffectiveParameters(doc, item, op)
	if err != nil {
		return nil, fail(fmt.Errorf("%w: %w", ErrInvalidSpecFormat, err))
	}

	return &boundRoute{
		Route: Route{
			Method:      method,
			Path:        path,
			Pattern:     spec.RoutePattern(path),
			OperationID: op.OperationID,
		},
		handler: serveOperation(op.OperationID, params, h, logger),
	}, nil
}

func serveOperation(operationID string, params openapi2.Parameters, h Handler, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		values := make(map[string]any, len(params))
		for _, p := range params {
			raw, err := locate(c, p, logger)
			if err == nil {
				raw, err = Coerce(raw, p)
			}
			if err != nil {
				writeProblem(c, &ParamError{Name: p.Name, In: p.In, Err: err})
				return
			}
			values[p.Name] = raw
		}

		res, err := invoke(c, h, values, logger)
		if err != nil {
			var pd *ProblemDetail
			if ErrorStatus(err) >= http.StatusInternalServerError && !errors.As(err, &pd) {
				logger.LogAttrs(c.Request.Context(), slog.LevelError, "handler failed",
					slog.String("operation", operationID),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.Any("error", err),
				)
			}
			writeProblem(c, err)
			return
		}
		res.write(c)
	}
}

func invoke(c *gin.Context, h Handler, values map[string]any, logger *slog.Logger) (res Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			err = &ProblemDetail{
				Type:   "about:blank",
				Title:  http.StatusText(http.StatusInternalServerError),
				Status: http.StatusInternalServerError,
			}
		}
	}()
	return h.call(c.Request.Context(), values)
}
