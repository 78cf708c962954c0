package swaggerserver

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/gin-gonic/gin"

	"github.com/mark3labs/swaggerserver/internal/spec"
)

// RouteTable is the immutable result of Build. It can be mounted on any
// number of routers.
type RouteTable struct {
	basePath string
	routes   []boundRoute
}

// Build binds every operation declared in a Swagger 2.0 document to the
// handler registered under its operationId.
//
// src is the document itself (*openapi2.T, openapi2.T, a generic
// map[string]any, or YAML/JSON text as []byte) or, as a string, the path or
// http(s) URL to load it from. The first operation that lacks an
// operationId or a valid handler aborts the build with a *BindError naming
// its path.
func Build(ctx context.Context, src any, reg Registry, opts ...Option) (*RouteTable, error) {
	s := newSettings(opts)

	doc, err := document(ctx, src, s)
	if err != nil {
		return nil, err
	}
	if major, err := spec.MajorVersion(doc); err != nil || major != 2 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSchemaVersion, doc.Swagger)
	}

	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	table := &RouteTable{basePath: doc.BasePath}
	for _, path := range paths {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		for _, m := range spec.Methods {
			r, err := bindOperation(doc, strings.ToUpper(string(m)), path, item, reg, s.logger)
			if err != nil {
				return nil, err
			}
			if r != nil {
				table.routes = append(table.routes, *r)
			}
		}
	}

	s.logger.Debug("routes bound",
		"base_path", table.basePath,
		"routes", len(table.routes),
	)
	return table, nil
}

func document(ctx context.Context, src any, s *settings) (*openapi2.T, error) {
	switch v := src.(type) {
	case *openapi2.T:
		if v == nil {
			return nil, fmt.Errorf("%w: nil document", ErrInvalidSpecFormat)
		}
		return v, nil
	case openapi2.T:
		return &v, nil
	case []byte:
		doc, err := spec.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSpecFormat, err)
		}
		return doc, nil
	case map[string]any:
		doc, err := spec.FromMap(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSpecFormat, err)
		}
		return doc, nil
	case string:
		s.logger.Info("reading spec", "location", v)
		doc, err := spec.Load(ctx, v, s.loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load spec %q: %w", v, err)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("%w: unsupported source %T", ErrInvalidSpecFormat, src)
	}
}

// BasePath returns the prefix the routes are mounted under.
func (t *RouteTable) BasePath() string { return t.basePath }

// Routes lists the bound operations in registration order.
func (t *RouteTable) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i, r := range t.routes {
		out[i] = r.Route
	}
	return out
}

// Mount registers every route on r under the document's basePath. Patterns
// the router refuses, such as two different wildcard names at the same
// position, are reported as ErrRouteConflict. The table is first mounted on
// a scratch engine, so a conflict inside the table leaves r untouched.
func (t *RouteTable) Mount(r gin.IRouter) error {
	if err := t.mount(gin.New()); err != nil {
		return err
	}
	return t.mount(r)
}

func (t *RouteTable) mount(r gin.IRouter) (err error) {
	var current Route
	defer func() {
		if rec := recover(); rec != nil {
			err = &BindError{
				Path:        current.Path,
				Method:      current.Method,
				OperationID: current.OperationID,
				Err:         fmt.Errorf("%w: %v", ErrRouteConflict, rec),
			}
		}
	}()
	g := r.Group(t.basePath)
	for _, br := range t.routes {
		current = br.Route
		g.Handle(br.Method, br.Pattern, br.handler)
	}
	return nil
}

// Handler returns a new gin engine serving the table.
func (t *RouteTable) Handler() (http.Handler, error) {
	engine := gin.New()
	if err := t.Mount(engine); err != nil {
		return nil, err
	}
	return engine, nil
}
