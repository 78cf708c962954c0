// Package stub builds placeholder registries that echo the bound arguments
// back to the caller, so any Swagger document can be served before real
// handlers exist.
package stub

import (
	"net/http"

	"github.com/mark3labs/swaggerserver"
	"github.com/mark3labs/swaggerserver/internal/spec"
)

// OperationHeader names the response header carrying the operationId.
const OperationHeader = "X-Operation-Id"

// Registry returns one echo handler per endpoint of sm. Endpoints without an
// operationId are skipped; binding reports them.
func Registry(sm *spec.ServiceModel) swaggerserver.Registry {
	reg := swaggerserver.Registry{}
	if sm == nil {
		return reg
	}
	for _, ep := range sm.Endpoints {
		if ep.OperationID == "" {
			continue
		}
		names := make([]string, 0, len(ep.Parameters))
		for _, p := range ep.Parameters {
			names = append(names, p.Name)
		}
		reg[ep.OperationID] = Echo(ep.OperationID, names)
	}
	return reg
}

// Echo returns a handler taking names that answers 200 with
// {"operationId": ..., "params": {name: value}}.
func Echo(operationID string, names []string) swaggerserver.Handler {
	names = append([]string(nil), names...)
	return swaggerserver.Func(func(args ...any) swaggerserver.Result {
		params := make(map[string]any, len(names))
		for i, name := range names {
			if i < len(args) {
				params[name] = args[i]
			}
		}
		return swaggerserver.NewResult(http.StatusOK, map[string]any{
			"operationId": operationID,
			"params":      params,
		}, map[string]string{OperationHeader: operationID})
	}, names...)
}
