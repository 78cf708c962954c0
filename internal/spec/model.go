package spec

// Internal Model (IM) definitions used by the route listing, the echo
// registry and the scaffold emitter.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	PATCH   HttpMethod = "patch"
	DELETE  HttpMethod = "delete"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
)

// Methods lists every method a Swagger 2.0 path entry can declare, in the
// order operations are bound.
var Methods = []HttpMethod{GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS}

type ServiceModel struct {
	Title       string          `json:"title,omitempty" yaml:"title,omitempty"`
	Version     string          `json:"version,omitempty" yaml:"version,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	BasePath    string          `json:"basePath,omitempty" yaml:"basePath,omitempty"`
	Tags        []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	Endpoints   []EndpointModel `json:"endpoints" yaml:"endpoints"`
}

type EndpointModel struct {
	ID          string           `json:"id" yaml:"id"` // method+path
	Method      HttpMethod       `json:"method" yaml:"method"`
	Path        string           `json:"path" yaml:"path"`
	Pattern     string           `json:"pattern" yaml:"pattern"`
	OperationID string           `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Summary     string           `json:"summary,omitempty" yaml:"summary,omitempty"`
	Tags        []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Parameters  []ParameterModel `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

type ParameterModel struct {
	Name             string `json:"name" yaml:"name"`
	In               string `json:"in" yaml:"in"` // query|header|path|formData|body
	Type             string `json:"type,omitempty" yaml:"type,omitempty"`
	CollectionFormat string `json:"collectionFormat,omitempty" yaml:"collectionFormat,omitempty"`
	ItemsType        string `json:"itemsType,omitempty" yaml:"itemsType,omitempty"`
	Required         bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Default          any    `json:"default,omitempty" yaml:"default,omitempty"`
}
