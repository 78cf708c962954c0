package swaggerserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const fieldsKey = "swaggerserver.fields"

// locate returns the raw value of p from the request facet named by p.In,
// or the declared default when the request does not carry it. A present but
// empty value counts as present.
func locate(c *gin.Context, p *openapi2.Parameter, logger *slog.Logger) (any, error) {
	multi := p.CollectionFormat == "multi"
	switch p.In {
	case "query":
		if vs, ok := c.GetQueryArray(p.Name); ok {
			return pick(vs, multi), nil
		}
		return p.Default, nil
	case "header":
		if vs := c.Request.Header.Values(p.Name); len(vs) > 0 {
			return pick(vs, multi), nil
		}
		return p.Default, nil
	case "path":
		if v, ok := c.Params.Get(p.Name); ok {
			return v, nil
		}
		return p.Default, nil
	case "formData":
		fields, err := requestFields(c)
		if err != nil {
			return nil, err
		}
		if v, ok := fields[p.Name]; ok {
			if vs, isList := v.([]string); isList {
				return pick(vs, multi), nil
			}
			return v, nil
		}
		return p.Default, nil
	case "body":
		fields, err := requestFields(c)
		if err != nil {
			return nil, err
		}
		if v, ok := fields[p.Name]; ok {
			return v, nil
		}
		if p.Schema != nil && p.Schema.Value != nil {
			return p.Schema.Value.Default, nil
		}
		return nil, nil
	default:
		logger.Warn("malformed spec: unknown parameter location",
			slog.String("name", p.Name),
			slog.String("in", p.In),
			slog.String("path", c.FullPath()),
		)
		return nil, nil
	}
}

func pick(vs []string, multi bool) any {
	if multi {
		return vs
	}
	return vs[0]
}

// requestFields decodes the request body into named fields once per request.
// JSON objects keep their decoded values; form fields map to a string, or to
// a []string when the field is repeated.
func requestFields(c *gin.Context) (map[string]any, error) {
	if v, ok := c.Get(fieldsKey); ok {
		if err, isErr := v.(error); isErr {
			return nil, err
		}
		return v.(map[string]any), nil
	}
	fields, err := decodeFields(c)
	if err != nil {
		err = fmt.Errorf("%w: request body: %v", ErrUnparsableValue, err)
		c.Set(fieldsKey, err)
		return nil, err
	}
	c.Set(fieldsKey, fields)
	return fields, nil
}

func decodeFields(c *gin.Context) (map[string]any, error) {
	fields := map[string]any{}
	if c.Request.Body == nil {
		return fields, nil
	}
	switch c.ContentType() {
	case binding.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err != nil {
			return nil, err
		}
		addValues(fields, c.Request.PostForm)
	case binding.MIMEMultipartPOSTForm:
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		addValues(fields, form.Value)
	default:
		data, err := c.GetRawData()
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return fields, nil
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		if obj, ok := v.(map[string]any); ok {
			return obj, nil
		}
	}
	return fields, nil
}

func addValues(fields map[string]any, values url.Values) {
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			fields[k] = vs[0]
		default:
			fields[k] = append([]string(nil), vs...)
		}
	}
}
