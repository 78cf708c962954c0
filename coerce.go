package swaggerserver

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi3"
)

var (
	intPrefix   = regexp.MustCompile(`^\s*[+-]?\d+`)
	floatPrefix = regexp.MustCompile(`^\s*[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
)

// Coerce converts a raw request value to the type declared by p.
//
// raw is nil (absent), a string, a []string (repeated facet values) or a
// value that is already typed, such as a declared default or a field of a
// JSON body. The result is a string, int64, float64, bool, []any or nil.
// Values that cannot be read as the declared number type produce an error
// wrapping ErrUnparsableValue.
func Coerce(raw any, p *openapi2.Parameter) (any, error) {
	if p == nil {
		return raw, nil
	}
	return coerce(raw, p.Type, p.CollectionFormat, p.Items)
}

func coerce(raw any, typ, collectionFormat string, items *openapi3.SchemaRef) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch typ {
	case "string":
		return asString(first(raw)), nil
	case "number":
		return asNumber(first(raw))
	case "integer":
		return asInteger(first(raw))
	case "boolean":
		return asBoolean(first(raw)), nil
	case "array":
		return asArray(raw, collectionFormat, items)
	case "file":
		return nil, nil
	default:
		return raw, nil
	}
}

// first reduces a repeated facet value to its first element for scalar types.
func first(raw any) any {
	if vs, ok := raw.([]string); ok {
		if len(vs) == 0 {
			return nil
		}
		return vs[0]
	}
	return raw
}

func asString(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	if f, ok := toFloat(raw); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return raw
}

func asNumber(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		m := floatPrefix.FindString(v)
		if m == "" {
			return nil, unparsable(v, "number")
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
		if err != nil {
			return nil, unparsable(v, "number")
		}
		return f, nil
	}
	if f, ok := toFloat(raw); ok {
		return f, nil
	}
	return nil, unparsable(raw, "number")
}

func asInteger(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		m := intPrefix.FindString(v)
		if m == "" {
			return nil, unparsable(v, "integer")
		}
		n, err := strconv.ParseInt(strings.TrimSpace(m), 10, 64)
		if err != nil {
			return nil, unparsable(v, "integer")
		}
		return n, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	}
	f, ok := toFloat(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, unparsable(raw, "integer")
	}
	return int64(math.Trunc(f)), nil
}

func asBoolean(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func asArray(raw any, collectionFormat string, items *openapi3.SchemaRef) (any, error) {
	var parts []any
	switch v := raw.(type) {
	case string:
		if v == "" {
			return []any{}, nil
		}
		if collectionFormat == "multi" {
			parts = []any{v}
			break
		}
		for _, s := range strings.Split(v, delimiter(collectionFormat)) {
			parts = append(parts, s)
		}
	case []string:
		if len(v) == 1 && collectionFormat != "multi" {
			return asArray(v[0], collectionFormat, items)
		}
		for _, s := range v {
			parts = append(parts, s)
		}
	case []any:
		parts = v
	default:
		parts = []any{v}
	}

	var (
		itemType string
		nested   *openapi3.SchemaRef
	)
	if items != nil && items.Value != nil {
		itemType = items.Value.Type
		nested = items.Value.Items
	}
	out := make([]any, 0, len(parts))
	for i, part := range parts {
		val, err := coerce(part, itemType, "", nested)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, val)
	}
	return out, nil
}

func delimiter(collectionFormat string) string {
	switch collectionFormat {
	case "ssv":
		return " "
	case "tsv":
		return "\t"
	case "pipes":
		return "|"
	default:
		return ","
	}
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func unparsable(raw any, typ string) error {
	if s, ok := raw.(string); ok {
		return fmt.Errorf("%w: %q is not a valid %s", ErrUnparsableValue, s, typ)
	}
	return fmt.Errorf("%w: %v (%T) is not a valid %s", ErrUnparsableValue, raw, raw, typ)
}
