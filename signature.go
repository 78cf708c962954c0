package swaggerserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Registry maps operation identifiers to handlers.
type Registry map[string]Handler

// Handler is a callable together with the ordered names of its parameters.
// Build it with Func.
type Handler struct {
	fn          reflect.Value
	names       []string
	withContext bool
	err         error
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	resultType  = reflect.TypeOf(Result{})

	commentRe = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*`)
)

// Func describes fn as a handler whose parameters are called names, in
// order. Each element of names may itself be a comma separated list, so
// Func(fn, "petName, petId") and Func(fn, "petName", "petId") are the same.
//
// fn must return Result or (Result, error). It may take a context.Context
// as its first parameter; that parameter is not named. Problems with fn are
// reported when the handler is bound.
func Func(fn any, names ...string) Handler {
	h := Handler{names: []string{}}
	for _, n := range names {
		h.names = append(h.names, ParseNames(n)...)
	}
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		h.err = fmt.Errorf("%w: %T is not a function", ErrHandlerSignature, fn)
		return h
	}
	h.fn = v
	h.err = h.inspect()
	return h
}

// ParseNames splits a textual parameter list into names. Comments and
// whitespace are ignored and an empty list yields an empty, non-nil slice.
func ParseNames(list string) []string {
	list = commentRe.ReplaceAllString(list, "")
	names := []string{}
	for _, part := range strings.Split(list, ",") {
		if name := strings.Join(strings.Fields(part), ""); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// FormalNames returns a copy of the ordered parameter names of h.
func FormalNames(h Handler) []string {
	return append([]string{}, h.names...)
}

func (h Handler) valid() bool { return h.fn.IsValid() }

func (h *Handler) inspect() error {
	t := h.fn.Type()
	first := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		h.withContext = true
		first = 1
	}
	declared := t.NumIn() - first
	if t.IsVariadic() {
		if len(h.names) < declared-1 {
			return fmt.Errorf("%w: %d names for variadic %s", ErrHandlerSignature, len(h.names), t)
		}
	} else if len(h.names) != declared {
		return fmt.Errorf("%w: %d names for %s", ErrHandlerSignature, len(h.names), t)
	}

	switch {
	case t.NumOut() == 1 && t.Out(0) == resultType:
	case t.NumOut() == 2 && t.Out(0) == resultType && t.Out(1) == errorType:
	default:
		return fmt.Errorf("%w: %s must return Result or (Result, error)", ErrHandlerSignature, t)
	}

	for i := first; i < t.NumIn(); i++ {
		at := t.In(i)
		if t.IsVariadic() && i == t.NumIn()-1 {
			at = at.Elem()
		}
		if !convertible(at) {
			return fmt.Errorf("%w: %w: parameter %d of %s", ErrHandlerSignature, ErrUnsupportedType, i, at)
		}
	}
	return nil
}

func convertible(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128, reflect.Uintptr:
		return false
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return convertible(t.Elem())
	default:
		return true
	}
}

func (h Handler) argType(i int) reflect.Type {
	t := h.fn.Type()
	if h.withContext {
		i++
	}
	if t.IsVariadic() && i >= t.NumIn()-1 {
		return t.In(t.NumIn() - 1).Elem()
	}
	return t.In(i)
}

// call invokes the handler with the named values in formal order. Names
// without a value receive the zero value of their type.
func (h Handler) call(ctx context.Context, values map[string]any) (Result, error) {
	args := make([]reflect.Value, 0, len(h.names)+1)
	if h.withContext {
		args = append(args, reflect.ValueOf(&ctx).Elem())
	}
	for i, name := range h.names {
		v, err := convertArg(values[name], h.argType(i))
		if err != nil {
			return Result{}, &ParamError{Name: name, Err: err}
		}
		args = append(args, v)
	}
	out := h.fn.Call(args)
	res := out[0].Interface().(Result)
	if len(out) == 2 && !out[1].IsNil() {
		return res, out[1].Interface().(error)
	}
	return res, nil
}

func convertArg(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}
	switch t.Kind() {
	case reflect.Pointer:
		elem, err := convertArg(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := asInt64(v); ok {
			out := reflect.New(t).Elem()
			if out.OverflowInt(n) {
				return reflect.Value{}, mismatch(v, t)
			}
			out.SetInt(n)
			return out, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := asUint64(v); ok {
			out := reflect.New(t).Elem()
			if out.OverflowUint(n) {
				return reflect.Value{}, mismatch(v, t)
			}
			out.SetUint(n)
			return out, nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := toFloat(v); ok {
			out := reflect.New(t).Elem()
			out.SetFloat(f)
			return out, nil
		}
	case reflect.String, reflect.Bool:
		if rv.Kind() == t.Kind() {
			return rv.Convert(t), nil
		}
	case reflect.Slice:
		if s, ok := v.(string); ok && t.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(s)).Convert(t), nil
		}
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			out := reflect.MakeSlice(t, rv.Len(), rv.Len())
			for i := 0; i < rv.Len(); i++ {
				elem, err := convertArg(rv.Index(i).Interface(), t.Elem())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
				}
				out.Index(i).Set(elem)
			}
			return out, nil
		}
	case reflect.Map, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return reflect.Value{}, mismatch(v, t)
		}
		out := reflect.New(t)
		if err := json.Unmarshal(data, out.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrUnparsableValue, err)
		}
		return out.Elem(), nil
	}
	return reflect.Value{}, mismatch(v, t)
}

// asInt64 returns v as an int64 when it holds a whole number in range.
// Integers convert exactly; floats must have no fractional part.
func asInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int(), true
	case rv.CanUint():
		u := rv.Uint()
		return int64(u), u <= math.MaxInt64
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func asUint64(v any) (uint64, bool) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanUint():
		return rv.Uint(), true
	case rv.CanInt():
		i := rv.Int()
		return uint64(i), i >= 0
	}
	if n, ok := v.(json.Number); ok {
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return u, true
		}
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
		return 0, false
	}
	return uint64(f), true
}

func mismatch(v any, t reflect.Type) error {
	return fmt.Errorf("%w: cannot use %v (%T) as %s", ErrUnparsableValue, v, v, t)
}
