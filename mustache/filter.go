package mustache

import (
	"log/slog"
	"reflect"
)

// Filter transforms a value in a "name | filter" chain.
//
// Any function of one argument that returns a value, optionally followed by
// an error, may be bound in the data and used as a filter.
type Filter func(any) (any, error)

// filterChain is the compiled "| f1 | f2" suffix of a tag name.
type filterChain struct {
	names []string
	refs  []ref
}

func newFilterChain(names []string) (filterChain, bool) {
	fc := filterChain{names: names, refs: make([]ref, len(names))}

	for i, name := range names {
		r, ok := parseRef(name)
		if !ok {
			return filterChain{}, false
		}

		fc.refs[i] = r
	}

	return fc, true
}

// apply runs v through each filter, left to right.
// Filters are resolved through the scope stack at render time.
func (fc filterChain) apply(c *Context, v any) (any, error) {
	for i, r := range fc.refs {
		f, ok := r.resolve(c)
		if !ok {
			return nil, ErrFilterNotFound.With(slog.String("filter", fc.names[i]))
		}

		fn, ok := asFilter(f)
		if !ok {
			return nil, ErrFilterInvalid.With(
				slog.String("filter", fc.names[i]),
				slog.String("type", reflect.TypeOf(f).String()),
			)
		}

		out, err := fn(v)
		if err != nil {
			return nil, ErrFilterFailed.Wrap(err).With(slog.String("filter", fc.names[i]))
		}

		v = out
	}

	return v, nil
}

// asFilter adapts f to a [Filter] if it is a one-argument function.
func asFilter(f any) (Filter, bool) {
	switch f := f.(type) {
	case nil:
		return nil, false
	case Filter:
		return f, f != nil
	case func(any) (any, error):
		return f, f != nil
	case func(any) any:
		return func(v any) (any, error) { return f(v), nil }, f != nil
	case func(string) string:
		return func(v any) (any, error) { return f(stringify(v)), nil }, f != nil
	}

	fv := reflect.ValueOf(f)
	ft := fv.Type()

	if ft.Kind() != reflect.Func || fv.IsNil() || ft.NumIn() != 1 || ft.IsVariadic() {
		return nil, false
	}

	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, false
	}

	in := ft.In(0)

	return func(v any) (any, error) {
		arg, err := filterArg(in, v)
		if err != nil {
			return nil, err
		}

		out := fv.Call([]reflect.Value{arg})
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}

		return out[0].Interface(), nil
	}, true
}

// filterArg converts v to the parameter type of a reflected filter.
func filterArg(in reflect.Type, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(in), nil
	}

	rv := reflect.ValueOf(v)

	switch {
	case rv.Type().AssignableTo(in):
		return rv, nil
	case in.Kind() == reflect.String:
		return reflect.ValueOf(stringify(v)).Convert(in), nil
	case rv.Type().ConvertibleTo(in) && rv.Kind() != reflect.String:
		return rv.Convert(in), nil
	default:
		return reflect.Value{}, ErrFilterInvalid.With(
			slog.String("argument", rv.Type().String()),
			slog.String("parameter", in.String()),
		)
	}
}
