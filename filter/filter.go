package filter

import (
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-yaml"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ardnew/stache/mustache"
)

// Errors returned by the builtin filters.
var (
	ErrNotNumber = mustache.NewError("value is not a number")
	ErrNotList   = mustache.NewError("value is not a list")
	ErrMarshal   = mustache.NewError("marshal value")
)

// Builtins returns a new map of the standard filters keyed by name.
//
//	upper lower title trim      string case and whitespace
//	sanitize strip              HTML sanitizing (user content policy, all tags removed)
//	bytes comma ordinal         human-readable numbers
//	len first last reverse      lists, maps, and strings
//	json yaml                   serialization
func Builtins() map[string]any {
	return map[string]any{
		"upper":    mustache.Filter(upper),
		"lower":    mustache.Filter(lower),
		"title":    mustache.Filter(title),
		"trim":     mustache.Filter(trim),
		"sanitize": mustache.Filter(sanitize),
		"strip":    mustache.Filter(strip),
		"bytes":    mustache.Filter(bytes),
		"comma":    mustache.Filter(comma),
		"ordinal":  mustache.Filter(ordinal),
		"len":      mustache.Filter(length),
		"first":    mustache.Filter(first),
		"last":     mustache.Filter(last),
		"reverse":  mustache.Filter(reverse),
		"json":     mustache.Filter(toJSON),
		"yaml":     mustache.Filter(toYAML),
	}
}

// Names returns the names of the builtin filters in sorted order.
func Names() []string { return slices.Sorted(maps.Keys(Builtins())) }

// A Caser is stateful, so each call gets its own.
func upper(v any) (any, error) {
	return cases.Upper(language.Und).String(text(v)), nil
}

func lower(v any) (any, error) {
	return cases.Lower(language.Und).String(text(v)), nil
}

func title(v any) (any, error) {
	return cases.Title(language.English).String(text(v)), nil
}

func trim(v any) (any, error) { return strings.TrimSpace(text(v)), nil }

var (
	ugcPolicyOnce    sync.Once
	ugcPolicy        *bluemonday.Policy
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

func sanitize(v any) (any, error) {
	ugcPolicyOnce.Do(func() { ugcPolicy = bluemonday.UGCPolicy() })

	return ugcPolicy.Sanitize(text(v)), nil
}

func strip(v any) (any, error) {
	strictPolicyOnce.Do(func() { strictPolicy = bluemonday.StrictPolicy() })

	return strings.TrimSpace(strictPolicy.Sanitize(text(v))), nil
}

func bytes(v any) (any, error) {
	n, err := toInt(v)
	if err != nil {
		return nil, err
	}

	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n)), nil
	}

	return humanize.Bytes(uint64(n)), nil
}

func comma(v any) (any, error) {
	if f, ok := v.(float64); ok {
		return humanize.Commaf(f), nil
	}

	n, err := toInt(v)
	if err != nil {
		return nil, err
	}

	return humanize.Comma(n), nil
}

func ordinal(v any) (any, error) {
	n, err := toInt(v)
	if err != nil {
		return nil, err
	}

	return humanize.Ordinal(int(n)), nil
}

func length(v any) (any, error) {
	if s, ok := v.(string); ok {
		return len([]rune(s)), nil
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len(), nil
	case reflect.Invalid:
		return 0, nil
	default:
		return len([]rune(text(v))), nil
	}
}

func first(v any) (any, error) {
	list, err := toList(v)
	if err != nil || len(list) == 0 {
		return nil, err
	}

	return list[0], nil
}

func last(v any) (any, error) {
	list, err := toList(v)
	if err != nil || len(list) == 0 {
		return nil, err
	}

	return list[len(list)-1], nil
}

func reverse(v any) (any, error) {
	if s, ok := v.(string); ok {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}

		return string(r), nil
	}

	list, err := toList(v)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(list))
	for i, e := range list {
		out[len(list)-1-i] = e
	}

	return out, nil
}

func toJSON(v any) (any, error) {
	b, err := yaml.MarshalWithOptions(v, yaml.JSON())
	if err != nil {
		return nil, ErrMarshal.Wrap(err).With(slog.String("format", "json"))
	}

	return strings.TrimSuffix(string(b), "\n"), nil
}

func toYAML(v any) (any, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, ErrMarshal.Wrap(err).With(slog.String("format", "yaml"))
	}

	return string(b), nil
}

// text renders v the way a variable tag would, without escaping.
func text(v any) string { return mustache.Stringify(v) }

func toInt(v any) (int64, error) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	default:
	}

	s := strings.TrimSpace(text(v))

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), nil
	}

	return 0, ErrNotNumber.With(slog.String("value", s))
}

func toList(v any) ([]any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, ErrNotList.With(slog.String("type", reflect.TypeOf(v).String()))
	}

	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}

	return list, nil
}
