package filter

import (
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/stache/mustache"
)

// Errors returned when compiling or binding expression filters.
var (
	ErrExprCompile = mustache.NewError("compile filter expression")
	ErrExprRun     = mustache.NewError("evaluate filter expression")
	ErrBinding     = mustache.NewError("filter binding must be NAME=EXPR")
)

// exprEnv is the environment of a filter expression. The filtered value is
// bound to "value" (and "v" for brevity).
func exprEnv(v any) map[string]any {
	return map[string]any{"value": v, "v": v}
}

// Expr compiles an expr-lang expression into a filter.
//
// The expression sees the filtered value as value (or v) along with the
// expr-lang builtins, so "upper(value) + '!'" and "v * 2" are both filters.
func Expr(source string) (mustache.Filter, error) {
	source = strings.TrimSpace(source)

	program, err := expr.Compile(source)
	if err != nil {
		return nil, ErrExprCompile.Wrap(err).With(slog.String("source", source))
	}

	return func(v any) (any, error) {
		return run(program, source, v)
	}, nil
}

func run(program *vm.Program, source string, v any) (any, error) {
	result, err := vm.Run(program, exprEnv(v))
	if err != nil {
		return nil, ErrExprRun.Wrap(err).With(slog.String("source", source))
	}

	return result, nil
}

// ParseBinding parses "NAME=EXPR" and compiles EXPR with [Expr].
func ParseBinding(s string) (string, mustache.Filter, error) {
	name, source, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)

	if !ok || name == "" || strings.TrimSpace(source) == "" {
		return "", nil, ErrBinding.With(slog.String("binding", s))
	}

	f, err := Expr(source)
	if err != nil {
		return "", nil, err
	}

	return name, f, nil
}

// Bind compiles each "NAME=EXPR" binding into m, replacing filters of the
// same name. It returns m, allocating it if nil.
func Bind(m map[string]any, bindings ...string) (map[string]any, error) {
	if m == nil {
		m = map[string]any{}
	}

	for _, b := range bindings {
		name, f, err := ParseBinding(b)
		if err != nil {
			return nil, err
		}

		m[name] = f
	}

	return m, nil
}
