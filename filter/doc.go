// Package filter provides a standard set of template filters and compiles
// expr-lang expressions into filters.
//
// Filters are looked up by name in the render data, so binding them is a
// matter of pushing [Builtins] (or any map of functions) as the outermost
// data value:
//
//	out, err := t.RenderString(ctx, filter.Builtins(), data)
//
// A template enables filter chains with the FILTERS pragma:
//
//	{{%FILTERS}}
//	{{title | trim | upper}}
package filter
