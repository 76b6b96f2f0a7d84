package mustache

import (
	"reflect"
)

// Scope exposes name-based lookup over a single runtime value.
//
// A render keeps a stack of scopes. Names are resolved against the innermost
// scope first, so nested sections shadow the values of enclosing ones.
type Scope interface {
	// Lookup returns the value bound to name, and whether it was found.
	Lookup(name string) (any, bool)

	// Value returns the value the scope adapts. It is what "." refers to.
	Value() any
}

// ScopeFactory maps an arbitrary application value to the Scope that adapts
// it. See [DefaultScopeFactory].
type ScopeFactory func(value any) Scope

// DefaultScopeFactory selects a Scope variant for value:
//
//   - a [Scope] is used as-is;
//   - a [TreeNode] is adapted by attribute and child element name;
//   - maps with string keys are adapted by key;
//   - structs (and pointers to them) are adapted by field and method name;
//   - anything else is a plain value scope that only answers to ".".
func DefaultScopeFactory(value any) Scope {
	switch v := value.(type) {
	case nil:
		return valueScope{}
	case Scope:
		return v
	case TreeNode:
		return treeScope{node: v}
	case map[string]any:
		return mapScope(v)
	case map[string]string:
		return stringMapScope(v)
	}

	rv := reflect.ValueOf(value)
	base := rv

	for base.Kind() == reflect.Pointer || base.Kind() == reflect.Interface {
		if base.IsNil() {
			return valueScope{value: value}
		}

		base = base.Elem()
	}

	switch base.Kind() {
	case reflect.Map:
		if base.Type().Key().Kind() == reflect.String {
			return reflectMapScope{value: value, rv: base}
		}

	case reflect.Struct:
		if rv.Kind() != reflect.Pointer {
			// An addressable copy exposes pointer-receiver methods too.
			ptr := reflect.New(base.Type())
			ptr.Elem().Set(base)
			rv = ptr
		}

		return objectScope{value: value, rv: rv, table: accessorsFor(rv.Type())}

	default:
	}

	return valueScope{value: value}
}

// valueScope wraps a value that has no named members.
type valueScope struct{ value any }

func (s valueScope) Lookup(string) (any, bool) { return nil, false }
func (s valueScope) Value() any                { return s.value }

// mapScope adapts the most common data shape without reflection.
type mapScope map[string]any

func (s mapScope) Lookup(name string) (any, bool) {
	v, ok := s[name]

	return v, ok
}

func (s mapScope) Value() any { return map[string]any(s) }

type stringMapScope map[string]string

func (s stringMapScope) Lookup(name string) (any, bool) {
	v, ok := s[name]

	return v, ok
}

func (s stringMapScope) Value() any { return map[string]string(s) }

// reflectMapScope adapts any map whose key kind is string.
type reflectMapScope struct {
	value any
	rv    reflect.Value
}

func (s reflectMapScope) Lookup(name string) (any, bool) {
	key := reflect.ValueOf(name).Convert(s.rv.Type().Key())

	v := s.rv.MapIndex(key)
	if !v.IsValid() {
		return nil, false
	}

	return v.Interface(), true
}

func (s reflectMapScope) Value() any { return s.value }

// objectScope adapts a struct through its per-type accessor table.
type objectScope struct {
	value any
	rv    reflect.Value
	table *accessorTable
}

func (s objectScope) Lookup(name string) (any, bool) {
	get, ok := s.table.byName[name]
	if !ok {
		return nil, false
	}

	return get(s.rv)
}

func (s objectScope) Value() any { return s.value }

// Synthetic names bound by list iteration.
const (
	nameIndex = "-index"
	nameFirst = "-first"
	nameLast  = "-last"
)

// elementScope decorates the scope of one list element with its position.
type elementScope struct {
	Scope

	index int
	size  int
}

func newElementScope(s Scope, index, size int) elementScope {
	return elementScope{Scope: s, index: index, size: size}
}

func (s elementScope) Lookup(name string) (any, bool) {
	switch name {
	case nameIndex:
		return s.index, true
	case nameFirst:
		return s.index == 0, true
	case nameLast:
		return s.index == s.size-1, true
	default:
		return s.Scope.Lookup(name)
	}
}
