package mustache

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// accessor reads one named member from a value of the type it was built for.
type accessor func(v reflect.Value) (any, bool)

// accessorTable maps every name a type answers to onto its accessor.
type accessorTable struct {
	byName map[string]accessor
}

// accessorTables caches one *accessorTable per reflect.Type.
var accessorTables sync.Map

var errorType = reflect.TypeFor[error]()

// accessorsFor returns the accessor table of t, building it on first use.
func accessorsFor(t reflect.Type) *accessorTable {
	if at, ok := accessorTables.Load(t); ok {
		return at.(*accessorTable)
	}

	at, _ := accessorTables.LoadOrStore(t, buildAccessors(t))

	return at.(*accessorTable)
}

// buildAccessors collects the exported fields and zero-argument methods of t.
//
// Each member answers to its Go name, its JSON tag name, and its name with a
// lower-case first letter. Exact names win over the lower-case aliases, and
// fields win over methods of the same name.
func buildAccessors(t reflect.Type) *accessorTable {
	table := &accessorTable{byName: map[string]accessor{}}

	var aliases []struct {
		name string
		get  accessor
	}

	bind := func(name string, get accessor) {
		if _, ok := table.byName[name]; !ok {
			table.byName[name] = get
		}
	}

	alias := func(name string, get accessor) {
		aliases = append(aliases, struct {
			name string
			get  accessor
		}{lowerFirst(name), get})
	}

	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}

	if st.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(st) {
			if !f.IsExported() || f.Anonymous {
				continue
			}

			get := fieldAccessor(f.Index)

			bind(f.Name, get)

			if tag, ok := f.Tag.Lookup("json"); ok {
				if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
					bind(name, get)
				}
			}

			alias(f.Name, get)
		}
	}

	for i := range t.NumMethod() {
		m := t.Method(i)
		if !isGetter(m.Type) {
			continue
		}

		get := methodAccessor(i)

		bind(m.Name, get)
		alias(m.Name, get)
	}

	for _, a := range aliases {
		bind(a.name, a.get)
	}

	return table
}

func fieldAccessor(index []int) accessor {
	return func(v reflect.Value) (any, bool) {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, false
			}

			v = v.Elem()
		}

		f, err := v.FieldByIndexErr(index)
		if err != nil || !f.CanInterface() {
			return nil, false
		}

		return f.Interface(), true
	}
}

func methodAccessor(i int) accessor {
	return func(v reflect.Value) (any, bool) {
		out := v.Method(i).Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, false
		}

		return out[0].Interface(), true
	}
}

// isGetter reports whether a method type (receiver included) takes no
// arguments and returns a value, optionally followed by an error.
func isGetter(mt reflect.Type) bool {
	if mt.NumIn() != 1 || mt.IsVariadic() {
		return false
	}

	switch mt.NumOut() {
	case 1:
		return true
	case 2:
		return mt.Out(1) == errorType
	default:
		return false
	}
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return s
	}

	return string(unicode.ToLower(r)) + s[n:]
}
