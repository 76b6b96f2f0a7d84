package mustache

import (
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"strconv"
	"sync/atomic"
)

// strategy is how a variable or section treats a value of a given type.
type strategy uint8

const (
	strategyNil strategy = iota
	strategyBool
	strategyString
	strategyNumber
	strategyList
	strategySeq
	strategyLambda
	strategyNilable // pointers, maps, funcs, chans: falsy when nil
	strategyValue
)

var strategyNames = [...]string{
	strategyNil:     "nil",
	strategyBool:    "bool",
	strategyString:  "string",
	strategyNumber:  "number",
	strategyList:    "list",
	strategySeq:     "seq",
	strategyLambda:  "lambda",
	strategyNilable: "nilable",
	strategyValue:   "value",
}

func (s strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}

	return "strategy(" + strconv.Itoa(int(s)) + ")"
}

// shape pairs a concrete type with the strategy chosen for it.
type shape struct {
	typ      reflect.Type
	strategy strategy
}

// shapeCache is a single-slot inline cache of the last shape a node saw.
// A stale or racing slot only costs a recomputation.
type shapeCache struct {
	slot atomic.Pointer[shape]
}

func (s *shapeCache) strategyOf(c *Context, v any) strategy {
	if v == nil {
		return strategyNil
	}

	t := reflect.TypeOf(v)
	if p := s.slot.Load(); p != nil && p.typ == t {
		return p.strategy
	}

	st := classify(t)
	s.slot.Store(&shape{typ: t, strategy: st})

	c.cfg.logger.TraceContext(
		c.ctx,
		"dispatch recompute",
		slog.String("type", t.String()),
		slog.String("strategy", st.String()),
	)

	return st
}

var seqType = reflect.TypeFor[iter.Seq[any]]()

// classify derives the strategy for values of type t.
func classify(t reflect.Type) strategy {
	if isLambdaType(t) {
		return strategyLambda
	}

	switch t.Kind() {
	case reflect.Bool:
		return strategyBool

	case reflect.String:
		return strategyString

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return strategyNumber

	case reflect.Slice, reflect.Array:
		return strategyList

	case reflect.Func:
		if t.ConvertibleTo(seqType) {
			return strategySeq
		}

		return strategyNilable

	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Interface:
		return strategyNilable

	default:
		return strategyValue
	}
}

// truthy reports whether v, classified as st, selects a section body.
func truthy(st strategy, v any) bool {
	switch st {
	case strategyNil:
		return false

	case strategyBool:
		if b, ok := v.(bool); ok {
			return b
		}

		return reflect.ValueOf(v).Bool()

	case strategyString:
		if s, ok := v.(string); ok {
			return s != ""
		}

		return reflect.ValueOf(v).Len() > 0

	case strategyNumber:
		return !reflect.ValueOf(v).IsZero()

	case strategyList:
		return reflect.ValueOf(v).Len() > 0

	case strategySeq:
		next, stop := iter.Pull(asSeq(v))
		defer stop()

		_, ok := next()

		return ok

	case strategyNilable:
		return !reflect.ValueOf(v).IsNil()

	default:
		return true
	}
}

func asSeq(v any) iter.Seq[any] {
	if s, ok := v.(iter.Seq[any]); ok {
		return s
	}

	return reflect.ValueOf(v).Convert(seqType).Interface().(iter.Seq[any])
}

// Stringify formats v the way a variable tag interpolates it, before
// escaping.
func Stringify(v any) string { return stringify(v) }

// stringify formats a resolved value for interpolation.
func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case TreeNode:
		return v.Text()
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return ""
	}

	return fmt.Sprint(v)
}
