package repl

import "github.com/ardnew/stache/mustache"

// Sentinel errors.
var (
	ErrOutOfBounds  = mustache.NewError("history index out of range")
	ErrEditDeclined = mustache.NewError("decline edit")
	ErrNoTemplate   = mustache.NewError("no template to edit")
)
