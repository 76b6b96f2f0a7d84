package cmd

import "github.com/ardnew/stache/mustache"

// Command errors share the structured error type of the template engine, so
// a failure logged with slog.Any carries the attributes of every layer.
var (
	ErrYAMLMarshal  = mustache.NewError("marshal YAML")
	ErrWriteConfig  = mustache.NewError("write configuration file")
	ErrFileExists   = mustache.NewError("file exists (use --force to overwrite)")
	ErrReadTemplate = mustache.NewError("read template")
	ErrWriteOutput  = mustache.NewError("write output")
	ErrPragma       = mustache.NewError("unknown pragma")
	ErrDelims       = mustache.NewError(`delimiters must be two words, as in "<% %>"`)
	ErrCheckFailed  = mustache.NewError("templates failed to check")
)
