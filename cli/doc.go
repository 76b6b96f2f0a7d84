// Package cli contains the command line interface for stache.
//
// # Usage
//
//	stache [global flags] [render] TEMPLATE -d data.yaml
//	stache check *.mustache
//	stache tree page.mustache
//	stache repl -d data.yaml
//
// Render is the default command, so "stache page.mustache -d data.yaml" is
// the common form. A template of "-" reads stdin.
//
// # Template Options
//
//   - --partials, -P: directory searched for partials (repeatable)
//   - --ext: partial file extension (default .mustache)
//   - --pragma: enable BLOCKS or FILTERS without a pragma tag
//   - --delims: initial delimiters, as "<% %>"
//   - --max-depth: bound on nested partials and parents
//   - --no-escape: disable HTML escaping
//
// # Configuration
//
// Flag defaults are read from config.yaml in the user configuration
// directory. "stache init" writes one with the current flag values:
//
//	log-level: debug
//	partials:
//	  - ./partials
//	pragma:
//	  - FILTERS
//
// Command-line flags override config file values.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-caller: Include caller information in log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o stache .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default ~/.cache/stache/pprof)
package cli
