// Package profile provides optional runtime profiling for stache.
//
// Profiling uses [github.com/pkg/profile] and is compiled in only with the
// "pprof" build tag:
//
//	go build -tags pprof -o stache .
//	stache --pprof-mode=cpu render page.mustache -d data.yaml
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op.
//
// The supported modes are allocs, block, clock, cpu, goroutine, heap, mem,
// mutex, thread, and trace. Profiles are written to [Profiler.Path], which
// the CLI defaults to a directory under the user cache directory:
//
//	go tool pprof -http=:8080 ~/.cache/stache/pprof/cpu.pprof
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
