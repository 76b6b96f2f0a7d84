package loader

import (
	"slices"

	"github.com/ardnew/stache/log"
	"github.com/ardnew/stache/mustache"
)

// DefaultExtension is the template file extension tried when none is given.
const DefaultExtension = ".mustache"

type config struct {
	dirs     []string
	exts     []string
	compile  []mustache.Option
	logger   log.Logger
	onChange func(name string)
}

// Option configures a [Repository].
type Option func(*config)

// WithDirs appends directories to the search path.
func WithDirs(dirs ...string) Option {
	return func(c *config) { c.dirs = append(c.dirs, dirs...) }
}

// WithExtensions replaces the file extensions tried for each name, in order.
func WithExtensions(exts ...string) Option {
	return func(c *config) {
		if len(exts) > 0 {
			c.exts = slices.Clone(exts)
		}
	}
}

// WithCompileOptions sets the options every partial is compiled with.
func WithCompileOptions(opts ...mustache.Option) Option {
	return func(c *config) { c.compile = append(c.compile, opts...) }
}

// WithLogger sets the logger for load and watch events.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithOnChange registers fn to be called with the name of each partial
// invalidated by [Repository.Watch].
func WithOnChange(fn func(name string)) Option {
	return func(c *config) { c.onChange = fn }
}
