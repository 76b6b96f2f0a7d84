package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// resolve is a [kong.ConfigurationLoader] that reads flag defaults from a
// YAML document.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve, "/path/to/config.yaml")
//
// The document is a flat mapping of flag names to values:
//   - Keys are flag names; underscores may stand in for hyphens
//     (e.g., "log_level" for --log-level)
//   - Sequences set repeatable flags
//   - Numbers are passed to kong as strings
//
// Example config file:
//
//	log-level: debug
//	partials:
//	  - ./partials
//	  - ~/templates
//	max-depth: 50
//
// Command-line flags override config file values. A document that does not
// parse as a mapping configures nothing.
func resolve(r io.Reader) (kong.Resolver, error) {
	var doc map[string]any

	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return config{}, nil
	}

	out := make(config, len(doc))
	for k, v := range doc {
		out[k] = native(v)
	}

	return out, nil
}

// config implements [kong.Resolver] for YAML configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil
}

// native converts decoded YAML scalars into values kong can map. Kong
// requires numbers as strings.
func native(v any) any {
	switch v := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(v)

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = native(e)
		}

		return out

	default:
		return v
	}
}
