// Package data loads render data from YAML, JSON, and XML documents.
//
// YAML and JSON documents decode into the maps and slices the default scope
// factory understands. XML documents decode into an [Element] tree, which
// is a [mustache.TreeNode].
package data

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/stache/mustache"
)

// Errors returned when loading data.
var (
	ErrUnknownFormat = mustache.NewError("unknown data format")
	ErrReadData      = mustache.NewError("failed to read data")
	ErrDecode        = mustache.NewError("failed to decode data")
)

// Format identifies the encoding of a data document.
type Format int

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatJSON
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return "unknown"
	}
}

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".xml":
		return FormatXML
	default:
		return FormatUnknown
	}
}

// Load reads and decodes the file at path according to its extension.
func Load(path string) (any, error) {
	f := FormatOf(path)
	if f == FormatUnknown {
		return nil, ErrUnknownFormat.With(slog.String("path", path))
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrReadData.Wrap(err).With(slog.String("path", path))
	}

	v, err := Decode(bytes.NewReader(b), f)
	if err != nil {
		return nil, mustache.WrapError(err).With(slog.String("path", path))
	}

	return v, nil
}

// LoadAll loads each path in order.
func LoadAll(paths ...string) ([]any, error) {
	out := make([]any, 0, len(paths))

	for _, p := range paths {
		v, err := Load(p)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

// Decode reads one document of format f from r.
//
// JSON is decoded by the YAML decoder, which accepts it as a subset.
// An empty YAML or JSON document decodes to nil.
func Decode(r io.Reader, f Format) (any, error) {
	switch f {
	case FormatYAML, FormatJSON:
		var v any

		err := yaml.NewDecoder(r).Decode(&v)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, ErrDecode.Wrap(err).With(slog.String("format", f.String()))
		}

		return v, nil

	case FormatXML:
		return DecodeXML(r)

	default:
		return nil, ErrUnknownFormat.With(slog.String("format", f.String()))
	}
}
