package data

import (
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/ardnew/stache/mustache"
)

// Element is one XML element.
//
// As a [mustache.TreeNode], a name resolves to the attribute of that name,
// or else to the child elements of that name. The text of an element is
// its character data with surrounding whitespace removed.
type Element struct {
	Name     string
	Attrs    map[string]string
	Elements []*Element

	text strings.Builder
}

// Attr returns the value of the attribute with local name name.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]

	return v, ok
}

// Children returns the child elements with local name name.
func (e *Element) Children(name string) []mustache.TreeNode {
	var kids []mustache.TreeNode

	for _, c := range e.Elements {
		if c.Name == name {
			kids = append(kids, c)
		}
	}

	return kids
}

// Text returns the trimmed character data directly inside e.
func (e *Element) Text() string { return strings.TrimSpace(e.text.String()) }

// String returns the text of e, so an element interpolates as its text.
func (e *Element) String() string { return e.Text() }

// DecodeXML reads an XML document from r and returns its root element.
func DecodeXML(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *Element
		stack []*Element
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, ErrDecode.Wrap(err).With(slog.String("format", FormatXML.String()))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			e := &Element{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				e.Attrs[a.Name.Local] = a.Value
			}

			if n := len(stack); n > 0 {
				stack[n-1].Elements = append(stack[n-1].Elements, e)
			} else if root == nil {
				root = e
			}

			stack = append(stack, e)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if n := len(stack); n > 0 {
				stack[n-1].text.Write(t)
			}

		default:
		}
	}

	if root == nil {
		return nil, ErrDecode.With(
			slog.String("format", FormatXML.String()),
			slog.String("reason", "no root element"),
		)
	}

	return root, nil
}
