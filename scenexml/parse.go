// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package scenexml parses, compiles and writes PhysML scene documents.
//
// The pipeline is text → Parse → element tree → Compile → *scene.Model →
// Write → text. Parse is schema-free; all validation happens in Compile.
// Write emits canonical two-space indented XML, eliding attributes that
// match the element's resolved default class and fields the compiler
// derived rather than read.
package scenexml

import (
	"bytes"
	"encoding/xml"
	"io"
)

type (
	// An Element is one node of a parsed document: a tag, its attributes
	// in document order, and its child elements. Elements are owned by
	// their parent; the root is owned by the parse result.
	Element struct {
		Tag      string
		Attrs    []Attr
		Children []*Element

		// Line and Offset locate the element's start tag in the input.
		Line   int
		Offset int64
	}

	// An Attr is one raw attribute: its name and unparsed text value.
	Attr struct {
		K, V string
	}
)

// Attr returns the raw value of the named attribute and whether it is set.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.K == name {
			return a.V, true
		}
	}
	return "", false
}

// SetAttr sets the named attribute, replacing an existing value.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.Attrs {
		if a.K == name {
			e.Attrs[i].V = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{K: name, V: value})
}

// Child returns the first child element with the given tag, or nil.
func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// ChildrenOf returns all child elements with the given tag, in order.
func (e *Element) ChildrenOf(tag string) []*Element {
	var cs []*Element
	for _, c := range e.Children {
		if c.Tag == tag {
			cs = append(cs, c)
		}
	}
	return cs
}

// Parse reads XML text and returns the root element of the document tree,
// or a ParseError locating the malformed input.
func Parse(r io.Reader) (*Element, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// ParseBytes parses a PhysML document into its element tree, or returns a
// ParseError locating the malformed input. No schema validation is
// performed; unknown tags and attributes are preserved verbatim.
func ParseBytes(data []byte) (*Element, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	var (
		stack []*Element
		root  *Element
	)
	for {
		off := d.InputOffset()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(data, off, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			e := &Element{Tag: t.Name.Local, Line: lineAt(data, off), Offset: off}
			for _, a := range t.Attr {
				if a.Name.Space == "" {
					e.Attrs = append(e.Attrs, Attr{K: a.Name.Local, V: a.Value})
				}
			}
			switch {
			case len(stack) > 0:
				p := stack[len(stack)-1]
				p.Children = append(p.Children, e)
			case root != nil:
				return nil, parseError(data, off, errSecondRoot(t.Name.Local))
			default:
				root = e
			}
			stack = append(stack, e)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
		// Whitespace-only character data is not significant and is
		// discarded. The compiler judges any unknown content.
	}
	if root == nil {
		return nil, parseError(data, d.InputOffset(), errEmptyDoc{})
	}
	return root, nil
}

// lineAt returns the 1-based line number of the given byte offset.
func lineAt(data []byte, off int64) int {
	if off > int64(len(data)) {
		off = int64(len(data))
	}
	return 1 + bytes.Count(data[:off], []byte{'\n'})
}

func parseError(data []byte, off int64, err error) error {
	line := lineAt(data, off)
	if s, ok := err.(*xml.SyntaxError); ok {
		line = s.Line
	}
	return &ParseError{Offset: off, Line: line, Err: err}
}

type errSecondRoot string

func (e errSecondRoot) Error() string {
	return "unexpected second root element <" + string(e) + ">"
}

type errEmptyDoc struct{}

func (errEmptyDoc) Error() string { return "document contains no elements" }
