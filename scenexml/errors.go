// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scenexml

import (
	"errors"
	"fmt"
)

type (
	// A ParseError reports a malformed document. Offset and Line locate
	// the failure in the input text.
	ParseError struct {
		Offset int64
		Line   int
		Err    error
	}

	// A DuplicateClassError reports two default classes declared with the
	// same name.
	DuplicateClassError struct {
		Name string
	}

	// An UnknownClassError reports a reference to an undeclared default
	// class.
	UnknownClassError struct {
		Name string
		Path string // element path of the referencing element
	}

	// A MissingAttrError reports a required attribute that is absent from
	// an element's effective attribute set.
	MissingAttrError struct {
		Path string
		Attr string
	}

	// A ValueError reports attribute text that failed type or enum
	// parsing.
	ValueError struct {
		Path string
		Attr string
		Text string
		Err  error
	}

	// An UnresolvedRefError reports a reference to an entity name that
	// does not exist in the model.
	UnresolvedRefError struct {
		Kind string // "joint", "body", "class"
		Name string
	}
)

func (e *ParseError) Error() string {
	return fmt.Sprintf("scenexml: malformed document at line %d (offset %d): %v", e.Line, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *DuplicateClassError) Error() string {
	return fmt.Sprintf("scenexml: duplicate default class %q", e.Name)
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("scenexml: %s: reference to unknown default class %q", e.Path, e.Name)
}

func (e *MissingAttrError) Error() string {
	return fmt.Sprintf("scenexml: %s: missing required attribute %q", e.Path, e.Attr)
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("scenexml: %s: invalid value %q for attribute %q: %v", e.Path, e.Text, e.Attr, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }

func (e *UnresolvedRefError) Error() string {
	return fmt.Sprintf("scenexml: unresolved reference to %s %q", e.Kind, e.Name)
}

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}

// IsValueError reports whether err is a ValueError.
func IsValueError(err error) bool {
	var e *ValueError
	return errors.As(err, &e)
}
