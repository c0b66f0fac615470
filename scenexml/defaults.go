// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scenexml

import (
	"strconv"

	"physml.io/physml/scene"
)

// A classRegistry holds the default-class forest built from the <default>
// subtree, plus a flat name index for reference resolution.
type classRegistry struct {
	main   *scene.Class // the implicit unnamed top class
	byName map[string]*scene.Class
}

// newClassRegistry builds the registry from the <default> element, which
// may be nil. Nested <default class="name"> elements define the forest;
// any other child element contributes its attributes as the per-kind
// defaults of the enclosing class.
func newClassRegistry(def *Element) (*classRegistry, error) {
	r := &classRegistry{
		main:   &scene.Class{Name: scene.MainClass, Attrs: map[string]map[string]string{}},
		byName: map[string]*scene.Class{},
	}
	r.byName[scene.MainClass] = r.main
	if def == nil {
		return r, nil
	}
	if err := r.fill(r.main, def); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *classRegistry) fill(c *scene.Class, e *Element) error {
	for _, child := range e.Children {
		if child.Tag == "default" {
			name, ok := child.Attr("class")
			if !ok || name == "" {
				return &MissingAttrError{Path: pathOf(child), Attr: "class"}
			}
			if _, dup := r.byName[name]; dup {
				return &DuplicateClassError{Name: name}
			}
			sub := &scene.Class{
				Name:   name,
				Parent: c,
				Attrs:  map[string]map[string]string{},
			}
			c.Children = append(c.Children, sub)
			r.byName[name] = sub
			if err := r.fill(sub, child); err != nil {
				return err
			}
			continue
		}
		// A per-kind defaults element, e.g. <geom size="0.3"/>.
		attrs := c.Attrs[child.Tag]
		if attrs == nil {
			attrs = map[string]string{}
			c.Attrs[child.Tag] = attrs
		}
		for _, a := range child.Attrs {
			attrs[a.K] = a.V
		}
	}
	return nil
}

// resolve returns the class an element compiles against: its explicit
// class attribute if present, otherwise the enclosing body's childclass,
// otherwise main.
func (r *classRegistry) resolve(e *Element, inherited *scene.Class) (*scene.Class, error) {
	if name, ok := e.Attr("class"); ok {
		c, ok := r.byName[name]
		if !ok {
			return nil, &UnknownClassError{Name: name, Path: pathOf(e)}
		}
		return c, nil
	}
	if inherited != nil {
		return inherited, nil
	}
	return r.main, nil
}

// pathOf renders an element position for error messages.
func pathOf(e *Element) string {
	return "<" + e.Tag + "> (line " + strconv.Itoa(e.Line) + ")"
}
