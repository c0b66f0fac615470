// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scenexml

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"physml.io/physml/numfmt"
	"physml.io/physml/scene"
)

// expandComposite replaces a <composite> generator with its concrete
// expansion: one generated <body> element per lattice point carrying the
// geom and joint templates, plus at most one generated skin when a <skin>
// template is present. Expansion is a pure function of the composite
// element, so a write→reload cycle of the expanded form is structurally
// identical. The generator itself never survives into the model.
func (c *compiler) expandComposite(e *Element, inherited *scene.Class) ([]*Element, *scene.Skin, error) {
	cls, err := c.reg.resolve(e, inherited)
	if err != nil {
		return nil, nil, err
	}
	rv := c.resolved(e, "composite", cls)
	typ, ok := rv.lookup("type")
	if !ok {
		return nil, nil, &MissingAttrError{Path: rv.path, Attr: "type"}
	}
	switch typ {
	case "grid", "cloth", "rope":
	default:
		return nil, nil, rv.invalid("type", typ, errEnum{"grid", "cloth", "rope"})
	}
	countTxt, ok := rv.lookup("count")
	if !ok {
		return nil, nil, &MissingAttrError{Path: rv.path, Attr: "count"}
	}
	count, err := parseInts(countTxt)
	if err != nil || len(count) == 0 || len(count) > 3 {
		if err == nil {
			err = fmt.Errorf("expected 1 to 3 values, got %d", len(count))
		}
		return nil, nil, rv.invalid("count", countTxt, err)
	}
	nx := count[0]
	ny := 1
	if len(count) > 1 {
		ny = count[1]
	}
	if typ == "rope" {
		ny = 1
	}
	if nx < 1 || ny < 1 {
		return nil, nil, rv.invalid("count", countTxt, fmt.Errorf("counts must be positive"))
	}
	spacingTxt, ok := rv.lookup("spacing")
	if !ok {
		return nil, nil, &MissingAttrError{Path: rv.path, Attr: "spacing"}
	}
	spacing, err := numfmt.ParseFloat(spacingTxt)
	if err != nil {
		return nil, nil, rv.invalid("spacing", spacingTxt, err)
	}
	if spacing <= 0 {
		return nil, nil, rv.invalid("spacing", spacingTxt, fmt.Errorf("spacing must be positive"))
	}
	var offset [3]float64
	if err := rv.vec3("offset", &offset); err != nil {
		return nil, nil, err
	}
	prefix, _ := rv.lookup("prefix")
	geomT := e.Child("geom")
	if geomT == nil {
		return nil, nil, fmt.Errorf("scenexml: %s: composite requires a <geom> template", rv.path)
	}
	jointT := e.Child("joint")

	var bodies []*Element
	var names []string
	vertexAt := func(i, j int) [3]float64 {
		return [3]float64{
			offset[0] + float64(i)*spacing,
			offset[1] + float64(j)*spacing,
			offset[2],
		}
	}
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			suffix := strconv.Itoa(i) + "_" + strconv.Itoa(j)
			name := prefix + "B" + suffix
			b := &Element{Tag: "body", Line: e.Line, Offset: e.Offset}
			b.SetAttr("name", name)
			pos := vertexAt(i, j)
			b.SetAttr("pos", numfmt.FormatVecFull(pos[:]))
			if jointT != nil {
				jt := copyTemplate(jointT)
				jt.SetAttr("name", prefix+"J"+suffix)
				b.Children = append(b.Children, jt)
			}
			g := copyTemplate(geomT)
			g.SetAttr("name", prefix+"G"+suffix)
			b.Children = append(b.Children, g)
			bodies = append(bodies, b)
			names = append(names, name)
		}
	}

	var skin *scene.Skin
	if skinT := e.Child("skin"); skinT != nil {
		skin = &scene.Skin{Name: prefix + "skin", Bodies: names}
		srv := rawAttrs(skinT)
		if err := srv.boolean("texcoord", &skin.Texcoord); err != nil {
			return nil, nil, err
		}
		for i := 0; i < nx; i++ {
			for j := 0; j < ny; j++ {
				v := vertexAt(i, j)
				skin.Vertex = append(skin.Vertex, v[0], v[1], v[2])
			}
		}
		idx := func(i, j int) int { return i*ny + j }
		for i := 0; i < nx-1; i++ {
			for j := 0; j < ny-1; j++ {
				skin.Face = append(skin.Face,
					idx(i, j), idx(i+1, j), idx(i+1, j+1),
					idx(i, j), idx(i+1, j+1), idx(i, j+1))
			}
		}
	}
	c.cfg.logger.Debug("expanded composite",
		zap.String("type", typ),
		zap.Int("bodies", len(bodies)),
		zap.Bool("skin", skin != nil))
	return bodies, skin, nil
}

// copyTemplate shallow-copies a template element: tag, attributes and
// position, but never children.
func copyTemplate(t *Element) *Element {
	e := &Element{Tag: t.Tag, Line: t.Line, Offset: t.Offset}
	e.Attrs = append(e.Attrs, t.Attrs...)
	return e
}
