// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scenexml

import (
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"physml.io/physml/numfmt"
	"physml.io/physml/scene"
)

// Write emits the canonical XML form of a compiled model: two-space
// indentation, double-quoted attributes, one opening tag per element.
// Attributes equal to the effective default of the element's resolved
// class are elided, and derived fields (non-explicit inertials, the losing
// side of mass/density) are never emitted. Numbers are formatted in the
// currently scoped precision mode; the model itself is never mutated.
func Write(m *scene.Model) ([]byte, error) {
	doc := buildDocument(m)
	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	Logger().Debug("wrote model",
		zap.String("model", m.Name),
		zap.Int("bytes", len(data)),
		zap.Bool("full_precision", numfmt.FullPrecisionEnabled()))
	return data, nil
}

// WriteString is Write returning a string.
func WriteString(m *scene.Model) (string, error) {
	data, err := Write(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func buildDocument(m *scene.Model) *etree.Document {
	doc := etree.NewDocument()
	root := doc.CreateElement("physml")
	if m.Name != "" {
		root.CreateAttr("model", m.Name)
	}
	writeCompiler(root, m)
	writeOption(root, m)
	writeDefaults(root, m)
	writeAssets(root, m)
	deg := m.Compiler.Degree
	w := root.CreateElement("worldbody")
	for _, b := range m.World.Children {
		writeBody(w, b, mainClass(m), deg)
	}
	for _, g := range m.World.Geoms {
		writeGeom(w, g, mainClass(m))
	}
	for _, s := range m.World.Sites {
		writeSite(w, s, mainClass(m))
	}
	writeActuators(root, m)
	return doc
}

func mainClass(m *scene.Model) *scene.Class {
	if len(m.Classes) > 0 {
		return m.Classes[0]
	}
	return nil
}

// writeCompiler records the non-default compile policies a reload needs to
// reproduce the model. Angular values are written back in the document's
// authored unit so verbatim class defaults keep their meaning.
func writeCompiler(root *etree.Element, m *scene.Model) {
	var attrs []etree.Attr
	if !m.Compiler.Degree {
		attrs = append(attrs, etree.Attr{Key: "angle", Value: "radian"})
	}
	switch m.Compiler.InertiaFromGeom {
	case scene.InertiaFromGeom:
		attrs = append(attrs, etree.Attr{Key: "inertiafromgeom", Value: "true"})
	case scene.InertiaFromAuthored:
		attrs = append(attrs, etree.Attr{Key: "inertiafromgeom", Value: "false"})
	}
	if !m.Compiler.AutoLimits {
		attrs = append(attrs, etree.Attr{Key: "autolimits", Value: "false"})
	}
	if m.Compiler.SetTotalMass > 0 {
		attrs = append(attrs, etree.Attr{Key: "settotalmass", Value: numfmt.Format(m.Compiler.SetTotalMass)})
	}
	if len(attrs) == 0 {
		return
	}
	ce := root.CreateElement("compiler")
	for _, a := range attrs {
		ce.CreateAttr(a.Key, a.Value)
	}
}

func writeOption(root *etree.Element, m *scene.Model) {
	def := scene.DefaultOption()
	var attrs []etree.Attr
	if m.Option.Timestep != def.Timestep {
		attrs = append(attrs, etree.Attr{Key: "timestep", Value: numfmt.Format(m.Option.Timestep)})
	}
	if m.Option.Gravity != def.Gravity {
		attrs = append(attrs, etree.Attr{Key: "gravity", Value: numfmt.FormatVec(m.Option.Gravity[:])})
	}
	if len(attrs) == 0 {
		return
	}
	oe := root.CreateElement("option")
	for _, a := range attrs {
		oe.CreateAttr(a.Key, a.Value)
	}
}

// writeDefaults re-emits the whole class forest, including classes with no
// attributes and classes no element references: document structure
// fidelity takes precedence over minimality.
func writeDefaults(root *etree.Element, m *scene.Model) {
	main := mainClass(m)
	if main == nil || len(main.Attrs) == 0 && len(main.Children) == 0 {
		return
	}
	writeClass(root, main, true)
}

func writeClass(parent *etree.Element, c *scene.Class, top bool) {
	el := parent.CreateElement("default")
	if !top {
		el.CreateAttr("class", c.Name)
	}
	kinds := make([]string, 0, len(c.Attrs))
	for k := range c.Attrs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		ke := el.CreateElement(kind)
		names := make([]string, 0, len(c.Attrs[kind]))
		for n := range c.Attrs[kind] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			ke.CreateAttr(n, c.Attrs[kind][n])
		}
	}
	for _, sub := range c.Children {
		writeClass(el, sub, false)
	}
}

func writeAssets(root *etree.Element, m *scene.Model) {
	if len(m.Skins) == 0 {
		return
	}
	ae := root.CreateElement("asset")
	for _, s := range m.Skins {
		se := ae.CreateElement("skin")
		if s.Name != "" {
			se.CreateAttr("name", s.Name)
		}
		if s.Texcoord {
			se.CreateAttr("texcoord", "true")
		}
		if len(s.Vertex) > 0 {
			se.CreateAttr("vertex", numfmt.FormatVec(s.Vertex))
		}
		if len(s.Face) > 0 {
			se.CreateAttr("face", joinInts(s.Face))
		}
		if len(s.Bodies) > 0 {
			se.CreateAttr("body", strings.Join(s.Bodies, " "))
		}
	}
}

func writeBody(parent *etree.Element, b *scene.Body, inherited *scene.Class, deg bool) {
	el := parent.CreateElement("body")
	if b.Name != "" {
		el.CreateAttr("name", b.Name)
	}
	childClass := inherited
	if b.ChildClass != nil && b.ChildClass != inherited {
		el.CreateAttr("childclass", b.ChildClass.Name)
		childClass = b.ChildClass
	} else if b.ChildClass != nil {
		childClass = b.ChildClass
	}
	if b.Pos != ([3]float64{}) {
		el.CreateAttr("pos", numfmt.FormatVec(b.Pos[:]))
	}
	if b.Quat != scene.DefaultQuat() {
		el.CreateAttr("quat", numfmt.FormatVec(b.Quat[:]))
	}
	if in := b.Inertial; in != nil && in.Explicit {
		ie := el.CreateElement("inertial")
		ie.CreateAttr("pos", numfmt.FormatVec(in.Pos[:]))
		ie.CreateAttr("mass", numfmt.Format(in.Mass))
		if in.DiagInertia != nil {
			ie.CreateAttr("diaginertia", numfmt.FormatVec(in.DiagInertia))
		}
		if in.FullInertia != nil {
			ie.CreateAttr("fullinertia", numfmt.FormatVec(in.FullInertia))
		}
	}
	for _, j := range b.Joints {
		writeJoint(el, j, childClass, deg)
	}
	for _, g := range b.Geoms {
		writeGeom(el, g, childClass)
	}
	for _, s := range b.Sites {
		writeSite(el, s, childClass)
	}
	for _, c := range b.Children {
		writeBody(el, c, childClass, deg)
	}
}

func writeJoint(parent *etree.Element, j *scene.Joint, inherited *scene.Class, deg bool) {
	w := newAttrWriter(parent.CreateElement("joint"), j.Class, "joint")
	if j.Name != "" {
		w.el.CreateAttr("name", j.Name)
	}
	if j.Class != inherited {
		w.el.CreateAttr("class", j.Class.Name)
	}
	w.str("type", string(j.Type), "hinge")
	w.vec("pos", j.Pos[:], []float64{0, 0, 0})
	w.vec("axis", j.Axis[:], []float64{0, 0, 1})
	// Ranges are stored in radians; emit in the document's angle unit.
	r := []float64{j.Range[0], j.Range[1]}
	if deg && (j.Type == scene.JointHinge || j.Type == scene.JointBall) {
		r[0] /= degToRad
		r[1] /= degToRad
	}
	w.vec("range", r, []float64{0, 0})
	if j.LimitedExplicit {
		w.boolean("limited", j.Limited)
	}
	w.float("damping", j.Damping, 0)
}

func writeGeom(parent *etree.Element, g *scene.Geom, inherited *scene.Class) {
	w := newAttrWriter(parent.CreateElement("geom"), g.Class, "geom")
	if g.Name != "" {
		w.el.CreateAttr("name", g.Name)
	}
	if g.Class != inherited {
		w.el.CreateAttr("class", g.Class.Name)
	}
	w.str("type", string(g.Type), "sphere")
	if g.Size != nil {
		w.vec("size", g.Size, nil)
	}
	w.vec("pos", g.Pos[:], []float64{0, 0, 0})
	w.vec("quat", g.Quat[:], []float64{1, 0, 0, 0})
	// Exactly one of mass and density may have been explicit; the derived
	// one is never written.
	if g.MassExplicit {
		w.explicitFloat("mass", g.Mass)
	} else if g.DensityExplicit {
		w.explicitFloat("density", g.Density)
	}
	if g.RGBA != nil {
		w.vec("rgba", g.RGBA, []float64{0.5, 0.5, 0.5, 1})
	}
	w.intval("contype", g.Contype, 1)
	w.intval("conaffinity", g.Conaffinity, 1)
}

func writeSite(parent *etree.Element, s *scene.Site, inherited *scene.Class) {
	w := newAttrWriter(parent.CreateElement("site"), s.Class, "site")
	if s.Name != "" {
		w.el.CreateAttr("name", s.Name)
	}
	if s.Class != inherited {
		w.el.CreateAttr("class", s.Class.Name)
	}
	w.vec("pos", s.Pos[:], []float64{0, 0, 0})
	w.vec("size", s.Size, []float64{0.005})
}

func writeActuators(root *etree.Element, m *scene.Model) {
	if len(m.Actuators) == 0 {
		return
	}
	ae := root.CreateElement("actuator")
	for _, a := range m.Actuators {
		w := newAttrWriter(ae.CreateElement("general"), a.Class, "general")
		if a.Name != "" {
			w.el.CreateAttr("name", a.Name)
		}
		w.el.CreateAttr("joint", a.Joint.Name)
		w.str("dyntype", a.DynType, "none")
		w.str("gaintype", a.GainType, "fixed")
		w.float("gear", a.Gear, 1)
		if a.ActLimitedExplicit {
			w.boolean("actlimited", a.ActLimited)
		}
		w.vec("actrange", a.ActRange[:], []float64{0, 0})
	}
}

type attrWriter struct {
	el  *etree.Element
	eff map[string]string
}

func newAttrWriter(el *etree.Element, c *scene.Class, kind string) attrWriter {
	var eff map[string]string
	if c != nil {
		eff = c.Effective(kind)
	}
	return attrWriter{el: el, eff: eff}
}

// str writes the attribute unless it equals its effective default: the
// class default when the class defines one, the builtin default otherwise.
func (w attrWriter) str(name, val, def string) {
	if d, ok := w.eff[name]; ok {
		def = d
	}
	if val != def {
		w.el.CreateAttr(name, val)
	}
}

func (w attrWriter) float(name string, val, def float64) {
	if d, ok := w.eff[name]; ok {
		if f, err := numfmt.ParseFloat(d); err == nil {
			def = f
		}
	}
	if val != def {
		w.el.CreateAttr(name, numfmt.Format(val))
	}
}

// explicitFloat writes an explicitly-authored numeric attribute unless the
// class default already supplies the same value.
func (w attrWriter) explicitFloat(name string, val float64) {
	if d, ok := w.eff[name]; ok {
		if f, err := numfmt.ParseFloat(d); err == nil && f == val {
			return
		}
	}
	w.el.CreateAttr(name, numfmt.Format(val))
}

func (w attrWriter) intval(name string, val, def int) {
	if d, ok := w.eff[name]; ok {
		if n, err := strconv.Atoi(d); err == nil {
			def = n
		}
	}
	if val != def {
		w.el.CreateAttr(name, strconv.Itoa(val))
	}
}

func (w attrWriter) boolean(name string, val bool) {
	if d, ok := w.eff[name]; ok && d == numfmt.FormatBool(val) {
		return
	}
	w.el.CreateAttr(name, numfmt.FormatBool(val))
}

func (w attrWriter) vec(name string, val, def []float64) {
	if d, ok := w.eff[name]; ok {
		if vs, err := numfmt.ParseVec(d, 0); err == nil {
			def = vs
		}
	}
	if !vecEqual(val, def) {
		w.el.CreateAttr(name, numfmt.FormatVec(val))
	}
}

func vecEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinInts(ns []int) string {
	var b strings.Builder
	for i, n := range ns {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
