// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scenexml

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"physml.io/physml/numfmt"
	"physml.io/physml/scene"
)

type (
	// Config configures a compilation.
	Config struct {
		logger  *zap.Logger
		inertia *scene.InertiaMode
	}
	// Option configures a Config.
	Option func(*Config)
)

// WithLogger sets the logger used for compile-stage debug logs.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithInertiaFromGeom overrides the document's inertia policy, e.g. forcing
// recomputation of all body inertias from geometry regardless of authoring.
func WithInertiaFromGeom(m scene.InertiaMode) Option {
	return func(c *Config) { c.inertia = &m }
}

// CompileBytes parses and compiles a PhysML document in one step.
func CompileBytes(data []byte, opts ...Option) (*scene.Model, error) {
	root, err := ParseBytes(data)
	if err != nil {
		return nil, err
	}
	return Compile(root, opts...)
}

// Compile validates the parsed element tree and produces the compiled
// model. Compilation either fully succeeds or returns no model: any
// validation failure (missing attribute, invalid value, unresolved
// reference, class errors) aborts the whole attempt.
func Compile(root *Element, opts ...Option) (*scene.Model, error) {
	cfg := &Config{logger: Logger()}
	for _, opt := range opts {
		opt(cfg)
	}
	if root.Tag != "physml" {
		return nil, fmt.Errorf("scenexml: unexpected root element %q, want \"physml\"", root.Tag)
	}
	c := &compiler{cfg: cfg, m: &scene.Model{}}
	name, _ := root.Attr("model")
	c.m.Name = name
	if err := c.globals(root); err != nil {
		return nil, err
	}
	reg, err := newClassRegistry(root.Child("default"))
	if err != nil {
		return nil, err
	}
	c.reg = reg
	c.m.Classes = []*scene.Class{reg.main}
	wb := root.Child("worldbody")
	if wb == nil {
		return nil, fmt.Errorf("scenexml: missing <worldbody> element")
	}
	world, err := c.body(wb, nil, reg.main)
	if err != nil {
		return nil, err
	}
	c.m.World = world
	c.m.Reindex()
	if asset := root.Child("asset"); asset != nil {
		for _, se := range asset.ChildrenOf("skin") {
			s, err := c.skin(se)
			if err != nil {
				return nil, err
			}
			c.m.Skins = append(c.m.Skins, s)
		}
	}
	c.m.Skins = append(c.m.Skins, c.genSkins...)
	c.m.Reindex()
	if act := root.Child("actuator"); act != nil {
		for _, ae := range act.Children {
			a, err := c.actuator(ae)
			if err != nil {
				return nil, err
			}
			c.m.Actuators = append(c.m.Actuators, a)
		}
	}
	c.m.Reindex()
	if err := c.rescaleMass(); err != nil {
		return nil, err
	}
	cfg.logger.Debug("compiled model",
		zap.String("model", c.m.Name),
		zap.Int("bodies", len(c.m.Bodies())),
		zap.Int("actuators", len(c.m.Actuators)),
		zap.Int("skins", len(c.m.Skins)))
	return c.m, nil
}

type compiler struct {
	cfg      *Config
	reg      *classRegistry
	m        *scene.Model
	genSkins []*scene.Skin
}

// globals compiles the <compiler> and <option> elements.
func (c *compiler) globals(root *Element) error {
	c.m.Option = scene.DefaultOption()
	c.m.Compiler = scene.Compiler{AutoLimits: true, Degree: true, SetTotalMass: -1}
	if ce := root.Child("compiler"); ce != nil {
		rv := rawAttrs(ce)
		if v, ok := rv.lookup("inertiafromgeom"); ok {
			switch v {
			case "auto":
				c.m.Compiler.InertiaFromGeom = scene.InertiaAuto
			case "true":
				c.m.Compiler.InertiaFromGeom = scene.InertiaFromGeom
			case "false":
				c.m.Compiler.InertiaFromGeom = scene.InertiaFromAuthored
			default:
				return rv.invalid("inertiafromgeom", v, errEnum{"auto", "true", "false"})
			}
		}
		if err := rv.boolean("autolimits", &c.m.Compiler.AutoLimits); err != nil {
			return err
		}
		if v, ok := rv.lookup("angle"); ok {
			switch v {
			case "degree":
				c.m.Compiler.Degree = true
			case "radian":
				c.m.Compiler.Degree = false
			default:
				return rv.invalid("angle", v, errEnum{"degree", "radian"})
			}
		}
		if err := rv.float("settotalmass", &c.m.Compiler.SetTotalMass); err != nil {
			return err
		}
	}
	if c.cfg.inertia != nil {
		c.m.Compiler.InertiaFromGeom = *c.cfg.inertia
	}
	if oe := root.Child("option"); oe != nil {
		rv := rawAttrs(oe)
		if err := rv.float("timestep", &c.m.Option.Timestep); err != nil {
			return err
		}
		if err := rv.vec3("gravity", &c.m.Option.Gravity); err != nil {
			return err
		}
	}
	return nil
}

// body compiles a <body> (or <worldbody>) element and its subtree.
func (c *compiler) body(e *Element, parent *scene.Body, inherited *scene.Class) (*scene.Body, error) {
	b := &scene.Body{Parent: parent, Quat: scene.DefaultQuat()}
	childClass := inherited
	if e.Tag == "worldbody" && len(e.Attrs) > 0 {
		return nil, &ValueError{
			Path: pathOf(e),
			Attr: e.Attrs[0].K,
			Text: e.Attrs[0].V,
			Err:  fmt.Errorf("the world body cannot have attributes"),
		}
	}
	if e.Tag != "worldbody" {
		rv := c.resolved(e, "body", inherited)
		b.Name, _ = rv.lookup("name")
		if err := rv.vec3("pos", &b.Pos); err != nil {
			return nil, err
		}
		if err := rv.quat("quat", &b.Quat); err != nil {
			return nil, err
		}
		if name, ok := rv.lookup("childclass"); ok {
			cls, found := c.reg.byName[name]
			if !found {
				return nil, &UnknownClassError{Name: name, Path: pathOf(e)}
			}
			childClass = cls
			b.ChildClass = cls
		}
	}
	var authored *Element
	for _, child := range e.Children {
		switch child.Tag {
		case "inertial":
			authored = child
		case "joint":
			j, err := c.joint(child, b, childClass)
			if err != nil {
				return nil, err
			}
			b.Joints = append(b.Joints, j)
		case "geom":
			g, err := c.geom(child, b, childClass)
			if err != nil {
				return nil, err
			}
			b.Geoms = append(b.Geoms, g)
		case "site":
			s, err := c.site(child, b, childClass)
			if err != nil {
				return nil, err
			}
			b.Sites = append(b.Sites, s)
		case "body":
			sub, err := c.body(child, b, childClass)
			if err != nil {
				return nil, err
			}
			b.Children = append(b.Children, sub)
		case "composite":
			bodies, skin, err := c.expandComposite(child, childClass)
			if err != nil {
				return nil, err
			}
			for _, be := range bodies {
				sub, err := c.body(be, b, childClass)
				if err != nil {
					return nil, err
				}
				b.Children = append(b.Children, sub)
			}
			if skin != nil {
				c.genSkins = append(c.genSkins, skin)
			}
		default:
			return nil, fmt.Errorf("scenexml: %s: unknown element", pathOf(child))
		}
	}
	if e.Tag != "worldbody" {
		inertial, err := c.inertial(authored, b)
		if err != nil {
			return nil, err
		}
		b.Inertial = inertial
	}
	return b, nil
}

// inertial resolves a body's mass distribution according to the global
// inertia policy and records whether it was authored.
func (c *compiler) inertial(authored *Element, b *scene.Body) (*scene.Inertial, error) {
	mode := c.m.Compiler.InertiaFromGeom
	if mode != scene.InertiaFromGeom && authored != nil {
		in := &scene.Inertial{Explicit: true}
		rv := rawAttrs(authored)
		if err := rv.vec3("pos", &in.Pos); err != nil {
			return nil, err
		}
		v, ok := rv.lookup("mass")
		if !ok {
			return nil, &MissingAttrError{Path: pathOf(authored), Attr: "mass"}
		}
		mass, err := numfmt.ParseFloat(v)
		if err != nil {
			return nil, rv.invalid("mass", v, err)
		}
		in.Mass = mass
		if v, ok := rv.lookup("diaginertia"); ok {
			diag, err := numfmt.ParseVec(v, 3)
			if err != nil {
				return nil, rv.invalid("diaginertia", v, err)
			}
			in.DiagInertia = diag
		}
		if v, ok := rv.lookup("fullinertia"); ok {
			full, err := numfmt.ParseVec(v, 6)
			if err != nil {
				return nil, rv.invalid("fullinertia", v, err)
			}
			in.FullInertia = full
		}
		return in, nil
	}
	if mode == scene.InertiaFromAuthored {
		return nil, nil
	}
	return inertialFromGeoms(b), nil
}

// joint compiles one <joint> element.
func (c *compiler) joint(e *Element, b *scene.Body, inherited *scene.Class) (*scene.Joint, error) {
	cls, err := c.reg.resolve(e, inherited)
	if err != nil {
		return nil, err
	}
	j := &scene.Joint{Body: b, Class: cls, Type: scene.JointHinge, Axis: [3]float64{0, 0, 1}}
	rv := c.resolved(e, "joint", cls)
	j.Name, _ = rv.lookup("name")
	if v, ok := rv.lookup("type"); ok {
		switch t := scene.JointType(v); t {
		case scene.JointHinge, scene.JointSlide, scene.JointBall, scene.JointFree:
			j.Type = t
		default:
			return nil, rv.invalid("type", v, errEnum{"hinge", "slide", "ball", "free"})
		}
	}
	if err := rv.vec3("pos", &j.Pos); err != nil {
		return nil, err
	}
	if err := rv.vec3("axis", &j.Axis); err != nil {
		return nil, err
	}
	if err := rv.float("damping", &j.Damping); err != nil {
		return nil, err
	}
	hasRange := false
	if v, ok := rv.lookup("range"); ok {
		r, err := numfmt.ParseVec(v, 2)
		if err != nil {
			return nil, rv.invalid("range", v, err)
		}
		// Hinge ranges are authored in the compiler's angle unit and
		// stored in radians.
		j.Range = [2]float64{c.angle(r[0], j.Type), c.angle(r[1], j.Type)}
		hasRange = true
	}
	if v, ok := rv.lookup("limited"); ok {
		lim, err := parseBool(v)
		if err != nil {
			return nil, rv.invalid("limited", v, err)
		}
		j.Limited = lim
		j.LimitedExplicit = true
	} else if c.m.Compiler.AutoLimits && hasRange {
		j.Limited = true
	}
	return j, nil
}

// angle converts an authored angle value to radians for angular joints.
func (c *compiler) angle(v float64, t scene.JointType) float64 {
	if c.m.Compiler.Degree && (t == scene.JointHinge || t == scene.JointBall) {
		return v * degToRad
	}
	return v
}

const degToRad = 0.017453292519943295

// geom compiles one <geom> element, applying the mass/density exclusivity
// policy: mass wins when both appear in the effective attribute set, and
// the loser is marked not explicit so it is never written back.
func (c *compiler) geom(e *Element, b *scene.Body, inherited *scene.Class) (*scene.Geom, error) {
	cls, err := c.reg.resolve(e, inherited)
	if err != nil {
		return nil, err
	}
	g := &scene.Geom{Body: b, Class: cls, Type: scene.GeomSphere, Quat: scene.DefaultQuat(), Contype: 1, Conaffinity: 1}
	rv := c.resolved(e, "geom", cls)
	g.Name, _ = rv.lookup("name")
	if v, ok := rv.lookup("type"); ok {
		switch t := scene.GeomType(v); t {
		case scene.GeomSphere, scene.GeomCapsule, scene.GeomEllipsoid,
			scene.GeomCylinder, scene.GeomBox, scene.GeomPlane:
			g.Type = t
		default:
			return nil, rv.invalid("type", v, errEnum{"sphere", "capsule", "ellipsoid", "cylinder", "box", "plane"})
		}
	}
	v, ok := rv.lookup("size")
	if !ok && g.Type != scene.GeomPlane {
		return nil, &MissingAttrError{Path: pathOf(e), Attr: "size"}
	}
	if ok {
		size, err := numfmt.ParseVec(v, 0)
		if err != nil || len(size) == 0 || len(size) > 3 {
			if err == nil {
				err = fmt.Errorf("expected 1 to 3 values, got %d", len(size))
			}
			return nil, rv.invalid("size", v, err)
		}
		g.Size = size
	}
	if n := sizeValues(g.Type); len(g.Size) < n {
		return nil, rv.invalid("size", v, fmt.Errorf("%s requires %d size values, got %d", g.Type, n, len(g.Size)))
	}
	if err := rv.vec3("pos", &g.Pos); err != nil {
		return nil, err
	}
	if err := rv.quat("quat", &g.Quat); err != nil {
		return nil, err
	}
	if err := rv.intval("contype", &g.Contype); err != nil {
		return nil, err
	}
	if err := rv.intval("conaffinity", &g.Conaffinity); err != nil {
		return nil, err
	}
	if v, ok := rv.lookup("rgba"); ok {
		rgba, err := numfmt.ParseVec(v, 4)
		if err != nil {
			return nil, rv.invalid("rgba", v, err)
		}
		g.RGBA = rgba
	}
	massTxt, hasMass := rv.lookup("mass")
	denTxt, hasDensity := rv.lookup("density")
	switch {
	case hasMass:
		// Mass wins over density regardless of source order.
		m, err := numfmt.ParseFloat(massTxt)
		if err != nil {
			return nil, rv.invalid("mass", massTxt, err)
		}
		g.Mass = m
		g.MassExplicit = true
		if vol := geomVolume(g.Type, g.Size); vol > 0 {
			g.Density = m / vol
		}
	case hasDensity:
		d, err := numfmt.ParseFloat(denTxt)
		if err != nil {
			return nil, rv.invalid("density", denTxt, err)
		}
		g.Density = d
		g.DensityExplicit = true
		g.Mass = d * geomVolume(g.Type, g.Size)
	default:
		g.Density = scene.DefaultDensity
		g.Mass = scene.DefaultDensity * geomVolume(g.Type, g.Size)
	}
	return g, nil
}

// sizeValues returns the number of size values a geom type requires.
func sizeValues(t scene.GeomType) int {
	switch t {
	case scene.GeomSphere:
		return 1
	case scene.GeomCapsule, scene.GeomCylinder:
		return 2
	case scene.GeomEllipsoid, scene.GeomBox:
		return 3
	default: // plane
		return 0
	}
}

// site compiles one <site> element.
func (c *compiler) site(e *Element, b *scene.Body, inherited *scene.Class) (*scene.Site, error) {
	cls, err := c.reg.resolve(e, inherited)
	if err != nil {
		return nil, err
	}
	s := &scene.Site{Body: b, Class: cls, Size: []float64{0.005}}
	rv := c.resolved(e, "site", cls)
	s.Name, _ = rv.lookup("name")
	if err := rv.vec3("pos", &s.Pos); err != nil {
		return nil, err
	}
	if v, ok := rv.lookup("size"); ok {
		size, err := numfmt.ParseVec(v, 0)
		if err != nil {
			return nil, rv.invalid("size", v, err)
		}
		s.Size = size
	}
	return s, nil
}

// actuator compiles one <general> or <motor> element. Motors are the fixed
// shorthand: dyntype none, gaintype fixed.
func (c *compiler) actuator(e *Element) (*scene.Actuator, error) {
	if e.Tag != "general" && e.Tag != "motor" {
		return nil, fmt.Errorf("scenexml: %s: unknown element", pathOf(e))
	}
	cls, err := c.reg.resolve(e, nil)
	if err != nil {
		return nil, err
	}
	a := &scene.Actuator{Class: cls, Gear: 1, DynType: "none", GainType: "fixed"}
	rv := c.resolved(e, e.Tag, cls)
	a.Name, _ = rv.lookup("name")
	jname, ok := rv.lookup("joint")
	if !ok {
		return nil, &MissingAttrError{Path: pathOf(e), Attr: "joint"}
	}
	j := c.m.Joint(jname)
	if j == nil {
		return nil, &UnresolvedRefError{Kind: "joint", Name: jname}
	}
	a.Joint = j
	if err := rv.float("gear", &a.Gear); err != nil {
		return nil, err
	}
	if e.Tag == "general" {
		if v, ok := rv.lookup("dyntype"); ok {
			switch v {
			case "none", "integrator", "filter":
				a.DynType = v
			default:
				return nil, rv.invalid("dyntype", v, errEnum{"none", "integrator", "filter"})
			}
		}
		if v, ok := rv.lookup("gaintype"); ok {
			switch v {
			case "fixed", "affine":
				a.GainType = v
			default:
				return nil, rv.invalid("gaintype", v, errEnum{"fixed", "affine"})
			}
		}
	}
	hasRange := false
	if v, ok := rv.lookup("actrange"); ok {
		r, err := numfmt.ParseVec(v, 2)
		if err != nil {
			return nil, rv.invalid("actrange", v, err)
		}
		a.ActRange = [2]float64{r[0], r[1]}
		hasRange = true
	}
	if v, ok := rv.lookup("actlimited"); ok {
		lim, err := parseBool(v)
		if err != nil {
			return nil, rv.invalid("actlimited", v, err)
		}
		a.ActLimited = lim
		a.ActLimitedExplicit = true
	} else if c.m.Compiler.AutoLimits && hasRange {
		a.ActLimited = true
	}
	return a, nil
}

// skin compiles one concrete <skin> element under <asset>.
func (c *compiler) skin(e *Element) (*scene.Skin, error) {
	s := &scene.Skin{}
	rv := rawAttrs(e)
	s.Name, _ = rv.lookup("name")
	if err := rv.boolean("texcoord", &s.Texcoord); err != nil {
		return nil, err
	}
	if v, ok := rv.lookup("vertex"); ok {
		vs, err := numfmt.ParseVec(v, 0)
		if err != nil || len(vs)%3 != 0 {
			if err == nil {
				err = fmt.Errorf("vertex count %d is not a multiple of 3", len(vs))
			}
			return nil, rv.invalid("vertex", v, err)
		}
		s.Vertex = vs
	}
	if v, ok := rv.lookup("face"); ok {
		fs, err := parseInts(v)
		if err != nil || len(fs)%3 != 0 {
			if err == nil {
				err = fmt.Errorf("face count %d is not a multiple of 3", len(fs))
			}
			return nil, rv.invalid("face", v, err)
		}
		s.Face = fs
	}
	if v, ok := rv.lookup("body"); ok {
		for _, name := range strings.Fields(v) {
			if c.m.Body(name) == nil {
				return nil, &UnresolvedRefError{Kind: "body", Name: name}
			}
			s.Bodies = append(s.Bodies, name)
		}
	}
	return s, nil
}

// rescaleMass applies the settotalmass policy: all body masses and inertias
// are scaled so the model's total mass equals the requested value.
func (c *compiler) rescaleMass() error {
	target := c.m.Compiler.SetTotalMass
	if target <= 0 {
		return nil
	}
	var total float64
	for _, b := range c.m.Bodies() {
		if b.Inertial != nil {
			total += b.Inertial.Mass
		}
	}
	if total <= 0 {
		return fmt.Errorf("scenexml: settotalmass=%s requires a model with positive mass", numfmt.Format(target))
	}
	f := target / total
	for _, b := range c.m.Bodies() {
		in := b.Inertial
		if in == nil {
			continue
		}
		in.Mass *= f
		for i := range in.DiagInertia {
			in.DiagInertia[i] *= f
		}
		for i := range in.FullInertia {
			in.FullInertia[i] *= f
		}
	}
	return nil
}

// resolved merges an element's own attributes over its class's effective
// defaults for the given kind. Own attributes always win.
type resolved struct {
	e    *Element
	eff  map[string]string
	path string
}

func (c *compiler) resolved(e *Element, kind string, cls *scene.Class) resolved {
	return resolved{e: e, eff: cls.Effective(kind), path: pathOf(e)}
}

// rawAttrs resolves an element with no default class participation
// (inertial, skin, compiler, option).
func rawAttrs(e *Element) resolved {
	return resolved{e: e, path: pathOf(e)}
}

func (rv resolved) lookup(name string) (string, bool) {
	if v, ok := rv.e.Attr(name); ok {
		return v, true
	}
	// Identity attributes never inherit from class defaults; a name in a
	// defaults block would stamp every element of that kind with it.
	if name == "name" || name == "class" {
		return "", false
	}
	v, ok := rv.eff[name]
	return v, ok
}

func (rv resolved) invalid(attr, text string, err error) error {
	return &ValueError{Path: rv.path, Attr: attr, Text: text, Err: err}
}

// float overwrites *dst if the attribute is present.
func (rv resolved) float(name string, dst *float64) error {
	v, ok := rv.lookup(name)
	if !ok {
		return nil
	}
	f, err := numfmt.ParseFloat(v)
	if err != nil {
		return rv.invalid(name, v, err)
	}
	*dst = f
	return nil
}

func (rv resolved) intval(name string, dst *int) error {
	v, ok := rv.lookup(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return rv.invalid(name, v, err)
	}
	*dst = n
	return nil
}

func (rv resolved) boolean(name string, dst *bool) error {
	v, ok := rv.lookup(name)
	if !ok {
		return nil
	}
	b, err := parseBool(v)
	if err != nil {
		return rv.invalid(name, v, err)
	}
	*dst = b
	return nil
}

func (rv resolved) vec3(name string, dst *[3]float64) error {
	v, ok := rv.lookup(name)
	if !ok {
		return nil
	}
	vs, err := numfmt.ParseVec(v, 3)
	if err != nil {
		return rv.invalid(name, v, err)
	}
	copy(dst[:], vs)
	return nil
}

func (rv resolved) quat(name string, dst *[4]float64) error {
	v, ok := rv.lookup(name)
	if !ok {
		return nil
	}
	vs, err := numfmt.ParseVec(v, 4)
	if err != nil {
		return rv.invalid(name, v, err)
	}
	copy(dst[:], vs)
	return nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, errEnum{"true", "false"}
}

func parseInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	ns := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		ns[i] = n
	}
	return ns, nil
}

type errEnum []string

func (e errEnum) Error() string {
	s := "must be one of"
	for i, v := range e {
		if i > 0 {
			s += ","
		}
		s += " " + strconv.Quote(v)
	}
	return s
}
