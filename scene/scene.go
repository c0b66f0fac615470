// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package scene defines the compiled scene model: the fully resolved,
// validated representation of a PhysML document that is handed to a
// simulation runtime. A Model is immutable once compiled; writers and
// runtimes are read-only consumers.
package scene

import "sync"

type (
	// A Model describes one compiled scene: the body tree rooted at World,
	// flat actuator and skin lists, global options and the default-class
	// forest the document resolved against.
	Model struct {
		Name      string
		Option    Option
		Compiler  Compiler
		Classes   []*Class // root classes of the forest, document order
		World     *Body
		Skins     []*Skin
		Actuators []*Actuator

		bodies    map[string]*Body
		joints    map[string]*Joint
		geoms     map[string]*Geom
		sites     map[string]*Site
		actuators map[string]*Actuator
	}

	// Option holds global simulation options carried through compilation.
	Option struct {
		Timestep float64
		Gravity  [3]float64
	}

	// Compiler holds the global compile policies that were in effect.
	// The writer consults them when deciding what is derivable on reload.
	Compiler struct {
		// InertiaFromGeom selects how body inertias are obtained.
		// In Auto mode an authored <inertial> wins; True recomputes from
		// geoms unconditionally; False requires authored inertials.
		InertiaFromGeom InertiaMode
		// AutoLimits infers joint and actuator "limited" flags from the
		// presence of a range.
		AutoLimits bool
		// Degree reports whether the source document authored angles in
		// degrees. Compiled angles are always radians.
		Degree bool
		// SetTotalMass rescales all masses to the given total when > 0.
		SetTotalMass float64
	}

	// A Class is one node of the default-class forest. Attrs maps an
	// element kind (e.g. "geom", "joint") to that kind's raw attribute
	// defaults at this class level.
	Class struct {
		Name     string
		Parent   *Class
		Children []*Class
		Attrs    map[string]map[string]string

		mu        sync.Mutex
		effective map[string]map[string]string
	}

	// A Body is one node of the kinematic tree.
	Body struct {
		Name       string
		ID         int
		Parent     *Body
		Pos        [3]float64
		Quat       [4]float64
		ChildClass *Class
		Inertial   *Inertial
		Joints     []*Joint
		Geoms      []*Geom
		Sites      []*Site
		Children   []*Body
	}

	// An Inertial describes a body's mass distribution. Explicit records
	// whether it was authored in the document or derived from geometry;
	// derived inertials are never written back.
	Inertial struct {
		Explicit    bool
		Pos         [3]float64
		Mass        float64
		DiagInertia []float64 // 3 principal moments, nil if unset
		FullInertia []float64 // xx yy zz xy xz yz, nil if diagonal
	}

	// A Joint connects a body to its parent.
	Joint struct {
		Name            string
		ID              int
		Body            *Body
		Class           *Class
		Type            JointType
		Pos             [3]float64
		Axis            [3]float64
		Limited         bool
		LimitedExplicit bool
		Range           [2]float64
		Damping         float64
	}

	// A Geom is a geometric primitive attached to a body. Exactly one of
	// MassExplicit and DensityExplicit may be set; when neither is, the
	// global default density produced the mass.
	Geom struct {
		Name            string
		ID              int
		Body            *Body
		Class           *Class
		Type            GeomType
		Size            []float64 // type-dependent, up to 3 values
		Pos             [3]float64
		Quat            [4]float64
		Mass            float64
		Density         float64
		MassExplicit    bool
		DensityExplicit bool
		RGBA            []float64 // nil if unset
		Contype         int
		Conaffinity     int
	}

	// A Site is a massless frame attached to a body.
	Site struct {
		Name  string
		ID    int
		Body  *Body
		Class *Class
		Pos   [3]float64
		Size  []float64
	}

	// An Actuator acts on one joint.
	Actuator struct {
		Name               string
		ID                 int
		Class              *Class
		Joint              *Joint
		Gear               float64
		DynType            string
		GainType           string
		ActLimited         bool
		ActLimitedExplicit bool
		ActRange           [2]float64
	}

	// A Skin is a deformable surface bound to a set of bodies, typically
	// generated by composite expansion.
	Skin struct {
		Name     string
		ID       int
		Texcoord bool
		Vertex   []float64 // 3 values per vertex
		Face     []int     // 3 indices per triangle
		Bodies   []string
	}
)

// An InertiaMode selects how body inertia is obtained during compilation.
type InertiaMode int

// InertiaMode values.
const (
	InertiaAuto InertiaMode = iota // authored inertial wins, geoms otherwise
	InertiaFromGeom                // always recompute from geoms
	InertiaFromAuthored            // authored inertials only
)

// A JointType is the motion type of a Joint.
type JointType string

// JointType values.
const (
	JointHinge JointType = "hinge"
	JointSlide JointType = "slide"
	JointBall  JointType = "ball"
	JointFree  JointType = "free"
)

// A GeomType is the primitive shape of a Geom.
type GeomType string

// GeomType values.
const (
	GeomSphere    GeomType = "sphere"
	GeomCapsule   GeomType = "capsule"
	GeomEllipsoid GeomType = "ellipsoid"
	GeomCylinder  GeomType = "cylinder"
	GeomBox       GeomType = "box"
	GeomPlane     GeomType = "plane"
)

// DefaultDensity is the implicit geom density (water, in SI units) applied
// when neither mass nor density is authored anywhere in the class chain.
const DefaultDensity = 1000

// DefaultOption returns the global option defaults.
func DefaultOption() Option {
	return Option{Timestep: 0.002, Gravity: [3]float64{0, 0, -9.81}}
}

// DefaultQuat is the identity orientation.
func DefaultQuat() [4]float64 { return [4]float64{1, 0, 0, 0} }

// MainClass is the name of the implicit top-level default class.
const MainClass = "main"

// Class returns the class with the given name, or nil. The forest is
// searched depth-first in document order.
func (m *Model) Class(name string) *Class {
	var find func(cs []*Class) *Class
	find = func(cs []*Class) *Class {
		for _, c := range cs {
			if c.Name == name {
				return c
			}
			if f := find(c.Children); f != nil {
				return f
			}
		}
		return nil
	}
	return find(m.Classes)
}

// Effective returns the effective attribute set of the given element kind
// for this class: the root-to-leaf accumulation of per-kind defaults, child
// levels overriding parents. The result is computed once per (class, kind)
// and cached under a lock, so concurrent readers of one model (e.g.
// parallel writers) may call it freely; callers must not mutate it.
func (c *Class) Effective(kind string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if eff, ok := c.effective[kind]; ok {
		return eff
	}
	eff := make(map[string]string)
	if c.Parent != nil {
		for k, v := range c.Parent.Effective(kind) {
			eff[k] = v
		}
	}
	for k, v := range c.Attrs[kind] {
		eff[k] = v
	}
	if c.effective == nil {
		c.effective = make(map[string]map[string]string)
	}
	c.effective[kind] = eff
	return eff
}
