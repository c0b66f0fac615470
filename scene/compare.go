// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scene

import "math"

// compareEps is the comparison tolerance: the maximum spacing between a
// normalized float and an adjacent one is 2ε|x|, with a factor 10 headroom
// for non-idempotent derivations such as inertia aggregation.
const compareEps = 2 * 10 * 2.220446049250313e-16

// Compare reports the largest normalized difference between two compiled
// models and the name of the field where it occurs. Structural mismatches
// (entity counts, names, types) report a difference of 1. A result of 0
// means the models are equivalent within tolerance; this is the round-trip
// oracle used by save/reload tests.
func Compare(m1, m2 *Model) (float64, string) {
	c := &comparison{}
	c.num(m1.Option.Timestep, m2.Option.Timestep, "option.timestep")
	for i := range m1.Option.Gravity {
		c.num(m1.Option.Gravity[i], m2.Option.Gravity[i], "option.gravity")
	}
	c.bodies(m1.World, m2.World)
	if len(m1.Actuators) != len(m2.Actuators) {
		return 1, "nactuator"
	}
	for i := range m1.Actuators {
		c.actuator(m1.Actuators[i], m2.Actuators[i])
	}
	if len(m1.Skins) != len(m2.Skins) {
		return 1, "nskin"
	}
	for i := range m1.Skins {
		c.skin(m1.Skins[i], m2.Skins[i])
	}
	return c.maxdif, c.field
}

type comparison struct {
	maxdif float64
	field  string
}

func (c *comparison) num(v1, v2 float64, field string) {
	var err float64
	if math.Abs(v1) <= 1 || math.Abs(v2) <= 1 {
		// Absolute precision for small numbers.
		err = math.Abs(v1 - v2)
	} else {
		// Relative precision for larger numbers.
		mag := math.Max(math.Abs(v1), math.Abs(v2))
		err = math.Abs(v1/mag-v2/mag) / mag
	}
	if err < compareEps {
		err = 0
	}
	if err > c.maxdif {
		c.maxdif = err
		c.field = field
	}
}

func (c *comparison) vec(v1, v2 []float64, field string) {
	if len(v1) != len(v2) {
		c.maxdif, c.field = 1, field
		return
	}
	for i := range v1 {
		c.num(v1[i], v2[i], field)
	}
}

func (c *comparison) mismatch(cond bool, field string) bool {
	if cond {
		c.maxdif, c.field = 1, field
	}
	return cond
}

func (c *comparison) bodies(b1, b2 *Body) {
	if c.mismatch(b1 == nil != (b2 == nil), "body") {
		return
	}
	if b1 == nil {
		return
	}
	if c.mismatch(b1.Name != b2.Name, "body.name") {
		return
	}
	c.vec(b1.Pos[:], b2.Pos[:], "body.pos")
	c.vec(b1.Quat[:], b2.Quat[:], "body.quat")
	c.inertial(b1.Inertial, b2.Inertial)
	if c.mismatch(len(b1.Joints) != len(b2.Joints), "body.njoint") {
		return
	}
	for i := range b1.Joints {
		c.joint(b1.Joints[i], b2.Joints[i])
	}
	if c.mismatch(len(b1.Geoms) != len(b2.Geoms), "body.ngeom") {
		return
	}
	for i := range b1.Geoms {
		c.geom(b1.Geoms[i], b2.Geoms[i])
	}
	if c.mismatch(len(b1.Sites) != len(b2.Sites), "body.nsite") {
		return
	}
	for i := range b1.Sites {
		c.site(b1.Sites[i], b2.Sites[i])
	}
	if c.mismatch(len(b1.Children) != len(b2.Children), "body.nchild") {
		return
	}
	for i := range b1.Children {
		c.bodies(b1.Children[i], b2.Children[i])
	}
}

func (c *comparison) inertial(i1, i2 *Inertial) {
	if c.mismatch(i1 == nil != (i2 == nil), "inertial") {
		return
	}
	if i1 == nil {
		return
	}
	c.num(i1.Mass, i2.Mass, "inertial.mass")
	c.vec(i1.Pos[:], i2.Pos[:], "inertial.pos")
	c.vec(i1.DiagInertia, i2.DiagInertia, "inertial.diaginertia")
	c.vec(i1.FullInertia, i2.FullInertia, "inertial.fullinertia")
}

func (c *comparison) joint(j1, j2 *Joint) {
	if c.mismatch(j1.Name != j2.Name || j1.Type != j2.Type, "joint") {
		return
	}
	c.vec(j1.Pos[:], j2.Pos[:], "joint.pos")
	c.vec(j1.Axis[:], j2.Axis[:], "joint.axis")
	c.vec(j1.Range[:], j2.Range[:], "joint.range")
	c.num(j1.Damping, j2.Damping, "joint.damping")
	c.mismatch(j1.Limited != j2.Limited, "joint.limited")
}

func (c *comparison) geom(g1, g2 *Geom) {
	if c.mismatch(g1.Name != g2.Name || g1.Type != g2.Type, "geom") {
		return
	}
	c.vec(g1.Size, g2.Size, "geom.size")
	c.vec(g1.Pos[:], g2.Pos[:], "geom.pos")
	c.vec(g1.Quat[:], g2.Quat[:], "geom.quat")
	c.num(g1.Mass, g2.Mass, "geom.mass")
}

func (c *comparison) site(s1, s2 *Site) {
	if c.mismatch(s1.Name != s2.Name, "site") {
		return
	}
	c.vec(s1.Pos[:], s2.Pos[:], "site.pos")
	c.vec(s1.Size, s2.Size, "site.size")
}

func (c *comparison) actuator(a1, a2 *Actuator) {
	if c.mismatch(a1.Name != a2.Name || a1.DynType != a2.DynType, "actuator") {
		return
	}
	c.num(a1.Gear, a2.Gear, "actuator.gear")
	c.vec(a1.ActRange[:], a2.ActRange[:], "actuator.actrange")
	c.mismatch(a1.ActLimited != a2.ActLimited, "actuator.actlimited")
}

func (c *comparison) skin(s1, s2 *Skin) {
	if c.mismatch(s1.Name != s2.Name || s1.Texcoord != s2.Texcoord, "skin") {
		return
	}
	c.vec(s1.Vertex, s2.Vertex, "skin.vertex")
	if c.mismatch(len(s1.Face) != len(s2.Face), "skin.nface") {
		return
	}
	for i := range s1.Face {
		c.num(float64(s1.Face[i]), float64(s2.Face[i]), "skin.face")
	}
	if c.mismatch(len(s1.Bodies) != len(s2.Bodies), "skin.nbody") {
		return
	}
	for i := range s1.Bodies {
		if c.mismatch(s1.Bodies[i] != s2.Bodies[i], "skin.body") {
			return
		}
	}
}
