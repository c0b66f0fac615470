// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scenexml

import (
	"math"

	"physml.io/physml/scene"
)

// geomVolume returns the volume of a geom primitive. Size values are
// half-sizes (radius, half-length, half-extent). Planes have no volume.
func geomVolume(t scene.GeomType, size []float64) float64 {
	switch t {
	case scene.GeomSphere:
		r := size[0]
		return 4.0 / 3.0 * math.Pi * r * r * r
	case scene.GeomCapsule:
		r, h := size[0], size[1]
		return math.Pi*r*r*2*h + 4.0/3.0*math.Pi*r*r*r
	case scene.GeomCylinder:
		r, h := size[0], size[1]
		return math.Pi * r * r * 2 * h
	case scene.GeomEllipsoid:
		return 4.0 / 3.0 * math.Pi * size[0] * size[1] * size[2]
	case scene.GeomBox:
		return 8 * size[0] * size[1] * size[2]
	default: // plane
		return 0
	}
}

// geomInertia returns the diagonal inertia of a geom of the given mass
// about its own center, in the geom frame.
func geomInertia(t scene.GeomType, size []float64, mass float64) [3]float64 {
	switch t {
	case scene.GeomSphere:
		r := size[0]
		i := 2.0 / 5.0 * mass * r * r
		return [3]float64{i, i, i}
	case scene.GeomCapsule:
		r, h := size[0], size[1]
		vc := math.Pi * r * r * 2 * h
		vs := 4.0 / 3.0 * math.Pi * r * r * r
		mc := mass * vc / (vc + vs)
		ms := mass * vs / (vc + vs)
		l := 2 * h
		iz := mc*r*r/2 + ms*2.0/5.0*r*r
		ix := mc*(l*l/12+r*r/4) + ms*(2.0/5.0*r*r+l*l/4+3.0/8.0*l*r)
		return [3]float64{ix, ix, iz}
	case scene.GeomCylinder:
		r, h := size[0], size[1]
		l := 2 * h
		ix := mass * (3*r*r + l*l) / 12
		return [3]float64{ix, ix, mass * r * r / 2}
	case scene.GeomEllipsoid:
		a, b, c := size[0], size[1], size[2]
		return [3]float64{
			mass * (b*b + c*c) / 5,
			mass * (a*a + c*c) / 5,
			mass * (a*a + b*b) / 5,
		}
	case scene.GeomBox:
		x, y, z := size[0], size[1], size[2]
		return [3]float64{
			mass * (y*y + z*z) / 3,
			mass * (x*x + z*z) / 3,
			mass * (x*x + y*y) / 3,
		}
	default: // plane
		return [3]float64{}
	}
}

// quatMat returns the rotation matrix of a unit quaternion (w x y z).
func quatMat(q [4]float64) [3][3]float64 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// inertialFromGeoms aggregates a body's geoms into a derived inertial:
// total mass, center of mass, and the 3x3 inertia about the center of mass.
// Each geom's principal inertia is rotated into the body frame by its quat
// before parallel-axis transport. Returns nil for a massless body.
func inertialFromGeoms(b *scene.Body) *scene.Inertial {
	var mass float64
	var com [3]float64
	for _, g := range b.Geoms {
		mass += g.Mass
		for i := 0; i < 3; i++ {
			com[i] += g.Mass * g.Pos[i]
		}
	}
	if mass <= 0 {
		return nil
	}
	for i := 0; i < 3; i++ {
		com[i] /= mass
	}
	var xx, yy, zz, xy, xz, yz float64
	for _, g := range b.Geoms {
		own := geomInertia(g.Type, g.Size, g.Mass)
		// R·diag(own)·Rᵀ; skipped when it cannot change the tensor, so
		// unrotated and isotropic geoms keep exact zero products.
		if g.Quat != scene.DefaultQuat() && !(own[0] == own[1] && own[1] == own[2]) {
			r := quatMat(g.Quat)
			var rot [3][3]float64
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					for k := 0; k < 3; k++ {
						rot[i][j] += r[i][k] * own[k] * r[j][k]
					}
				}
			}
			xx += rot[0][0]
			yy += rot[1][1]
			zz += rot[2][2]
			xy += rot[0][1]
			xz += rot[0][2]
			yz += rot[1][2]
		} else {
			xx += own[0]
			yy += own[1]
			zz += own[2]
		}
		dx := g.Pos[0] - com[0]
		dy := g.Pos[1] - com[1]
		dz := g.Pos[2] - com[2]
		xx += g.Mass * (dy*dy + dz*dz)
		yy += g.Mass * (dx*dx + dz*dz)
		zz += g.Mass * (dx*dx + dy*dy)
		xy -= g.Mass * dx * dy
		xz -= g.Mass * dx * dz
		yz -= g.Mass * dy * dz
	}
	in := &scene.Inertial{Pos: com, Mass: mass}
	if xy == 0 && xz == 0 && yz == 0 {
		in.DiagInertia = []float64{xx, yy, zz}
	} else {
		in.FullInertia = []float64{xx, yy, zz, xy, xz, yz}
	}
	return in
}
