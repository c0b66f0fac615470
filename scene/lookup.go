// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scene

// Reindex assigns stable IDs to every named entity and rebuilds the lookup
// tables. IDs follow depth-first order over the body tree, document order
// for actuators and skins, so identical documents compile to identical IDs.
// The compiler calls this once; external binding layers rely on the result
// staying fixed for the model's lifetime.
func (m *Model) Reindex() {
	m.bodies = make(map[string]*Body)
	m.joints = make(map[string]*Joint)
	m.geoms = make(map[string]*Geom)
	m.sites = make(map[string]*Site)
	m.actuators = make(map[string]*Actuator)
	var nb, nj, ng, ns int
	var walk func(b *Body)
	walk = func(b *Body) {
		b.ID = nb
		nb++
		if b.Name != "" {
			m.bodies[b.Name] = b
		}
		for _, j := range b.Joints {
			j.ID = nj
			nj++
			if j.Name != "" {
				m.joints[j.Name] = j
			}
		}
		for _, g := range b.Geoms {
			g.ID = ng
			ng++
			if g.Name != "" {
				m.geoms[g.Name] = g
			}
		}
		for _, s := range b.Sites {
			s.ID = ns
			ns++
			if s.Name != "" {
				m.sites[s.Name] = s
			}
		}
		for _, c := range b.Children {
			walk(c)
		}
	}
	if m.World != nil {
		walk(m.World)
	}
	for i, a := range m.Actuators {
		a.ID = i
		if a.Name != "" {
			m.actuators[a.Name] = a
		}
	}
	for i, s := range m.Skins {
		s.ID = i
	}
}

// Body returns the named body, or nil.
func (m *Model) Body(name string) *Body { return m.bodies[name] }

// Joint returns the named joint, or nil.
func (m *Model) Joint(name string) *Joint { return m.joints[name] }

// Geom returns the named geom, or nil.
func (m *Model) Geom(name string) *Geom { return m.geoms[name] }

// Site returns the named site, or nil.
func (m *Model) Site(name string) *Site { return m.sites[name] }

// Actuator returns the named actuator, or nil.
func (m *Model) Actuator(name string) *Actuator { return m.actuators[name] }

// Bodies returns all bodies in depth-first order, the world body first.
func (m *Model) Bodies() []*Body {
	var bs []*Body
	var walk func(b *Body)
	walk = func(b *Body) {
		bs = append(bs, b)
		for _, c := range b.Children {
			walk(c)
		}
	}
	if m.World != nil {
		walk(m.World)
	}
	return bs
}
