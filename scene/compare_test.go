// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scene

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareEqual(t *testing.T) {
	m1, m2 := twoLinkModel(), twoLinkModel()
	dif, _ := Compare(m1, m2)
	require.Zero(t, dif)
}

func TestCompareToleratesRoundoff(t *testing.T) {
	m1, m2 := twoLinkModel(), twoLinkModel()
	// One ulp of drift, as a lossless save/reload may introduce.
	m2.Body("a").Pos[2] += 2.220446049250313e-16
	dif, _ := Compare(m1, m2)
	require.Zero(t, dif)
}

func TestCompareNumericDrift(t *testing.T) {
	m1, m2 := twoLinkModel(), twoLinkModel()
	m2.Geom("gb").Mass = m1.Geom("gb").Mass + 0.001
	dif, field := Compare(m1, m2)
	require.InDelta(t, 0.001, dif, 1e-12)
	require.Equal(t, "geom.mass", field)
}

func TestCompareSiteDrift(t *testing.T) {
	m1, m2 := twoLinkModel(), twoLinkModel()
	m2.Site("sa").Pos[1] += 0.002
	dif, field := Compare(m1, m2)
	require.InDelta(t, 0.002, dif, 1e-12)
	require.Equal(t, "site.pos", field)
}

func TestCompareRelativeForLargeValues(t *testing.T) {
	m1, m2 := twoLinkModel(), twoLinkModel()
	m1.Joint("ja").Damping = 1e6
	m2.Joint("ja").Damping = 1e6 + 1
	dif, field := Compare(m1, m2)
	require.Equal(t, "joint.damping", field)
	require.Less(t, dif, 1e-6)
	require.Greater(t, dif, 0.0)
}

func TestCompareStructuralMismatch(t *testing.T) {
	for _, tt := range []struct {
		field  string
		mutate func(m *Model)
	}{
		{"body.name", func(m *Model) { m.Body("b").Name = "renamed"; m.Reindex() }},
		{"body.nchild", func(m *Model) { m.Body("a").Children = nil; m.Reindex() }},
		{"joint", func(m *Model) { m.Joint("jb").Type = JointSlide }},
		{"geom.size", func(m *Model) { m.Geom("ga").Size = []float64{0.05} }},
		{"inertial", func(m *Model) { m.Body("b").Inertial = &Inertial{Mass: 1} }},
		{"body.nsite", func(m *Model) { m.Body("a").Sites = nil; m.Reindex() }},
		{"site", func(m *Model) { m.Site("sa").Name = "renamed"; m.Reindex() }},
		{"nactuator", func(m *Model) { m.Actuators = nil }},
		{"actuator.actlimited", func(m *Model) { m.Actuators[0].ActLimited = true }},
	} {
		m1, m2 := twoLinkModel(), twoLinkModel()
		tt.mutate(m2)
		dif, field := Compare(m1, m2)
		require.Equal(t, 1.0, dif, tt.field)
		require.Equal(t, tt.field, field)
	}
}

func TestCompareSkins(t *testing.T) {
	m1, m2 := twoLinkModel(), twoLinkModel()
	skin := func() *Skin {
		return &Skin{
			Name:   "s",
			Vertex: []float64{0, 0, 0, 0.1, 0, 0, 0, 0.1, 0},
			Face:   []int{0, 1, 2},
			Bodies: []string{"a", "b"},
		}
	}
	m1.Skins = []*Skin{skin()}
	m2.Skins = []*Skin{skin()}
	dif, _ := Compare(m1, m2)
	require.Zero(t, dif)

	m2.Skins[0].Face[2] = 1
	dif, field := Compare(m1, m2)
	require.Equal(t, 1.0, dif)
	require.Equal(t, "skin.face", field)

	m2.Skins[0].Face[2] = 2
	m2.Skins[0].Bodies = []string{"a", "renamed"}
	dif, field = Compare(m1, m2)
	require.Equal(t, 1.0, dif)
	require.Equal(t, "skin.body", field)

	m2.Skins[0].Bodies = []string{"a", "b"}
	m2.Skins[0].Texcoord = true
	dif, field = Compare(m1, m2)
	require.Equal(t, 1.0, dif)
	require.Equal(t, "skin", field)
}
