// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scene

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

// twoLinkModel builds a small hand-assembled tree: world -> a -> b, with a
// joint and geom on each link and one actuator on the first joint.
func twoLinkModel() *Model {
	ja := &Joint{Name: "ja", Type: JointHinge}
	jb := &Joint{Name: "jb", Type: JointHinge}
	b := &Body{
		Name:   "b",
		Joints: []*Joint{jb},
		Geoms:  []*Geom{{Name: "gb", Type: GeomSphere, Size: []float64{0.1}}},
	}
	a := &Body{
		Name:     "a",
		Joints:   []*Joint{ja},
		Geoms:    []*Geom{{Name: "ga", Type: GeomCapsule, Size: []float64{0.05, 0.2}}},
		Sites:    []*Site{{Name: "sa"}},
		Children: []*Body{b},
	}
	b.Parent = a
	world := &Body{Children: []*Body{a}}
	a.Parent = world
	m := &Model{
		Name:      "twolink",
		Option:    DefaultOption(),
		World:     world,
		Actuators: []*Actuator{{Name: "act", Joint: ja, Gear: 1}},
	}
	m.Reindex()
	return m
}

func TestReindexIDs(t *testing.T) {
	m := twoLinkModel()
	// Depth-first over the body tree, world body first.
	require.Equal(t, 0, m.World.ID)
	require.Equal(t, 1, m.Body("a").ID)
	require.Equal(t, 2, m.Body("b").ID)
	require.Equal(t, 0, m.Joint("ja").ID)
	require.Equal(t, 1, m.Joint("jb").ID)
	require.Equal(t, 0, m.Geom("ga").ID)
	require.Equal(t, 1, m.Geom("gb").ID)
	require.Equal(t, 0, m.Site("sa").ID)
	require.Equal(t, 0, m.Actuator("act").ID)
}

func TestReindexIsStable(t *testing.T) {
	m := twoLinkModel()
	m.Reindex()
	m.Reindex()
	require.Equal(t, 2, m.Body("b").ID)
	require.Equal(t, 1, m.Joint("jb").ID)
}

func TestLookupMisses(t *testing.T) {
	m := twoLinkModel()
	require.Nil(t, m.Body("ghost"))
	require.Nil(t, m.Joint("ghost"))
	require.Nil(t, m.Geom("ghost"))
	require.Nil(t, m.Site("ghost"))
	require.Nil(t, m.Actuator("ghost"))
	require.Nil(t, m.Class("ghost"))
}

func TestBodiesOrder(t *testing.T) {
	m := twoLinkModel()
	bs := m.Bodies()
	require.Len(t, bs, 3)
	require.Same(t, m.World, bs[0])
	require.Equal(t, "a", bs[1].Name)
	require.Equal(t, "b", bs[2].Name)
}

func TestClassEffectiveLayering(t *testing.T) {
	main := &Class{
		Name: MainClass,
		Attrs: map[string]map[string]string{
			"geom": {"size": "0.5", "rgba": "1 0 0 1"},
		},
	}
	small := &Class{
		Name:   "small",
		Parent: main,
		Attrs:  map[string]map[string]string{"geom": {"size": "0.1"}},
	}
	main.Children = []*Class{small}

	eff := small.Effective("geom")
	require.Equal(t, "0.1", eff["size"])
	// Unset attributes fall through to the parent level.
	require.Equal(t, "1 0 0 1", eff["rgba"])
	// Kinds with no defaults anywhere resolve to an empty set.
	require.Empty(t, small.Effective("joint"))

	// The result is cached per (class, kind).
	eff2 := small.Effective("geom")
	require.Equal(t, reflect.ValueOf(eff).Pointer(), reflect.ValueOf(eff2).Pointer())

	m := &Model{Classes: []*Class{main}}
	require.Same(t, small, m.Class("small"))
	require.Same(t, main, m.Class(MainClass))
}
