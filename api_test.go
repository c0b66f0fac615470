// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package physml_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"physml.io/physml"
	"physml.io/physml/scene"
	"physml.io/physml/scenexml"
)

const demoDoc = `<physml model="demo">
  <worldbody>
    <body name="b" pos="0 0 0.5">
      <joint name="j"/>
      <geom name="g" size="0.12345678901234567"/>
    </body>
  </worldbody>
</physml>`

func TestLoadSave(t *testing.T) {
	m, err := physml.Load([]byte(demoDoc))
	require.NoError(t, err)
	require.Equal(t, "demo", m.Name)
	require.NotNil(t, m.Geom("g"))

	out, err := physml.Save(m)
	require.NoError(t, err)
	m2, err := physml.Load(out)
	require.NoError(t, err)
	// Natural precision truncates the long fraction.
	require.NotEqual(t, m.Geom("g").Size[0], m2.Geom("g").Size[0])

	out, err = physml.SaveExact(m)
	require.NoError(t, err)
	m3, err := physml.Load(out)
	require.NoError(t, err)
	require.Equal(t, m.Geom("g").Size[0], m3.Geom("g").Size[0])
	dif, field := scene.Compare(m, m3)
	require.Zero(t, dif, field)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.xml")
	require.NoError(t, os.WriteFile(path, []byte(demoDoc), 0644))
	m, err := physml.LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, m.Body("b"))

	_, err = physml.LoadFile(filepath.Join(t.TempDir(), "missing.xml"))
	require.Error(t, err)
}

func TestLoadOptions(t *testing.T) {
	doc := []byte(`<physml>
  <worldbody>
    <body name="b">
      <geom size="0.2"/>
      <inertial pos="0 0 0" mass="7"/>
    </body>
  </worldbody>
</physml>`)
	m, err := physml.Load(doc, scenexml.WithInertiaFromGeom(scene.InertiaFromGeom))
	require.NoError(t, err)
	require.False(t, m.Body("b").Inertial.Explicit)
	require.NotEqual(t, 7.0, m.Body("b").Inertial.Mass)
}
