// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package physml compiles declarative XML scene descriptions into canonical
// in-memory models and serializes them back. Load→compile→save→reload
// reproduces an equivalent model within numeric tolerance; SaveExact makes
// the numeric round trip bit-exact.
package physml

import (
	"os"

	"physml.io/physml/numfmt"
	"physml.io/physml/scene"
	"physml.io/physml/scenexml"
)

// Load parses and compiles a PhysML document.
func Load(data []byte, opts ...scenexml.Option) (*scene.Model, error) {
	return scenexml.CompileBytes(data, opts...)
}

// LoadFile reads, parses and compiles a PhysML document from a file.
func LoadFile(path string, opts ...scenexml.Option) (*scene.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return scenexml.CompileBytes(data, opts...)
}

// Save serializes a compiled model to canonical XML in the currently
// scoped precision mode (natural, unless the caller holds a full-precision
// scope). Natural mode rounds to a fixed number of significant digits.
func Save(m *scene.Model) ([]byte, error) {
	return scenexml.Write(m)
}

// SaveExact serializes a compiled model under a full-precision scope, so
// that reloading the output reproduces every numeric field bit-for-bit.
func SaveExact(m *scene.Model) ([]byte, error) {
	defer numfmt.FullPrecision()()
	return scenexml.Write(m)
}
