// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package numfmt

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFloat(t *testing.T) {
	f, err := ParseFloat("0.125")
	require.NoError(t, err)
	require.Equal(t, 0.125, f)
	f, err = ParseFloat(" -9.81 ")
	require.NoError(t, err)
	require.Equal(t, -9.81, f)

	// The decimal separator is '.' unconditionally; a comma is malformed.
	_, err = ParseFloat("3,9375")
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "3,9375", pe.Text)
}

func TestParseVec(t *testing.T) {
	vs, err := ParseVec("0 1 2", 3)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1, 2}, vs)
	_, err = ParseVec("0 1", 3)
	require.Error(t, err)
	vs, err = ParseVec(".05 .05 .05", 0)
	require.NoError(t, err)
	require.Len(t, vs, 3)
}

func TestFormatNatural(t *testing.T) {
	require.Equal(t, "0.1", Format(0.1))
	require.Equal(t, "0.123456", Format(0.123456))
	// Digits beyond the natural budget are rounded away.
	require.Equal(t, "0.123457", Format(0.1234567812345678))
	require.Equal(t, "3.9375", Format(3.9375))
	require.Equal(t, "-1", Format(-1))
}

func TestFormatFullRoundTrip(t *testing.T) {
	defer FullPrecision()()
	for _, x := range []float64{0.1234567812345678, 1e-300, -9.81, 0.017453292519943295} {
		back, err := ParseFloat(Format(x))
		require.NoError(t, err)
		require.Equal(t, x, back)
	}
}

func TestFormatNoLocaleSeparators(t *testing.T) {
	for _, x := range []float64{0.1, 1.23, 2.345, 1e6, -1234.5678} {
		s := Format(x)
		require.NotContains(t, s, ",")
	}
	require.Equal(t, "0.1 1.23 2.345", FormatVec([]float64{0.1, 1.23, 2.345}))
}

func TestFullPrecisionScope(t *testing.T) {
	require.False(t, FullPrecisionEnabled())
	restore := FullPrecision()
	require.True(t, FullPrecisionEnabled())
	restore()
	require.False(t, FullPrecisionEnabled())
}

func TestFullPrecisionNested(t *testing.T) {
	outer := FullPrecision()
	inner := FullPrecision()
	inner()
	require.True(t, FullPrecisionEnabled(), "inner restore keeps the outer scope")
	outer()
	require.False(t, FullPrecisionEnabled())
}

func TestFullPrecisionRestoredOnPanic(t *testing.T) {
	func() {
		defer func() { _ = recover() }()
		defer FullPrecision()()
		panic("write failed")
	}()
	require.False(t, FullPrecisionEnabled())
}

func TestFullPrecisionConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			restore := FullPrecision()
			_ = Format(0.1234567812345678)
			restore()
		}()
	}
	wg.Wait()
	require.False(t, FullPrecisionEnabled())
}

func TestFormatVecFull(t *testing.T) {
	s := FormatVecFull([]float64{0, 0.05, 0.1234567812345678})
	require.False(t, FullPrecisionEnabled())
	require.True(t, strings.HasSuffix(s, "0.1234567812345678"))
}
