// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package numfmt converts floating-point values to and from their textual
// attribute form. Conversion is locale-independent: the decimal separator
// is always '.' and no process-wide locale state is read or written.
//
// Formatting runs in one of two precision modes. Natural mode emits a small
// fixed budget of significant digits and is the default; full mode emits the
// shortest text that reparses to the identical float64 and is entered with
// FullPrecision for the duration of a write.
package numfmt

import (
	"strconv"
	"strings"
	"sync"
)

// NaturalDigits is the significant-digit budget of natural mode.
const NaturalDigits = 6

// A ParseError reports attribute text that could not be parsed as a number.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return "numfmt: cannot parse " + strconv.Quote(e.Text) + " as number: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	modeMu sync.Mutex
	full   bool
)

// FullPrecision switches formatting to full (round-trip exact) precision and
// returns a restore function that reinstates the previous mode. Callers must
// invoke the restore function on every exit path:
//
//	defer numfmt.FullPrecision()()
//
// Scopes nest; each restore reinstates the mode observed at its own entry.
func FullPrecision() func() {
	modeMu.Lock()
	prev := full
	full = true
	modeMu.Unlock()
	return func() {
		modeMu.Lock()
		full = prev
		modeMu.Unlock()
	}
}

// FullPrecisionEnabled reports whether full precision is currently scoped.
func FullPrecisionEnabled() bool {
	modeMu.Lock()
	defer modeMu.Unlock()
	return full
}

// ParseFloat parses attribute text as a float64. The decimal separator is
// always '.', regardless of host locale.
func ParseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &ParseError{Text: s, Err: err}
	}
	return f, nil
}

// ParseVec parses whitespace-separated floats. If n > 0, exactly n values
// are required.
func ParseVec(s string, n int) ([]float64, error) {
	fields := strings.Fields(s)
	if n > 0 && len(fields) != n {
		return nil, &ParseError{Text: s, Err: errSize{want: n, got: len(fields)}}
	}
	vs := make([]float64, len(fields))
	for i, f := range fields {
		v, err := ParseFloat(f)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

type errSize struct{ want, got int }

func (e errSize) Error() string {
	return "expected " + strconv.Itoa(e.want) + " values, got " + strconv.Itoa(e.got)
}

// Format renders x in the currently scoped precision mode.
func Format(x float64) string {
	if FullPrecisionEnabled() {
		// Shortest representation that reparses bit-for-bit.
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strconv.FormatFloat(x, 'g', NaturalDigits, 64)
}

// FormatFull renders x with full precision regardless of the scoped mode.
// Internal text that is reparsed later (e.g. generated elements) must not
// depend on the caller's precision scope.
func FormatFull(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// FormatVecFull renders a vector with full precision.
func FormatVecFull(vs []float64) string {
	var b strings.Builder
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(FormatFull(v))
	}
	return b.String()
}

// FormatVec renders a vector as space-separated values.
func FormatVec(vs []float64) string {
	var b strings.Builder
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(Format(v))
	}
	return b.String()
}

// FormatBool renders a boolean attribute value.
func FormatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
