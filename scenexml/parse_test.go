// Copyright 2023-present The PhysML Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package scenexml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTree(t *testing.T) {
	root, err := ParseBytes([]byte(`<physml model="demo">
  <worldbody>
    <body name="b1" pos="0 0 1">
      <geom size="0.2" custom="kept"/>
    </body>
  </worldbody>
</physml>`))
	require.NoError(t, err)
	require.Equal(t, "physml", root.Tag)
	name, ok := root.Attr("model")
	require.True(t, ok)
	require.Equal(t, "demo", name)
	wb := root.Child("worldbody")
	require.NotNil(t, wb)
	body := wb.Child("body")
	require.NotNil(t, body)
	require.Equal(t, 3, body.Line)
	// Attribute order is preserved as authored.
	require.Equal(t, []Attr{{K: "name", V: "b1"}, {K: "pos", V: "0 0 1"}}, body.Attrs)
	// Unknown attributes are kept verbatim; the parser does not validate.
	geom := body.Child("geom")
	v, ok := geom.Attr("custom")
	require.True(t, ok)
	require.Equal(t, "kept", v)
}

func TestParseDiscardsWhitespaceText(t *testing.T) {
	root, err := ParseBytes([]byte("<physml>\n\t \n  <worldbody>  </worldbody>\n</physml>"))
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	require.Empty(t, root.Child("worldbody").Children)
}

func TestParseMalformed(t *testing.T) {
	for _, doc := range []string{
		"<physml><worldbody></physml>",
		"<physml",
		`<physml a="1`,
		"",
	} {
		_, err := ParseBytes([]byte(doc))
		require.Error(t, err, doc)
		require.True(t, IsParseError(err), doc)
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := ParseBytes([]byte("<physml>\n  <worldbody>\n</physml>"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 3, pe.Line)
	require.Contains(t, err.Error(), "line 3")
}

func TestParseSecondRoot(t *testing.T) {
	_, err := ParseBytes([]byte("<physml/><physml/>"))
	require.Error(t, err)
	require.True(t, IsParseError(err))
	require.Contains(t, err.Error(), "second root")
}

func TestParseReader(t *testing.T) {
	root, err := Parse(strings.NewReader("<physml><worldbody/></physml>"))
	require.NoError(t, err)
	require.NotNil(t, root.Child("worldbody"))
}
