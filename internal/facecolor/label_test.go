package facecolor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFaceGridRoundTrip(t *testing.T) {
	g, err := ParseFaceGrid("WYROGBBRW")
	require.NoError(t, err)
	require.Equal(t, mixedFace, g)
	require.Equal(t, "WYROGBBRW", g.String())
	require.Equal(t, Green, g.Center())
	require.Equal(t, [3][3]Label{
		{White, Yellow, Red},
		{Orange, Green, Blue},
		{Blue, Red, White},
	}, g.Rows())
}

func TestParseFaceGridRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "WYROGBBR", "WYROGBBRWW", "WYROGBBRX", "wyrogbbrw", "WYROGBBRé"} {
		_, err := ParseFaceGrid(in)
		require.Error(t, err, in)
	}
}

func TestLabelText(t *testing.T) {
	var l Label
	require.NoError(t, l.UnmarshalText([]byte("O")))
	require.Equal(t, Orange, l)
	require.Error(t, l.UnmarshalText([]byte("U")))

	_, err := Label('U').MarshalText()
	require.Error(t, err)
}
