package cube

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/cubescan/internal/facecolor"
	"github.com/example/cubescan/internal/solver"
)

// Western scheme: U white, R red, F green, D yellow, L orange, B blue.
var western = [6]facecolor.Label{facecolor.White, facecolor.Red, facecolor.Green, facecolor.Yellow, facecolor.Orange, facecolor.Blue}

func facesFromFacelets(t *testing.T, facelets string, scheme [6]facecolor.Label) [6]*facecolor.FaceGrid {
	t.Helper()
	var faces [6]*facecolor.FaceGrid
	for i := range faces {
		var g facecolor.FaceGrid
		for j := 0; j < 9; j++ {
			face := strings.IndexByte(FaceOrder, facelets[9*i+j])
			require.GreaterOrEqual(t, face, 0)
			g[j] = scheme[face]
		}
		faces[i] = &g
	}
	return faces
}

func TestAssembleSolvedCube(t *testing.T) {
	got, err := Assemble(facesFromFacelets(t, solver.Solved, western))
	require.NoError(t, err)
	require.Equal(t, solver.Solved, got)
}

func TestAssembleRemapsCenters(t *testing.T) {
	scrambled, err := solver.Apply(solver.Solved, "R U F' L2 D B")
	require.NoError(t, err)

	// Any assignment of colors to faces yields the same facelet string.
	other := [6]facecolor.Label{facecolor.Blue, facecolor.Orange, facecolor.White, facecolor.Green, facecolor.Red, facecolor.Yellow}
	for _, scheme := range [][6]facecolor.Label{western, other} {
		faces := facesFromFacelets(t, scrambled, scheme)
		got, err := Assemble(faces)
		require.NoError(t, err)
		require.Equal(t, scrambled, got)
		require.Equal(t, scheme, ColorScheme(faces))
	}
}

func TestAssembleMissingFace(t *testing.T) {
	faces := facesFromFacelets(t, solver.Solved, western)
	faces[3] = nil
	_, err := Assemble(faces)
	require.ErrorIs(t, err, ErrIncomplete)
	require.Contains(t, err.Error(), "3(D)")
}

func TestAssembleDuplicateCenters(t *testing.T) {
	faces := facesFromFacelets(t, solver.Solved, western)
	faces[2][4] = facecolor.White
	_, err := Assemble(faces)
	require.ErrorIs(t, err, ErrInconsistent)
	require.False(t, errors.Is(err, ErrIncomplete))
}

func TestAssembleUnknownStickerColor(t *testing.T) {
	faces := facesFromFacelets(t, solver.Solved, western)
	faces[0][0] = facecolor.Label('X')
	_, err := Assemble(faces)
	require.ErrorIs(t, err, ErrInconsistent)
	require.Contains(t, err.Error(), "sticker 0")
}
