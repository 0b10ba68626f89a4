// Package cube turns six scanned faces into a solver facelet string.
package cube

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/cubescan/internal/facecolor"
)

// FaceOrder names the faces in slot order. Slot i of a session is the face
// whose letter is FaceOrder[i].
const FaceOrder = "URFDLB"

var (
	// ErrIncomplete is returned when a face has not been scanned.
	ErrIncomplete = errors.New("cube incomplete")
	// ErrInconsistent is returned when the scanned colors cannot describe a
	// cube: repeated center colors or a sticker color that no center has.
	ErrInconsistent = errors.New("inconsistent face colors")
)

// Assemble builds the 54-character facelet string. Each face's center color
// names that face, so a sticker becomes the letter of the face whose center
// shares its color. Letter counts are not checked here.
func Assemble(faces [6]*facecolor.FaceGrid) (string, error) {
	var missing []string
	for i, f := range faces {
		if f == nil {
			missing = append(missing, fmt.Sprintf("%d(%c)", i, FaceOrder[i]))
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: missing faces %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	letters := make(map[facecolor.Label]byte, len(faces))
	for i, f := range faces {
		center := f.Center()
		if prev, ok := letters[center]; ok {
			return "", fmt.Errorf("%w: faces %c and %c both have center %s",
				ErrInconsistent, prev, FaceOrder[i], center)
		}
		letters[center] = FaceOrder[i]
	}

	var b strings.Builder
	b.Grow(54)
	for i, f := range faces {
		for j, l := range f {
			letter, ok := letters[l]
			if !ok {
				return "", fmt.Errorf("%w: face %c sticker %d is %s, which no center has",
					ErrInconsistent, FaceOrder[i], j, l)
			}
			b.WriteByte(letter)
		}
	}
	return b.String(), nil
}

// ColorScheme returns the center color of each face in slot order.
func ColorScheme(faces [6]*facecolor.FaceGrid) [6]facecolor.Label {
	var scheme [6]facecolor.Label
	for i, f := range faces {
		if f != nil {
			scheme[i] = f.Center()
		}
	}
	return scheme
}
