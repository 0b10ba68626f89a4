package facecolor

import (
	"fmt"
	"strings"
)

// Label is one of the six sticker colors a scan can produce.
type Label byte

const (
	White  Label = 'W'
	Yellow Label = 'Y'
	Red    Label = 'R'
	Orange Label = 'O'
	Green  Label = 'G'
	Blue   Label = 'B'
)

// Labels lists the alphabet in prototype order. Ties in nearest-prototype
// classification resolve to the earliest entry.
var Labels = [...]Label{White, Yellow, Red, Orange, Green, Blue}

// ParseLabel converts a single letter into a Label.
func ParseLabel(r rune) (Label, error) {
	l := Label(r)
	if r > 0xff || !l.Valid() {
		return 0, fmt.Errorf("invalid color label %q", r)
	}
	return l, nil
}

// Valid reports whether l belongs to the six-color alphabet.
func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string {
	return string(rune(l))
}

// MarshalText encodes the label as its letter.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid color label %q", rune(l))
	}
	return []byte{byte(l)}, nil
}

// UnmarshalText decodes a one-letter label.
func (l *Label) UnmarshalText(text []byte) error {
	if len(text) != 1 {
		return fmt.Errorf("invalid color label %q", string(text))
	}
	parsed, err := ParseLabel(rune(text[0]))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// FaceGrid holds the nine sticker labels of one face in row-major order:
// index 0 is top-left, 4 the center and 8 bottom-right.
type FaceGrid [9]Label

// ParseFaceGrid reads the nine-letter form produced by FaceGrid.String.
func ParseFaceGrid(s string) (FaceGrid, error) {
	var g FaceGrid
	if len(s) != len(g) {
		return g, fmt.Errorf("face grid must have %d labels, got %d", len(g), len(s))
	}
	for i, r := range s {
		l, err := ParseLabel(r)
		if err != nil {
			return FaceGrid{}, fmt.Errorf("sticker %d: %w", i, err)
		}
		g[i] = l
	}
	return g, nil
}

// Center returns the label of the middle sticker.
func (g FaceGrid) Center() Label {
	return g[4]
}

// Rows returns the grid as three rows of three.
func (g FaceGrid) Rows() [3][3]Label {
	var rows [3][3]Label
	for i, l := range g {
		rows[i/3][i%3] = l
	}
	return rows
}

func (g FaceGrid) String() string {
	var b strings.Builder
	b.Grow(len(g))
	for _, l := range g {
		b.WriteByte(byte(l))
	}
	return b.String()
}
