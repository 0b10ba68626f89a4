// Package facecolor turns a photograph of one cube face into nine sticker
// color labels.
//
// The pipeline crops a centered square, resizes it to a canonical size,
// samples a small window inside each of the nine cells and hands every window
// to a Strategy. Classification never fails: degenerate input degrades to
// white stickers with zero confidence.
package facecolor

import (
	"fmt"
	"image"
	"strings"
)

// Sticker is the classification of one patch.
type Sticker struct {
	Label Label `json:"label"`
	// Distance to the chosen prototype in L*a*b* units. Zero for strategies
	// that do not measure one.
	Distance float64 `json:"distance"`
	// Confidence in [0,1]; 0 for empty patches and fallback decisions.
	Confidence float64 `json:"confidence"`
}

// Strategy maps one sampling window of a canonical face to a sticker.
// Implementations must be safe for concurrent use.
type Strategy interface {
	Name() string
	ClassifyPatch(img *image.NRGBA, patch image.Rectangle) Sticker
}

// StrategyByName returns the strategy registered under name.
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyPerceptual, "":
		return NewPerceptual(), nil
	case StrategyHue:
		return NewHue(DefaultHueThresholds()), nil
	default:
		return nil, fmt.Errorf("unknown classifier strategy %q (want %q or %q)", name, StrategyPerceptual, StrategyHue)
	}
}

// Scan is the result of classifying one face.
type Scan struct {
	Grid     FaceGrid   `json:"colors"`
	Stickers [9]Sticker `json:"stickers"`
	Strategy string     `json:"strategy"`
}

// MinConfidence returns the weakest sticker confidence of the scan.
func (s Scan) MinConfidence() float64 {
	lowest := 1.0
	for _, st := range s.Stickers {
		if st.Confidence < lowest {
			lowest = st.Confidence
		}
	}
	return lowest
}

// LowConfidence returns the indices of stickers whose confidence is below
// threshold, in row-major order.
func (s Scan) LowConfidence(threshold float64) []int {
	var idx []int
	for i, st := range s.Stickers {
		if st.Confidence < threshold {
			idx = append(idx, i)
		}
	}
	return idx
}

// Classifier runs the face pipeline with a fixed strategy.
type Classifier struct {
	strategy Strategy
	size     int
	patches  [9]image.Rectangle
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithCanonicalSize overrides the side of the resized face crop. Patch
// geometry scales with it.
func WithCanonicalSize(size int) Option {
	return func(c *Classifier) {
		if size >= 3 {
			c.size = size
		}
	}
}

// New builds a classifier. A nil strategy selects the perceptual one.
func New(strategy Strategy, opts ...Option) *Classifier {
	if strategy == nil {
		strategy = NewPerceptual()
	}
	c := &Classifier{strategy: strategy, size: DefaultCanonicalSize}
	for _, opt := range opts {
		opt(c)
	}
	c.patches = patchRects(c.size)
	return c
}

// Strategy returns the name of the configured strategy.
func (c *Classifier) Strategy() string {
	return c.strategy.Name()
}

// Classify labels the nine stickers of the face depicted in img.
func (c *Classifier) Classify(img image.Image) Scan {
	face := canonicalFace(img, c.size)
	scan := Scan{Strategy: c.strategy.Name()}
	for i, rect := range c.patches {
		st := c.strategy.ClassifyPatch(face, rect)
		if !st.Label.Valid() {
			st = Sticker{Label: White}
		}
		scan.Stickers[i] = st
		scan.Grid[i] = st.Label
	}
	return scan
}
