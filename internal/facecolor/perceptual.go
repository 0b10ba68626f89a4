package facecolor

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// StrategyPerceptual is the name of the nearest-prototype strategy.
const StrategyPerceptual = "lab"

type labColor struct {
	L, A, B float64
}

func (c labColor) distance(o labColor) float64 {
	dl := c.L - o.L
	da := c.A - o.A
	db := c.B - o.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

type prototype struct {
	label Label
	lab   labColor
}

// prototypeRGB holds the saturated reference color for each label.
var prototypeRGB = [...]struct {
	label   Label
	r, g, b uint8
}{
	{White, 255, 255, 255},
	{Yellow, 255, 255, 0},
	{Red, 255, 0, 0},
	{Orange, 255, 165, 0},
	{Green, 0, 255, 0},
	{Blue, 0, 0, 255},
}

// Perceptual classifies a patch by the Euclidean distance between its mean
// CIE L*a*b* color and six fixed prototypes.
type Perceptual struct {
	prototypes []prototype
}

var _ Strategy = (*Perceptual)(nil)

// NewPerceptual builds the strategy with the standard prototype set.
func NewPerceptual() *Perceptual {
	protos := make([]prototype, 0, len(prototypeRGB))
	for _, p := range prototypeRGB {
		protos = append(protos, prototype{
			label: p.label,
			lab:   toLab(color.NRGBA{R: p.r, G: p.g, B: p.b, A: 0xff}),
		})
	}
	return &Perceptual{prototypes: protos}
}

// Name implements Strategy.
func (p *Perceptual) Name() string {
	return StrategyPerceptual
}

// ClassifyPatch implements Strategy.
func (p *Perceptual) ClassifyPatch(img *image.NRGBA, patch image.Rectangle) Sticker {
	mean, ok := meanLab(img, patch)
	if !ok {
		return Sticker{Label: White}
	}
	return p.nearest(mean)
}

func (p *Perceptual) nearest(c labColor) Sticker {
	best, second := math.Inf(1), math.Inf(1)
	label := White
	for _, proto := range p.prototypes {
		d := c.distance(proto.lab)
		switch {
		case d < best:
			second = best
			best = d
			label = proto.label
		case d < second:
			second = d
		}
	}
	return Sticker{
		Label:      label,
		Distance:   best,
		Confidence: margin(best, second),
	}
}

// margin turns the gap between the two closest prototypes into a value in
// [0,1]; 0 means the patch sits halfway between two labels.
func margin(best, second float64) float64 {
	if math.IsInf(second, 1) || second <= 0 {
		return 0
	}
	return clamp01((second - best) / second)
}

func meanLab(img *image.NRGBA, patch image.Rectangle) (labColor, bool) {
	patch = patch.Intersect(img.Bounds())
	if patch.Empty() {
		return labColor{}, false
	}
	var sum labColor
	n := 0
	for y := patch.Min.Y; y < patch.Max.Y; y++ {
		for x := patch.Min.X; x < patch.Max.X; x++ {
			c := toLab(img.NRGBAAt(x, y))
			sum.L += c.L
			sum.A += c.A
			sum.B += c.B
			n++
		}
	}
	f := float64(n)
	return labColor{L: sum.L / f, A: sum.A / f, B: sum.B / f}, true
}

func toLab(c color.NRGBA) labColor {
	l, a, b := rgbOf(c).Lab()
	return labColor{L: l, A: a, B: b}
}

// rgbOf ignores alpha; camera frames are opaque.
func rgbOf(c color.NRGBA) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
