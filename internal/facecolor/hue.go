package facecolor

import (
	"image"
)

// StrategyHue is the name of the hue-threshold cascade strategy.
const StrategyHue = "hsv"

// hsvColor uses the 8-bit OpenCV convention: H in [0,180), S and V in [0,255].
type hsvColor struct {
	H, S, V float64
}

// HueThresholds are the band limits of the cascade, on the same scale as
// hsvColor. Bands are half-open: a hue equal to OrangeMin is orange.
type HueThresholds struct {
	DarkMaxValue  float64 // below: treated as blue (underexposure recovery)
	WhiteMaxSat   float64 // below, with bright value: white
	WhiteMinValue float64
	RedMax        float64 // [0, RedMax) is red
	RedWrapMin    float64 // [RedWrapMin, 180) is red
	OrangeMax     float64 // [RedMax, OrangeMax)
	YellowMax     float64 // [OrangeMax, YellowMax)
	GreenMax      float64 // [YellowMax, GreenMax)
	BlueMax       float64 // [GreenMax, BlueMax)
}

// DefaultHueThresholds returns the production band limits.
func DefaultHueThresholds() HueThresholds {
	return HueThresholds{
		DarkMaxValue:  50,
		WhiteMaxSat:   60,
		WhiteMinValue: 150,
		RedMax:        10,
		RedWrapMin:    160,
		OrangeMax:     25,
		YellowMax:     35,
		GreenMax:      85,
		BlueMax:       130,
	}
}

// Hue classifies a patch from its channel-wise mean hue, saturation and
// value with an ordered list of range tests; the first match wins.
//
// Hue is averaged as a linear quantity, so a patch straddling the red
// wraparound can average into the middle of the hue circle.
type Hue struct {
	t HueThresholds
}

var _ Strategy = (*Hue)(nil)

// NewHue builds the strategy with the given thresholds.
func NewHue(t HueThresholds) *Hue {
	return &Hue{t: t}
}

// Name implements Strategy.
func (h *Hue) Name() string {
	return StrategyHue
}

// ClassifyPatch implements Strategy.
func (h *Hue) ClassifyPatch(img *image.NRGBA, patch image.Rectangle) Sticker {
	mean, ok := meanHSV(img, patch)
	if !ok {
		return Sticker{Label: White}
	}
	return h.classify(mean)
}

func (h *Hue) classify(c hsvColor) Sticker {
	t := h.t
	if c.V < t.DarkMaxValue {
		return Sticker{Label: Blue}
	}
	if c.S < t.WhiteMaxSat && c.V > t.WhiteMinValue {
		conf := min((t.WhiteMaxSat-c.S)/t.WhiteMaxSat, (c.V-t.WhiteMinValue)/(255-t.WhiteMinValue))
		return Sticker{Label: White, Confidence: clamp01(conf)}
	}
	switch {
	case c.H < t.RedMax:
		return Sticker{Label: Red, Confidence: bandConfidence(c.H+180, t.RedWrapMin, t.RedMax+180)}
	case c.H >= t.RedWrapMin:
		return Sticker{Label: Red, Confidence: bandConfidence(c.H, t.RedWrapMin, t.RedMax+180)}
	case c.H < t.OrangeMax:
		return Sticker{Label: Orange, Confidence: bandConfidence(c.H, t.RedMax, t.OrangeMax)}
	case c.H < t.YellowMax:
		return Sticker{Label: Yellow, Confidence: bandConfidence(c.H, t.OrangeMax, t.YellowMax)}
	case c.H < t.GreenMax:
		return Sticker{Label: Green, Confidence: bandConfidence(c.H, t.YellowMax, t.GreenMax)}
	case c.H < t.BlueMax:
		return Sticker{Label: Blue, Confidence: bandConfidence(c.H, t.GreenMax, t.BlueMax)}
	}
	return Sticker{Label: White}
}

// bandConfidence is 1 in the middle of [lo, hi) and falls to 0 at its edges.
func bandConfidence(x, lo, hi float64) float64 {
	halfWidth := (hi - lo) / 2
	if halfWidth <= 0 {
		return 0
	}
	return clamp01(min(x-lo, hi-x) / halfWidth)
}

func meanHSV(img *image.NRGBA, patch image.Rectangle) (hsvColor, bool) {
	patch = patch.Intersect(img.Bounds())
	if patch.Empty() {
		return hsvColor{}, false
	}
	var sum hsvColor
	n := 0
	for y := patch.Min.Y; y < patch.Max.Y; y++ {
		for x := patch.Min.X; x < patch.Max.X; x++ {
			h, s, v := rgbOf(img.NRGBAAt(x, y)).Hsv()
			sum.H += h / 2
			sum.S += s * 255
			sum.V += v * 255
			n++
		}
	}
	f := float64(n)
	return hsvColor{H: sum.H / f, S: sum.S / f, V: sum.V / f}, true
}
