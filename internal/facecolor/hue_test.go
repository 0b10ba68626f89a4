package facecolor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHueCascadeBoundaries(t *testing.T) {
	h := NewHue(DefaultHueThresholds())
	vivid := func(hue float64) hsvColor { return hsvColor{H: hue, S: 255, V: 255} }

	tests := []struct {
		desc  string
		in    hsvColor
		label Label
	}{
		{"hue 0 is red", vivid(0), Red},
		{"hue 9 is still red", vivid(9), Red},
		{"hue 9.99 is still red", vivid(9.99), Red},
		{"hue 10 starts orange", vivid(10), Orange},
		{"hue 24.99 is orange", vivid(24.99), Orange},
		{"hue 25 starts yellow", vivid(25), Yellow},
		{"hue 30 is yellow", vivid(30), Yellow},
		{"hue 35 starts green", vivid(35), Green},
		{"hue 60 is green", vivid(60), Green},
		{"hue 85 starts blue", vivid(85), Blue},
		{"hue 120 is blue", vivid(120), Blue},
		{"hue 130 falls back to white", vivid(130), White},
		{"hue 159.99 falls back to white", vivid(159.99), White},
		{"hue 160 wraps to red", vivid(160), Red},
		{"hue 179 is red", vivid(179), Red},
		{"underexposed patch is blue", hsvColor{H: 60, S: 255, V: 49.9}, Blue},
		{"value 50 is not underexposed", hsvColor{H: 60, S: 255, V: 50}, Green},
		{"pale bright patch is white", hsvColor{H: 0, S: 59.9, V: 150.1}, White},
		{"saturation 60 is colored", hsvColor{H: 0, S: 60, V: 255}, Red},
		{"pale dim patch is not white", hsvColor{H: 60, S: 10, V: 150}, Green},
		{"darkness wins over whiteness", hsvColor{H: 0, S: 0, V: 10}, Blue},
	}
	for _, tC := range tests {
		t.Run(tC.desc, func(t *testing.T) {
			require.Equal(t, tC.label, h.classify(tC.in).Label)
		})
	}
}

func TestHueConfidence(t *testing.T) {
	h := NewHue(DefaultHueThresholds())

	require.Zero(t, h.classify(hsvColor{H: 140, S: 255, V: 255}).Confidence, "fallback")
	require.Zero(t, h.classify(hsvColor{V: 5}).Confidence, "underexposed")
	require.InDelta(t, 1, h.classify(hsvColor{H: 60, S: 255, V: 255}).Confidence, 1e-9, "center of green band")
	require.InDelta(t, 0, h.classify(hsvColor{H: 10, S: 255, V: 255}).Confidence, 1e-9, "edge of orange band")
	require.InDelta(t, 1, h.classify(hsvColor{H: 175, S: 255, V: 255}).Confidence, 1e-9, "center of wrapped red band")

	mid := h.classify(hsvColor{H: 20, S: 255, V: 255}).Confidence
	require.Greater(t, mid, 0.0)
	require.Less(t, mid, 1.0)
}
