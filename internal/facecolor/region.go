package facecolor

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	// DefaultCanonicalSize is the side of the square every face crop is
	// resized to before sampling.
	DefaultCanonicalSize = 600

	// cropFraction is the half-width of the face crop relative to the
	// shorter image side. The face is assumed to fill the central 90%.
	cropFraction = 0.45
)

// faceRegion returns the centered square that is assumed to contain the
// cube face, clipped to the image bounds.
func faceRegion(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	side := w
	if h < side {
		side = h
	}
	half := int(float64(side) * cropFraction)
	cx := bounds.Min.X + w/2
	cy := bounds.Min.Y + h/2

	x0 := cx - half
	if x0 < bounds.Min.X {
		x0 = bounds.Min.X
	}
	y0 := cy - half
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	return image.Rect(x0, y0, x0+2*half, y0+2*half).Intersect(bounds)
}

// canonicalFace crops the face region and resizes it to size x size.
// A degenerate crop yields an empty image so every patch downstream is
// empty as well.
func canonicalFace(img image.Image, size int) *image.NRGBA {
	if img == nil || size <= 0 {
		return &image.NRGBA{}
	}
	region := faceRegion(img.Bounds())
	if region.Empty() {
		return &image.NRGBA{}
	}
	crop := imaging.Crop(img, region)
	return imaging.Resize(crop, size, size, imaging.Linear)
}

// patchRects returns the nine sampling windows of a size x size face in
// row-major order. Each window is inset by a sixth of a cell from the cell's
// top-left corner and spans a third of a cell, keeping clear of sticker
// borders and the black grid lines between them.
func patchRects(size int) [9]image.Rectangle {
	var rects [9]image.Rectangle
	cell := size / 3
	inset := cell / 6
	side := cell / 3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			x := c*cell + inset
			y := r*cell + inset
			rects[r*3+c] = image.Rect(x, y, x+side, y+side)
		}
	}
	return rects
}
