package utils

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// CropImageRect crops an image to the given rectangle.
func CropImageRect(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return imaging.New(0, 0, color.Transparent)
	}
	return imaging.Crop(img, rect)
}

// Rotate90 rotates the image 90 degrees counter-clockwise.
func Rotate90(img image.Image) image.Image { return imaging.Rotate90(img) }

// Rotate180 rotates the image 180 degrees.
func Rotate180(img image.Image) image.Image { return imaging.Rotate180(img) }

// Rotate270 rotates the image 270 degrees counter-clockwise.
func Rotate270(img image.Image) image.Image { return imaging.Rotate270(img) }

// RotateBy rotates img counter-clockwise by a multiple of 90 degrees.
func RotateBy(img image.Image, angle int) image.Image {
	switch normalizeAngle(angle) {
	case 90:
		return Rotate90(img)
	case 180:
		return Rotate180(img)
	case 270:
		return Rotate270(img)
	default:
		return img
	}
}

// UnrotatePoint maps a point of an image rotated counter-clockwise by angle
// back into the original w x h image.
func UnrotatePoint(p image.Point, angle, w, h int) image.Point {
	switch normalizeAngle(angle) {
	case 90:
		return image.Pt(w-1-p.Y, p.X)
	case 180:
		return image.Pt(w-1-p.X, h-1-p.Y)
	case 270:
		return image.Pt(p.Y, h-1-p.X)
	default:
		return p
	}
}

// UnrotateRect maps a pixel rectangle of a rotated image back into the
// original w x h image.
func UnrotateRect(r image.Rectangle, angle, w, h int) image.Rectangle {
	if r.Empty() {
		return r
	}
	a := UnrotatePoint(r.Min, angle, w, h)
	b := UnrotatePoint(r.Max.Sub(image.Pt(1, 1)), angle, w, h)
	return image.Rect(min(a.X, b.X), min(a.Y, b.Y), max(a.X, b.X)+1, max(a.Y, b.Y)+1)
}

func normalizeAngle(angle int) int {
	return ((angle % 360) + 360) % 360
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	// Top and bottom edges
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	// Left and right edges
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}

// DrawLine draws a line between two points using a simple Bresenham variant.
func DrawLine(dst *image.RGBA, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst *image.RGBA, x, y int, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	r := (thickness - 1) / 2
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.Set(xx, yy, col)
			}
		}
	}
}
