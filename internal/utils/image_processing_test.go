package utils

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSource(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(2, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	src := NewChannelSource(img)
	assert.Equal(t, 3, src.Width())
	assert.Equal(t, 2, src.Height())

	assert.Equal(t, uint8(10), src.PixelValue(1, 1, 0, 3))
	assert.Equal(t, uint8(20), src.PixelValue(1, 1, 1, 3))
	assert.Equal(t, uint8(30), src.PixelValue(1, 1, 2, 3))
	assert.Equal(t, uint8(255), src.PixelValue(1, 1, 3, 3))
	// channels past alpha clamp to alpha
	assert.Equal(t, uint8(255), src.PixelValue(1, 1, 7, 3))

	assert.Equal(t, uint8(255), src.PixelValue(2, 0, LuminanceChannel, 3))
	assert.Equal(t, uint8(0), src.PixelValue(0, 0, LuminanceChannel, 3))
	lum := src.PixelValue(1, 1, LuminanceChannel, 3)
	assert.Greater(t, lum, uint8(10))
	assert.Less(t, lum, uint8(30))
}

func TestChannelSourceOffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 10, 10))
	img.Set(5, 5, color.RGBA{R: 77, A: 255})

	src := NewChannelSource(img)
	assert.Equal(t, 5, src.Width())
	assert.Equal(t, uint8(77), src.PixelValue(0, 0, 0, 5))
}

// TestChannelSource_GrayLuminanceIsIdentity verifies that gray pixels keep
// their value on the luminance plane.
func TestChannelSource_GrayLuminanceIsIdentity(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("gray pixels keep their value", prop.ForAll(
		func(v uint8) bool {
			img := image.NewGray(image.Rect(0, 0, 1, 1))
			img.SetGray(0, 0, color.Gray{Y: v})
			src := NewChannelSource(img)
			return src.PixelValue(0, 0, LuminanceChannel, 1) == v && src.PixelValue(0, 0, 0, 1) == v
		},
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

// TestUnrotatePoint_InvertsRotateBy verifies that every pixel of a rotated
// image maps back to the pixel it came from.
func TestUnrotatePoint_InvertsRotateBy(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("unrotated pixels match", prop.ForAll(
		func(w, h, quarter int) bool {
			img := image.NewNRGBA(image.Rect(0, 0, w, h))
			for y := range h {
				for x := range w {
					img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), A: 255})
				}
			}
			angle := quarter * 90
			rot := RotateBy(img, angle)
			b := rot.Bounds()
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					p := UnrotatePoint(image.Pt(x, y), angle, w, h)
					if rot.At(x, y) != img.At(p.X, p.Y) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.IntRange(1, 12),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

func TestAssessImageQuality(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 40, 20))
	q := AssessImageQuality(gray)
	assert.Equal(t, 40, q.Width)
	assert.Equal(t, 20, q.Height)
	assert.InDelta(t, 2.0, q.AspectRatio, 1e-9)
	assert.True(t, q.IsGrayscale)
	assert.False(t, q.HasAlpha)

	rgba := image.NewRGBA(image.Rect(0, 0, 4, 4))
	rgba.Set(1, 1, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	q = AssessImageQuality(rgba)
	assert.False(t, q.IsGrayscale)
	// the untouched pixels are fully transparent
	assert.True(t, q.HasAlpha)

	assert.Equal(t, ImageQuality{}, AssessImageQuality(nil))
}

func TestImageProcessingError(t *testing.T) {
	inner := errors.New("boom")
	err := &ImageProcessingError{Operation: "decode", Err: inner}

	assert.Equal(t, "image processing error in decode: boom", err.Error())
	require.ErrorIs(t, err, inner)
}

func TestDefaultImageConstraints(t *testing.T) {
	c := DefaultImageConstraints()
	assert.Equal(t, 95, c.MinWidth)
	assert.Equal(t, 1, c.MinHeight)
	assert.Equal(t, 16384, c.MaxWidth)
	assert.Equal(t, 16384, c.MaxHeight)
}
