package utils

import (
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error {
	return e.Err
}

// ImageConstraints defines the size limits for scanned images.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultImageConstraints returns the default constraints for scanning. An
// EAN-13 symbol is 95 modules wide, so narrower images cannot hold one.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MaxWidth:  16384,
		MaxHeight: 16384,
		MinWidth:  95,
		MinHeight: 1,
	}
}

// LuminanceChannel selects the luminance plane instead of a colour channel.
const LuminanceChannel = -1

// ChannelSource serves single-channel 8-bit intensities from an image. The
// image is normalised to NRGBA once; the luminance plane is built on first use.
type ChannelSource struct {
	rgba *image.NRGBA

	grayOnce sync.Once
	gray     *image.NRGBA
}

// NewChannelSource wraps img for per-channel pixel access.
func NewChannelSource(img image.Image) *ChannelSource {
	return &ChannelSource{rgba: imaging.Clone(img)}
}

// Width returns the image width.
func (s *ChannelSource) Width() int { return s.rgba.Rect.Dx() }

// Height returns the image height.
func (s *ChannelSource) Height() int { return s.rgba.Rect.Dy() }

// PixelValue returns channel (0=R, 1=G, 2=B, 3=A, LuminanceChannel) of the
// pixel at (x, y). Coordinates must lie inside the image.
func (s *ChannelSource) PixelValue(x, y, channel, _ int) uint8 {
	if channel < 0 {
		g := s.luminance()
		return g.Pix[y*g.Stride+x*4]
	}
	return s.rgba.Pix[y*s.rgba.Stride+x*4+min(channel, 3)]
}

func (s *ChannelSource) luminance() *image.NRGBA {
	s.grayOnce.Do(func() {
		s.gray = imaging.Grayscale(s.rgba)
	})
	return s.gray
}

// ImageQuality contains basic image properties relevant to scanning.
type ImageQuality struct {
	Width       int
	Height      int
	AspectRatio float64
	IsGrayscale bool
	HasAlpha    bool
}

// AssessImageQuality analyzes basic image properties.
func AssessImageQuality(img image.Image) ImageQuality {
	if img == nil {
		return ImageQuality{}
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var aspectRatio float64
	if height > 0 {
		aspectRatio = float64(width) / float64(height)
	}
	isGrayscale, hasAlpha := analyzePixelProperties(img, bounds)

	return ImageQuality{
		Width:       width,
		Height:      height,
		AspectRatio: aspectRatio,
		IsGrayscale: isGrayscale,
		HasAlpha:    hasAlpha,
	}
}

// analyzePixelProperties checks if image is grayscale and has alpha channel.
func analyzePixelProperties(img image.Image, bounds image.Rectangle) (bool, bool) {
	isGrayscale := true
	hasAlpha := false

	for y := bounds.Min.Y; y < bounds.Max.Y && (isGrayscale || !hasAlpha); y++ {
		for x := bounds.Min.X; x < bounds.Max.X && (isGrayscale || !hasAlpha); x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a < 65535 {
				hasAlpha = true
			}
			if r != g || g != b {
				isGrayscale = false
			}
		}
	}

	return isGrayscale, hasAlpha
}
