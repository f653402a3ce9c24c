package testutil

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/boombuler/barcode/ean"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// EAN13Modules is the module width of an EAN-13 symbol without quiet zones.
const EAN13Modules = 95

// BarcodeImageConfig controls synthetic EAN-13 rendering.
type BarcodeImageConfig struct {
	Code       string      // 12 digits (check digit appended) or 13 digits
	Module     int         // Pixels per module
	Height     int         // Bar height in pixels
	QuietZone  int         // Quiet zone on each side, in modules
	Margin     int         // Blank rows above and below the bars
	Background color.Color // Space colour
	Foreground color.Color // Bar colour
	Label      bool        // Print the digits under the bars
}

// DefaultBarcodeImageConfig returns a clean, upright symbol configuration.
func DefaultBarcodeImageConfig(code string) BarcodeImageConfig {
	return BarcodeImageConfig{
		Code:       code,
		Module:     3,
		Height:     120,
		QuietZone:  11,
		Margin:     10,
		Background: color.White,
		Foreground: color.Black,
	}
}

// ModulePattern returns the 95 module pattern of code, true for bars. The
// pattern comes from an independent EAN encoder, not from this module's
// decoding tables.
func ModulePattern(code string) ([]bool, error) {
	bc, err := ean.Encode(code)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", code, err)
	}
	b := bc.Bounds()
	if b.Dx() != EAN13Modules {
		return nil, fmt.Errorf("encode %q: got %d modules, want %d (EAN-8 is not supported)", code, b.Dx(), EAN13Modules)
	}
	pattern := make([]bool, b.Dx())
	for x := range pattern {
		r, _, _, _ := bc.At(b.Min.X+x, b.Min.Y).RGBA()
		pattern[x] = r < 0x8000
	}
	return pattern, nil
}

// FullCode returns the 13-digit form of a 12- or 13-digit code.
func FullCode(code string) (string, error) {
	bc, err := ean.Encode(code)
	if err != nil {
		return "", err
	}
	return bc.Content(), nil
}

// ProfileRow renders one scan line of code as gray values, module pixels per
// module and quiet modules of background on each side.
func ProfileRow(code string, module, quiet int) ([]uint8, error) {
	if module < 1 {
		return nil, errors.New("module width must be positive")
	}
	pattern, err := ModulePattern(code)
	if err != nil {
		return nil, err
	}
	row := make([]uint8, (len(pattern)+2*quiet)*module)
	for i := range row {
		row[i] = 255
	}
	for m, bar := range pattern {
		if !bar {
			continue
		}
		start := (quiet + m) * module
		for x := start; x < start+module; x++ {
			row[x] = 0
		}
	}
	return row, nil
}

// GenerateBarcodeImage renders an upright EAN-13 symbol.
func GenerateBarcodeImage(cfg BarcodeImageConfig) (*image.RGBA, error) {
	if cfg.Module < 1 || cfg.Height < 1 {
		return nil, errors.New("module and height must be positive")
	}
	pattern, err := ModulePattern(cfg.Code)
	if err != nil {
		return nil, err
	}

	labelHeight := 0
	if cfg.Label {
		labelHeight = basicfont.Face7x13.Metrics().Height.Ceil() + 4
	}

	width := (len(pattern) + 2*cfg.QuietZone) * cfg.Module
	height := cfg.Height + 2*cfg.Margin + labelHeight
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	fg := &image.Uniform{cfg.Foreground}
	for m, bar := range pattern {
		if !bar {
			continue
		}
		x := (cfg.QuietZone + m) * cfg.Module
		r := image.Rect(x, cfg.Margin, x+cfg.Module, cfg.Margin+cfg.Height)
		draw.Draw(img, r, fg, image.Point{}, draw.Src)
	}

	if cfg.Label {
		text, err := FullCode(cfg.Code)
		if err != nil {
			return nil, err
		}
		drawer := &font.Drawer{Dst: img, Src: fg, Face: basicfont.Face7x13}
		textWidth := font.MeasureString(basicfont.Face7x13, text).Ceil()
		drawer.Dot = fixed.P((width-textWidth)/2, height-4)
		drawer.DrawString(text)
	}

	return img, nil
}

// PlaceOnCanvas pastes img onto a w x h canvas of bg at offset.
func PlaceOnCanvas(img image.Image, w, h int, offset image.Point, bg color.Color) *image.NRGBA {
	canvas := imaging.New(w, h, bg)
	return imaging.Paste(canvas, img, offset)
}

// Blur applies a gaussian blur of sigma to img.
func Blur(img image.Image, sigma float64) *image.NRGBA {
	return imaging.Blur(img, sigma)
}

// Invert swaps light and dark.
func Invert(img image.Image) *image.NRGBA {
	return imaging.Invert(img)
}

// AddNoise flips the intensity of a deterministic sparse pixel pattern.
func AddNoise(img image.Image, every int) *image.NRGBA {
	out := imaging.Clone(img)
	if every < 1 {
		return out
	}
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if (x*31+y*17)%every != 0 {
				continue
			}
			i := out.PixOffset(x, y)
			for c := range 3 {
				out.Pix[i+c] = 255 - out.Pix[i+c]
			}
		}
	}
	return out
}

// SaveImage saves an image to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, WritePNG(img, path), "Failed to save image %s", path)
}

// WritePNG encodes img as PNG at path, creating parent directories.
func WritePNG(img image.Image, path string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")

	return img
}

// CreateTestImage creates a simple test image with the specified dimensions and color.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// BarcodeImage renders code with the default configuration or fails the test.
func BarcodeImage(t *testing.T, code string) *image.RGBA {
	t.Helper()
	img, err := GenerateBarcodeImage(DefaultBarcodeImageConfig(code))
	require.NoError(t, err)
	return img
}
