package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/utils"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultBoxColor is the overlay color used when none is configured.
var DefaultBoxColor = color.RGBA{R: 255, A: 255}

// RenderOverlay draws each barcode's box and value over a copy of img.
func RenderOverlay(img image.Image, res *ImageResult, boxColor color.Color) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	if res == nil {
		return dst
	}
	if boxColor == nil {
		boxColor = DefaultBoxColor
	}

	face := basicfont.Face7x13
	for _, bc := range res.Barcodes {
		rect := bc.Box.Rect()
		utils.DrawRect(dst, rect, boxColor, 2)

		label := bc.Value
		width := font.MeasureString(face, label).Ceil()
		height := face.Metrics().Height.Ceil()
		// above the box, or inside it when the box touches the top edge
		top := rect.Min.Y - height - 2
		if top < 0 {
			top = rect.Min.Y + 2
		}
		bg := image.Rect(rect.Min.X, top, rect.Min.X+width+4, top+height+2).Intersect(dst.Bounds())
		draw.Draw(dst, bg, image.NewUniform(boxColor), image.Point{}, draw.Src)

		d := font.Drawer{
			Dst:  dst,
			Src:  image.White,
			Face: face,
			Dot:  fixed.P(rect.Min.X+2, top+face.Metrics().Ascent.Ceil()+1),
		}
		d.DrawString(label)
	}
	return dst
}

// SaveOverlay renders the overlay for res and writes it into dir, named after
// the source path. It returns the written file path.
func SaveOverlay(dir string, img image.Image, res *ImageResult, boxColor color.Color) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create overlay dir: %w", err)
	}
	name := "overlay"
	if res != nil && res.Path != "" {
		name = strings.TrimSuffix(filepath.Base(res.Path), filepath.Ext(res.Path))
	}
	out := filepath.Join(dir, name+"_overlay.png")
	if err := imaging.Save(RenderOverlay(img, res, boxColor), out); err != nil {
		return "", fmt.Errorf("save overlay: %w", err)
	}
	return out, nil
}

// ParseColor parses a "#rrggbb" or "rrggbb" hex color.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
