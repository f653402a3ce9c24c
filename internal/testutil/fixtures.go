package testutil

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Fixture describes a synthetic barcode image and the value a scan must report.
type Fixture struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Code        string  `json:"code"`
	Expected    string  `json:"expected"`
	InputFile   string  `json:"input_file"`
	Module      int     `json:"module"`
	Rotation    int     `json:"rotation,omitempty"`
	Inverted    bool    `json:"inverted,omitempty"`
	Blur        float64 `json:"blur,omitempty"`
	Noise       int     `json:"noise,omitempty"`
	Canvas      int     `json:"canvas,omitempty"`
}

// Manifest is the index written next to generated fixture images.
type Manifest struct {
	Fixtures []Fixture `json:"fixtures"`
}

// StandardFixtures returns the fixture set used by tests and the generator.
func StandardFixtures() []Fixture {
	return []Fixture{
		{Name: "ean13_basic", Description: "Upright EAN-13, 3px modules", Code: "400638133393", Expected: "4006381333931", Module: 3},
		{Name: "ean13_thin", Description: "Upright EAN-13, 2px modules", Code: "590123412345", Expected: "5901234123457", Module: 2},
		{Name: "ean13_wide", Description: "Upright EAN-13, 5px modules on a large canvas", Code: "978020137962", Expected: "9780201379624", Module: 5, Canvas: 1400},
		{Name: "upca_basic", Description: "UPC-A code carried as EAN-13 with leading zero", Code: "003600029145", Expected: "0036000291452", Module: 3},
		{Name: "ean13_rotated_90", Description: "EAN-13 rotated a quarter turn", Code: "400638133393", Expected: "4006381333931", Module: 3, Rotation: 90},
		{Name: "ean13_rotated_180", Description: "EAN-13 upside down", Code: "590123412345", Expected: "5901234123457", Module: 3, Rotation: 180},
		{Name: "ean13_blurred", Description: "EAN-13 with slight gaussian blur", Code: "123456789012", Expected: "1234567890128", Module: 4, Blur: 0.8},
		{Name: "ean13_noisy", Description: "EAN-13 with sparse salt noise", Code: "123456789012", Expected: "1234567890128", Module: 3, Noise: 499},
	}
}

// Render draws the fixture image.
func (f Fixture) Render() (image.Image, error) {
	cfg := DefaultBarcodeImageConfig(f.Code)
	if f.Module > 0 {
		cfg.Module = f.Module
	}
	if f.Inverted {
		cfg.Background, cfg.Foreground = color.Black, color.White
	}
	sym, err := GenerateBarcodeImage(cfg)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.Name, err)
	}

	var img image.Image = sym
	if f.Canvas > 0 {
		b := sym.Bounds()
		side := max(f.Canvas, b.Dx(), b.Dy())
		off := image.Pt((side-b.Dx())/2, (side-b.Dy())/2)
		img = PlaceOnCanvas(sym, side, side, off, cfg.Background)
	}
	if f.Blur > 0 {
		img = Blur(img, f.Blur)
	}
	if f.Noise > 0 {
		img = AddNoise(img, f.Noise)
	}
	switch f.Rotation {
	case 90:
		img = imaging.Rotate90(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate270(img)
	}
	return img, nil
}

// WriteFixtures renders every fixture into dir and writes manifest.json.
func WriteFixtures(dir string, fixtures []Fixture) (Manifest, error) {
	if err := EnsureDir(dir); err != nil {
		return Manifest{}, err
	}
	m := Manifest{Fixtures: make([]Fixture, 0, len(fixtures))}
	for _, f := range fixtures {
		img, err := f.Render()
		if err != nil {
			return Manifest{}, err
		}
		f.InputFile = f.Name + ".png"
		if err := WritePNG(img, filepath.Join(dir, f.InputFile)); err != nil {
			return Manifest{}, fmt.Errorf("fixture %s: %w", f.Name, err)
		}
		m.Fixtures = append(m.Fixtures, f)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o600); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// ReadManifest loads manifest.json from dir.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json")) //nolint:gosec // G304: fixture directory is caller controlled
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
