package support

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// RegisterImageSteps registers fixture image creation steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a barcode image "([^"]*)" encoding "(\d+)"$`, testCtx.aBarcodeImageEncoding)
	sc.Step(`^a barcode image "([^"]*)" encoding "(\d+)" rotated by (\d+) degrees$`, testCtx.aRotatedBarcodeImage)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a text file "([^"]*)"$`, testCtx.aTextFile)
	sc.Step(`^a directory "([^"]*)" with (\d+) barcode images$`, testCtx.aDirectoryWithBarcodeImages)
}

func (testCtx *TestContext) renderBarcode(code string) (image.Image, error) {
	return testutil.GenerateBarcodeImage(testutil.DefaultBarcodeImageConfig(code))
}

func (testCtx *TestContext) aBarcodeImageEncoding(name, code string) error {
	img, err := testCtx.renderBarcode(code)
	if err != nil {
		return err
	}
	return testutil.WritePNG(img, testCtx.path(name))
}

func (testCtx *TestContext) aRotatedBarcodeImage(name, code string, degrees int) error {
	img, err := testCtx.renderBarcode(code)
	if err != nil {
		return err
	}
	switch degrees {
	case 90:
		img = imaging.Rotate90(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate270(img)
	default:
		return fmt.Errorf("unsupported rotation %d", degrees)
	}
	return testutil.WritePNG(img, testCtx.path(name))
}

func (testCtx *TestContext) aBlankImage(name string) error {
	return testutil.WritePNG(testutil.CreateTestImage(320, 200, color.White), testCtx.path(name))
}

func (testCtx *TestContext) aTextFile(name string) error {
	return os.WriteFile(testCtx.path(name), []byte("not an image"), 0o600)
}

// aDirectoryWithBarcodeImages writes n upright symbols with distinct codes.
func (testCtx *TestContext) aDirectoryWithBarcodeImages(dir string, n int) error {
	for i := range n {
		code := fmt.Sprintf("40063813339%d", i%10)
		img, err := testCtx.renderBarcode(code)
		if err != nil {
			return err
		}
		if err := testutil.WritePNG(img, filepath.Join(testCtx.path(dir), fmt.Sprintf("code_%02d.png", i))); err != nil {
			return err
		}
	}
	return nil
}
