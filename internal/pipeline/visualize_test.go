package pipeline

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOverlay(t *testing.T) {
	img := testutil.CreateTestImage(200, 100, color.White)
	res := &ImageResult{Barcodes: []BarcodeResult{{Value: "4006381333931", Box: Box{X: 40, Y: 40, W: 100, H: 40}}}}
	green := color.RGBA{G: 200, A: 255}

	out := RenderOverlay(img, res, green)
	require.NotNil(t, out)
	assert.Equal(t, image.Rect(0, 0, 200, 100), out.Bounds())

	// box outline
	assert.Equal(t, green, out.RGBAAt(40, 60))
	assert.Equal(t, green, out.RGBAAt(139, 79))
	// interior untouched
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(90, 60))
	// label background above the box
	assert.Equal(t, green, out.RGBAAt(41, 26))

	plain := RenderOverlay(img, nil, nil)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, plain.RGBAAt(40, 60))

	assert.Nil(t, RenderOverlay(nil, res, green))
}

func TestRenderOverlayLabelAtTopEdge(t *testing.T) {
	img := testutil.CreateTestImage(200, 100, color.White)
	res := &ImageResult{Barcodes: []BarcodeResult{{Value: "1", Box: Box{X: 10, Y: 0, W: 50, H: 60}}}}

	out := RenderOverlay(img, res, nil)
	// the label moves inside the box
	assert.Equal(t, DefaultBoxColor, out.RGBAAt(11, 3))
}

func TestRenderOverlayOffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 110, 60))
	src.Set(10, 10, color.RGBA{B: 255, A: 255})

	out := RenderOverlay(src, &ImageResult{}, nil)
	assert.Equal(t, image.Rect(0, 0, 100, 50), out.Bounds())
	assert.Equal(t, color.RGBA{B: 255, A: 255}, out.RGBAAt(0, 0))
}

func TestSaveOverlay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "overlays")
	img := testutil.BarcodeImage(t, "400638133393")
	res, err := newTestPipeline(t, nil).ProcessImage(img)
	require.NoError(t, err)
	res.Path = "/data/shelf.jpg"

	out, err := SaveOverlay(dir, img, res, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shelf_overlay.png"), out)

	saved := testutil.LoadImage(t, out)
	assert.Equal(t, img.Bounds(), saved.Bounds())
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 128, A: 255}, c)

	c, err = ParseColor("00FF00")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, c)

	for _, bad := range []string{"", "#fff", "zzzzzz", "#1234567"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}
