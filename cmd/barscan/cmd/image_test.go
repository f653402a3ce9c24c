package cmd

import (
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageCommand(t *testing.T) {
	assert.True(t, strings.HasPrefix(imageCmd.Use, "image"))
	assert.NotEmpty(t, imageCmd.Short)
	assert.NotEmpty(t, imageCmd.Long)

	for _, name := range []string{"format", "output", "channel", "row-workers", "row-stride",
		"try-rotations", "multi", "formats", "roi", "strict", "overlay-dir", "overlay-box-color"} {
		assert.NotNil(t, imageCmd.Flags().Lookup(name), "missing flag --%s", name)
	}
}

func TestImageCommandText(t *testing.T) {
	path := writeBarcode(t, t.TempDir(), "shelf.png", "400638133393")

	out, _, err := runCLI(t, "image", path)
	require.NoError(t, err)
	assert.Equal(t, path+": 4006381333931 ean13 (33,12 285x109) rot=0 conf=1.00\n", out)
}

func TestImageCommandJSON(t *testing.T) {
	dir := t.TempDir()
	a := writeBarcode(t, dir, "a.png", "400638133393")
	b := writeBarcode(t, dir, "b.png", "590123412345")

	out, _, err := runCLI(t, "image", a, b, "--format", "json")
	require.NoError(t, err)

	var results []pipeline.ImageResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].Path)
	assert.Equal(t, "4006381333931", results[0].Barcodes[0].Value)
	assert.Equal(t, "5901234123457", results[1].Barcodes[0].Value)
}

func TestImageCommandOutputFileAndOverlay(t *testing.T) {
	dir := t.TempDir()
	path := writeBarcode(t, dir, "shelf.png", "400638133393")
	outFile := filepath.Join(dir, "out.csv")
	overlays := filepath.Join(dir, "overlays")

	out, _, err := runCLI(t, "image", path, "-f", "csv", "-o", outFile,
		"--overlay-dir", overlays, "--overlay-box-color", "#00FF00")
	require.NoError(t, err)
	assert.Contains(t, out, "Results written to "+outFile)

	data, err := os.ReadFile(outFile) //nolint:gosec // test output
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "path,type,value,upca,x,y,w,h,rotation,confidence\n"))
	assert.Contains(t, string(data), "4006381333931")

	overlay := testutil.LoadImage(t, filepath.Join(overlays, "shelf_overlay.png"))
	r, g, b, _ := overlay.At(33, 12).RGBA()
	assert.Equal(t, [3]uint32{0, 0xffff, 0}, [3]uint32{r, g, b})
}

func TestImageCommandStrict(t *testing.T) {
	dir := t.TempDir()
	blank := filepath.Join(dir, "blank.png")
	require.NoError(t, testutil.WritePNG(testutil.CreateTestImage(200, 100, color.White), blank))
	good := writeBarcode(t, dir, "good.png", "400638133393")

	out, _, err := runCLI(t, "image", good, blank, "--strict")
	require.Error(t, err)
	require.ErrorIs(t, err, barcode.ErrNoBarcode)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out, blank+": no barcode found")
	assert.Contains(t, out, "4006381333931")

	out, _, err = runCLI(t, "image", blank)
	require.NoError(t, err)
	assert.Contains(t, out, "no barcode found")
}

func TestImageCommandFormatsFilter(t *testing.T) {
	path := writeBarcode(t, t.TempDir(), "a.png", "003600029145")

	out, _, err := runCLI(t, "image", path, "--formats", "upca")
	require.NoError(t, err)
	assert.Contains(t, out, "036000291452 upca")
}

func TestImageCommandErrors(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o600))

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no args", []string{"image"}, "requires at least 1 arg"},
		{"missing file", []string{"image", filepath.Join(dir, "missing.png")}, "failed to load"},
		{"unsupported", []string{"image", text}, "unsupported image format"},
		{"bad format", []string{"image", writeBarcode(t, dir, "a.png", "400638133393"), "-f", "xml"}, "unsupported output format"},
		{"bad roi", []string{"image", "--roi", "1,2,3", "a.png"}, "error loading configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
