package detector

import (
	"testing"

	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/stretchr/testify/require"
)

// grayImage is a single-channel PixelSource backed by a byte slice.
type grayImage struct {
	w, h int
	pix  []uint8
}

func (g *grayImage) PixelValue(x, y, _, _ int) uint8 {
	return g.pix[y*g.w+x]
}

// stackedRows builds an image whose every row is row.
func stackedRows(row []uint8, height int) *grayImage {
	g := &grayImage{w: len(row), h: height, pix: make([]uint8, 0, len(row)*height)}
	for range height {
		g.pix = append(g.pix, row...)
	}
	return g
}

// codeRow renders one clean scan line of an EAN-13 symbol.
func codeRow(t *testing.T, code string, module, quiet int) []uint8 {
	t.Helper()
	row, err := testutil.ProfileRow(code, module, quiet)
	require.NoError(t, err)
	return row
}

// rowProfile builds the profile of a single row as if it were row 0 of a
// one-pixel-high image.
func rowProfile(row []uint8) RowProfile {
	return BuildRowProfile(stackedRows(row, 1), 0, len(row), 1, 0)
}

// expectedGroups derives the module widths of the six digit groups that
// start at module offset from the symbol's module pattern.
func expectedGroups(t *testing.T, code string, offset int) Groups {
	t.Helper()
	pattern, err := testutil.ModulePattern(code)
	require.NoError(t, err)

	var g Groups
	for i := range GroupsPerHalf {
		start := offset + i*ModulesPerDigit
		run, k := 1, 0
		for m := start + 1; m < start+ModulesPerDigit; m++ {
			if pattern[m] == pattern[m-1] {
				run++
				continue
			}
			g[i][k] = uint8(run)
			k++
			run = 1
		}
		g[i][k] = uint8(run)
	}
	return g
}

// moduleEdges returns the pixel positions of every bar edge of a clean row.
func moduleEdges(t *testing.T, code string, module, quiet int) []int {
	t.Helper()
	pattern, err := testutil.ModulePattern(code)
	require.NoError(t, err)

	var edges []int
	prev := false
	for m, bar := range pattern {
		if bar != prev {
			edges = append(edges, (quiet+m)*module)
		}
		prev = bar
	}
	return append(edges, (quiet+len(pattern))*module)
}
