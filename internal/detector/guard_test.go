package detector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateRowFull(t *testing.T) {
	codes := []string{"400638133393", "590123412345", "978020137962", "123456789012"}
	for _, code := range codes {
		for _, module := range []int{2, 3, 4, 5} {
			row := codeRow(t, code, module, 11)
			p := rowProfile(row)

			recs := LocateRow(p, FindCrossings(p))
			require.Len(t, recs, 1, "code %s module %d", code, module)

			rec := recs[0]
			assert.Equal(t, Full, rec.Meta.Completeness)
			assert.True(t, rec.Valid())
			assert.Equal(t, 11*module, rec.Meta.Left)
			assert.Equal(t, (11+95)*module, rec.Meta.Right)
			assert.Equal(t, []int{0}, rec.Meta.Rows)
			assert.Equal(t, expectedGroups(t, code, 3), rec.Left, "left groups of %s", code)
			assert.Equal(t, expectedGroups(t, code, 50), rec.Right, "right groups of %s", code)
		}
	}
}

func TestLocateRowInverted(t *testing.T) {
	row := codeRow(t, "590123412345", 3, 11)
	for i := range row {
		row[i] = 255 - row[i]
	}
	p := rowProfile(row)

	recs := LocateRow(p, FindCrossings(p))
	require.Len(t, recs, 1)
	assert.Equal(t, Full, recs[0].Meta.Completeness)
	assert.Equal(t, expectedGroups(t, "590123412345", 3), recs[0].Left)
}

func TestLocateRowTooFewCrossings(t *testing.T) {
	row := codeRow(t, "400638133393", 3, 11)
	p := rowProfile(row)
	seq := FindCrossings(p)
	seq.Positions = seq.Positions[:MinCrossings-1]

	assert.Nil(t, LocateRow(p, seq))
}

func TestLocateRowPartials(t *testing.T) {
	const code, quiet = "400638133393", 11

	for _, module := range []int{3, 4} {
		t.Run(fmt.Sprintf("broken end guard %dpx", module), func(t *testing.T) {
			row := codeRow(t, code, module, quiet)
			// widen the last bar into the quiet zone
			start := (quiet + 94) * module
			for x := start; x < start+10*module; x++ {
				row[x] = 0
			}
			p := rowProfile(row)

			recs := LocateRow(p, FindCrossings(p))
			require.Len(t, recs, 1)
			rec := recs[0]
			assert.Equal(t, Partial, rec.Meta.Completeness)
			assert.Equal(t, LeftHalf, rec.Half())
			assert.True(t, rec.Valid())
			assert.Equal(t, quiet*module, rec.Meta.Left)
			assert.Equal(t, (quiet+45)*module, rec.Meta.Right)
			assert.Equal(t, expectedGroups(t, code, 3), rec.Left)
		})

		t.Run(fmt.Sprintf("broken start guard %dpx", module), func(t *testing.T) {
			row := codeRow(t, code, module, quiet)
			// widen the first bar into the quiet zone
			for x := module; x < quiet*module; x++ {
				row[x] = 0
			}
			p := rowProfile(row)

			recs := LocateRow(p, FindCrossings(p))
			require.Len(t, recs, 1)
			rec := recs[0]
			assert.Equal(t, Partial, rec.Meta.Completeness)
			assert.Equal(t, RightHalf, rec.Half())
			assert.Equal(t, (quiet+45)*module, rec.Meta.Left)
			assert.Equal(t, (quiet+95)*module, rec.Meta.Right)
			assert.Equal(t, expectedGroups(t, code, 50), rec.Right)
		})
	}
}

func TestTolerance(t *testing.T) {
	assert.Equal(t, tolerance{lo: 1, hi: 5}, newTolerance(3))
	assert.Equal(t, tolerance{lo: 1, hi: 3}, newTolerance(1))
	assert.Equal(t, tolerance{lo: 42, hi: 58}, newTolerance(50))

	assert.Equal(t, tolerance{lo: 1, hi: 7}, newTolerance(3).widen(2))
	assert.Equal(t, tolerance{lo: 40, hi: 60}, newTolerance(50).widen(2))

	tol := newTolerance(3)
	assert.True(t, tol.match(1))
	assert.True(t, tol.match(5))
	assert.False(t, tol.match(6))
	assert.True(t, tol.matchAll([]int{2, 3, 4}))
	assert.False(t, tol.matchAll([]int{2, 9, 4}))
	assert.True(t, tol.matchAll(nil))
}

func TestFindUnitLen(t *testing.T) {
	t.Run("start guard", func(t *testing.T) {
		for module, want := range map[int]float64{2: 2, 3: 10.0 / 3} {
			row := codeRow(t, "400638133393", module, 11)
			p := rowProfile(row)
			seq := FindCrossings(p)

			got := findUnitLen(p.Values, seq.Positions[0], seq.Positions[3], 3, seq.SegmentLevel(0) == Light)
			assert.InDelta(t, want, got, 1e-9, "module %d", module)
		}
	})

	t.Run("flat span", func(t *testing.T) {
		row := []uint8{90, 90, 90, 90, 90, 90}
		assert.InDelta(t, 2.0, findUnitLen(row, 0, 6, 3, false), 1e-9)
	})

	t.Run("empty span", func(t *testing.T) {
		assert.Zero(t, findUnitLen([]uint8{1, 2, 3}, 1, 1, 3, false))
		assert.Zero(t, findUnitLen([]uint8{1, 2, 3}, 0, 3, 0, false))
	})
}

func TestMergeAdjacent(t *testing.T) {
	left := Record{
		Meta: Meta{Y: 4, Left: 10, Right: 60, Completeness: Partial, Rows: []int{4}},
		Left: validGroups(1),
	}
	right := Record{
		Meta:  Meta{Y: 4, Left: 60, Right: 110, Completeness: Partial, Rows: []int{4}},
		Right: validGroups(2),
	}

	t.Run("touching halves", func(t *testing.T) {
		out := mergeAdjacent([]Record{left, right})
		require.Len(t, out, 1)
		assert.Equal(t, Full, out[0].Meta.Completeness)
		assert.Equal(t, 10, out[0].Meta.Left)
		assert.Equal(t, 110, out[0].Meta.Right)
		assert.True(t, out[0].Valid())
	})

	t.Run("gap between halves", func(t *testing.T) {
		far := right
		far.Meta.Left, far.Meta.Right = 70, 120
		out := mergeAdjacent([]Record{left, far})
		assert.Len(t, out, 2)
	})

	t.Run("wrong order", func(t *testing.T) {
		out := mergeAdjacent([]Record{right, left})
		assert.Len(t, out, 2)
	})

	t.Run("single", func(t *testing.T) {
		assert.Len(t, mergeAdjacent([]Record{left}), 1)
	})
}

// validGroups returns six identical 7-module groups starting with w.
func validGroups(w uint8) Groups {
	var g Groups
	for i := range g {
		g[i] = [4]uint8{w, 1, 1, 5 - w}
	}
	return g
}
