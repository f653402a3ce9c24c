package barcode

import (
	"testing"

	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// groupsAt returns the run lengths of the six digit groups that start at
// module offset of code's module pattern.
func groupsAt(t *testing.T, pattern []bool, offset int) detector.Groups {
	t.Helper()
	var g detector.Groups
	for i := range detector.GroupsPerHalf {
		start := offset + i*detector.ModulesPerDigit
		run, k := 1, 0
		for m := start + 1; m < start+detector.ModulesPerDigit; m++ {
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

// recordFor builds the full record a clean scan of code would produce.
func recordFor(t *testing.T, code string) detector.Record {
	t.Helper()
	pattern, err := testutil.ModulePattern(code)
	require.NoError(t, err)
	return detector.Record{
		Meta:  detector.Meta{Completeness: detector.Full, Left: 0, Right: 95},
		Left:  groupsAt(t, pattern, 3),
		Right: groupsAt(t, pattern, 50),
	}
}

func TestTranslate(t *testing.T) {
	codes := []string{
		"4006381333931",
		"5901234123457",
		"9780201379624",
		"0036000291452",
		"1234567890128",
		"0123456789012",
		"2000000000008",
		"3000000000007",
		"6000000000004",
		"7000000000003",
		"8000000000002",
	}
	for _, want := range codes {
		t.Run(want, func(t *testing.T) {
			code, ok := Translate(recordFor(t, want))
			require.True(t, ok)
			assert.Equal(t, want, code.String())
			assert.True(t, code.Valid())
		})
	}
}

func TestTranslateRejects(t *testing.T) {
	t.Run("partial record", func(t *testing.T) {
		rec := recordFor(t, "4006381333931")
		rec.Meta.Completeness = detector.Partial
		_, ok := Translate(rec)
		assert.False(t, ok)
	})

	t.Run("unknown widths", func(t *testing.T) {
		rec := recordFor(t, "4006381333931")
		rec.Left[2] = [4]uint8{1, 1, 1, 1}
		_, ok := Translate(rec)
		assert.False(t, ok)
	})

	t.Run("even parity on the right", func(t *testing.T) {
		rec := recordFor(t, "4006381333931")
		// G-set 0 in the right half
		rec.Right[0] = [4]uint8{1, 1, 2, 3}
		_, ok := Translate(rec)
		assert.False(t, ok)
	})

	t.Run("bad checksum", func(t *testing.T) {
		rec := recordFor(t, "4006381333931")
		// swap the last right digit 1 for 2
		rec.Right[5] = [4]uint8{2, 1, 2, 2}
		_, ok := Translate(rec)
		assert.False(t, ok)
	})

	t.Run("all even left half", func(t *testing.T) {
		rec := recordFor(t, "4006381333931")
		for i := range rec.Left {
			// G-set 0
			rec.Left[i] = [4]uint8{1, 1, 2, 3}
		}
		_, ok := Translate(rec)
		assert.False(t, ok)
	})
}

func TestLookupDigit(t *testing.T) {
	lCodes := []string{"0001101", "0011001", "0010011", "0111101", "0100011", "0110001", "0101111", "0111011", "0110111", "0001011"}
	for d, bits := range lCodes {
		l := runs(bits)
		digit, odd, ok := LookupDigit(l)
		require.True(t, ok, "L %d", d)
		assert.Equal(t, uint8(d), digit)
		assert.True(t, odd)

		// G is the reversed complement of L; the widths simply reverse
		g := [4]uint8{l[3], l[2], l[1], l[0]}
		digit, odd, ok = LookupDigit(g)
		require.True(t, ok, "G %d", d)
		assert.Equal(t, uint8(d), digit)
		assert.False(t, odd)
	}

	_, _, ok := LookupDigit([4]uint8{1, 1, 1, 1})
	assert.False(t, ok)
	_, _, ok = LookupDigit([4]uint8{})
	assert.False(t, ok)
}

func runs(bits string) [4]uint8 {
	var out [4]uint8
	k, run := 0, 1
	for i := 1; i < len(bits); i++ {
		if bits[i] == bits[i-1] {
			run++
			continue
		}
		out[k] = uint8(run)
		k++
		run = 1
	}
	out[k] = uint8(run)
	return out
}

func TestFirstDigit(t *testing.T) {
	patterns := []string{"LLLLL", "LGLGG", "LGGLG", "LGGGL", "GLLGG", "GGLLG", "GGGLL", "GLGLG", "GLGGL", "GGLGL"}
	for want, p := range patterns {
		d, ok := FirstDigit(parity(p))
		require.True(t, ok, p)
		assert.Equal(t, uint8(want), d, p)
	}

	for _, dead := range []string{"GGGGG", "GGGGL", "LGGGG", "GLGGG", "GGLGG", "GGGLG"} {
		_, ok := FirstDigit(parity(dead))
		assert.False(t, ok, dead)
	}
}

func parity(s string) [5]bool {
	var p [5]bool
	for i := range p {
		p[i] = s[i] == 'L'
	}
	return p
}

func TestCheckDigit(t *testing.T) {
	tests := map[string]uint8{
		"400638133393": 1,
		"590123412345": 7,
		"978020137962": 4,
		"003600029145": 2,
		"000000000000": 0,
	}
	for in, want := range tests {
		var d [12]uint8
		for i := range d {
			d[i] = in[i] - '0'
		}
		assert.Equal(t, want, CheckDigit(d), in)
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"4006381333931", "4006381333931", true},
		{" 4006381333931 ", "4006381333931", true},
		{"4 006381 333931", "4006381333931", true},
		{"400-6381-333931", "4006381333931", true},
		{"036000291452", "0036000291452", true},
		{"４００６３８１３３３９３１", "4006381333931", true},
		{"4006381333932", "4006381333932", true},
		{"400638133393", "0400638133393", true},
		{"40063813339", "", false},
		{"40063813339311", "", false},
		{"400638133393a", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		c, ok := ParseCode(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, c.String(), tt.in)
		}
	}
}

func TestCodeUPCA(t *testing.T) {
	c, ok := ParseCode("0036000291452")
	require.True(t, ok)
	assert.True(t, c.IsUPCA())
	assert.Equal(t, "036000291452", c.UPCA())

	c, ok = ParseCode("4006381333931")
	require.True(t, ok)
	assert.False(t, c.IsUPCA())
	assert.Empty(t, c.UPCA())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "ean13", FormatEAN13.String())
	assert.Equal(t, "upca", FormatUPCA.String())
	assert.Equal(t, "unknown", FormatUnknown.String())

	for in, want := range map[string]Format{"ean13": FormatEAN13, "EAN-13": FormatEAN13, " upc-a ": FormatUPCA, "UPCA": FormatUPCA} {
		f, ok := ParseFormat(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, f, in)
	}
	_, ok := ParseFormat("qr")
	assert.False(t, ok)
}
