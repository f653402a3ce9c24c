package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageGeometryHasCode(t *testing.T) {
	g := PageGeometry{Codes: []string{"4 006381 333931", "036000291452"}}

	assert.True(t, g.HasCode("4006381333931"))
	assert.True(t, g.HasCode("0036000291452"))
	assert.True(t, g.HasCode("036000291452"))
	assert.False(t, g.HasCode("5901234123457"))
	assert.False(t, g.HasCode("not a code"))
}

func TestDigitRun(t *testing.T) {
	text := "Item 4 006381 333931 price 12.99\nUPC 036000-291452"
	got := digitRun.FindAllString(text, -1)
	assert.Equal(t, []string{"4 006381 333931", "036000-291452"}, got)
}

func TestReadGeometryMissingFile(t *testing.T) {
	_, _, err := ReadGeometry("/non/existent/file.pdf", nil)
	assert.Error(t, err)
}
