package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscoverImageFiles_EmptyArgs(t *testing.T) {
	files, err := discoverImageFiles([]string{}, false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverImageFiles_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	png := touch(t, filepath.Join(dir, "a.png"))
	txt := touch(t, filepath.Join(dir, "notes.txt"))

	// explicit files skip the extension filter
	files, err := discoverImageFiles([]string{png, txt}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{png, txt}, files)

	files, err = discoverImageFiles([]string{png, txt}, false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{png}, files)
}

func TestDiscoverImageFiles_Directory(t *testing.T) {
	dir := t.TempDir()
	jpg := touch(t, filepath.Join(dir, "photo.jpg"))
	png := touch(t, filepath.Join(dir, "image.png"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "manifest.json"))

	files, err := discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{png, jpg}, files)
}

func TestDiscoverImageFiles_Recursion(t *testing.T) {
	dir := t.TempDir()
	top := touch(t, filepath.Join(dir, "top.png"))
	nested := touch(t, filepath.Join(dir, "sub", "deep", "nested.png"))

	files, err := discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{top}, files)

	files, err = discoverImageFiles([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{top, nested}, files)
}

func TestDiscoverImageFiles_IncludeExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	keep := touch(t, filepath.Join(dir, "shelf_01.png"))
	touch(t, filepath.Join(dir, "shelf_02_overlay.png"))
	touch(t, filepath.Join(dir, "label.jpg"))

	files, err := discoverImageFiles([]string{dir}, false, []string{"shelf_*"}, []string{"*_overlay.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestDiscoverImageFiles_NonExistent(t *testing.T) {
	_, err := discoverImageFiles([]string{filepath.Join(t.TempDir(), "missing")}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{"no patterns", "/x/a.png", nil, nil, true},
		{"include match", "/x/a.png", []string{"*.png"}, nil, true},
		{"include miss", "/x/a.jpg", []string{"*.png"}, nil, false},
		{"exclude wins", "/x/a.png", []string{"*.png"}, []string{"a.*"}, false},
		{"matches base name only", "/png/a.jpg", []string{"png"}, nil, false},
		{"any of several", "/x/b.tif", []string{"*.png", "*.tif"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIncludeFile(tt.path, tt.include, tt.exclude))
		})
	}
}
