package transcode

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThumbnailSize(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, rotation   int
		maxW, maxH             int
		wantW, wantH           int
	}{
		{"landscape fits box", 1920, 1080, 0, 320, 320, 320, 180},
		{"portrait fits box", 1080, 1920, 0, 320, 320, 180, 320},
		{"rotation 90 swaps dims", 1920, 1080, 90, 320, 320, 180, 320},
		{"rotation 270 swaps dims", 1920, 1080, 270, 320, 320, 180, 320},
		{"rotation 180 keeps dims", 1920, 1080, 180, 320, 320, 320, 180},
		{"small source not upscaled", 100, 100, 0, 320, 320, 100, 100},
		{"unknown source uses box", 0, 0, 0, 500, 500, 500, 500},
		{"odd result rounded even", 1921, 1080, 0, 321, 321, 320, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := thumbnailSize(tt.srcW, tt.srcH, tt.rotation, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestNormalizeRotation(t *testing.T) {
	assert.Equal(t, 270, normalizeRotation(-90))
	assert.Equal(t, 90, normalizeRotation(450))
	assert.Equal(t, 0, normalizeRotation(360))
}

func TestAudioNeedsConvert(t *testing.T) {
	a := NewAudio()
	assert.False(t, a.NeedsConvert("audio/mpeg"))
	assert.False(t, a.NeedsConvert("audio/mp3"))
	assert.True(t, a.NeedsConvert("audio/wav"))
	assert.True(t, a.NeedsConvert("audio/ogg"))
}

func writeTestJPEG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), "src.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	return path
}

func TestImageCreateThumbnailExactSize(t *testing.T) {
	src := writeTestJPEG(t, 800, 600)

	data, err := NewImage().CreateThumbnail(src, 500, 500)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 500, cfg.Width)
	assert.Equal(t, 500, cfg.Height)
}

func TestImageCreateThumbnailDefaultsSize(t *testing.T) {
	src := writeTestJPEG(t, 800, 600)

	data, err := NewImage().CreateThumbnail(src, 0, 0)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestImageStripMetadataKeepsFormatAndSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")

	img := imaging.New(120, 80, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	data, err := NewImage().StripMetadata(src, "image/png")
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 120, cfg.Width)
	assert.Equal(t, 80, cfg.Height)
}

func TestImageOpenMissingFile(t *testing.T) {
	_, err := NewImage().CreateThumbnail("/nonexistent/file.jpg", 100, 100)
	require.Error(t, err)

	var terr *Error
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, "image thumbnail", terr.Op)
}
