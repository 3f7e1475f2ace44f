package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/editions/internal/testutil"
)

var (
	red         = color.RGBA{R: 255, A: 255}
	blue        = color.RGBA{B: 255, A: 255}
	transparent = color.RGBA{}
)

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestComposite_LaterLayerCovers(t *testing.T) {
	dir := t.TempDir()
	redPath := testutil.WriteSolidPNG(t, dir, "red.png", 8, red)
	bluePath := testutil.WriteSolidPNG(t, dir, "blue.png", 8, blue)

	img, err := New(8, true).Composite([]string{redPath, bluePath})
	require.NoError(t, err)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			require.Equal(t, blue, rgbaAt(img, x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestComposite_TransparentRegionsShowLowerLayer(t *testing.T) {
	dir := t.TempDir()
	redPath := testutil.WriteSolidPNG(t, dir, "red.png", 4, red)

	half := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 2; x++ {
			half.Set(x, y, blue)
		}
	}
	halfPath := testutil.WritePNG(t, dir, "half.png", half)

	img, err := New(4, false).Composite([]string{redPath, halfPath})
	require.NoError(t, err)

	assert.Equal(t, blue, rgbaAt(img, 0, 0))
	assert.Equal(t, red, rgbaAt(img, 3, 3))
}

func TestComposite_NoLayersIsTransparent(t *testing.T) {
	img, err := New(3, true).Composite(nil)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 3, 3), img.Bounds())
	assert.Equal(t, transparent, rgbaAt(img, 1, 1))
}

func TestComposite_ResizeDisabledKeepsNativeSize(t *testing.T) {
	dir := t.TempDir()
	small := testutil.WriteSolidPNG(t, dir, "small.png", 2, red)
	large := testutil.WriteSolidPNG(t, dir, "large.png", 10, blue)

	t.Run("smaller layer sits at origin", func(t *testing.T) {
		img, err := New(4, false).Composite([]string{small})
		require.NoError(t, err)

		assert.Equal(t, red, rgbaAt(img, 1, 1))
		assert.Equal(t, transparent, rgbaAt(img, 3, 3))
	})

	t.Run("larger layer is clipped", func(t *testing.T) {
		img, err := New(4, false).Composite([]string{large})
		require.NoError(t, err)

		assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
		assert.Equal(t, blue, rgbaAt(img, 3, 3))
	})
}

func TestComposite_ResizeEnabledFillsCanvas(t *testing.T) {
	dir := t.TempDir()
	small := testutil.WriteSolidPNG(t, dir, "small.png", 2, red)

	img, err := New(8, true).Composite([]string{small})
	require.NoError(t, err)

	for _, p := range []image.Point{{0, 0}, {4, 4}, {7, 7}} {
		c := rgbaAt(img, p.X, p.Y)
		assert.InDelta(t, 255, int(c.R), 2, "red channel at %v", p)
		assert.InDelta(t, 255, int(c.A), 2, "alpha at %v", p)
		assert.InDelta(t, 0, int(c.B), 2, "blue channel at %v", p)
	}
}

func TestComposite_DecodeErrorNamesPath(t *testing.T) {
	dir := t.TempDir()
	bad := testutil.WriteFile(t, dir, "bad.png", "not an image")

	_, err := New(4, true).Composite([]string{bad})
	require.Error(t, err)

	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, bad, decErr.Path)
	assert.Contains(t, err.Error(), bad)
}

func TestComposite_MissingFile(t *testing.T) {
	_, err := New(4, true).Composite([]string{filepath.Join(t.TempDir(), "gone.png")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncodePNG_RoundTrip(t *testing.T) {
	src := testutil.SolidImage(3, 3, red)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, src))

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	decoded := testutil.ReadPNG(t, path)
	assert.Equal(t, image.Rect(0, 0, 3, 3), decoded.Bounds())
}
