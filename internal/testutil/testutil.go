// Package testutil provides test helpers for image fixtures and layer trees.
package testutil

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Palette holds distinct opaque colors handed out to generated fixtures.
var Palette = []color.RGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
	{R: 255, B: 255, A: 255},
	{G: 255, B: 255, A: 255},
	{R: 128, G: 64, B: 32, A: 255},
	{R: 16, G: 16, B: 16, A: 255},
}

// WriteFile creates a file with the given content in the specified directory.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent dirs for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// SolidImage returns a w×h image filled with c.
func SolidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// WritePNG encodes img as PNG at dir/name and returns the path.
func WritePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent dirs for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	return path
}

// WriteSolidPNG writes a size×size PNG filled with c.
func WriteSolidPNG(t *testing.T, dir, name string, size int, c color.Color) string {
	t.Helper()
	return WritePNG(t, dir, name, SolidImage(size, size, c))
}

// WriteLayers creates one subdirectory per layer under root with the given
// file names, each a size×size solid PNG. Colors cycle through Palette.
func WriteLayers(t *testing.T, root string, size int, layers map[string][]string) string {
	t.Helper()
	i := 0
	for layer, files := range layers {
		for _, name := range files {
			WriteSolidPNG(t, filepath.Join(root, layer), name, size, Palette[i%len(Palette)])
			i++
		}
	}
	return root
}

// ReadPNG decodes the PNG at path.
func ReadPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return img
}
