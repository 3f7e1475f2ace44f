// Package compositor stacks layer images onto a square transparent canvas.
package compositor

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	"image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder registration
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// Compositor draws layers in order onto a size×size canvas.
type Compositor struct {
	size   int
	resize bool
	scaler draw.Scaler
}

// New returns a Compositor for a size×size canvas. With resize set, layers
// whose dimensions differ from the canvas are scaled to fill it.
func New(size int, resize bool) *Compositor {
	return &Compositor{size: size, resize: resize, scaler: draw.CatmullRom}
}

// Size returns the canvas edge length.
func (c *Compositor) Size() int {
	return c.size
}

// DecodeError names the layer file that could not be decoded.
type DecodeError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Composite decodes every path in order and draws it source-over at the
// canvas origin. Later layers cover earlier ones.
func (c *Compositor) Composite(paths []string) (*image.RGBA, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, c.size, c.size))

	for _, path := range paths {
		img, err := decodeFile(path)
		if err != nil {
			return nil, &DecodeError{Path: path, Err: err}
		}
		c.draw(canvas, img)
	}

	return canvas, nil
}

func (c *Compositor) draw(canvas *image.RGBA, img image.Image) {
	b := img.Bounds()
	if c.resize && (b.Dx() != c.size || b.Dy() != c.size) {
		c.scaler.Scale(canvas, canvas.Bounds(), img, b, draw.Over, nil)
		return
	}
	// Native size at the origin; anything past the canvas is clipped.
	draw.Draw(canvas, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Over)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	return img, err
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}
