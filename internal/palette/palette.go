// Package palette derives a dominant color attribute from rendered editions.
package palette

import (
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/opmodel/editions/internal/config"
	oerrors "github.com/opmodel/editions/internal/errors"
	"github.com/opmodel/editions/internal/metadata"
)

// TraitType is the default attribute name.
const TraitType = "Dominant Color"

// None is the attribute value for an image with no opaque pixels.
const None = "none"

// Candidate counts for each method.
const (
	dominantCandidates = 8
	kmeansClusters     = 4
	maxSamples         = 12000
)

type extractFunc func(img image.Image) (colorful.Color, bool)

type annotator struct {
	name    string
	extract extractFunc
}

// Annotator returns a metadata.Annotator reporting the dominant opaque color
// as "#rrggbb". An empty name uses TraitType.
func Annotator(method, name string) (metadata.Annotator, error) {
	if name == "" {
		name = TraitType
	}

	var fn extractFunc
	switch method {
	case config.ColorMethodDominant, "":
		fn = Dominant
	case config.ColorMethodKMeans:
		fn = KMeans
	default:
		return nil, oerrors.NewValidationError(
			fmt.Sprintf("unknown dominant color method %q", method),
			"", "metadata.dominantColor.method",
			fmt.Sprintf("Use %q or %q", config.ColorMethodDominant, config.ColorMethodKMeans))
	}
	return &annotator{name: name, extract: fn}, nil
}

func (a *annotator) Annotate(img image.Image) (metadata.Attribute, error) {
	attr := metadata.Attribute{TraitType: a.name, Value: None}
	if c, ok := a.extract(img); ok {
		attr.Value = c.Clamped().Hex()
	}
	return attr, nil
}

// Dominant returns the heaviest color found by dominantcolor.
func Dominant(img image.Image) (colorful.Color, bool) {
	candidates := dominantcolor.FindWeight(img, dominantCandidates)
	if len(candidates) == 0 {
		return colorful.Color{}, false
	}
	best := slices.MaxFunc(candidates, func(a, b dominantcolor.Color) int {
		switch {
		case a.Weight < b.Weight:
			return -1
		case a.Weight > b.Weight:
			return 1
		}
		return 0
	})
	c, ok := colorful.MakeColor(best.RGBA)
	return c, ok
}

// KMeans clusters the opaque pixels and returns the center of the most
// populated cluster. Large images are subsampled.
func KMeans(img image.Image) (colorful.Color, bool) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return colorful.Color{}, false
	}

	step := 1
	if width*height > maxSamples {
		step = int(math.Sqrt(float64(width*height)/float64(maxSamples))) + 1
	}

	dataset := make(clusters.Observations, 0, min(width*height, maxSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(r) / 65535.0,
				float64(g) / 65535.0,
				float64(bl) / 65535.0,
			})
		}
	}
	if len(dataset) == 0 {
		return colorful.Color{}, false
	}

	cc, err := kmeans.New().Partition(dataset, min(kmeansClusters, len(dataset)))
	if err != nil || len(cc) == 0 {
		return colorful.Color{}, false
	}

	largest := slices.MaxFunc(cc, func(a, b clusters.Cluster) int {
		return len(a.Observations) - len(b.Observations)
	})
	if len(largest.Center) < 3 {
		return colorful.Color{}, false
	}
	return colorful.Color{R: largest.Center[0], G: largest.Center[1], B: largest.Center[2]}, true
}
