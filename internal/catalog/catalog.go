// Package catalog indexes a layers directory into named layers of asset files.
//
// Each immediate subdirectory of the root is a layer. Each regular file inside
// a layer is an asset, numbered from 0 in directory order. The catalog is built
// once and never mutated afterwards.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/opmodel/editions/internal/config"
	oerrors "github.com/opmodel/editions/internal/errors"
	"github.com/opmodel/editions/internal/output"
)

// weightSeparator splits a trait name from its rarity weight: "Blue#20.png".
const weightSeparator = "#"

// DefaultWeight is the weight of files without a weight suffix.
const DefaultWeight = 1

// AssetFile is one image inside a layer.
type AssetFile struct {
	// ID is the position within its layer, starting at 0.
	ID int

	// Name is the file name, used as the display name.
	Name string

	// Trait is the name without extension and without the weight suffix.
	Trait string

	// Weight is the rarity weight parsed from the file name (default 1).
	Weight int

	// Path is the full path to the file.
	Path string
}

// Layer is a named category of asset files.
type Layer struct {
	Name  string
	Files []AssetFile
}

// Skipped records a directory entry left out of the catalog.
type Skipped struct {
	Path   string
	Reason string
}

// Catalog maps layer names to their asset files.
type Catalog struct {
	root    string
	layers  map[string]Layer
	skipped []Skipped

	// unreadable holds layers whose directory could not be listed.
	unreadable map[string]error
}

// EmptyLayerError is returned when a layer directory holds no usable files.
type EmptyLayerError struct {
	Layer string
	Path  string
}

// Error implements the error interface.
func (e *EmptyLayerError) Error() string {
	return fmt.Sprintf("layer %q has no files (%s)", e.Layer, e.Path)
}

// Unwrap makes EmptyLayerError match oerrors.ErrValidation.
func (e *EmptyLayerError) Unwrap() error {
	return oerrors.ErrValidation
}

// Build scans root and returns the catalog.
func Build(root string) (*Catalog, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, rootError(root, err)
	}

	cat := &Catalog{
		root:       root,
		layers:     make(map[string]Layer),
		unreadable: make(map[string]error),
	}

	for _, entry := range entries {
		if isHidden(entry.Name()) {
			continue
		}
		path := filepath.Join(root, entry.Name())

		info, err := os.Stat(path)
		if err != nil {
			cat.skip(path, err.Error())
			continue
		}
		if !info.IsDir() {
			continue
		}

		layer, ok, err := cat.readLayer(entry.Name(), path)
		if err != nil {
			return nil, err
		}
		if ok {
			cat.layers[layer.Name] = layer
		}
	}

	output.Debug("catalog built", "root", root, "layers", len(cat.layers), "skipped", len(cat.skipped))
	return cat, nil
}

// readLayer reports ok=false when the layer directory itself cannot be read.
// Such a layer is remembered so Require can refuse plans that use it.
func (c *Catalog) readLayer(name, dir string) (Layer, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		c.skip(dir, err.Error())
		c.unreadable[name] = layerError(name, dir, err)
		return Layer{}, false, nil
	}

	layer := Layer{Name: name}
	for _, entry := range entries {
		if isHidden(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		info, err := os.Stat(path)
		if err != nil {
			c.skip(path, err.Error())
			continue
		}
		if !info.Mode().IsRegular() {
			c.skip(path, "not a regular file")
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			c.skip(path, err.Error())
			continue
		}
		f.Close()

		trait, weight := ParseName(entry.Name())
		layer.Files = append(layer.Files, AssetFile{
			ID:     len(layer.Files),
			Name:   entry.Name(),
			Trait:  trait,
			Weight: weight,
			Path:   path,
		})
	}

	if len(layer.Files) == 0 {
		return Layer{}, false, &EmptyLayerError{Layer: name, Path: dir}
	}
	return layer, true, nil
}

func (c *Catalog) skip(path, reason string) {
	output.Warn("skipping unreadable entry", "path", path, "reason", reason)
	c.skipped = append(c.skipped, Skipped{Path: path, Reason: reason})
}

// New returns a catalog holding the given layers. File IDs are reassigned
// from their position.
func New(root string, layers ...Layer) *Catalog {
	cat := &Catalog{root: root, layers: make(map[string]Layer, len(layers))}
	for _, l := range layers {
		files := make([]AssetFile, len(l.Files))
		for i, f := range l.Files {
			f.ID = i
			files[i] = f
		}
		cat.layers[l.Name] = Layer{Name: l.Name, Files: files}
	}
	return cat
}

// Root returns the directory the catalog was built from.
func (c *Catalog) Root() string {
	return c.root
}

// Layer returns the named layer.
func (c *Catalog) Layer(name string) (Layer, bool) {
	l, ok := c.layers[name]
	return l, ok
}

// Layers returns all layers sorted by name.
func (c *Catalog) Layers() []Layer {
	out := make([]Layer, 0, len(c.layers))
	for _, l := range c.layers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Skipped returns the entries left out while building.
func (c *Catalog) Skipped() []Skipped {
	return c.skipped
}

// Require fails when a plan entry names a layer whose directory exists but
// could not be listed. Unreadable layers no plan uses only produce the
// warning logged while building.
func (c *Catalog) Require(entries []config.PlanEntry) error {
	for _, e := range entries {
		if err, ok := c.unreadable[e.Name]; ok {
			return err
		}
	}
	return nil
}

// Capacity returns the number of distinct selections the plan entries can
// produce, saturating at math.MaxUint64. Missing layers contribute a factor of 1.
func (c *Catalog) Capacity(entries []config.PlanEntry) uint64 {
	total := big.NewInt(1)
	for _, e := range entries {
		layer, ok := c.layers[e.Name]
		if !ok {
			continue
		}
		n := int64(len(layer.Files))
		lo := min(int64(e.PickMin), n)
		hi := min(int64(e.PickMax), n)

		ways := new(big.Int)
		for k := lo; k <= hi; k++ {
			ways.Add(ways, new(big.Int).Binomial(n, k))
		}
		total.Mul(total, ways)
	}
	if !total.IsUint64() {
		return math.MaxUint64
	}
	return total.Uint64()
}

// ParseName splits a file name of the form "trait#weight.ext" into its trait
// and weight. Names without a numeric weight get weight 1.
func ParseName(name string) (trait string, weight int) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndex(stem, weightSeparator)
	if i < 0 {
		return stem, DefaultWeight
	}
	w, err := strconv.Atoi(stem[i+1:])
	if err != nil || w < 0 {
		return stem, DefaultWeight
	}
	return stem[:i], w
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func layerError(name, dir string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return oerrors.NewPermissionError(fmt.Sprintf("cannot read layer %q", name), dir,
			"Check the layer directory permissions")
	}
	return fmt.Errorf("reading layer %q (%s): %w", name, dir, err)
}

func rootError(root string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return oerrors.NewNotFoundError("layers directory not found", root,
			"Set layersDir in the config file or pass --layers-dir")
	case errors.Is(err, fs.ErrPermission):
		return oerrors.NewPermissionError("cannot read layers directory", root,
			"Check the directory permissions")
	default:
		return fmt.Errorf("reading layers directory %s: %w", root, err)
	}
}
