// Package metadata writes each accepted edition to disk as a PNG image and a
// JSON sidecar describing its traits.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/opmodel/editions/internal/compositor"
	oerrors "github.com/opmodel/editions/internal/errors"
	"github.com/opmodel/editions/internal/fingerprint"
	"github.com/opmodel/editions/internal/selector"
)

// Attribute is one trait entry of a metadata record.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Record is the JSON document written next to each image.
type Record struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`

	// Extended fields.
	DNA     string `json:"dna,omitempty"`
	Edition int    `json:"edition,omitempty"`
	Date    int64  `json:"date,omitempty"`
}

// Edition is an accepted, rendered edition ready to be written.
type Edition struct {
	// GroupID is the fingerprint of the group's layer order.
	GroupID string

	// Index is the 1-based acceptance position within the group.
	Index int

	Fingerprint fingerprint.Fingerprint
	Selection   selector.Selection

	// Image is the composited canvas.
	Image image.Image
}

// Annotator derives an extra attribute from the rendered image.
type Annotator interface {
	Annotate(img image.Image) (Attribute, error)
}

// Options configures an Emitter.
type Options struct {
	OutputDir   string
	Name        string
	Description string
	ImageURI    string

	// Extended adds dna, edition and date to every record.
	Extended bool

	Annotators []Annotator

	// Now is used for the date field; defaults to time.Now.
	Now func() time.Time
}

// Written reports the files produced for one edition.
type Written struct {
	GroupID  string
	Index    int
	Image    string
	Metadata string
	Record   Record
}

// Emitter writes editions to the output directory.
type Emitter struct {
	opts Options
}

// NewEmitter returns an Emitter.
func NewEmitter(opts Options) *Emitter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Emitter{opts: opts}
}

// Stem returns the shared file name stem of an edition's outputs:
// "{group[:6]}_{index}#{fingerprint[:6]}".
func Stem(groupID string, index int, fp fingerprint.Fingerprint) string {
	return fmt.Sprintf("%s_%d#%s", fingerprint.Fingerprint(groupID).Short(), index, fp.Short())
}

// Emit writes the edition image and its metadata. The output directory is
// created if needed; both files are written atomically. On error neither
// file is left behind.
func (e *Emitter) Emit(ctx context.Context, ed Edition) (Written, error) {
	if err := ctx.Err(); err != nil {
		return Written{}, err
	}

	stem := Stem(ed.GroupID, ed.Index, ed.Fingerprint)
	imageName := stem + ".png"

	rec, err := e.record(ed, imageName)
	if err != nil {
		return Written{}, err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Written{}, fmt.Errorf("encoding metadata for %s: %w", stem, err)
	}
	data = append(data, '\n')

	if err := EnsureDir(e.opts.OutputDir); err != nil {
		return Written{}, err
	}
	w := Written{
		GroupID:  ed.GroupID,
		Index:    ed.Index,
		Image:    filepath.Join(e.opts.OutputDir, imageName),
		Metadata: filepath.Join(e.opts.OutputDir, stem+".json"),
		Record:   rec,
	}

	if err := WriteFileAtomic(w.Image, func(out io.Writer) error {
		return compositor.EncodePNG(out, ed.Image)
	}); err != nil {
		return Written{}, err
	}
	if err := WriteFileAtomic(w.Metadata, func(out io.Writer) error {
		_, err := out.Write(data)
		return err
	}); err != nil {
		_ = os.Remove(w.Image)
		return Written{}, err
	}

	return w, nil
}

func (e *Emitter) record(ed Edition, imageName string) (Record, error) {
	rec := Record{
		Name:        fmt.Sprintf("%s #%d", e.opts.Name, ed.Index),
		Description: e.opts.Description,
		Image:       e.opts.ImageURI + url.PathEscape(imageName),
		Attributes:  make([]Attribute, 0, len(ed.Selection)+len(e.opts.Annotators)),
	}

	for _, p := range ed.Selection {
		rec.Attributes = append(rec.Attributes, Attribute{TraitType: p.Layer, Value: p.File.Trait})
	}
	for _, a := range e.opts.Annotators {
		attr, err := a.Annotate(ed.Image)
		if err != nil {
			return Record{}, fmt.Errorf("annotating edition %d: %w", ed.Index, err)
		}
		rec.Attributes = append(rec.Attributes, attr)
	}

	if e.opts.Extended {
		rec.DNA = ed.Fingerprint.String()
		rec.Edition = ed.Index
		rec.Date = e.opts.Now().UnixMilli()
	}
	return rec, nil
}

// EnsureDir creates dir and its parents if they do not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return oerrors.NewPermissionError("cannot create output directory", dir, "")
		}
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return nil
}

// Clean removes dir and everything in it. A missing dir is not an error.
// The filesystem root and the working directory are refused.
func Clean(dir string) error {
	switch filepath.Clean(dir) {
	case ".", string(filepath.Separator):
		return oerrors.NewValidationError("refusing to clean this directory", dir, "outputDir",
			"Point outputDir at a dedicated build directory")
	}
	if err := os.RemoveAll(dir); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return oerrors.NewPermissionError("cannot clean output directory", dir, "")
		}
		return fmt.Errorf("cleaning output directory %s: %w", dir, err)
	}
	return nil
}
