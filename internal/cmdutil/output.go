package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/opmodel/editions/internal/catalog"
	"github.com/opmodel/editions/internal/config"
	"github.com/opmodel/editions/internal/engine"
	oerrors "github.com/opmodel/editions/internal/errors"
	"github.com/opmodel/editions/internal/metadata"
	"github.com/opmodel/editions/internal/output"
)

// Fail reports err in its most readable form and returns an ExitError marked
// as printed, carrying the exit code for err.
func Fail(msg string, err error) error {
	var (
		verrs  config.ValidationErrors
		detail *oerrors.DetailError
	)
	switch {
	case errors.As(err, &verrs):
		output.Error(msg + ": config validation failed")
		for _, e := range verrs {
			output.Details(fmt.Sprintf("  %s: %s", e.Field, e.Message))
		}
	case errors.As(err, &detail):
		output.Error(msg)
		output.Details(strings.TrimRight(detail.Error(), "\n"))
	case errors.Is(err, context.Canceled):
		output.Warn("interrupted")
	default:
		output.Error(msg, "err", err)
	}
	return &oerrors.ExitError{Code: oerrors.ExitCodeFromError(err), Err: err, Printed: true}
}

// DisplayStatus maps a group status to the word shown to users.
func DisplayStatus(s engine.Status) string {
	switch s {
	case engine.StatusDone:
		return output.StatusDone
	case engine.StatusExhausted:
		return output.StatusShort
	case engine.StatusCancelled:
		return output.StatusCancelled
	case engine.StatusFailed:
		return output.StatusFailed
	default:
		return string(s)
	}
}

// GroupTable renders one row per edition group.
func GroupTable(r engine.RunReport) *output.Table {
	tbl := output.NewTable("GROUP", "LAYERS", "REQUESTED", "PRODUCED", "RETRIES", "STATUS")
	for _, g := range r.Groups {
		status := DisplayStatus(g.Status)
		tbl.Row(
			shortID(g.GroupID),
			strings.Join(g.Layers, ", "),
			strconv.Itoa(g.Requested),
			strconv.Itoa(g.Produced),
			strconv.Itoa(g.Retries),
			output.StatusStyle(status).Render(status),
		)
	}
	return tbl
}

// LayersTable renders the catalog: one row per layer with its traits and
// weights.
func LayersTable(cat *catalog.Catalog) *output.Table {
	tbl := output.NewTable("LAYER", "FILES", "TRAITS")
	for _, l := range cat.Layers() {
		traits := make([]string, len(l.Files))
		for i, f := range l.Files {
			traits[i] = f.Trait
			if f.Weight != catalog.DefaultWeight {
				traits[i] += fmt.Sprintf(" (%d)", f.Weight)
			}
		}
		tbl.Row(output.StyleNoun.Render(l.Name), strconv.Itoa(len(l.Files)), strings.Join(traits, ", "))
	}
	return tbl
}

// LayersTree renders the catalog as a file tree noting each file's trait and
// weight.
func LayersTree(cat *catalog.Catalog) string {
	var entries []output.TreeEntry
	for _, l := range cat.Layers() {
		for _, f := range l.Files {
			note := f.Trait
			if f.Weight != catalog.DefaultWeight {
				note += fmt.Sprintf(", weight %d", f.Weight)
			}
			entries = append(entries, output.TreeEntry{Path: l.Name + "/" + f.Name, Note: note})
		}
	}
	return output.RenderTree(filepath.Base(cat.Root()), entries)
}

// EditionLine formats one written edition for the progress log.
func EditionLine(w metadata.Written) string {
	return output.FormatEditionLine(filepath.Base(w.Image), output.StatusWritten)
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
