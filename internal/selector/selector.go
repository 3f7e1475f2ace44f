// Package selector draws ranged, distinct trait picks from a catalog.
package selector

import (
	"sort"

	"github.com/opmodel/editions/internal/catalog"
	"github.com/opmodel/editions/internal/config"
	"github.com/opmodel/editions/internal/fingerprint"
)

// Pick is one chosen file and the layer it came from.
type Pick struct {
	Layer string
	File  catalog.AssetFile
}

// Selection is the ordered list of picks that makes up one edition.
type Selection []Pick

// Tokens returns the fingerprint identity of every pick in order.
func (s Selection) Tokens() []fingerprint.Token {
	tokens := make([]fingerprint.Token, len(s))
	for i, p := range s {
		tokens[i] = fingerprint.Token{ID: p.File.ID, Name: p.File.Name}
	}
	return tokens
}

// Fingerprint returns the content fingerprint of the selection.
func (s Selection) Fingerprint() fingerprint.Fingerprint {
	return fingerprint.Of(s.Tokens())
}

// Paths returns the file paths in compositing order.
func (s Selection) Paths() []string {
	paths := make([]string, len(s))
	for i, p := range s {
		paths[i] = p.File.Path
	}
	return paths
}

// Outcome reports anything unusual about a single plan entry draw.
type Outcome struct {
	Layer string

	// MissingLayer is set when the catalog has no such layer.
	MissingLayer bool

	// Clamped is set when the drawn pick count exceeded the files available.
	Clamped bool

	// Requested is the drawn pick count, Available the layer's file count.
	Requested int
	Available int
}

// Select draws between entry.PickMin and entry.PickMax distinct files from
// the named layer. Picks are returned sorted by file ID so the same set of
// files always yields the same fingerprint.
func Select(cat *catalog.Catalog, entry config.PlanEntry, s Sampler) (Selection, Outcome) {
	out := Outcome{Layer: entry.Name}

	layer, ok := cat.Layer(entry.Name)
	if !ok {
		out.MissingLayer = true
		return nil, out
	}

	k := entry.PickMin
	if entry.PickMax > entry.PickMin {
		k += s.Intn(entry.PickMax - entry.PickMin + 1)
	}
	out.Requested = k
	out.Available = len(layer.Files)

	if k > len(layer.Files) {
		k = len(layer.Files)
		out.Clamped = true
	}
	if k <= 0 {
		return nil, out
	}

	idx := s.Sample(len(layer.Files), k)
	sort.Ints(idx)

	sel := make(Selection, len(idx))
	for i, j := range idx {
		sel[i] = Pick{Layer: layer.Name, File: layer.Files[j]}
	}
	return sel, out
}

// SelectGroup concatenates the picks of every plan entry in plan order.
// onOutcome, if non-nil, is called for every entry that was missing or clamped.
func SelectGroup(cat *catalog.Catalog, group config.EditionGroup, s Sampler, onOutcome func(Outcome)) Selection {
	var sel Selection
	for _, entry := range group.Order {
		picks, out := Select(cat, entry, s)
		if onOutcome != nil && (out.MissingLayer || out.Clamped) {
			onOutcome(out)
		}
		sel = append(sel, picks...)
	}
	return sel
}
