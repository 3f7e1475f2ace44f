// Package rarity scores produced editions by how uncommon their traits are.
package rarity

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/opmodel/editions/internal/metadata"
	"github.com/opmodel/editions/internal/output"
)

// FileName is the report file written to the output directory.
const FileName = "rarity.json"

// Trait is the occurrence count of one trait value.
type Trait struct {
	Layer     string  `json:"layer"`
	Value     string  `json:"value"`
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"`
}

// Score is the rarity score of one edition: the sum of 1/frequency over its
// attributes. Higher is rarer.
type Score struct {
	GroupID string  `json:"groupId"`
	Index   int     `json:"index"`
	Image   string  `json:"image"`
	Score   float64 `json:"score"`
}

// Report is the rarity summary of a run.
type Report struct {
	Editions int     `json:"editions"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stdDev"`
	Traits   []Trait `json:"traits"`
	Scores   []Score `json:"scores"`
}

type traitKey struct {
	layer, value string
}

// Build computes trait frequencies and edition scores. Traits are ordered by
// layer then rarest first; scores rarest first.
func Build(written []metadata.Written) Report {
	r := Report{Editions: len(written), Traits: []Trait{}, Scores: []Score{}}
	if len(written) == 0 {
		return r
	}

	counts := map[traitKey]int{}
	for _, w := range written {
		for _, a := range w.Record.Attributes {
			counts[traitKey{a.TraitType, a.Value}]++
		}
	}

	n := float64(len(written))
	freq := make(map[traitKey]float64, len(counts))
	for k, c := range counts {
		f := float64(c) / n
		freq[k] = f
		r.Traits = append(r.Traits, Trait{Layer: k.layer, Value: k.value, Count: c, Frequency: f})
	}
	sort.Slice(r.Traits, func(i, j int) bool {
		a, b := r.Traits[i], r.Traits[j]
		if a.Layer != b.Layer {
			return a.Layer < b.Layer
		}
		if a.Count != b.Count {
			return a.Count < b.Count
		}
		return a.Value < b.Value
	})

	values := make([]float64, len(written))
	for i, w := range written {
		s := 0.0
		for _, a := range w.Record.Attributes {
			s += 1 / freq[traitKey{a.TraitType, a.Value}]
		}
		values[i] = s
		r.Scores = append(r.Scores, Score{
			GroupID: w.GroupID,
			Index:   w.Index,
			Image:   filepath.Base(w.Image),
			Score:   s,
		})
	}
	sort.SliceStable(r.Scores, func(i, j int) bool { return r.Scores[i].Score > r.Scores[j].Score })

	if len(values) > 1 {
		r.Mean, r.StdDev = stat.MeanStdDev(values, nil)
	} else {
		r.Mean = values[0]
	}
	return r
}

// Encode writes the report as indented JSON.
func (r Report) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFile writes the report to dir/rarity.json atomically and returns the path.
func (r Report) WriteFile(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if err := metadata.WriteFileAtomic(path, r.Encode); err != nil {
		return "", fmt.Errorf("writing rarity report: %w", err)
	}
	return path, nil
}

// Table renders the top n rarest editions. n <= 0 renders all of them.
func (r Report) Table(n int) *output.Table {
	tbl := output.NewTable("RANK", "EDITION", "SCORE")
	for i, s := range r.Scores {
		if n > 0 && i >= n {
			break
		}
		tbl.Row(strconv.Itoa(i+1), s.Image, strconv.FormatFloat(s.Score, 'f', 2, 64))
	}
	return tbl
}

// TraitTable renders every trait with its count and frequency.
func (r Report) TraitTable() *output.Table {
	tbl := output.NewTable("LAYER", "TRAIT", "COUNT", "FREQUENCY")
	for _, t := range r.Traits {
		tbl.Row(t.Layer, t.Value, strconv.Itoa(t.Count), fmt.Sprintf("%.1f%%", t.Frequency*100))
	}
	return tbl
}
