// Package engine drives edition generation: it draws selections, rejects
// duplicates against a registry and dispatches accepted editions for
// rendering.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/opmodel/editions/internal/catalog"
	"github.com/opmodel/editions/internal/compositor"
	"github.com/opmodel/editions/internal/config"
	"github.com/opmodel/editions/internal/metadata"
	"github.com/opmodel/editions/internal/output"
	"github.com/opmodel/editions/internal/registry"
	"github.com/opmodel/editions/internal/selector"
)

// Edition is an accepted edition on its way to disk.
type Edition = metadata.Edition

// Status is the terminal state of a group.
type Status string

const (
	StatusDone      Status = "done"
	StatusExhausted Status = "exhausted"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Recorder persists an audit entry for every written edition.
type Recorder interface {
	RecordEdition(ctx context.Context, ed Edition, w metadata.Written) error
}

// Options configures an Engine.
type Options struct {
	Catalog    *catalog.Catalog
	Compositor *compositor.Compositor
	Emitter    *metadata.Emitter
	Sampler    selector.Sampler

	// MaxRetries is the collision budget per group. The group stops at the
	// collision that brings its retry count to MaxRetries; values below 1
	// stop it at the first collision.
	MaxRetries int

	// Workers bounds concurrent renders. Values below 1 mean 1.
	Workers int

	// Recorder is optional.
	Recorder Recorder

	// OnWritten, if set, is called from render goroutines after each edition
	// is written. It must be safe for concurrent use.
	OnWritten func(metadata.Written)
}

// GroupReport summarizes one edition group.
type GroupReport struct {
	GroupID   string
	Layers    []string
	Requested int
	Produced  int
	Short     int
	Retries   int
	Status    Status

	// Written holds the group's outputs ordered by index.
	Written []metadata.Written
}

// RunReport summarizes a whole run.
type RunReport struct {
	Groups []GroupReport
}

// Requested returns the total number of editions asked for.
func (r RunReport) Requested() int {
	n := 0
	for _, g := range r.Groups {
		n += g.Requested
	}
	return n
}

// Produced returns the total number of editions written.
func (r RunReport) Produced() int {
	n := 0
	for _, g := range r.Groups {
		n += g.Produced
	}
	return n
}

// Short returns the total shortfall across groups.
func (r RunReport) Short() int {
	n := 0
	for _, g := range r.Groups {
		n += g.Short
	}
	return n
}

// Written returns every written edition in group then index order.
func (r RunReport) Written() []metadata.Written {
	var out []metadata.Written
	for _, g := range r.Groups {
		out = append(out, g.Written...)
	}
	return out
}

// Engine generates editions. An Engine is not safe for concurrent use; its
// sampler is consumed from the calling goroutine only.
type Engine struct {
	opts Options
}

// New returns an Engine.
func New(opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{opts: opts}
}

// Run generates every group in order. Each group's Position is set to its
// index in groups, so groups sharing a layer order keep distinct ids. With
// config.ScopeRun one registry is shared by all groups, otherwise each group
// starts fresh. Run stops at the
// first group that fails or is cancelled; reports of finished groups are
// returned alongside the error.
func (e *Engine) Run(ctx context.Context, groups []config.EditionGroup, scope string) (RunReport, error) {
	var report RunReport

	shared := registry.New()
	for i, group := range groups {
		group.Position = i
		reg := shared
		if scope != config.ScopeRun {
			reg = registry.New()
		}

		gr, err := e.RunGroup(ctx, group, reg)
		report.Groups = append(report.Groups, gr)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// RunGroup generates group.Size editions, or as many as the retry budget
// allows. Selection, fingerprinting and registry insertion happen on the
// calling goroutine; rendering runs on up to Workers goroutines.
//
// Exhaustion is not an error: the report carries the shortfall. A render
// error stops the group and is returned. Cancellation stops new attempts,
// lets in-flight renders finish and returns the context error.
func (e *Engine) RunGroup(ctx context.Context, group config.EditionGroup, reg *registry.Registry) (GroupReport, error) {
	gid := group.GroupID()
	logger := output.GroupLogger(gid)
	report := GroupReport{
		GroupID:   gid,
		Layers:    group.LayerNames(),
		Requested: group.Size,
	}

	if err := e.opts.Catalog.Require(group.Order); err != nil {
		report.Status = StatusFailed
		report.Short = group.Size
		logger.Error("layer cannot be read", "err", err)
		return report, err
	}

	if capacity := e.opts.Catalog.Capacity(group.Order); capacity < uint64(group.Size) {
		logger.Warn("group asks for more editions than distinct selections exist",
			"size", group.Size, "capacity", capacity)
	}
	logger.Debug("generating group", "size", group.Size, "layers", report.Layers)

	var (
		mu      sync.Mutex
		written []metadata.Written
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	renderCtx := context.WithoutCancel(gctx)

	onOutcome := func(o selector.Outcome) { logOutcome(logger, o) }

	accepted := 0
	report.Status = StatusDone
	for accepted < group.Size {
		if gctx.Err() != nil {
			break
		}

		sel := selector.SelectGroup(e.opts.Catalog, group, e.opts.Sampler, onOutcome)
		fp := sel.Fingerprint()

		if !reg.Add(fp) {
			report.Retries++
			if ShouldLogCollision(report.Retries) {
				logger.Warn("DNA already exists", "dna", fp.Short(), "retries", report.Retries)
			}
			if report.Retries >= e.opts.MaxRetries {
				report.Status = StatusExhausted
				logger.Warn("retry limit reached",
					"retries", report.Retries, "produced", accepted, "requested", group.Size)
				break
			}
			continue
		}

		accepted++
		ed := Edition{
			GroupID:     gid,
			Index:       accepted,
			Fingerprint: fp,
			Selection:   sel,
		}
		logger.Debug("accepted", "index", ed.Index, "dna", fp.Short())

		g.Go(func() error {
			w, err := e.render(renderCtx, ed)
			if err != nil {
				return err
			}
			mu.Lock()
			written = append(written, w)
			mu.Unlock()
			if e.opts.OnWritten != nil {
				e.opts.OnWritten(w)
			}
			return nil
		})
	}

	renderErr := g.Wait()

	sort.Slice(written, func(i, j int) bool { return written[i].Index < written[j].Index })
	report.Written = written
	report.Produced = len(written)
	report.Short = group.Size - report.Produced

	switch {
	case renderErr != nil:
		report.Status = StatusFailed
		logger.Error("render failed", "err", renderErr)
		return report, renderErr
	case ctx.Err() != nil:
		report.Status = StatusCancelled
		logger.Warn("cancelled", "produced", report.Produced, "requested", group.Size)
		return report, ctx.Err()
	}

	logger.Info("group finished", "status", report.Status,
		"produced", report.Produced, "requested", group.Size, "retries", report.Retries)
	return report, nil
}

func (e *Engine) render(ctx context.Context, ed Edition) (metadata.Written, error) {
	img, err := e.opts.Compositor.Composite(ed.Selection.Paths())
	if err != nil {
		return metadata.Written{}, fmt.Errorf("rendering edition %d: %w", ed.Index, err)
	}
	ed.Image = img

	w, err := e.opts.Emitter.Emit(ctx, ed)
	if err != nil {
		return metadata.Written{}, fmt.Errorf("writing edition %d: %w", ed.Index, err)
	}

	if e.opts.Recorder != nil {
		if err := e.opts.Recorder.RecordEdition(ctx, ed, w); err != nil {
			return metadata.Written{}, fmt.Errorf("recording edition %d: %w", ed.Index, err)
		}
	}
	return w, nil
}

func logOutcome(logger *log.Logger, o selector.Outcome) {
	switch {
	case o.MissingLayer:
		logger.Warn("layer not found in catalog, contributing nothing", "layer", o.Layer)
	case o.Clamped:
		logger.Warn("pick count exceeds files available, clamping",
			"layer", o.Layer, "requested", o.Requested, "available", o.Available)
	}
}
