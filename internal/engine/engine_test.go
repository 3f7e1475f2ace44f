package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/editions/internal/catalog"
	"github.com/opmodel/editions/internal/compositor"
	"github.com/opmodel/editions/internal/config"
	oerrors "github.com/opmodel/editions/internal/errors"
	"github.com/opmodel/editions/internal/ledger"
	"github.com/opmodel/editions/internal/metadata"
	"github.com/opmodel/editions/internal/output"
	"github.com/opmodel/editions/internal/registry"
	"github.com/opmodel/editions/internal/selector"
	"github.com/opmodel/editions/internal/testutil"
)

type recorded struct {
	mu    sync.Mutex
	calls []int
}

func (r *recorded) RecordEdition(_ context.Context, ed Edition, _ metadata.Written) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ed.Index)
	return nil
}

type fixture struct {
	cat    *catalog.Catalog
	outDir string
}

func newFixture(t *testing.T, layers map[string][]string) fixture {
	t.Helper()
	root := testutil.WriteLayers(t, filepath.Join(t.TempDir(), "layers"), 4, layers)
	cat, err := catalog.Build(root)
	require.NoError(t, err)
	return fixture{cat: cat, outDir: filepath.Join(t.TempDir(), "build")}
}

func (f fixture) engine(maxRetries, workers int, mutate ...func(*Options)) *Engine {
	opts := Options{
		Catalog:    f.cat,
		Compositor: compositor.New(4, true),
		Emitter:    metadata.NewEmitter(metadata.Options{OutputDir: f.outDir, Name: "Test"}),
		Sampler:    selector.NewRandSampler(42),
		MaxRetries: maxRetries,
		Workers:    workers,
	}
	for _, m := range mutate {
		m(&opts)
	}
	return New(opts)
}

func twoByThree(t *testing.T) fixture {
	return newFixture(t, map[string][]string{
		"background": {"a.png", "b.png"},
		"eyes":       {"x.png", "y.png", "z.png"},
	})
}

func group(size int, layers ...string) config.EditionGroup {
	g := config.EditionGroup{Size: size}
	for _, l := range layers {
		g.Order = append(g.Order, config.PlanEntry{Name: l, PickMin: 1, PickMax: 1})
	}
	return g
}

func outputFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunGroup_ProducesRequestedEditions(t *testing.T) {
	f := twoByThree(t)
	rec := &recorded{}
	e := f.engine(500, 1, func(o *Options) { o.Recorder = rec })

	report, err := e.RunGroup(context.Background(), group(5, "background", "eyes"), registry.New())
	require.NoError(t, err)

	assert.Equal(t, StatusDone, report.Status)
	assert.Equal(t, 5, report.Requested)
	assert.Equal(t, 5, report.Produced)
	assert.Zero(t, report.Short)
	require.Len(t, report.Written, 5)

	seen := map[string]bool{}
	for i, w := range report.Written {
		assert.Equal(t, i+1, w.Index, "indices are contiguous from 1")
		require.Len(t, w.Record.Attributes, 2)
		key := w.Record.Attributes[0].Value + "/" + w.Record.Attributes[1].Value
		assert.False(t, seen[key], "duplicate trait combination %s", key)
		seen[key] = true
	}
	assert.Len(t, outputFiles(t, f.outDir), 10)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, rec.calls)
}

func TestRunGroup_ExhaustsWhenSpaceTooSmall(t *testing.T) {
	f := twoByThree(t)
	e := f.engine(300, 1)

	report, err := e.RunGroup(context.Background(), group(7, "background", "eyes"), registry.New())
	require.NoError(t, err, "exhaustion is not an error")

	assert.Equal(t, StatusExhausted, report.Status)
	assert.Equal(t, 6, report.Produced)
	assert.Equal(t, 1, report.Short)
	assert.Equal(t, 300, report.Retries)
	assert.Len(t, outputFiles(t, f.outDir), 12)
}

func TestRunGroup_RetryCeiling(t *testing.T) {
	f := newFixture(t, map[string][]string{"background": {"only.png"}})
	e := f.engine(5, 1)

	report, err := e.RunGroup(context.Background(), group(3, "background"), registry.New())
	require.NoError(t, err)

	assert.Equal(t, StatusExhausted, report.Status)
	assert.Equal(t, 1, report.Produced)
	assert.Equal(t, 2, report.Short)
	assert.Equal(t, 5, report.Retries)
}

func TestRunGroup_MissingLayerContributesNothing(t *testing.T) {
	var buf bytes.Buffer
	output.SetupLogging(output.LogConfig{Writer: &buf, Timestamps: output.BoolPtr(false)})
	t.Cleanup(func() { output.SetupLogging(output.LogConfig{}) })

	f := twoByThree(t)
	e := f.engine(100, 1)

	report, err := e.RunGroup(context.Background(), group(3, "eyes", "hats"), registry.New())
	require.NoError(t, err)

	assert.Equal(t, StatusDone, report.Status)
	assert.Equal(t, 3, report.Produced)
	for _, w := range report.Written {
		require.Len(t, w.Record.Attributes, 1)
		assert.Equal(t, "eyes", w.Record.Attributes[0].TraitType)
	}
	assert.Equal(t, report.Produced+report.Retries, strings.Count(buf.String(), "layer not found"),
		"one warning per selection that met the missing layer")
}

func TestRunGroup_UnreadableLayerFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	f := twoByThree(t)
	locked := filepath.Join(f.cat.Root(), "eyes")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })
	cat, err := catalog.Build(f.cat.Root())
	require.NoError(t, err)
	f.cat = cat

	report, err := f.engine(100, 1).RunGroup(context.Background(), group(3, "background", "eyes"), registry.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrPermission)
	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, 3, report.Short)
	_, statErr := os.Stat(f.outDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunGroup_RenderErrorStopsGroup(t *testing.T) {
	f := newFixture(t, map[string][]string{"background": {"a.png"}})
	testutil.WriteFile(t, filepath.Join(f.cat.Root(), "eyes"), "broken.png", "not an image")
	cat, err := catalog.Build(f.cat.Root())
	require.NoError(t, err)
	f.cat = cat

	report, err := f.engine(100, 1).RunGroup(context.Background(), group(1, "background", "eyes"), registry.New())
	require.Error(t, err)

	var decodeErr *compositor.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, StatusFailed, report.Status)
	assert.Zero(t, report.Produced)
}

func TestRunGroup_Cancelled(t *testing.T) {
	f := twoByThree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.engine(100, 1).RunGroup(ctx, group(5, "background", "eyes"), registry.New())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, report.Status)
	assert.Zero(t, report.Produced)
	assert.Equal(t, 5, report.Short)
}

func TestRunGroup_ParallelWorkers(t *testing.T) {
	f := twoByThree(t)
	var (
		mu      sync.Mutex
		indices []int
	)
	e := f.engine(500, 4, func(o *Options) {
		o.OnWritten = func(w metadata.Written) {
			mu.Lock()
			indices = append(indices, w.Index)
			mu.Unlock()
		}
	})

	report, err := e.RunGroup(context.Background(), group(6, "background", "eyes"), registry.New())
	require.NoError(t, err)

	assert.Equal(t, 6, report.Produced)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, indices)
	for i, w := range report.Written {
		assert.Equal(t, i+1, w.Index)
	}
}

func TestRunGroup_SameSeedSameEditions(t *testing.T) {
	run := func() []string {
		f := twoByThree(t)
		report, err := f.engine(500, 1).RunGroup(context.Background(), group(4, "background", "eyes"), registry.New())
		require.NoError(t, err)
		var dnas []string
		for _, w := range report.Written {
			dnas = append(dnas, filepath.Base(w.Image))
		}
		return dnas
	}
	assert.Equal(t, run(), run())
}

func TestRun_RegistryScope(t *testing.T) {
	groups := []config.EditionGroup{
		group(6, "background", "eyes"),
		group(6, "background", "eyes"),
	}

	t.Run("group", func(t *testing.T) {
		f := twoByThree(t)
		report, err := f.engine(200, 1).Run(context.Background(), groups, config.ScopeGroup)
		require.NoError(t, err)
		require.Len(t, report.Groups, 2)
		assert.Equal(t, 12, report.Produced())
		assert.Zero(t, report.Short())
		assert.NotEqual(t, report.Groups[0].GroupID, report.Groups[1].GroupID)
		assert.Len(t, outputFiles(t, f.outDir), 24, "same-order groups write distinct files")
	})

	t.Run("run", func(t *testing.T) {
		report, err := twoByThree(t).engine(200, 1).Run(context.Background(), groups, config.ScopeRun)
		require.NoError(t, err)
		require.Len(t, report.Groups, 2)
		assert.Equal(t, 6, report.Groups[0].Produced)
		assert.Zero(t, report.Groups[1].Produced)
		assert.Equal(t, StatusExhausted, report.Groups[1].Status)
		assert.Equal(t, 12, report.Requested())
		assert.Equal(t, 6, report.Short())
		assert.Len(t, report.Written(), 6)
	})
}

func TestRun_SameOrderGroupsRecordDistinctRows(t *testing.T) {
	f := twoByThree(t)
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	run, err := l.StartRun(context.Background(), ledger.RunInfo{Seed: 42})
	require.NoError(t, err)

	groups := []config.EditionGroup{
		group(4, "background", "eyes"),
		group(4, "background", "eyes"),
	}
	report, err := f.engine(200, 2, func(o *Options) { o.Recorder = run }).
		Run(context.Background(), groups, config.ScopeGroup)
	require.NoError(t, err)
	assert.Equal(t, 8, report.Produced())

	rows, err := l.Editions(context.Background(), run.ID())
	require.NoError(t, err)
	assert.Len(t, rows, report.Produced())
}

func TestShouldLogCollision(t *testing.T) {
	tests := []struct {
		retries int
		want    bool
	}{
		{1, true},
		{999, true},
		{1000, true},
		{1001, false},
		{1100, true},
		{2999, false},
		{3000, true},
		{3100, false},
		{3250, true},
		{4750, true},
		{5000, true},
		{5250, false},
		{5500, true},
		{100000, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShouldLogCollision(tt.retries), "retries=%d", tt.retries)
	}
}
