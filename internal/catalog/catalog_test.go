package catalog

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/editions/internal/config"
	oerrors "github.com/opmodel/editions/internal/errors"
	"github.com/opmodel/editions/internal/testutil"
)

func TestBuild(t *testing.T) {
	root := testutil.WriteLayers(t, t.TempDir(), 4, map[string][]string{
		"background": {"blue.png", "green#20.png", "red.png"},
		"eyes":       {"closed.png", "open#5.png"},
	})
	testutil.WriteFile(t, root, "README.md", "not a layer")
	testutil.WriteFile(t, root, "eyes/.DS_Store", "")

	cat, err := Build(root)
	require.NoError(t, err)

	layers := cat.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, "background", layers[0].Name)
	assert.Equal(t, "eyes", layers[1].Name)

	bg, ok := cat.Layer("background")
	require.True(t, ok)
	require.Len(t, bg.Files, 3)
	for i, f := range bg.Files {
		assert.Equal(t, i, f.ID, "ids follow directory order")
	}
	assert.Equal(t, "blue.png", bg.Files[0].Name)
	assert.Equal(t, "green", bg.Files[1].Trait)
	assert.Equal(t, 20, bg.Files[1].Weight)
	assert.Equal(t, filepath.Join(root, "background", "red.png"), bg.Files[2].Path)

	eyes, _ := cat.Layer("eyes")
	assert.Len(t, eyes.Files, 2, "hidden files are ignored")

	_, ok = cat.Layer("hats")
	assert.False(t, ok)
}

func TestBuild_EmptyLayer(t *testing.T) {
	root := testutil.WriteLayers(t, t.TempDir(), 4, map[string][]string{
		"background": {"blue.png"},
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "eyes"), 0o755))

	_, err := Build(root)
	require.Error(t, err)

	var emptyErr *EmptyLayerError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, "eyes", emptyErr.Layer)
	assert.ErrorIs(t, err, oerrors.ErrValidation)
}

func TestBuild_MissingRoot(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestBuild_SkipsBrokenSymlink(t *testing.T) {
	root := testutil.WriteLayers(t, t.TempDir(), 4, map[string][]string{
		"background": {"blue.png"},
	})
	link := filepath.Join(root, "background", "zz.png")
	if err := os.Symlink(filepath.Join(root, "missing.png"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	cat, err := Build(root)
	require.NoError(t, err)

	bg, _ := cat.Layer("background")
	assert.Len(t, bg.Files, 1)
	require.Len(t, cat.Skipped(), 1)
	assert.Equal(t, link, cat.Skipped()[0].Path)
}

func TestRequire_UnreadableLayer(t *testing.T) {
	cat := &Catalog{layers: map[string]Layer{}, unreadable: map[string]error{}}
	missing := filepath.Join(t.TempDir(), "eyes")

	_, ok, err := cat.readLayer("eyes", missing)
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, cat.Skipped(), 1)

	err = cat.Require([]config.PlanEntry{{Name: "background"}, {Name: "eyes"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), `"eyes"`)

	assert.NoError(t, cat.Require([]config.PlanEntry{{Name: "background"}}),
		"layers the plan does not use are only warned about")
}

func TestBuild_PermissionDeniedLayer(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := testutil.WriteLayers(t, t.TempDir(), 4, map[string][]string{
		"background": {"blue.png"},
		"eyes":       {"open.png"},
	})
	locked := filepath.Join(root, "eyes")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	cat, err := Build(root)
	require.NoError(t, err)
	_, ok := cat.Layer("eyes")
	assert.False(t, ok)

	err = cat.Require([]config.PlanEntry{{Name: "background"}, {Name: "eyes"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrPermission)
	assert.Equal(t, oerrors.ExitPermissionDenied, oerrors.ExitCodeFromError(err))
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name       string
		wantTrait  string
		wantWeight int
	}{
		{name: "blue.png", wantTrait: "blue", wantWeight: 1},
		{name: "blue#20.png", wantTrait: "blue", wantWeight: 20},
		{name: "blue#rare.png", wantTrait: "blue#rare", wantWeight: 1},
		{name: "multi#part#3.webp", wantTrait: "multi#part", wantWeight: 3},
		{name: "noext", wantTrait: "noext", wantWeight: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trait, weight := ParseName(tt.name)
			assert.Equal(t, tt.wantTrait, trait)
			assert.Equal(t, tt.wantWeight, weight)
		})
	}
}

func TestCapacity(t *testing.T) {
	root := testutil.WriteLayers(t, t.TempDir(), 2, map[string][]string{
		"a": {"1.png", "2.png"},
		"b": {"1.png", "2.png", "3.png"},
	})
	cat, err := Build(root)
	require.NoError(t, err)

	tests := []struct {
		name    string
		entries []config.PlanEntry
		want    uint64
	}{
		{
			name:    "one pick each",
			entries: []config.PlanEntry{{Name: "a", PickMin: 1, PickMax: 1}, {Name: "b", PickMin: 1, PickMax: 1}},
			want:    6,
		},
		{
			name:    "range of picks",
			entries: []config.PlanEntry{{Name: "b", PickMin: 0, PickMax: 2}},
			want:    1 + 3 + 3,
		},
		{
			name:    "pick count above layer size is clamped",
			entries: []config.PlanEntry{{Name: "a", PickMin: 5, PickMax: 5}},
			want:    1,
		},
		{
			name:    "missing layer contributes nothing",
			entries: []config.PlanEntry{{Name: "a", PickMin: 1, PickMax: 1}, {Name: "zz", PickMin: 1, PickMax: 1}},
			want:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cat.Capacity(tt.entries))
		})
	}
}

func TestCapacity_Saturates(t *testing.T) {
	files := make([]AssetFile, 64)
	cat := &Catalog{layers: map[string]Layer{"big": {Name: "big", Files: files}}}

	entries := make([]config.PlanEntry, 4)
	for i := range entries {
		entries[i] = config.PlanEntry{Name: "big", PickMin: 32, PickMax: 32}
	}

	assert.Equal(t, uint64(math.MaxUint64), cat.Capacity(entries))
}
