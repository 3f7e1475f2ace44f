// Package config provides configuration loading, validation and resolution
// for edition runs.
package config

import (
	"github.com/opmodel/editions/internal/fingerprint"
)

// Defaults applied by Normalize.
const (
	DefaultLayersDir     = "./layers"
	DefaultOutputDir     = "./build"
	DefaultImageSize     = 1024
	DefaultMaxRetries    = 10000
	DefaultWorkers       = 1
	DefaultPick          = 1
	DefaultName          = "Edition"
	DefaultColorMethod   = ColorMethodDominant
	DefaultRegistryScope = ScopeGroup
)

// Registry scopes.
const (
	// ScopeGroup gives each edition group its own uniqueness registry.
	ScopeGroup = "group"
	// ScopeRun shares one registry across every group of a run.
	ScopeRun = "run"
)

// Dominant color methods.
const (
	ColorMethodDominant = "dominantcolor"
	ColorMethodKMeans   = "kmeans"
)

// PlanEntry selects between PickMin and PickMax files from one layer.
type PlanEntry struct {
	Name    string
	PickMin int
	PickMax int
}

// EditionGroup is a target count plus an ordered list of plan entries.
type EditionGroup struct {
	// Position is the group's 0-based place in the run.
	Position int
	Size     int
	Order    []PlanEntry
}

// LayerNames returns the layer names in plan order.
func (g EditionGroup) LayerNames() []string {
	names := make([]string, len(g.Order))
	for i, e := range g.Order {
		names[i] = e.Name
	}
	return names
}

// GroupID identifies the group by the fingerprint of its position and layer
// order. Groups sharing a layer order get distinct ids.
func (g EditionGroup) GroupID() string {
	return fingerprint.OfGroup(g.Position, g.LayerNames()).String()
}

// PlanEntryConfig is a plan entry as written in the config file. Pick bounds
// are pointers so an explicit 0 is distinguishable from an omitted value.
type PlanEntryConfig struct {
	Name    string `json:"name" yaml:"name" mapstructure:"name"`
	PickMin *int   `json:"pickMin,omitempty" yaml:"pickMin,omitempty" mapstructure:"pickMin"`
	PickMax *int   `json:"pickMax,omitempty" yaml:"pickMax,omitempty" mapstructure:"pickMax"`
}

// EditionGroupConfig is an edition group as written in the config file.
type EditionGroupConfig struct {
	Size  int               `json:"size" yaml:"size" mapstructure:"size"`
	Order []PlanEntryConfig `json:"order" yaml:"order" mapstructure:"order"`
}

// DominantColorConfig controls the dominant color metadata attribute.
type DominantColorConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled" mapstructure:"enabled"`
	Method  string `json:"method,omitempty" yaml:"method,omitempty" mapstructure:"method"`
}

// MetadataConfig controls the JSON sidecar written next to each image.
type MetadataConfig struct {
	// Name prefixes each edition name: "<name> #<index>".
	Name string `json:"name,omitempty" yaml:"name" mapstructure:"name"`

	Description string `json:"description,omitempty" yaml:"description" mapstructure:"description"`

	// ImageURI is prepended to the escaped image file name.
	ImageURI string `json:"imageURI,omitempty" yaml:"imageURI" mapstructure:"imageURI"`

	// Extended adds dna, edition and date fields.
	Extended bool `json:"extended,omitempty" yaml:"extended" mapstructure:"extended"`

	DominantColor DominantColorConfig `json:"dominantColor,omitempty" yaml:"dominantColor" mapstructure:"dominantColor"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool `json:"timestamps,omitempty" yaml:"timestamps,omitempty" mapstructure:"timestamps"`
}

// Config is the editions configuration file.
type Config struct {
	LayersDir     string               `json:"layersDir,omitempty" yaml:"layersDir" mapstructure:"layersDir"`
	OutputDir     string               `json:"outputDir,omitempty" yaml:"outputDir" mapstructure:"outputDir"`
	ImageSize     int                  `json:"imageSize,omitempty" yaml:"imageSize" mapstructure:"imageSize"`
	Resize        *bool                `json:"resize,omitempty" yaml:"resize" mapstructure:"resize"`
	MaxRetries    *int                 `json:"maxRetries,omitempty" yaml:"maxRetries" mapstructure:"maxRetries"`
	Workers       int                  `json:"workers,omitempty" yaml:"workers" mapstructure:"workers"`
	Seed          uint64               `json:"seed,omitempty" yaml:"seed" mapstructure:"seed"`
	Cleanup       bool                 `json:"cleanup,omitempty" yaml:"cleanup" mapstructure:"cleanup"`
	RegistryScope string               `json:"registryScope,omitempty" yaml:"registryScope" mapstructure:"registryScope"`
	Ledger        string               `json:"ledger,omitempty" yaml:"ledger" mapstructure:"ledger"`
	Metadata      MetadataConfig       `json:"metadata,omitempty" yaml:"metadata" mapstructure:"metadata"`
	Editions      []EditionGroupConfig `json:"editions,omitempty" yaml:"editions" mapstructure:"editions"`
	Log           LogConfig            `json:"log,omitempty" yaml:"log,omitempty" mapstructure:"log"`
}

// Normalize fills every omitted value with its default.
func (c *Config) Normalize() *Config {
	if c.LayersDir == "" {
		c.LayersDir = DefaultLayersDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.ImageSize == 0 {
		c.ImageSize = DefaultImageSize
	}
	if c.Resize == nil {
		resize := true
		c.Resize = &resize
	}
	if c.MaxRetries == nil {
		c.MaxRetries = intPtr(DefaultMaxRetries)
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.RegistryScope == "" {
		c.RegistryScope = DefaultRegistryScope
	}
	if c.Metadata.Name == "" {
		c.Metadata.Name = DefaultName
	}
	if c.Metadata.DominantColor.Method == "" {
		c.Metadata.DominantColor.Method = DefaultColorMethod
	}
	for gi := range c.Editions {
		for ei := range c.Editions[gi].Order {
			e := &c.Editions[gi].Order[ei]
			if e.PickMin == nil {
				e.PickMin = intPtr(DefaultPick)
			}
			if e.PickMax == nil {
				e.PickMax = intPtr(DefaultPick)
			}
		}
	}
	return c
}

// ResizeEnabled reports whether layers are scaled to the canvas size.
func (c *Config) ResizeEnabled() bool {
	return c.Resize == nil || *c.Resize
}

// RetryLimit returns the per-group collision budget.
func (c *Config) RetryLimit() int {
	return derefOr(c.MaxRetries, DefaultMaxRetries)
}

// Groups returns the edition groups with pick bounds resolved.
func (c *Config) Groups() []EditionGroup {
	groups := make([]EditionGroup, len(c.Editions))
	for gi, g := range c.Editions {
		order := make([]PlanEntry, len(g.Order))
		for ei, e := range g.Order {
			order[ei] = PlanEntry{
				Name:    e.Name,
				PickMin: derefOr(e.PickMin, DefaultPick),
				PickMax: derefOr(e.PickMax, DefaultPick),
			}
		}
		groups[gi] = EditionGroup{Position: gi, Size: g.Size, Order: order}
	}
	return groups
}

// DefaultConfig returns the starter configuration written by `editions config init`.
func DefaultConfig() *Config {
	resize := true
	timestamps := true
	return &Config{
		LayersDir:     DefaultLayersDir,
		OutputDir:     DefaultOutputDir,
		ImageSize:     DefaultImageSize,
		Resize:        &resize,
		MaxRetries:    intPtr(DefaultMaxRetries),
		Workers:       DefaultWorkers,
		RegistryScope: DefaultRegistryScope,
		Metadata: MetadataConfig{
			Name:          "Collection",
			Description:   "A generated collection",
			ImageURI:      "ipfs://<cid>/",
			DominantColor: DominantColorConfig{Method: DefaultColorMethod},
		},
		Editions: []EditionGroupConfig{
			{
				Size: 10,
				Order: []PlanEntryConfig{
					{Name: "background"},
					{Name: "eyes", PickMin: intPtr(1), PickMax: intPtr(2)},
				},
			},
		},
		Log: LogConfig{Timestamps: &timestamps},
	}
}

// GlobalFlags holds the root command's persistent flag values.
type GlobalFlags struct {
	Config     string
	Verbose    bool
	Timestamps bool
}

// GlobalConfig holds CLI-wide state resolved during PersistentPreRunE and
// passed into every sub-command constructor.
type GlobalConfig struct {
	// Config is the loaded file, nil when it could not be loaded.
	Config *Config

	// LoadErr is the reason Config is nil.
	LoadErr error

	// ConfigPath is the resolved config file path.
	ConfigPath ResolvedValue

	Flags GlobalFlags
}

func intPtr(i int) *int {
	return &i
}

func derefOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
