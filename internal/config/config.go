// Package config loads the filter configuration.
//
// Values come from built-in defaults, an optional YAML file (.gpx-geo-filter.yml
// in the working directory, or the file given with --config), GPXFILTER_*
// environment variables and command-line flags, each overriding the previous.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/gpx-geo-filter/internal/filter"
	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
)

// Config is the complete filter configuration.
type Config struct {
	Area   AreaConfig   `yaml:"area" mapstructure:"area"`
	Filter FilterConfig `yaml:"filter" mapstructure:"filter"`
	Paths  PathsConfig  `yaml:"paths" mapstructure:"paths"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Watch  WatchConfig  `yaml:"watch" mapstructure:"watch"`
}

// AreaConfig holds two opposite corners of the area. Nil means not configured.
type AreaConfig struct {
	FirstLat  *float64 `yaml:"first_lat" mapstructure:"first_lat"`
	FirstLon  *float64 `yaml:"first_lon" mapstructure:"first_lon"`
	SecondLat *float64 `yaml:"second_lat" mapstructure:"second_lat"`
	SecondLon *float64 `yaml:"second_lon" mapstructure:"second_lon"`
}

// FilterConfig tunes the pipeline.
type FilterConfig struct {
	DistanceKm float64 `yaml:"distance_km" mapstructure:"distance_km"` // prefilter threshold
	Threads    int     `yaml:"threads" mapstructure:"threads"`         // worker pool size
	FailFast   bool    `yaml:"fail_fast" mapstructure:"fail_fast"`     // abort on the first bad file
}

// PathsConfig selects the input files.
type PathsConfig struct {
	Source  string   `yaml:"source" mapstructure:"source"`   // directory holding the tracks
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns relative to source
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// OutputConfig controls what happens with the accepted files.
type OutputConfig struct {
	CopyTo string `yaml:"copy_to" mapstructure:"copy_to"` // empty disables copying
	Report string `yaml:"report" mapstructure:"report"`   // SQLite run report, empty disables it
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce  time.Duration `yaml:"debounce" mapstructure:"debounce"`
	CacheSize int           `yaml:"cache_size" mapstructure:"cache_size"`
}

// Default returns a configuration with sensible defaults. The area and the
// source directory have no default.
func Default() *Config {
	return &Config{
		Filter: FilterConfig{
			DistanceKm: 300,
			Threads:    8,
			FailFast:   false,
		},
		Paths: PathsConfig{
			Include: append([]string(nil), filter.DefaultInclude...),
			Ignore:  []string{},
		},
		Watch: WatchConfig{
			Debounce:  filter.DefaultDebounce,
			CacheSize: 100000,
		},
	}
}

// IsComplete reports whether all four corner values are set.
func (a AreaConfig) IsComplete() bool {
	return a.FirstLat != nil && a.FirstLon != nil && a.SecondLat != nil && a.SecondLon != nil
}

// ToArea builds the normalized area from the configured corners.
func (a AreaConfig) ToArea() (geo.Area, error) {
	if !a.IsComplete() {
		return geo.Area{}, fmt.Errorf("%w: all four corner values are required", ErrMissingArea)
	}

	first := geo.NewCoordinate(*a.FirstLat, *a.FirstLon)
	if err := first.Validate(); err != nil {
		return geo.Area{}, fmt.Errorf("first corner: %w", err)
	}
	second := geo.NewCoordinate(*a.SecondLat, *a.SecondLon)
	if err := second.Validate(); err != nil {
		return geo.Area{}, fmt.Errorf("second corner: %w", err)
	}

	return geo.NewArea(first, second), nil
}

// FilterOptions returns the pipeline options of the configuration. Progress
// reporting and caching are left to the caller.
func (c *Config) FilterOptions() filter.Options {
	return filter.Options{
		DistanceKm: c.Filter.DistanceKm,
		Threads:    c.Filter.Threads,
		FailFast:   c.Filter.FailFast,
	}
}

// Discovery builds the file discovery for the configured source directory. A copy
// destination inside the source directory is ignored so copied tracks are never
// filtered again.
func (c *Config) Discovery() (*filter.FileDiscovery, error) {
	ignore := c.Paths.Ignore
	if rel, ok := c.copyDestInSource(); ok {
		ignore = append(append([]string(nil), ignore...), glob.QuoteMeta(rel))
	}
	return filter.NewFileDiscovery(c.Paths.Source, c.Paths.Include, ignore)
}

// copyDestInSource returns the slash-separated path of the copy destination
// relative to the source directory when it lies strictly below it.
func (c *Config) copyDestInSource() (string, bool) {
	if c.Output.CopyTo == "" || c.Paths.Source == "" {
		return "", false
	}
	source, err := filepath.Abs(c.Paths.Source)
	if err != nil {
		return "", false
	}
	dest, err := filepath.Abs(c.Output.CopyTo)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(source, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
