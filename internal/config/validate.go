package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/mvp-joe/gpx-geo-filter/internal/filter"
	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
)

var (
	// ErrMissingArea indicates that one or more area corner values are not set.
	ErrMissingArea = errors.New("missing area")

	// ErrInvalidCoordinate indicates a corner outside the valid latitude or longitude range.
	ErrInvalidCoordinate = geo.ErrInvalidCoordinate

	// ErrInvalidThreads indicates a worker pool size below one.
	ErrInvalidThreads = filter.ErrInvalidThreads

	// ErrInvalidDistance indicates a negative or non-numeric distance threshold.
	ErrInvalidDistance = filter.ErrInvalidDistance

	// ErrSourceNotFound indicates a missing or unset source directory.
	ErrSourceNotFound = filter.ErrSourceNotFound

	// ErrInvalidPattern indicates an include or ignore pattern that is not a valid glob.
	ErrInvalidPattern = filter.ErrInvalidPattern

	// ErrInvalidWatchSettings indicates invalid watch mode configuration
	ErrInvalidWatchSettings = errors.New("invalid watch settings")
)

// Validate checks that the configuration is valid and complete for a filter run.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateArea(&cfg.Area); err != nil {
		errs = append(errs, err)
	}

	if err := validateFilter(&cfg.Filter); err != nil {
		errs = append(errs, err)
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := validateWatch(&cfg.Watch); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateArea(cfg *AreaConfig) error {
	var errs []error

	corners := []struct {
		key   string
		value *float64
		limit float64
	}{
		{"area.first_lat", cfg.FirstLat, 90},
		{"area.first_lon", cfg.FirstLon, 180},
		{"area.second_lat", cfg.SecondLat, 90},
		{"area.second_lon", cfg.SecondLon, 180},
	}

	for _, c := range corners {
		if c.value == nil {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrMissingArea, c.key))
			continue
		}
		if v := *c.value; math.IsNaN(v) || v < -c.limit || v > c.limit {
			errs = append(errs, fmt.Errorf("%w: %s must be within [%v, %v], got %v", ErrInvalidCoordinate, c.key, -c.limit, c.limit, v))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateFilter(cfg *FilterConfig) error {
	var errs []error

	if cfg.Threads < 1 {
		errs = append(errs, fmt.Errorf("%w: threads must be at least 1, got %d", ErrInvalidThreads, cfg.Threads))
	}

	if cfg.DistanceKm < 0 || math.IsNaN(cfg.DistanceKm) {
		errs = append(errs, fmt.Errorf("%w: distance_km cannot be negative, got %v", ErrInvalidDistance, cfg.DistanceKm))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Source) == "" {
		errs = append(errs, fmt.Errorf("%w: paths.source is required", ErrSourceNotFound))
	} else if info, err := os.Stat(cfg.Source); err != nil || !info.IsDir() {
		errs = append(errs, fmt.Errorf("%w: %s", ErrSourceNotFound, cfg.Source))
	}

	if _, err := filter.NewFileDiscovery(cfg.Source, cfg.Include, cfg.Ignore); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateWatch(cfg *WatchConfig) error {
	var errs []error

	// Zero falls back to the default debounce period.
	if cfg.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce cannot be negative, got %s", ErrInvalidWatchSettings, cfg.Debounce))
	}

	if cfg.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("%w: cache_size must be at least 1, got %d", ErrInvalidWatchSettings, cfg.CacheSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// validationError lists several configuration problems while still matching
// each of them with errors.Is.
type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	var msgs []string
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	// Flatten nested lists so every problem is printed on its own line.
	var flat []error
	for _, err := range errs {
		var ve *validationError
		if errors.As(err, &ve) {
			flat = append(flat, ve.errs...)
			continue
		}
		flat = append(flat, err)
	}

	return &validationError{errs: flat}
}
