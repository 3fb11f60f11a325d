// Package filter selects the track files that pass through a geographic area.
//
// A run has two stages. The prefilter reads only the first track point of every file
// and classifies the file as inside, nearby or excluded. The confirmation stage then
// parses the nearby files completely and keeps those with at least one point inside
// the area. Both stages process files independently on a bounded worker pool.
package filter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"time"

	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
)

var (
	// ErrInvalidThreads indicates a worker pool size below one.
	ErrInvalidThreads = errors.New("invalid thread count")

	// ErrInvalidDistance indicates a negative or non-numeric distance threshold.
	ErrInvalidDistance = errors.New("invalid distance")
)

// Options configures a Filter.
type Options struct {
	// DistanceKm is the prefilter threshold: files whose first point is farther
	// than this from the area are excluded without a full parse.
	DistanceKm float64

	// Threads is the worker pool size.
	Threads int

	// FailFast aborts the run on the first unreadable or corrupt file instead of
	// recording it in Result.Failures.
	FailFast bool

	// Progress receives progress callbacks. Nil means no reporting.
	Progress ProgressReporter

	// Cache, when set, reuses decisions for files that did not change since they
	// were last filtered. A cache must only be shared by filters with the same
	// area and distance.
	Cache *DecisionCache
}

// Filter runs the two-stage pipeline for one area.
type Filter struct {
	area     geo.Area
	opts     Options
	progress ProgressReporter
}

// New creates a Filter for area.
func New(area geo.Area, opts Options) (*Filter, error) {
	if opts.Threads < 1 {
		return nil, fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidThreads, opts.Threads)
	}
	if opts.DistanceKm < 0 || math.IsNaN(opts.DistanceKm) {
		return nil, fmt.Errorf("%w: must be a non-negative number of kilometres, got %v", ErrInvalidDistance, opts.DistanceKm)
	}

	progress := opts.Progress
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	return &Filter{
		area:     area,
		opts:     opts,
		progress: progress,
	}, nil
}

// Area returns the area the filter selects tracks for.
func (f *Filter) Area() geo.Area {
	return f.area
}

// Run filters files and returns the accepted ones together with the per-stage
// partition. Files that cannot be read are reported in Result.Failures, unless
// FailFast is set, in which case the first failure is returned as the error.
func (f *Filter) Run(ctx context.Context, files []string) (*Result, error) {
	start := time.Now()
	result := &Result{Total: len(files)}
	f.progress.OnDiscoveryComplete(len(files))

	pending := files
	var stamps map[string]os.FileInfo
	if f.opts.Cache != nil {
		pending, stamps = f.applyCache(files, result)
	}

	pre, err := f.Prefilter(ctx, pending)
	if err != nil {
		return nil, err
	}
	result.PrefilterTime = time.Since(start)

	confirmStart := time.Now()
	conf, err := f.Confirm(ctx, pre.Nearby)
	if err != nil {
		return nil, err
	}
	result.ConfirmTime = time.Since(confirmStart)

	result.Inside = append(result.Inside, pre.Inside...)
	result.Nearby = append(result.Nearby, pre.Nearby...)
	result.Excluded = append(result.Excluded, pre.Excluded...)
	result.Confirmed = append(result.Confirmed, conf.Confirmed...)
	result.Rejected = append(result.Rejected, conf.Rejected...)
	result.Failures = append(result.Failures, pre.Failures...)
	result.Failures = append(result.Failures, conf.Failures...)

	if f.opts.Cache != nil {
		f.storeDecisions(stamps, pre, conf)
	}

	sort.Strings(result.Inside)
	sort.Strings(result.Nearby)
	sort.Strings(result.Excluded)
	sort.Strings(result.Confirmed)
	sort.Strings(result.Rejected)
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Path < result.Failures[j].Path
	})

	result.Accepted = make([]string, 0, len(result.Inside)+len(result.Confirmed))
	result.Accepted = append(result.Accepted, result.Inside...)
	result.Accepted = append(result.Accepted, result.Confirmed...)

	result.Duration = time.Since(start)
	f.progress.OnComplete(result)

	return result, nil
}

// applyCache moves files with a still valid cached decision into result and
// returns the files that need processing along with their current file info.
func (f *Filter) applyCache(files []string, result *Result) ([]string, map[string]os.FileInfo) {
	pending := make([]string, 0, len(files))
	stamps := make(map[string]os.FileInfo, len(files))

	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			// Let the prefilter report the failure.
			pending = append(pending, path)
			continue
		}

		d, ok := f.opts.Cache.lookup(path, info)
		if !ok {
			pending = append(pending, path)
			stamps[path] = info
			continue
		}

		result.Cached++
		switch {
		case d.class == ClassInside:
			result.Inside = append(result.Inside, path)
		case d.class == ClassNearby && d.accepted:
			result.Nearby = append(result.Nearby, path)
			result.Confirmed = append(result.Confirmed, path)
		case d.class == ClassNearby:
			result.Nearby = append(result.Nearby, path)
			result.Rejected = append(result.Rejected, path)
		default:
			result.Excluded = append(result.Excluded, path)
		}
	}

	if result.Cached > 0 {
		log.Printf("Reusing cached decisions for %d of %d files", result.Cached, len(files))
	}

	return pending, stamps
}

func (f *Filter) storeDecisions(stamps map[string]os.FileInfo, pre *PrefilterResult, conf *ConfirmResult) {
	store := func(paths []string, class Classification, accepted bool) {
		for _, path := range paths {
			if info, ok := stamps[path]; ok {
				f.opts.Cache.store(path, info, class, accepted)
			}
		}
	}

	store(pre.Inside, ClassInside, true)
	store(pre.Excluded, ClassExcluded, false)
	store(conf.Confirmed, ClassNearby, true)
	store(conf.Rejected, ClassNearby, false)
}
