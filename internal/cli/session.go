package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mvp-joe/gpx-geo-filter/internal/config"
	"github.com/mvp-joe/gpx-geo-filter/internal/filter"
	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
	"github.com/mvp-joe/gpx-geo-filter/internal/output"
	"github.com/mvp-joe/gpx-geo-filter/internal/report"
)

// ErrPartialResult is returned when some files could not be processed. The
// accepted files of the other tracks are still copied and recorded.
var ErrPartialResult = errors.New("partial result")

type sessionOptions struct {
	quiet   bool
	verbose bool
	// cacheSize enables the decision cache when positive.
	cacheSize int
}

// session holds everything needed to filter the configured folder repeatedly.
type session struct {
	cfg       *config.Config
	area      geo.Area
	discovery *filter.FileDiscovery
	filter    *filter.Filter
	cache     *filter.DecisionCache
	store     *report.Store
	out       io.Writer
	quiet     bool
	verbose   bool
}

func newSession(cfg *config.Config, opts sessionOptions, out io.Writer) (*session, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	area, err := cfg.Area.ToArea()
	if err != nil {
		return nil, err
	}

	discovery, err := cfg.Discovery()
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:       cfg,
		area:      area,
		discovery: discovery,
		out:       out,
		quiet:     opts.quiet,
		verbose:   opts.verbose,
	}

	filterOpts := cfg.FilterOptions()
	filterOpts.Progress = NewCLIProgressReporter(out, opts.quiet, opts.verbose)

	if opts.cacheSize > 0 {
		s.cache, err = filter.NewDecisionCache(opts.cacheSize)
		if err != nil {
			return nil, err
		}
		filterOpts.Cache = s.cache
	}

	s.filter, err = filter.New(area, filterOpts)
	if err != nil {
		s.close()
		return nil, err
	}

	if cfg.Output.Report != "" {
		s.store, err = report.Open(cfg.Output.Report)
		if err != nil {
			s.close()
			return nil, err
		}
	}

	return s, nil
}

func (s *session) close() {
	if s.cache != nil {
		s.cache.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("Warning: failed to close report database: %v", err)
		}
	}
}

// printConfig echoes the effective configuration.
func (s *session) printConfig() {
	if s.quiet {
		return
	}

	fmt.Fprintln(s.out, "> -----------------------------")
	fmt.Fprintf(s.out, "> area: %s\n", s.area)
	fmt.Fprintf(s.out, "> distance: %v km\n", s.cfg.Filter.DistanceKm)
	fmt.Fprintf(s.out, "> folder: %s\n", s.cfg.Paths.Source)
	fmt.Fprintf(s.out, "> include: %v\n", s.cfg.Paths.Include)
	if len(s.cfg.Paths.Ignore) > 0 {
		fmt.Fprintf(s.out, "> ignore: %v\n", s.cfg.Paths.Ignore)
	}
	fmt.Fprintf(s.out, "> threads: %d\n", s.cfg.Filter.Threads)
	if s.cfg.Filter.FailFast {
		fmt.Fprintln(s.out, "> strict: true")
	}
	if s.cfg.Output.CopyTo != "" {
		fmt.Fprintf(s.out, "> copy to: %s\n", s.cfg.Output.CopyTo)
	}
	if s.cfg.Output.Report != "" {
		fmt.Fprintf(s.out, "> report: %s\n", s.cfg.Output.Report)
	}
	fmt.Fprintln(s.out, "> -----------------------------")
	fmt.Fprintln(s.out)
}

// run discovers the track files, filters them and records the run.
func (s *session) run(ctx context.Context) (*filter.Result, error) {
	startedAt := time.Now()

	if !s.quiet {
		fmt.Fprintf(s.out, "Reading files from '%s'...\n", s.cfg.Paths.Source)
	}
	files, err := s.discovery.DiscoverFiles()
	if err != nil {
		return nil, err
	}
	if s.verbose {
		log.Printf("[TIMING] discovery: %v (%d files)", time.Since(startedAt), len(files))
	}

	result, err := s.filter.Run(ctx, files)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("filtering cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("filtering failed: %w", err)
	}

	if s.verbose {
		log.Printf("[TIMING] prefilter: %v, confirm: %v, total: %v",
			result.PrefilterTime, result.ConfirmTime, result.Duration)
	}

	s.printFailures(result)

	if s.store != nil {
		runID, err := s.store.RecordRun(ctx, report.RunInfo{
			StartedAt:  startedAt,
			SourceDir:  s.cfg.Paths.Source,
			Area:       s.area,
			DistanceKm: s.cfg.Filter.DistanceKm,
			Threads:    s.cfg.Filter.Threads,
		}, result)
		if err != nil {
			return result, fmt.Errorf("failed to record run: %w", err)
		}
		if !s.quiet {
			fmt.Fprintf(s.out, "Run recorded: %s\n", runID)
		}
	}

	return result, nil
}

func (s *session) printFailures(result *filter.Result) {
	if len(result.Failures) == 0 || s.quiet {
		return
	}

	fmt.Fprintf(s.out, "\n%s file(s) could not be processed:\n", formatNumber(len(result.Failures)))
	for _, failure := range result.Failures {
		fmt.Fprintf(s.out, "  - [%s] %s: %v\n", failure.Stage, failure.Path, failure.Err)
	}
}

// copyAccepted copies files to the configured destination, if any.
func (s *session) copyAccepted(files []string) error {
	if s.cfg.Output.CopyTo == "" || len(files) == 0 {
		return nil
	}

	start := time.Now()
	if !s.quiet {
		fmt.Fprintf(s.out, "Copying filtered files to %s\n", s.cfg.Output.CopyTo)
	}

	stats, err := output.CopyFiles(files, s.cfg.Output.CopyTo)
	if err != nil {
		return fmt.Errorf("failed to copy accepted files: %w", err)
	}

	if !s.quiet {
		fmt.Fprintf(s.out, "✓ Copied %s files (%s bytes) in %.2fs\n",
			formatNumber(stats.FilesCopied), formatNumber(int(stats.BytesCopied)), time.Since(start).Seconds())
	}
	return nil
}

func partialError(result *filter.Result) error {
	if !result.Partial() {
		return nil
	}
	return fmt.Errorf("%w: %d of %d files could not be processed", ErrPartialResult, len(result.Failures), result.Total)
}
