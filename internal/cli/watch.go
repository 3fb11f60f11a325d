package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/gpx-geo-filter/internal/config"
	"github.com/mvp-joe/gpx-geo-filter/internal/filter"
)

var watchQuiet bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Filter the track folder and keep filtering it as tracks change",
	Long: `Run a filter pass, then watch the track folder and filter again whenever
track files are added, changed or removed.

Decisions for unchanged tracks are kept in memory between passes, so only new
or modified tracks are read again. With --copy-to, newly accepted tracks are
copied as they appear. Stop with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addFilterFlags(watchCmd.Flags())

	defaults := config.Default()
	watchCmd.Flags().Duration("debounce", defaults.Watch.Debounce, "quiet period before changes trigger a new pass")
	watchCmd.Flags().Int("cache-size", defaults.Watch.CacheSize, "maximum number of remembered track decisions")
	watchCmd.Flags().BoolVarP(&watchQuiet, "quiet", "q", false, "only print errors and newly accepted tracks")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return executeWatch(ctx, cfg, filterOptions{quiet: watchQuiet, verbose: verbose}, cmd.OutOrStdout())
}

// executeWatch runs an initial pass and then one pass per batch of changes
// until ctx is cancelled.
func executeWatch(ctx context.Context, cfg *config.Config, opts filterOptions, out io.Writer) error {
	s, err := newSession(cfg, sessionOptions{
		quiet:     opts.quiet,
		verbose:   opts.verbose,
		cacheSize: cfg.Watch.CacheSize,
	}, out)
	if err != nil {
		return err
	}
	defer s.close()

	s.printConfig()

	// Accepted files already reported or copied.
	seen := make(map[string]bool)

	pass := func(ctx context.Context) error {
		result, err := s.run(ctx)
		if err != nil {
			return err
		}

		var fresh []string
		for _, path := range result.Accepted {
			if !seen[path] {
				seen[path] = true
				fresh = append(fresh, path)
			}
		}
		// Forget removed or no longer accepted files so they are reported again
		// when they come back.
		accepted := make(map[string]bool, len(result.Accepted))
		for _, path := range result.Accepted {
			accepted[path] = true
		}
		for path := range seen {
			if !accepted[path] {
				delete(seen, path)
			}
		}

		for _, path := range fresh {
			fmt.Fprintf(out, "+ %s\n", path)
		}
		return s.copyAccepted(fresh)
	}

	if err := pass(ctx); err != nil {
		return err
	}

	watcher, err := filter.NewWatcher(s.discovery, cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	watcher.Start(ctx, func(ctx context.Context, changed []string) {
		if s.cache != nil {
			s.cache.Invalidate(changed...)
		}
		// Changed tracks that stay accepted are copied again.
		for _, path := range changed {
			delete(seen, path)
		}
		if opts.verbose {
			log.Printf("%d track file(s) changed", len(changed))
		}
		if err := pass(ctx); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			log.Printf("Warning: filter pass failed: %v", err)
		}
	})

	if !opts.quiet {
		fmt.Fprintf(out, "\nWatching %s for changes (Ctrl+C to stop)\n", cfg.Paths.Source)
	}

	<-ctx.Done()

	if err := watcher.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}
	if !opts.quiet {
		fmt.Fprintln(out, "Stopped watching")
	}
	return nil
}
