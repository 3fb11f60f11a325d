package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mvp-joe/gpx-geo-filter/internal/config"
	"github.com/mvp-joe/gpx-geo-filter/internal/filter"
)

var (
	filterQuiet bool
	filterList  bool
)

// filterCmd represents the filter command
var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Select the tracks passing through an area",
	Long: `Scan the track folder once and select every GPX track with at least one
point inside the area given by two opposite corners.

Tracks starting inside the area are accepted right away. Tracks starting within
--distance kilometres of the area are read completely to confirm them. All other
tracks are discarded after reading their first point.

Examples:
  gpx-geo-filter filter --first-lat 47.37 --first-lon 8.57 \
      --second-lat 49.48 --second-lon 10.98 --folder ./tracks
  gpx-geo-filter filter --folder ./tracks --copy-to ./selected --report runs.db`,
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)
	addFilterFlags(filterCmd.Flags())
	filterCmd.Flags().BoolVarP(&filterQuiet, "quiet", "q", false, "only print errors")
	filterCmd.Flags().BoolVar(&filterList, "list", false, "print the accepted files")
}

// addFilterFlags registers the flags shared by filter and watch. Their values
// are read through the config loader.
func addFilterFlags(flags *pflag.FlagSet) {
	defaults := config.Default()

	flags.Float64("first-lat", 0, "latitude of the first corner")
	flags.Float64("first-lon", 0, "longitude of the first corner")
	flags.Float64("second-lat", 0, "latitude of the second corner")
	flags.Float64("second-lon", 0, "longitude of the second corner")
	flags.Float64P("distance", "d", defaults.Filter.DistanceKm, "prefilter distance to the area in km")
	flags.IntP("threads", "t", defaults.Filter.Threads, "number of worker threads")
	flags.Bool("strict", false, "abort on the first unreadable track")
	flags.StringP("folder", "f", "", "folder containing the GPX tracks")
	flags.StringSlice("include", defaults.Paths.Include, "glob patterns of track files, relative to the folder")
	flags.StringSlice("ignore", nil, "glob patterns of files and directories to skip")
	flags.StringP("copy-to", "c", "", "copy the accepted tracks to this folder")
	flags.String("report", "", "record the run in this SQLite database")
}

type filterOptions struct {
	quiet   bool
	verbose bool
	list    bool
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := filterOptions{quiet: filterQuiet, verbose: verbose, list: filterList}
	_, err = executeFilter(ctx, cfg, opts, cmd.OutOrStdout())
	return err
}

// executeFilter runs a single filter pass with cfg. The result is returned
// together with ErrPartialResult when some tracks could not be read.
func executeFilter(ctx context.Context, cfg *config.Config, opts filterOptions, out io.Writer) (*filter.Result, error) {
	s, err := newSession(cfg, sessionOptions{quiet: opts.quiet, verbose: opts.verbose}, out)
	if err != nil {
		return nil, err
	}
	defer s.close()

	s.printConfig()

	result, err := s.run(ctx)
	if err != nil {
		return result, err
	}

	if opts.list {
		for _, path := range result.Accepted {
			fmt.Fprintln(out, path)
		}
	}

	if err := s.copyAccepted(result.Accepted); err != nil {
		return result, err
	}

	return result, partialError(result)
}
