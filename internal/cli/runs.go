package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/gpx-geo-filter/internal/output"
	"github.com/mvp-joe/gpx-geo-filter/internal/report"
)

// ErrNoReport is returned when no report database was given.
var ErrNoReport = errors.New("no report database configured")

var (
	runsReport   string
	runsLimit    int
	runsRunID    string
	runsExportTo string
	runsFailed   bool
	runsDelete   bool
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect runs recorded in a report database",
	Long: `List the filter runs recorded with --report, show the tracks a run
accepted, or copy them again without filtering.

Examples:
  gpx-geo-filter runs --report runs.db
  gpx-geo-filter runs --report runs.db --run <id>
  gpx-geo-filter runs --report runs.db --run <id> --failed
  gpx-geo-filter runs --report runs.db --run <id> --export-to ./selected`,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVar(&runsReport, "report", "", "report database (default from configuration)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list (0 for all)")
	runsCmd.Flags().StringVar(&runsRunID, "run", "", "show the accepted tracks of this run")
	runsCmd.Flags().StringVar(&runsExportTo, "export-to", "", "copy the accepted tracks of --run to this folder")
	runsCmd.Flags().BoolVar(&runsFailed, "failed", false, "show the failed tracks of --run instead")
	runsCmd.Flags().BoolVar(&runsDelete, "delete", false, "delete --run from the report")
}

type runsOptions struct {
	report   string
	limit    int
	runID    string
	exportTo string
	failed   bool
	delete   bool
}

func runRuns(cmd *cobra.Command, args []string) error {
	opts := runsOptions{
		report:   runsReport,
		limit:    runsLimit,
		runID:    runsRunID,
		exportTo: runsExportTo,
		failed:   runsFailed,
		delete:   runsDelete,
	}

	if opts.report == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts.report = cfg.Output.Report
	}

	return executeRuns(cmd.Context(), opts, cmd.OutOrStdout())
}

func executeRuns(ctx context.Context, opts runsOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.report == "" {
		return ErrNoReport
	}
	if opts.runID == "" && (opts.exportTo != "" || opts.failed || opts.delete) {
		return fmt.Errorf("--export-to, --failed and --delete require --run")
	}

	store, err := report.Open(opts.report)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.runID == "" {
		return listRuns(ctx, store, opts.limit, out)
	}

	run, err := store.GetRun(ctx, opts.runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", opts.runID)
	}

	switch {
	case opts.delete:
		if err := store.DeleteRun(ctx, run.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Deleted run %s\n", run.ID)
		return nil

	case opts.failed:
		records, err := store.Files(ctx, run.ID, report.OutcomeFailed)
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Fprintf(out, "[%s] %s: %s\n", rec.Stage, rec.Path, rec.Error)
		}
		return nil
	}

	files, err := store.AcceptedFiles(ctx, run.ID)
	if err != nil {
		return err
	}

	if opts.exportTo == "" {
		for _, path := range files {
			fmt.Fprintln(out, path)
		}
		return nil
	}

	start := time.Now()
	stats, err := output.CopyFiles(files, opts.exportTo)
	if err != nil {
		return fmt.Errorf("failed to export run %s: %w", run.ID, err)
	}
	fmt.Fprintf(out, "✓ Copied %s files to %s in %.2fs\n",
		formatNumber(stats.FilesCopied), opts.exportTo, time.Since(start).Seconds())
	return nil
}

func listRuns(ctx context.Context, store *report.Store, limit int, out io.Writer) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSOURCE\tTOTAL\tACCEPTED\tFAILED\tDURATION")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.SourceDir,
			run.Total,
			run.Accepted,
			run.Failed,
			run.Duration.Round(time.Millisecond),
		)
	}
	return w.Flush()
}
