package cli

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/gpx-geo-filter/internal/filter"
)

// CLIProgressReporter draws one progress bar per pipeline stage. It is safe for
// the concurrent OnFileProcessed calls of the worker pool.
type CLIProgressReporter struct {
	quiet   bool
	verbose bool
	out     io.Writer

	mu         sync.Mutex
	bar        *progressbar.ProgressBar
	stageStart time.Time
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet, verbose bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet:   quiet,
		verbose: verbose,
		out:     out,
	}
}

var stageDescriptions = map[filter.Stage]string{
	filter.StagePrefilter: "Prefiltering tracks",
	filter.StageConfirm:   "Confirming tracks",
}

func (c *CLIProgressReporter) OnDiscoveryComplete(totalFiles int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "Files found: %s\n", formatNumber(totalFiles))
}

func (c *CLIProgressReporter) OnStageStart(stage filter.Stage, totalFiles int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stageStart = time.Now()
	if c.quiet || totalFiles == 0 {
		return
	}

	c.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(stageDescriptions[stage]),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileProcessed(stage filter.Stage, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		c.bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnStageComplete(stage filter.Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
	if c.verbose {
		log.Printf("[TIMING] %s stage: %v", stage, time.Since(c.stageStart))
	}
}

func (c *CLIProgressReporter) OnComplete(result *filter.Result) {
	if c.quiet {
		return
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "Prefilter: files in area: %s\n", formatNumber(len(result.Inside)))
	fmt.Fprintf(c.out, "Prefilter: files close to the area: %s\n", formatNumber(len(result.Nearby)))
	fmt.Fprintf(c.out, "Confirmed files close to the area: %s\n", formatNumber(len(result.Confirmed)))
	fmt.Fprintf(c.out, "Excluded files: %s\n", formatNumber(len(result.Excluded)+len(result.Rejected)))
	if result.Cached > 0 {
		fmt.Fprintf(c.out, "Decisions reused: %s\n", formatNumber(result.Cached))
	}
	if len(result.Failures) > 0 {
		fmt.Fprintf(c.out, "Failed files: %s\n", formatNumber(len(result.Failures)))
	}
	fmt.Fprintf(c.out, "✓ Total files found: %s in %.2fs\n",
		formatNumber(len(result.Accepted)), result.Duration.Seconds())
}

// formatNumber renders n with thousands separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
