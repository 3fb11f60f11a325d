package filter

import (
	"fmt"
	"time"
)

// Classification is the prefilter verdict for a single file.
type Classification string

const (
	// ClassInside means the first track point lies inside the area.
	ClassInside Classification = "inside"
	// ClassNearby means the first track point is within the distance threshold.
	ClassNearby Classification = "nearby"
	// ClassExcluded means the file has no track point or starts too far away.
	ClassExcluded Classification = "excluded"
)

// Stage identifies a pipeline stage.
type Stage string

const (
	StagePrefilter Stage = "prefilter"
	StageConfirm   Stage = "confirm"
)

// FileFailure records a file that could not be processed.
type FileFailure struct {
	Path  string
	Stage Stage
	Err   error
}

func (f FileFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Stage, f.Path, f.Err)
}

func (f FileFailure) Unwrap() error {
	return f.Err
}

// PrefilterResult partitions the input files by their first track point.
type PrefilterResult struct {
	Inside   []string
	Nearby   []string
	Excluded []string
	Failures []FileFailure
}

// ConfirmResult partitions nearby files by whether any point lies in the area.
type ConfirmResult struct {
	Confirmed []string
	Rejected  []string
	Failures  []FileFailure
}

// Result is the outcome of a complete filter run.
//
// Every input file appears in exactly one of Inside, Confirmed, Rejected, Excluded
// or Failures. Accepted is Inside followed by Confirmed.
type Result struct {
	Total     int
	Accepted  []string
	Inside    []string
	Nearby    []string
	Confirmed []string
	Rejected  []string
	Excluded  []string
	Failures  []FileFailure

	// Cached counts files whose decision was reused from the decision cache.
	Cached int

	PrefilterTime time.Duration
	ConfirmTime   time.Duration
	Duration      time.Duration
}

// Partial reports whether some files could not be processed.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0
}
