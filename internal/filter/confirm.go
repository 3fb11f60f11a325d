package filter

import (
	"context"
	"log"

	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
	"github.com/mvp-joe/gpx-geo-filter/internal/track"
)

type confirmOutcome struct {
	confirmed bool
	err       error
}

// Confirm parses every nearby file completely and keeps those with at least one
// track point inside the area. Parsing stops at the first such point.
func (f *Filter) Confirm(ctx context.Context, nearby []string) (*ConfirmResult, error) {
	f.progress.OnStageStart(StageConfirm, len(nearby))

	outcomes := make([]confirmOutcome, len(nearby))
	err := forEach(ctx, f.opts.Threads, len(nearby), func(ctx context.Context, i int) error {
		path := nearby[i]
		confirmed, err := ContainsPointInArea(f.area, path)
		f.progress.OnFileProcessed(StageConfirm, path)

		if err != nil {
			failure := FileFailure{Path: path, Stage: StageConfirm, Err: err}
			if f.opts.FailFast {
				return failure
			}
			log.Printf("Warning: %v", failure)
		}
		outcomes[i] = confirmOutcome{confirmed: confirmed, err: err}
		return nil
	})
	if err != nil {
		return nil, err
	}
	f.progress.OnStageComplete(StageConfirm)

	result := &ConfirmResult{}
	for i, o := range outcomes {
		path := nearby[i]
		switch {
		case o.err != nil:
			result.Failures = append(result.Failures, FileFailure{Path: path, Stage: StageConfirm, Err: o.err})
		case o.confirmed:
			result.Confirmed = append(result.Confirmed, path)
		default:
			result.Rejected = append(result.Rejected, path)
		}
	}

	return result, nil
}

// ContainsPointInArea streams the track points of path and reports whether any of
// them lies inside area.
func ContainsPointInArea(area geo.Area, path string) (bool, error) {
	found := false
	err := track.ScanFile(path, func(c geo.Coordinate) bool {
		if area.Contains(c) {
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
