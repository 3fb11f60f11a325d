package filter

import (
	"context"
	"log"

	"github.com/mvp-joe/gpx-geo-filter/internal/geo"
	"github.com/mvp-joe/gpx-geo-filter/internal/track"
)

type prefilterOutcome struct {
	class Classification
	err   error
}

// Classify decides the prefilter class of a file from its first track point.
// found is false when the file has no track point at all.
func Classify(area geo.Area, distanceKm float64, first geo.Coordinate, found bool) Classification {
	switch {
	case !found:
		return ClassExcluded
	case area.Contains(first):
		return ClassInside
	case !area.IsFartherThan(first, distanceKm):
		return ClassNearby
	default:
		return ClassExcluded
	}
}

// Prefilter classifies every file from its first track point only.
func (f *Filter) Prefilter(ctx context.Context, files []string) (*PrefilterResult, error) {
	f.progress.OnStageStart(StagePrefilter, len(files))

	outcomes := make([]prefilterOutcome, len(files))
	err := forEach(ctx, f.opts.Threads, len(files), func(ctx context.Context, i int) error {
		path := files[i]
		class, err := f.classifyFile(path)
		f.progress.OnFileProcessed(StagePrefilter, path)

		if err != nil {
			failure := FileFailure{Path: path, Stage: StagePrefilter, Err: err}
			if f.opts.FailFast {
				return failure
			}
			log.Printf("Warning: %v", failure)
		}
		outcomes[i] = prefilterOutcome{class: class, err: err}
		return nil
	})
	if err != nil {
		return nil, err
	}
	f.progress.OnStageComplete(StagePrefilter)

	result := &PrefilterResult{}
	for i, o := range outcomes {
		path := files[i]
		if o.err != nil {
			result.Failures = append(result.Failures, FileFailure{Path: path, Stage: StagePrefilter, Err: o.err})
			continue
		}
		switch o.class {
		case ClassInside:
			result.Inside = append(result.Inside, path)
		case ClassNearby:
			result.Nearby = append(result.Nearby, path)
		default:
			result.Excluded = append(result.Excluded, path)
		}
	}

	return result, nil
}

func (f *Filter) classifyFile(path string) (Classification, error) {
	first, found, err := track.FirstCoordinateInFile(path)
	if err != nil {
		return ClassExcluded, err
	}
	return Classify(f.area, f.opts.DistanceKm, first, found), nil
}
