package filter

// ProgressReporter provides callbacks for reporting filter progress.
// Implementations can display progress bars, log messages, or remain silent.
// OnFileProcessed is called concurrently from worker goroutines.
type ProgressReporter interface {
	// OnDiscoveryComplete is called once the candidate files are known.
	OnDiscoveryComplete(totalFiles int)

	// OnStageStart is called before a stage processes its files.
	OnStageStart(stage Stage, totalFiles int)

	// OnFileProcessed is called after each file of a stage is processed.
	OnFileProcessed(stage Stage, path string)

	// OnStageComplete is called when all files of a stage are processed.
	OnStageComplete(stage Stage)

	// OnComplete is called when a run completes.
	OnComplete(result *Result)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryComplete(totalFiles int)       {}
func (n *NoOpProgressReporter) OnStageStart(stage Stage, totalFiles int) {}
func (n *NoOpProgressReporter) OnFileProcessed(stage Stage, path string) {}
func (n *NoOpProgressReporter) OnStageComplete(stage Stage)              {}
func (n *NoOpProgressReporter) OnComplete(result *Result)                {}
