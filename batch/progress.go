package batch

import (
	"fmt"
	"io"
	"time"

	"photosearch/logging"
)

// NewProgressTracker initializes the progress tracker and starts consuming results
func NewProgressTracker(stats FileStats, routine string, out io.Writer, resultsChan <-chan ProcessImageResult) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(500 * time.Millisecond),
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
		totalFiles: stats.totalFiles,
		rawFiles:   stats.rawFiles,
		routine:    routine,
		out:        out,
	}

	go tracker.displayProgress()
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			if p.out == nil {
				continue
			}
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (Errors: %d, RAW: %d/%d)",
					p.processed, p.totalFiles, p.errors, p.rawProcessed, p.rawFiles)
			} else {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (RAW: %d/%d)",
					p.processed, p.totalFiles, p.rawProcessed, p.rawFiles)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state based on processing results
func (p *ProgressTracker) processResults(resultsChan <-chan ProcessImageResult) {
	defer close(p.finished)

	for result := range resultsChan {
		p.mu.Lock()
		p.processed++

		if result.IsRaw {
			p.rawProcessed++
		}

		if !result.Success {
			p.errors++
			if result.IsRaw {
				p.rawErrors++
			}
		}
		p.mu.Unlock()

		logging.LogImageProcessed(result.Path, p.routine, result.Error)
	}
}

// Wait blocks until every result has been consumed, then stops the display
func (p *ProgressTracker) Wait() {
	<-p.finished
	p.ticker.Stop()
	close(p.done)
}

// Stats returns the counters collected so far
func (p *ProgressTracker) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Total:     p.totalFiles,
		Succeeded: p.processed - p.errors,
		Failed:    p.errors,
		RawFiles:  p.rawProcessed,
	}
}

// PrintStartupInfo displays information about the run before starting
func PrintStartupInfo(stats FileStats, options Options, routine string) {
	if options.Progress == nil {
		return
	}
	fmt.Fprintf(options.Progress, "Starting batch processing with routine %q...\nTotal image files to process: %d (including %d RAW files)\n",
		routine, stats.totalFiles, stats.rawFiles)
	fmt.Fprintf(options.Progress, "Output directory: %s\n", options.OutputDir)

	logging.DebugLog("Found %d image files to process (%d RAW files)", stats.totalFiles, stats.rawFiles)
}

// PrintCompletionStats displays statistics after the run
func PrintCompletionStats(options Options, stats Stats) {
	logging.DebugLog("Batch completed in %v. Processed: %d, Errors: %d, RAW files: %d",
		stats.Elapsed, stats.Succeeded, stats.Failed, stats.RawFiles)

	if options.Progress == nil {
		return
	}

	fmt.Fprintln(options.Progress, "\nProcessing complete.")
	fmt.Fprintf(options.Progress, "Processed %d/%d images in %v.\n", stats.Succeeded, stats.Total, stats.Elapsed.Round(time.Second))

	if stats.Failed > 0 {
		fmt.Fprintf(options.Progress, "Encountered %d errors during processing.\n", stats.Failed)
		fmt.Fprintln(options.Progress, "Check the log file for details.")
	}
}
