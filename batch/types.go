package batch

import (
	"io"
	"sync"
	"time"

	"photosearch/imageio"
)

// Options defines the options for processing a folder
type Options struct {
	FolderPath string
	OutputDir  string
	// Routine names output files and history entries; defaults to the processor's routine
	Routine    string
	MaxWorkers int
	// Format of written files; defaults to png
	Format imageio.FormatType
	// Progress receives the progress line; nil disables it
	Progress io.Writer
}

// Stats summarizes a folder run
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	RawFiles  int
	Elapsed   time.Duration
}

// ProcessImageResult holds the result of processing an image
type ProcessImageResult struct {
	Path    string
	Output  string
	Success bool
	Error   error
	IsRaw   bool
}

// FileStats tracks information about files to be processed
type FileStats struct {
	totalFiles int
	rawFiles   int
}

// ProgressTracker tracks progress of a folder run
type ProgressTracker struct {
	processed    int
	errors       int
	rawProcessed int
	rawErrors    int
	ticker       *time.Ticker
	done         chan struct{}
	finished     chan struct{}
	mu           sync.Mutex
	totalFiles   int
	rawFiles     int
	routine      string
	out          io.Writer
}
