// Package batch runs an image routine over every image in a folder.
package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"photosearch/cvimage"
	"photosearch/database"
	"photosearch/imageio"
	"photosearch/imageprocessor"
	"photosearch/logging"
	"photosearch/signalhandler"
	"photosearch/types"

	"github.com/gofrs/uuid/v5"
)

// ErrInvalidOptions is returned when the folder or output settings are unusable
var ErrInvalidOptions = errors.New("invalid batch options")

// ProcessFolder walks options.FolderPath and writes the processed version of every
// loadable image to options.OutputDir. Failures of single files are counted, not returned.
func ProcessFolder(ctx context.Context, db *sql.DB, proc *imageprocessor.Processor, options Options) (Stats, error) {
	if proc == nil || proc.Routine == nil {
		return Stats{}, fmt.Errorf("%w: no routine", ErrInvalidOptions)
	}

	options, err := normalizeOptions(options, proc)
	if err != nil {
		return Stats{}, err
	}

	registry := imageio.NewImageLoaderRegistry()

	fileStats := countFilesToProcess(registry, options)
	PrintStartupInfo(fileStats, options, options.Routine)

	var wg sync.WaitGroup
	resultsChan := make(chan ProcessImageResult, 100)
	semaphore := make(chan struct{}, options.MaxWorkers)
	writer := &outputWriter{dir: options.OutputDir, routine: options.Routine, format: options.Format}

	tracker := NewProgressTracker(fileStats, options.Routine, options.Progress, resultsChan)

	startTime := time.Now()
	walkErr := walkAndProcessFiles(ctx, db, proc, registry, writer, options, &wg, resultsChan, semaphore)

	wg.Wait()
	close(resultsChan)
	tracker.Wait()

	stats := tracker.Stats()
	stats.Elapsed = time.Since(startTime)
	PrintCompletionStats(options, stats)

	return stats, walkErr
}

func normalizeOptions(options Options, proc *imageprocessor.Processor) (Options, error) {
	info, err := os.Stat(options.FolderPath)
	if err != nil {
		return options, fmt.Errorf("%w: cannot access folder %s: %w", ErrInvalidOptions, options.FolderPath, err)
	}
	if !info.IsDir() {
		return options, fmt.Errorf("%w: %s is not a directory", ErrInvalidOptions, options.FolderPath)
	}

	if options.OutputDir == "" {
		options.OutputDir = filepath.Join(options.FolderPath, "processed")
	}
	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return options, fmt.Errorf("%w: cannot create output directory: %w", ErrInvalidOptions, err)
	}

	if options.Routine == "" {
		options.Routine = proc.Routine.Name()
	}
	if options.MaxWorkers < 1 {
		options.MaxWorkers = signalhandler.GetOptimalProcs()
	}
	if options.Format == "" {
		options.Format = imageio.FormatPNG
	}
	if !imageio.CanEncode(options.Format) {
		return options, fmt.Errorf("%w: %w: %s", ErrInvalidOptions, imageio.ErrUnsupportedFormat, options.Format)
	}

	return options, nil
}

// countFilesToProcess counts and classifies files to be processed
func countFilesToProcess(registry *imageio.ImageLoaderRegistry, options Options) FileStats {
	stats := FileStats{}

	logging.DebugLog("Starting batch on folder: %s", options.FolderPath)

	filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if isOutputDir(path, options) {
				return filepath.SkipDir
			}
			return nil
		}

		if registry.CanLoadFile(path) {
			stats.totalFiles++
			if imageio.IsRawFormat(path) {
				stats.rawFiles++
			}
		}
		return nil
	})

	return stats
}

// walkAndProcessFiles traverses the directory and processes each file
func walkAndProcessFiles(ctx context.Context, db *sql.DB, proc *imageprocessor.Processor, registry *imageio.ImageLoaderRegistry,
	writer *outputWriter, options Options, wg *sync.WaitGroup, resultsChan chan<- ProcessImageResult, semaphore chan struct{}) error {
	return filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			logging.LogError("Error accessing path %s: %v", path, err)
			return nil
		}
		if info.IsDir() {
			if isOutputDir(path, options) {
				return filepath.SkipDir
			}
			return nil
		}

		if !registry.CanLoadFile(path) {
			return nil
		}

		// Acquire semaphore
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resultsChan <- processAndStoreImage(db, proc, registry, writer, p, options)
		}(path)

		return nil
	})
}

func isOutputDir(path string, options Options) bool {
	if path == options.FolderPath {
		return false
	}
	a, errA := filepath.Abs(path)
	b, errB := filepath.Abs(options.OutputDir)
	return errA == nil && errB == nil && a == b
}

// processAndStoreImage processes a single image and records the outcome
func processAndStoreImage(db *sql.DB, proc *imageprocessor.Processor, registry *imageio.ImageLoaderRegistry,
	writer *outputWriter, path string, options Options) ProcessImageResult {
	result := ProcessImageResult{
		Path:  path,
		IsRaw: imageio.IsRawFormat(path),
	}

	record := types.ProcessRecord{
		Source:  path,
		Routine: options.Routine,
	}

	result.Output, result.Error = processImage(proc, registry, writer, path, &record)
	result.Success = result.Error == nil

	if db != nil {
		record.Output = result.Output
		record.Success = result.Success
		if result.Error != nil {
			record.Error = result.Error.Error()
		}
		if _, err := database.RecordProcessed(db, record); err != nil {
			logging.LogWarning("cannot record history for %s: %v", path, err)
		}
	}

	return result
}

func processImage(proc *imageprocessor.Processor, registry *imageio.ImageLoaderRegistry, writer *outputWriter,
	path string, record *types.ProcessRecord) (string, error) {
	img, err := registry.LoadImage(path)
	if err != nil {
		return "", fmt.Errorf("failed to load image %s: %w", path, err)
	}
	record.Width = img.Width()
	record.Height = img.Height()
	if hash, err := imageprocessor.AverageHash(img); err == nil {
		record.Hash = hash
	} else {
		logging.DebugLog("cannot hash %s: %v", path, err)
	}

	out, err := proc.Process(img)
	if err != nil {
		return "", fmt.Errorf("failed to process image %s: %w", path, err)
	}

	output, err := writer.write(path, out)
	if err != nil {
		return "", fmt.Errorf("cannot write result for %s: %w", path, err)
	}

	return output, nil
}

// outputWriter names and writes result files, never overwriting an existing file
type outputWriter struct {
	dir     string
	routine string
	format  imageio.FormatType
	mu      sync.Mutex
}

// OutputName returns the file name used for the result of processing source
func OutputName(source, routine string, format imageio.FormatType) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return fmt.Sprintf("%s_%s%s", base, routine, imageio.FormatToExtension(format))
}

func (w *outputWriter) reserve(source string) (*os.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := OutputName(source, w.routine, w.format)
	path := filepath.Join(w.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil || !errors.Is(err, os.ErrExist) {
		return f, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(name)
	path = filepath.Join(w.dir, fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), id.String()[:8], ext))
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

func (w *outputWriter) write(source string, img *cvimage.Image) (string, error) {
	f, err := w.reserve(source)
	if err != nil {
		return "", err
	}

	if err := imageio.Encode(f, img, w.format); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}
