package imageprocessor

import (
	"errors"
	"fmt"
	"time"

	"photosearch/cvimage"
	"photosearch/logging"
	"photosearch/metrics"
)

// Errors returned by Process
var (
	ErrInvalidInput     = errors.New("invalid input image")
	ErrProcessingFailed = errors.New("vision routine failed")
	ErrUnknownRoutine   = errors.New("unknown routine")
)

// Processor applies a single routine to images
type Processor struct {
	Routine Routine
}

// New creates a processor for the given routine
func New(routine Routine) *Processor {
	return &Processor{
		Routine: routine,
	}
}

// Process returns a new image with the routine applied. It never returns the
// input image: on failure the result is nil.
func (p *Processor) Process(img *cvimage.Image) (*cvimage.Image, error) {
	if p == nil || p.Routine == nil {
		return nil, fmt.Errorf("%w: no routine configured", ErrProcessingFailed)
	}

	name := p.Routine.Name()
	start := time.Now()

	out, err := p.process(img)
	metrics.ObserveProcess(name, time.Since(start), err)
	if err != nil {
		logging.LogWarning("routine %s failed: %v", name, err)
		return nil, err
	}

	logging.DebugLog("routine %s produced %dx%d image in %v", name, out.Width(), out.Height(), time.Since(start))
	return out, nil
}

func (p *Processor) process(img *cvimage.Image) (*cvimage.Image, error) {
	if img == nil || img.Pixels == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: zero dimensions", ErrInvalidInput)
	}

	src, err := img.MatLayout(p.Routine.Layout())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	defer src.Close()

	dst, err := p.Routine.Apply(src)
	if err != nil {
		dst.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrProcessingFailed, p.Routine.Name(), err)
	}
	defer dst.Close()

	if cvimage.IsEmpty(dst) {
		return nil, fmt.Errorf("%w: %s returned an empty matrix", ErrProcessingFailed, p.Routine.Name())
	}

	out, err := cvimage.FromMat(dst)
	if err != nil {
		return nil, err
	}

	if img.Scale > 0 {
		out.Scale = img.Scale
	}

	return out, nil
}
