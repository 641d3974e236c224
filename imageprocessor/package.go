// Package imageprocessor runs vision routines over images.
//
// A Processor extracts a matrix from the input image in the layout its
// Routine asks for, hands it to the routine and converts the result back
// into a new image. The routine itself is pluggable.
package imageprocessor

import (
	"photosearch/cvimage"

	"gocv.io/x/gocv"
)

// Routine is the interface that all vision routines must implement
type Routine interface {
	// Name identifies the routine in registries, logs and metrics
	Name() string

	// Layout is the matrix layout the routine expects as input
	Layout() cvimage.Layout

	// Apply transforms src into a new matrix owned by the caller.
	// src must not be retained or closed.
	Apply(src gocv.Mat) (gocv.Mat, error)
}

// RoutineFunc adapts a function to the Routine interface
type RoutineFunc struct {
	RoutineName   string
	RoutineLayout cvimage.Layout
	Fn            func(src gocv.Mat) (gocv.Mat, error)
}

// Name returns the routine name
func (r RoutineFunc) Name() string {
	return r.RoutineName
}

// Layout returns the expected input layout
func (r RoutineFunc) Layout() cvimage.Layout {
	return r.RoutineLayout
}

// Apply calls the wrapped function
func (r RoutineFunc) Apply(src gocv.Mat) (gocv.Mat, error) {
	return r.Fn(src)
}
