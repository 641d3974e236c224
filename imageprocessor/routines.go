package imageprocessor

import (
	"fmt"
	"image"

	"photosearch/cvimage"

	"gocv.io/x/gocv"
)

// Defaults for the built-in routines
const (
	DefaultBlurKernel = 5
	DefaultEdgeLow    = 50
	DefaultEdgeHigh   = 150
)

// Identity returns a routine that copies its input
func Identity() Routine {
	return RoutineFunc{
		RoutineName:   "identity",
		RoutineLayout: cvimage.LayoutFull,
		Fn: func(src gocv.Mat) (gocv.Mat, error) {
			return src.Clone(), nil
		},
	}
}

// Grayscale returns a routine producing the luminance of its input
func Grayscale() Routine {
	return RoutineFunc{
		RoutineName:   "grayscale",
		RoutineLayout: cvimage.LayoutGray,
		Fn: func(src gocv.Mat) (gocv.Mat, error) {
			// The gray layout already did the work
			return src.Clone(), nil
		},
	}
}

// Blur returns a gaussian blur routine. Even kernel sizes are rounded up.
func Blur(kernel int) Routine {
	if kernel < 1 {
		kernel = DefaultBlurKernel
	}
	if kernel%2 == 0 {
		kernel++
	}

	return RoutineFunc{
		RoutineName:   "blur",
		RoutineLayout: cvimage.LayoutColor,
		Fn: func(src gocv.Mat) (gocv.Mat, error) {
			dst := gocv.NewMat()
			err := gocv.GaussianBlur(src, &dst, image.Pt(kernel, kernel), 0, 0, gocv.BorderDefault)
			return checkOutput(dst, "gaussian blur", err)
		},
	}
}

// Edges returns a Canny edge detection routine
func Edges(low, high float32) Routine {
	return RoutineFunc{
		RoutineName:   "edges",
		RoutineLayout: cvimage.LayoutGray,
		Fn: func(src gocv.Mat) (gocv.Mat, error) {
			dst := gocv.NewMat()
			err := gocv.Canny(src, &dst, low, high)
			return checkOutput(dst, "canny", err)
		},
	}
}

// checkOutput releases and rejects failed or empty results
func checkOutput(dst gocv.Mat, step string, err error) (gocv.Mat, error) {
	if err != nil {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("%s: %w", step, err)
	}
	if cvimage.IsEmpty(dst) {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("%s produced no data", step)
	}
	return dst, nil
}
