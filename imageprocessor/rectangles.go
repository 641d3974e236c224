package imageprocessor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"photosearch/cvimage"
	"photosearch/logging"

	"gocv.io/x/gocv"
)

// RectangleOptions tunes rectangle detection
type RectangleOptions struct {
	// MaxObservations caps the number of results, 0 means unlimited
	MaxObservations int
	// MinConfidence is the minimum ratio of quadrilateral area to bounding box area
	MinConfidence float64
	// MinAspectRatio is the minimum ratio of the short side to the long side
	MinAspectRatio float64
	// MinSize is the minimum bounding box area as a fraction of the image area
	MinSize float64
	// Thickness of the outline drawn around detections
	Thickness int
}

// DefaultRectangleOptions returns the options used by the built-in routine
func DefaultRectangleOptions() RectangleOptions {
	return RectangleOptions{
		MaxObservations: 1,
		MinConfidence:   0.8,
		MinAspectRatio:  0.3,
		MinSize:         0.01,
		Thickness:       2,
	}
}

// Observation is a detected rectangle
type Observation struct {
	Bounds      image.Rectangle `json:"bounds"`
	Corners     []image.Point   `json:"corners"`
	Confidence  float64         `json:"confidence"`
	AspectRatio float64         `json:"aspect_ratio"`
}

var outlineColor = color.RGBA{G: 255, A: 255}

// Rectangles returns a routine that outlines the rectangles found in an image
func Rectangles(opts RectangleOptions) Routine {
	return RoutineFunc{
		RoutineName:   "rectangles",
		RoutineLayout: cvimage.LayoutColor,
		Fn: func(src gocv.Mat) (gocv.Mat, error) {
			if cvimage.IsEmpty(src) {
				return gocv.Mat{}, fmt.Errorf("empty input")
			}
			if src.Channels() != 3 {
				return gocv.Mat{}, fmt.Errorf("expected 3 channels, got %d", src.Channels())
			}

			observations := DetectRectangles(src, opts)

			dst := src.Clone()
			for _, o := range observations {
				pv := gocv.NewPointsVectorFromPoints([][]image.Point{o.Corners})
				err := gocv.DrawContours(&dst, pv, -1, outlineColor, opts.Thickness)
				pv.Close()
				if err != nil {
					dst.Close()
					return gocv.Mat{}, fmt.Errorf("draw contours: %w", err)
				}
			}

			return dst, nil
		},
	}
}

// DetectRectangles finds quadrilaterals in a BGR or gray matrix, best first
func DetectRectangles(src gocv.Mat, opts RectangleOptions) []Observation {
	if cvimage.IsEmpty(src) {
		return nil
	}

	gray := gocv.NewMat()
	defer gray.Close()

	var err error
	switch src.Channels() {
	case 1:
		err = src.CopyTo(&gray)
	case 4:
		err = gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	default:
		err = gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	}
	if err != nil {
		logging.DebugLog("rectangle detection: gray conversion: %v", err)
		return nil
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	if err := gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault); err != nil {
		logging.DebugLog("rectangle detection: gaussian blur: %v", err)
		return nil
	}

	edges := gocv.NewMat()
	defer edges.Close()
	if err := gocv.Canny(blurred, &edges, DefaultEdgeLow, DefaultEdgeHigh); err != nil {
		logging.DebugLog("rectangle detection: canny: %v", err)
		return nil
	}

	// Close small gaps in the edge map so outlines form a single contour
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	dilated := gocv.NewMat()
	defer dilated.Close()
	if err := gocv.Dilate(edges, &dilated, kernel); err != nil {
		logging.DebugLog("rectangle detection: dilate: %v", err)
		return nil
	}

	contours := gocv.FindContours(dilated, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	imageArea := float64(src.Rows() * src.Cols())

	var observations []Observation
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		approx := gocv.ApproxPolyDP(contour, 0.02*gocv.ArcLength(contour, true), true)
		if approx.Size() != 4 {
			approx.Close()
			continue
		}

		bounds := gocv.BoundingRect(approx)
		boxArea := float64(bounds.Dx() * bounds.Dy())
		if boxArea == 0 || boxArea < opts.MinSize*imageArea {
			approx.Close()
			continue
		}

		aspect := float64(min(bounds.Dx(), bounds.Dy())) / float64(max(bounds.Dx(), bounds.Dy()))
		confidence := math.Min(1, gocv.ContourArea(approx)/boxArea)
		corners := approx.ToPoints()
		approx.Close()

		if aspect < opts.MinAspectRatio || confidence < opts.MinConfidence {
			continue
		}

		observations = append(observations, Observation{
			Bounds:      bounds,
			Corners:     corners,
			Confidence:  confidence,
			AspectRatio: aspect,
		})
	}

	sort.SliceStable(observations, func(i, j int) bool {
		if observations[i].Confidence != observations[j].Confidence {
			return observations[i].Confidence > observations[j].Confidence
		}
		return area(observations[i].Bounds) > area(observations[j].Bounds)
	})

	if opts.MaxObservations > 0 && len(observations) > opts.MaxObservations {
		observations = observations[:opts.MaxObservations]
	}

	return observations
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
