package imageprocessor

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"math/bits"
	"sort"

	"photosearch/cvimage"

	"gocv.io/x/gocv"
)

// ErrHashMismatch is returned when two fingerprints cannot be compared
var ErrHashMismatch = errors.New("fingerprints differ in length")

// AverageHash returns a 64-bit average hash of img as 16 hex digits.
// Each bit is set when the matching cell of an 8x8 grayscale thumbnail is
// at least as bright as the thumbnail mean.
func AverageHash(img *cvimage.Image) (string, error) {
	gray, err := thumbnail(img, 8)
	if err != nil {
		return "", err
	}
	defer gray.Close()

	values := make([]float32, 0, 64)
	var sum float32
	for y := 0; y < gray.Rows(); y++ {
		for x := 0; x < gray.Cols(); x++ {
			v := float32(gray.GetUCharAt(y, x))
			values = append(values, v)
			sum += v
		}
	}

	return packBits(values, sum/float32(len(values))), nil
}

// PerceptualHash returns a 64-bit DCT hash of img as 16 hex digits, built
// from the 8x8 lowest frequencies of a 32x32 thumbnail compared to their median.
func PerceptualHash(img *cvimage.Image) (string, error) {
	gray, err := thumbnail(img, 32)
	if err != nil {
		return "", err
	}
	defer gray.Close()

	floats := gocv.NewMat()
	defer floats.Close()
	if err := gray.ConvertTo(&floats, gocv.MatTypeCV32F); err != nil {
		return "", fmt.Errorf("%w: convert to float: %w", ErrProcessingFailed, err)
	}

	dct := gocv.NewMat()
	defer dct.Close()
	if err := gocv.DCT(floats, &dct, 0); err != nil {
		return "", fmt.Errorf("%w: dct: %w", ErrProcessingFailed, err)
	}
	if dct.Empty() {
		return "", fmt.Errorf("%w: DCT produced no output", ErrProcessingFailed)
	}

	lowFreq := dct.Region(image.Rect(0, 0, 8, 8))
	defer lowFreq.Close()

	values := make([]float32, 0, 64)
	for y := 0; y < lowFreq.Rows(); y++ {
		for x := 0; x < lowFreq.Cols(); x++ {
			values = append(values, lowFreq.GetFloatAt(y, x))
		}
	}

	return packBits(values, median(values)), nil
}

// HammingDistance counts the differing bits of two hex fingerprints
func HammingDistance(a, b string) (int, error) {
	x, err := hex.DecodeString(a)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", a, err)
	}
	y, err := hex.DecodeString(b)
	if err != nil {
		return 0, fmt.Errorf("invalid fingerprint %q: %w", b, err)
	}
	if len(x) != len(y) {
		return 0, ErrHashMismatch
	}

	distance := 0
	for i := range x {
		distance += bits.OnesCount8(x[i] ^ y[i])
	}
	return distance, nil
}

func thumbnail(img *cvimage.Image, size int) (gocv.Mat, error) {
	if img == nil || img.Pixels == nil || img.Bounds().Empty() {
		return gocv.Mat{}, fmt.Errorf("%w: nothing to fingerprint", ErrInvalidInput)
	}

	gray, err := img.GrayMat()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	defer gray.Close()

	resized := gocv.NewMat()
	if err := gocv.Resize(gray, &resized, image.Point{X: size, Y: size}, 0, 0, gocv.InterpolationArea); err != nil {
		resized.Close()
		return gocv.Mat{}, fmt.Errorf("%w: resize: %w", ErrProcessingFailed, err)
	}
	if resized.Empty() {
		resized.Close()
		return gocv.Mat{}, fmt.Errorf("%w: resize produced no data", ErrProcessingFailed)
	}
	return resized, nil
}

func packBits(values []float32, threshold float32) string {
	out := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v >= threshold {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return hex.EncodeToString(out)
}

func median(values []float32) float32 {
	sorted := make([]float32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
