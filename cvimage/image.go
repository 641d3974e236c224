// Package cvimage converts between Go raster images and OpenCV matrices.
//
// Matrices always hold 8-bit unsigned elements in OpenCV channel order:
// BGRA for four channels, BGR for three, a single luminance plane for one.
package cvimage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Errors returned by the conversions
var (
	ErrDecodeFailed = errors.New("image cannot be read into a matrix")
	ErrEncodeFailed = errors.New("matrix cannot be written into an image")
)

// ColorSpace is the color space of an image's pixel buffer
type ColorSpace int

// Known color spaces
const (
	ColorSpaceUnknown ColorSpace = iota
	ColorSpaceRGB
	ColorSpaceGray
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceRGB:
		return "rgb"
	case ColorSpaceGray:
		return "gray"
	default:
		return "unknown"
	}
}

// Layout selects the channel layout of an extracted matrix
type Layout int

// Matrix layouts
const (
	LayoutFull  Layout = iota // BGRA, alpha preserved
	LayoutColor               // BGR, alpha dropped
	LayoutGray                // single luminance channel
)

// Channels returns the number of channels a matrix in this layout has
func (l Layout) Channels() int {
	switch l {
	case LayoutColor:
		return 3
	case LayoutGray:
		return 1
	default:
		return 4
	}
}

func (l Layout) String() string {
	switch l {
	case LayoutColor:
		return "color"
	case LayoutGray:
		return "gray"
	default:
		return "full"
	}
}

// Image is a raster image together with its display scale factor.
// The zero value is an empty image; use New, FromMat or SetMat to fill it.
type Image struct {
	Pixels image.Image
	Scale  float64
}

// New wraps a pixel buffer with a scale factor of 1
func New(pixels image.Image) *Image {
	return &Image{
		Pixels: pixels,
		Scale:  1,
	}
}

// Bounds returns the pixel bounds, or an empty rectangle for an empty image
func (i *Image) Bounds() image.Rectangle {
	if i == nil || i.Pixels == nil {
		return image.Rectangle{}
	}
	return i.Pixels.Bounds()
}

// Width returns the width in pixels
func (i *Image) Width() int {
	return i.Bounds().Dx()
}

// Height returns the height in pixels
func (i *Image) Height() int {
	return i.Bounds().Dy()
}

// ColorSpace reports the color space of the pixel buffer
func (i *Image) ColorSpace() ColorSpace {
	if i == nil || i.Pixels == nil {
		return ColorSpaceUnknown
	}

	m := i.Pixels.ColorModel()
	if _, ok := m.(color.Palette); ok {
		return ColorSpaceRGB
	}

	switch m {
	case color.GrayModel, color.Gray16Model:
		return ColorSpaceGray
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model,
		color.YCbCrModel, color.NYCbCrAModel:
		return ColorSpaceRGB
	}

	return ColorSpaceUnknown
}

// validate checks that the image can be read into a matrix
func (i *Image) validate() error {
	if i == nil || i.Pixels == nil {
		return fmt.Errorf("%w: nil image", ErrDecodeFailed)
	}

	if i.Bounds().Empty() {
		return fmt.Errorf("%w: zero dimensions %v", ErrDecodeFailed, i.Bounds())
	}

	if cs := i.ColorSpace(); cs == ColorSpaceUnknown {
		return fmt.Errorf("%w: unsupported color space %T", ErrDecodeFailed, i.Pixels.ColorModel())
	}

	return nil
}
