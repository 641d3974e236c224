package cvimage

import (
	"fmt"
	"image"
	"runtime"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// FromMat creates an image from a matrix with 1, 3 or 4 channels
func FromMat(m gocv.Mat) (*Image, error) {
	img := &Image{}
	if err := img.SetMat(m); err != nil {
		return nil, err
	}
	return img, nil
}

// IsEmpty reports whether m holds no data. The zero value gocv.Mat{} and
// closed matrices count as empty.
func IsEmpty(m gocv.Mat) bool {
	return m.Closed() || m.Empty()
}

// SetMat initializes the image in place from a matrix with 1, 3 or 4 channels.
// On error the receiver is left untouched.
func (i *Image) SetMat(m gocv.Mat) error {
	if IsEmpty(m) || m.Rows() == 0 || m.Cols() == 0 {
		return fmt.Errorf("%w: empty matrix", ErrEncodeFailed)
	}

	var channels int
	switch m.Type() {
	case gocv.MatTypeCV8UC1:
		channels = 1
	case gocv.MatTypeCV8UC3:
		channels = 3
	case gocv.MatTypeCV8UC4:
		channels = 4
	default:
		return fmt.Errorf("%w: unsupported matrix type %v with %d channels", ErrEncodeFailed, m.Type(), m.Channels())
	}

	data := matBytes(m)
	rows, cols := m.Rows(), m.Cols()
	if len(data) != rows*cols*channels {
		return fmt.Errorf("%w: matrix holds %d bytes, expected %d", ErrEncodeFailed, len(data), rows*cols*channels)
	}

	rect := image.Rect(0, 0, cols, rows)
	if channels == 1 {
		gray := image.NewGray(rect)
		copy(gray.Pix, data)
		i.Pixels = gray
		i.Scale = 1
		return nil
	}

	nrgba := image.NewNRGBA(rect)
	for p, q := 0, 0; q < len(data); p, q = p+4, q+channels {
		nrgba.Pix[p+0] = data[q+2]
		nrgba.Pix[p+1] = data[q+1]
		nrgba.Pix[p+2] = data[q+0]
		if channels == 4 {
			nrgba.Pix[p+3] = data[q+3]
		} else {
			nrgba.Pix[p+3] = 0xff
		}
	}

	i.Pixels = nrgba
	i.Scale = 1
	return nil
}

// Mat returns a 4 channel BGRA matrix. Images without an alpha channel
// are given an opaque one. The caller must Close the matrix.
func (i *Image) Mat() (gocv.Mat, error) {
	return i.colorMat(4)
}

// Mat3 returns a 3 channel BGR matrix with the alpha channel dropped.
// The caller must Close the matrix.
func (i *Image) Mat3() (gocv.Mat, error) {
	return i.colorMat(3)
}

// GrayMat returns a single channel luminance matrix. Gray images are copied
// verbatim, color images are reduced with 0.299R + 0.587G + 0.114B.
// The caller must Close the matrix.
func (i *Image) GrayMat() (gocv.Mat, error) {
	if err := i.validate(); err != nil {
		return gocv.Mat{}, err
	}

	if i.ColorSpace() == ColorSpaceGray {
		gray := i.gray()
		b := gray.Bounds()
		buf := make([]byte, b.Dx()*b.Dy())
		for y := 0; y < b.Dy(); y++ {
			off := gray.PixOffset(b.Min.X, b.Min.Y+y)
			copy(buf[y*b.Dx():(y+1)*b.Dx()], gray.Pix[off:off+b.Dx()])
		}
		return newMat(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, buf)
	}

	bgr, err := i.colorMat(3)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	if err := gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return gocv.Mat{}, fmt.Errorf("%w: grayscale conversion: %w", ErrDecodeFailed, err)
	}
	if gray.Empty() {
		gray.Close()
		return gocv.Mat{}, fmt.Errorf("%w: grayscale conversion produced no data", ErrDecodeFailed)
	}

	return gray, nil
}

// MatLayout extracts a matrix in the given layout
func (i *Image) MatLayout(l Layout) (gocv.Mat, error) {
	switch l {
	case LayoutColor:
		return i.Mat3()
	case LayoutGray:
		return i.GrayMat()
	default:
		return i.Mat()
	}
}

func (i *Image) colorMat(channels int) (gocv.Mat, error) {
	if err := i.validate(); err != nil {
		return gocv.Mat{}, err
	}

	src := i.nrgba()
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	buf := make([]byte, w*h*channels)
	q := 0
	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			p := x * 4
			buf[q+0] = row[p+2]
			buf[q+1] = row[p+1]
			buf[q+2] = row[p+0]
			if channels == 4 {
				buf[q+3] = row[p+3]
			}
			q += channels
		}
	}

	mt := gocv.MatTypeCV8UC3
	if channels == 4 {
		mt = gocv.MatTypeCV8UC4
	}
	return newMat(h, w, mt, buf)
}

// nrgba returns the pixels as non-premultiplied RGBA. NRGBA sources are
// returned as is and must not be modified.
func (i *Image) nrgba() *image.NRGBA {
	if src, ok := i.Pixels.(*image.NRGBA); ok {
		return src
	}

	b := i.Pixels.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), i.Pixels, b.Min, draw.Src)
	return dst
}

func (i *Image) gray() *image.Gray {
	if src, ok := i.Pixels.(*image.Gray); ok {
		return src
	}

	b := i.Pixels.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), i.Pixels, b.Min, draw.Src)
	return dst
}

// newMat copies buf into a matrix owned by OpenCV
func newMat(rows, cols int, mt gocv.MatType, buf []byte) (gocv.Mat, error) {
	view, err := gocv.NewMatFromBytes(rows, cols, mt, buf)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	defer view.Close()

	m := view.Clone()
	runtime.KeepAlive(buf)
	return m, nil
}

// matBytes returns a copy of the matrix data in row-major order
func matBytes(m gocv.Mat) []byte {
	if !m.IsContinuous() {
		c := m.Clone()
		defer c.Close()
		return c.ToBytes()
	}
	return m.ToBytes()
}
