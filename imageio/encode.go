package imageio

import (
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"photosearch/cvimage"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// JPEGQuality is the quality used when writing JPEG files
const JPEGQuality = 90

// CanEncode reports whether images can be written in the given format
func CanEncode(format FormatType) bool {
	switch format {
	case FormatPNG, FormatJPEG, FormatGIF, FormatTIFF, FormatBMP:
		return true
	}
	return false
}

// Encode writes img to w in the given format
func Encode(w io.Writer, img *cvimage.Image, format FormatType) error {
	if img == nil || img.Pixels == nil {
		return fmt.Errorf("%w: nil image", cvimage.ErrEncodeFailed)
	}

	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(w, img.Pixels)
	case FormatJPEG:
		err = jpeg.Encode(w, img.Pixels, &jpeg.Options{Quality: JPEGQuality})
	case FormatGIF:
		err = gif.Encode(w, img.Pixels, nil)
	case FormatTIFF:
		err = tiff.Encode(w, img.Pixels, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		err = bmp.Encode(w, img.Pixels)
	default:
		return fmt.Errorf("%w: cannot encode %s", ErrUnsupportedFormat, format)
	}

	if err != nil {
		return fmt.Errorf("%w: %w", cvimage.ErrEncodeFailed, err)
	}
	return nil
}

// Save writes img to path, choosing the format from the extension
func Save(path string, img *cvimage.Image) error {
	format := GetFileFormat(path)
	if !CanEncode(format) {
		return fmt.Errorf("%w: cannot write %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Encode(f, img, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	return f.Close()
}
