// Package imageio loads images from disk or streams and writes processed
// images back out.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"photosearch/cvimage"
	"photosearch/logging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gocv.io/x/gocv"
)

// Errors returned while loading or saving images
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrLoadFailed        = errors.New("failed to load image")
)

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads and returns the image
	LoadImage(path string) (*cvimage.Image, error)
}

// Decode reads an image in any registered format from r
func Decode(r io.Reader) (*cvimage.Image, FormatType, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return cvimage.New(img), FormatType(name), nil
}

// StandardImageLoader handles formats with a Go decoder and falls back to
// OpenCV for the rest
type StandardImageLoader struct{}

// CanLoad checks the extension and that the file exists
func (l *StandardImageLoader) CanLoad(path string) bool {
	return IsImageFile(path) && !IsRawFormat(path) && fileExists(path)
}

// LoadImage decodes the file
func (l *StandardImageLoader) LoadImage(path string) (*cvimage.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	if err == nil {
		return img, nil
	}

	logging.DebugLog("Go decoders could not read %s (%v), trying OpenCV", path, err)
	return loadWithOpenCV(path)
}

// loadWithOpenCV reads formats only OpenCV understands, such as PNM
func loadWithOpenCV(path string) (*cvimage.Image, error) {
	m := gocv.IMRead(path, gocv.IMReadColor)
	defer m.Close()

	if m.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrLoadFailed, path)
	}
	return cvimage.FromMat(m)
}

// RawImageLoader handles RAW camera formats. It prefers the embedded preview
// as extracted by exiftool, then a dcraw conversion, and finally scans the
// file itself for the largest embedded JPEG.
type RawImageLoader struct {
	// Tags are tried in order until one yields a decodable image
	Tags []string
}

// NewRawImageLoader creates a new loader for RAW files
func NewRawImageLoader() *RawImageLoader {
	return &RawImageLoader{
		Tags: []string{"JpgFromRaw", "LargestImagePreview", "PreviewImage", "ThumbnailImage"},
	}
}

// CanLoad checks that the file is RAW and exists
func (l *RawImageLoader) CanLoad(path string) bool {
	return IsRawFormat(path) && fileExists(path)
}

// LoadImage extracts and decodes the best available rendition
func (l *RawImageLoader) LoadImage(path string) (*cvimage.Image, error) {
	logging.LogInfo("Loading RAW image: %s", path)

	if hasExiftool() {
		if img, err := l.loadExiftoolPreview(path); err == nil {
			return img, nil
		}
	}

	if hasDcraw() {
		img, err := loadWithDcraw(path)
		if err == nil {
			return img, nil
		}
		logging.LogWarning("dcraw conversion failed for %s: %v", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	defer f.Close()

	data, err := EmbeddedPreview(f)
	if err != nil {
		return nil, fmt.Errorf("%w: no usable preview in RAW file %s: %w", ErrLoadFailed, path, err)
	}

	img, _, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	logging.DebugLog("Loaded embedded preview (%s) from %s", describePreview(data), path)
	return img, nil
}

func (l *RawImageLoader) loadExiftoolPreview(path string) (*cvimage.Image, error) {
	for _, tag := range l.Tags {
		var stdout, stderr bytes.Buffer
		cmd := exec.Command("exiftool", "-b", "-"+tag, path)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			logging.LogWarning("exiftool %s extraction failed for %s: %v, stderr: %s", tag, path, err, stderr.String())
			continue
		}
		if stdout.Len() == 0 {
			continue
		}

		img, _, err := Decode(&stdout)
		if err != nil {
			logging.LogWarning("%s preview of %s could not be decoded: %v", tag, path, err)
			continue
		}

		logging.DebugLog("Loaded %s preview from %s", tag, path)
		return img, nil
	}

	return nil, fmt.Errorf("%w: exiftool found no preview in %s", ErrLoadFailed, path)
}

// loadWithDcraw develops the RAW data with camera white balance and decodes
// the PPM written to stdout
func loadWithDcraw(path string) (*cvimage.Image, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command("dcraw", "-c", "-w", "-q", "3", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w, stderr: %s", err, stderr.String())
	}

	m, err := gocv.IMDecode(stdout.Bytes(), gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	if m.Empty() {
		return nil, fmt.Errorf("%w: dcraw output of %s could not be decoded", ErrLoadFailed, path)
	}
	return cvimage.FromMat(m)
}

// ImageLoaderRegistry maintains a registry of image loaders keyed by extension
type ImageLoaderRegistry struct {
	loaders       map[string]ImageLoader
	defaultLoader ImageLoader
	mutex         sync.RWMutex
}

// NewImageLoaderRegistry creates a new image loader registry
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := &StandardImageLoader{}
	rawLoader := NewRawImageLoader()

	for ext := range formatExtensions {
		if IsRawFormat(ext) {
			registry.RegisterLoader(ext, rawLoader)
		} else {
			registry.RegisterLoader(ext, standardLoader)
		}
	}

	registry.defaultLoader = standardLoader
	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the appropriate loader for the given path
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if loader, ok := r.loaders[ext]; ok {
		return loader
	}
	return r.defaultLoader
}

// CanLoadFile checks if a registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	return r.GetLoader(path).CanLoad(path)
}

// LoadImage loads an image using the appropriate registered loader
func (r *ImageLoaderRegistry) LoadImage(path string) (*cvimage.Image, error) {
	loader := r.GetLoader(path)
	if !loader.CanLoad(path) {
		return nil, fmt.Errorf("%w: no loader can read %s", ErrUnsupportedFormat, path)
	}
	return loader.LoadImage(path)
}

var defaultRegistry = NewImageLoaderRegistry()

// Load loads an image from disk with the default registry
func Load(path string) (*cvimage.Image, error) {
	return defaultRegistry.LoadImage(path)
}

// fileExists checks if a file exists and is accessible
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// hasExiftool checks if the exiftool binary is on the PATH
func hasExiftool() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}

// hasDcraw checks if the dcraw binary is on the PATH
func hasDcraw() bool {
	_, err := exec.LookPath("dcraw")
	return err == nil
}
