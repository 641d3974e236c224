package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
)

// MaxPreviewSize bounds a single embedded JPEG
const MaxPreviewSize = 20 << 20

var (
	jpegStart = []byte{0xFF, 0xD8, 0xFF}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// ErrNoPreview is returned when a file holds no decodable embedded JPEG
var ErrNoPreview = errors.New("no embedded JPEG found")

// EmbeddedPreview scans r for embedded JPEG streams and returns the one with
// the most pixels. Camera RAW containers (CR2, CR3, NEF, ARW, DNG) store
// their previews this way.
func EmbeddedPreview(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var best []byte
	bestPixels := 0

	for pos := 0; pos < len(data); {
		start := bytes.Index(data[pos:], jpegStart)
		if start < 0 {
			break
		}
		start += pos

		candidate, ok := jpegAt(data, start)
		if !ok {
			pos = start + len(jpegStart)
			continue
		}

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(candidate))
		if err != nil {
			pos = start + len(jpegStart)
			continue
		}

		if pixels := cfg.Width * cfg.Height; pixels > bestPixels {
			best, bestPixels = candidate, pixels
		}
		pos = start + len(candidate)
	}

	if best == nil {
		return nil, ErrNoPreview
	}
	return best, nil
}

// jpegAt returns the JPEG stream starting at data[start]. Nested thumbnails
// end with their own EOI marker, so every EOI is tried until the stream decodes.
func jpegAt(data []byte, start int) ([]byte, bool) {
	limit := len(data)
	if limit-start > MaxPreviewSize {
		limit = start + MaxPreviewSize
	}

	for pos := start + len(jpegStart); pos < limit; {
		end := bytes.Index(data[pos:limit], jpegEnd)
		if end < 0 {
			return nil, false
		}
		end += pos + len(jpegEnd)

		candidate := data[start:end]
		if _, err := jpeg.Decode(bytes.NewReader(candidate)); err == nil {
			return candidate, true
		}
		pos = end
	}

	return nil, false
}

// describePreview is used in log lines
func describePreview(data []byte) string {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Sprintf("%d bytes", len(data))
	}
	return fmt.Sprintf("%dx%d, %d bytes", cfg.Width, cfg.Height, len(data))
}
