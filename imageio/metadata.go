package imageio

import (
	"fmt"

	"github.com/barasher/go-exiftool"
)

// ReadMetadata extracts all metadata fields exiftool knows about
func ReadMetadata(path string) (map[string]interface{}, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool unavailable: %w", err)
	}
	defer et.Close()

	fileInfos := et.ExtractMetadata(path)
	if len(fileInfos) == 0 {
		return nil, fmt.Errorf("no metadata extracted from %s", path)
	}

	fileInfo := fileInfos[0]
	if fileInfo.Err != nil {
		return nil, fmt.Errorf("error extracting metadata from %s: %w", path, fileInfo.Err)
	}

	return fileInfo.Fields, nil
}
