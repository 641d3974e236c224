package utils

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	// Get the executable path
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "photosearch.db"
	}

	// Return the default database path next to the executable
	return filepath.Join(filepath.Dir(exePath), "photosearch.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage(w io.Writer, global *flag.FlagSet) {
	name := filepath.Base(os.Args[0])

	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s [global flags] process -image=PATH -routine=NAME [-output=PATH]\n", name)
	fmt.Fprintf(w, "  %s [global flags] batch -folder=PATH -routine=NAME [-output=DIR] [-format=png]\n", name)
	fmt.Fprintf(w, "  %s [global flags] search -query=TEXT [-page=N] [-per-page=N] [-process=INDEX -routine=NAME -output=PATH]\n", name)
	fmt.Fprintf(w, "  %s [global flags] favorites [list | add ID | remove ID | show INDEX]\n", name)
	fmt.Fprintf(w, "  %s [global flags] routines\n", name)
	fmt.Fprintf(w, "  %s [global flags] info [-image=PATH]\n", name)
	fmt.Fprintf(w, "  %s [global flags] serve\n", name)

	if global != nil {
		fmt.Fprintf(w, "\nGlobal flags (also read from PHOTOSEARCH_* environment variables):\n")
		global.SetOutput(w)
		global.PrintDefaults()
	}

	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s process -image=photo.jpg -routine=rectangles -output=found.png\n", name)
	fmt.Fprintf(w, "  %s -workers=4 batch -folder=/path/to/images -routine=grayscale\n", name)
	fmt.Fprintf(w, "  %s -unsplash-client-id=KEY search -query=mountains\n", name)
}

// ParseIndex parses a non-negative list index
func ParseIndex(value string) (int, error) {
	index, err := strconv.Atoi(value)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index '%s'", value)
	}
	return index, nil
}
