package gazetteer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents the dataset encodings a gazetteer can be read from.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatJSON               // array of district objects
	FormatYAML               // sequence of district mappings
	FormatBinary             // msgpack cache written by Export
	FormatSQLite             // "districts" table
)

// FormatInfo contains metadata about a dataset format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	MinSize     int64 // Minimum expected file size in bytes
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatJSON: {
		Format:      FormatJSON,
		Description: "JSON District Dataset",
		Extensions:  []string{".json"},
		MinSize:     2, // "[]"
	},
	FormatYAML: {
		Format:      FormatYAML,
		Description: "YAML District Dataset",
		Extensions:  []string{".yaml", ".yml"},
		MinSize:     2,
	},
	FormatBinary: {
		Format:      FormatBinary,
		Description: "Binary District Cache",
		Extensions:  []string{".bin"},
		MinSize:     4, // fixmap header with version and count
	},
	FormatSQLite: {
		Format:      FormatSQLite,
		Description: "SQLite District Table",
		Extensions:  []string{".db", ".sqlite", ".sqlite3"},
		MinSize:     512, // one page
	},
}

func (f FileFormat) String() string {
	if info, ok := GetFormatInfo(f); ok {
		return info.Description
	}
	return "unknown"
}

// FormatForPath picks a format from the file extension alone.
// Used for output paths that do not exist yet.
func FormatForPath(filename string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, info := range supportedFormats {
		for _, candidate := range info.Extensions {
			if ext == candidate {
				return info.Format, nil
			}
		}
	}
	return FormatUnknown, fmt.Errorf("%w: extension %q (supported: %s)",
		ErrUnknownFormat, ext, strings.Join(SupportedExtensions(), ", "))
}

// ValidateFileFormat checks if a file matches the expected format
func ValidateFileFormat(filename string, expectedFormat FileFormat) error {
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%s is a directory", filename)
	}

	formatInfo, exists := GetFormatInfo(expectedFormat)
	if !exists {
		return fmt.Errorf("%w: %v", ErrUnknownFormat, expectedFormat)
	}

	if fileInfo.Size() < formatInfo.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for format %s (minimum: %d bytes)",
			filename, fileInfo.Size(), formatInfo.Description, formatInfo.MinSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	validExt := false
	for _, validExtension := range formatInfo.Extensions {
		if ext == validExtension {
			validExt = true
			break
		}
	}
	if !validExt {
		return fmt.Errorf("file %s has invalid extension %s for format %s (expected: %v)",
			filename, ext, formatInfo.Description, formatInfo.Extensions)
	}

	if expectedFormat == FormatSQLite {
		return validateSQLiteHeader(filename)
	}

	log.Debugf("Dataset %s validated as %s", filename, formatInfo.Description)
	return nil
}

// sqliteMagic opens every SQLite 3 database file.
const sqliteMagic = "SQLite format 3\x00"

func validateSQLiteHeader(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer file.Close()

	header := make([]byte, len(sqliteMagic))
	if _, err := file.Read(header); err != nil {
		return fmt.Errorf("failed to read header from %s: %w", filename, err)
	}
	if string(header) != sqliteMagic {
		return fmt.Errorf("%s is not a SQLite database", filename)
	}
	return nil
}

// DetectFileFormat works out the format of an existing dataset file.
func DetectFileFormat(filename string) (FileFormat, error) {
	format, err := FormatForPath(filename)
	if err != nil {
		return FormatUnknown, fmt.Errorf("unable to detect format for file %s: %w", filename, err)
	}
	if err := ValidateFileFormat(filename, format); err != nil {
		return FormatUnknown, err
	}
	return format, nil
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// ListSupportedFormats returns all supported formats ordered by id.
func ListSupportedFormats() []FormatInfo {
	formats := make([]FormatInfo, 0, len(supportedFormats))
	for _, info := range supportedFormats {
		formats = append(formats, info)
	}
	sort.Slice(formats, func(i, j int) bool {
		return formats[i].Format < formats[j].Format
	})
	return formats
}

// SupportedExtensions lists every accepted file extension, grouped by format.
func SupportedExtensions() []string {
	var exts []string
	for _, info := range ListSupportedFormats() {
		exts = append(exts, info.Extensions...)
	}
	return exts
}
