package structure

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Format names a supported text structure format
type Format string

const (
	FormatPDB   Format = "pdb"
	FormatMMCIF Format = "mmcif"
)

// Parse parses structure data in the given format
func Parse(data []byte, format Format, name string) (*Structure, error) {
	switch format {
	case FormatPDB:
		return ParsePDB(bytes.NewReader(data), name)
	case FormatMMCIF:
		return ParseMMCIF(bytes.NewReader(data), name)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// DetectFormat guesses the format from the leading bytes of the data
func DetectFormat(data []byte) Format {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("data_")) || bytes.Contains(head, []byte("_atom_site.")) {
		return FormatMMCIF
	}
	return FormatPDB
}

// ParseFile reads a structure file from disk.
// The format is taken from the extension and falls back to content sniffing.
func ParseFile(path string) (*Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdb", ".ent":
		return Parse(data, FormatPDB, name)
	case ".cif", ".mmcif":
		return Parse(data, FormatMMCIF, name)
	case ".bcif":
		return nil, fmt.Errorf("binary CIF is not supported: %s", path)
	}
	return Parse(data, DetectFormat(data), name)
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
