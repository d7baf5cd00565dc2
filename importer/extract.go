// Package importer reads slicer preset files and turns their records into
// presets for the library.
package importer

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/devadigapratham/filavault/preset"
	"github.com/goccy/go-json"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither .bbsflmt nor .json.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrInvalidJSON is returned when a plain .json upload cannot be decoded.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// maxEntrySize bounds a single decompressed archive entry
const maxEntrySize = 8 << 20

// Entry is one candidate record together with where it came from
type Entry struct {
	Name string
	Raw  preset.RawRecord
}

// Supported reports whether filename has an extension Extract understands.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".bbsflmt", ".json":
		return true
	}
	return false
}

// Extract decodes the candidate records contained in an uploaded file.
// A .bbsflmt bundle is a zip archive; every entry ending in .json whose name
// does not contain "bundle" is a candidate, and entries that fail to decode are
// skipped. A .json file holds either one record or an array of records.
func Extract(filename string, data []byte) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".bbsflmt":
		return extractBundle(data)
	case ".json":
		return extractJSON(filename, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

func extractBundle(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}

	var entries []Entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".json") || strings.Contains(f.Name, "bundle") {
			continue
		}

		raw, err := readEntry(f)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Name: f.Name, Raw: raw})
	}
	return entries, nil
}

func readEntry(f *zip.File) (preset.RawRecord, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("entry %s exceeds %d bytes", f.Name, maxEntrySize)
	}

	var raw preset.RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func extractJSON(filename string, data []byte) ([]Entry, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var items []any
	switch v := decoded.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil, fmt.Errorf("%w: top level is %T", ErrInvalidJSON, decoded)
	}

	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Name: fmt.Sprintf("%s[%d]", filename, i),
			Raw:  preset.RawRecord(obj),
		})
	}
	return entries, nil
}
