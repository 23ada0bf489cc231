// Package archive reads storefront album zips: it classifies the codec family
// from entry names and extracts entries into a staging directory without
// letting any entry escape it.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bandcamp-expand/internal/models"
)

// ErrFormat is returned when a file cannot be read as a zip container.
var ErrFormat = errors.New("not a readable zip archive")

// codecSuffixes maps lowercase entry name suffixes to codec families.
var codecSuffixes = []struct {
	suffix string
	codec  models.Codec
}{
	{".flac", models.CodecFLAC},
	{".aac", models.CodecAAC},
	{".m4a", models.CodecAAC},
}

// Archive is an opened zip. The same handle serves Sniff and Extract.
type Archive struct {
	path   string
	reader *zip.ReadCloser
}

// Open opens the zip at path read-only.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if errors.Is(err, zip.ErrInsecurePath) {
		// Traversal entries are filtered per entry during Extract.
		err = nil
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, err
		}
		return nil, fmt.Errorf("open %s: %w: %v", path, ErrFormat, err)
	}
	return &Archive{path: path, reader: rc}, nil
}

// Close releases the underlying file. Closing twice is a no-op.
func (a *Archive) Close() error {
	if a.reader == nil {
		return nil
	}
	err := a.reader.Close()
	a.reader = nil
	return err
}

// Names returns every entry name in enumeration order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.reader.File))
	for i, f := range a.reader.File {
		names[i] = f.Name
	}
	return names
}

// Sniff returns the codec family of the first entry with a recognized
// extension. Archives are assumed not to mix families.
func (a *Archive) Sniff() models.Codec {
	return Classify(a.Names())
}

// Classify returns the codec of the first recognized name, or CodecUnknown.
func Classify(names []string) models.Codec {
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, s := range codecSuffixes {
			if strings.HasSuffix(lower, s.suffix) {
				return s.codec
			}
		}
	}
	return models.CodecUnknown
}

// ExtractResult summarises an extraction.
type ExtractResult struct {
	Files    int
	Bytes    int64
	Rejected []string
}

// Extract writes every entry below dest, which must already exist. Entries
// whose cleaned path falls outside dest are skipped and listed in
// Rejected. onEntry, when non-nil, is called before each file is written.
// Existing files are never overwritten.
func (a *Archive) Extract(dest string, onEntry func(name string)) (ExtractResult, error) {
	var result ExtractResult

	root, err := filepath.Abs(dest)
	if err != nil {
		return result, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return result, err
	}
	if !info.IsDir() {
		return result, fmt.Errorf("extract target %s is not a directory", root)
	}

	for _, f := range a.reader.File {
		target, ok := containedPath(root, f.Name)
		if !ok {
			result.Rejected = append(result.Rejected, f.Name)
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return result, err
			}
			continue
		}

		if onEntry != nil {
			onEntry(f.Name)
		}
		n, err := extractFile(f, target)
		if err != nil {
			return result, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		result.Files++
		result.Bytes += n
	}

	return result, nil
}

// containedPath joins name onto root and reports whether the cleaned result
// is root itself or lies below it. The comparison is byte-wise.
func containedPath(root, name string) (string, bool) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target == root {
		return target, true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return target, strings.HasPrefix(target, prefix)
}

func extractFile(f *zip.File, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}

	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) {
			return n, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return n, err
	}
	return n, dst.Close()
}
