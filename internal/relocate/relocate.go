// Package relocate moves a staged extraction tree into the music library.
//
// Files are copied, never renamed across filesystems, and an existing file in
// the library is never replaced: the first collision stops the copy. Only a
// complete copy is followed by removal of the staging tree and the archive.
package relocate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"bandcamp-expand/internal/models"
)

var (
	ErrUnrecognizedCodec = errors.New("no FLAC or AAC files found inside archive")
	ErrDestinationExists = errors.New("destination file already exists")
)

// DestinationRoot returns the codec subtree of musicRoot, e.g. <musicRoot>/FLAC.
func DestinationRoot(musicRoot string, codec models.Codec) (string, error) {
	switch codec {
	case models.CodecFLAC, models.CodecAAC:
		return filepath.Join(musicRoot, codec.String()), nil
	default:
		return "", ErrUnrecognizedCodec
	}
}

// CopyTree copies every file and directory below src into dst, creating
// directories as needed. It returns the number of bytes copied.
func CopyTree(src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("copy source %s is not a directory", src)
	}

	var total int64
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		n, err := copyFile(path, target)
		total += n
		return err
	})
	return total, err
}

// copyFile copies src to a new file at dst. dst must not exist.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, fmt.Errorf("%s: %w", dst, ErrDestinationExists)
		}
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	return n, out.Close()
}

// Relocate copies the archive's artist staging tree into its destination,
// then deletes the staging tree and finally the archive itself.
func Relocate(a models.Archive) (int64, error) {
	if a.ArtistStagingDir == "" || a.DestinationDir == "" {
		return 0, errors.New("relocate: staging and destination directories are required")
	}

	n, err := CopyTree(a.ArtistStagingDir, a.DestinationDir)
	if err != nil {
		return n, fmt.Errorf("copy %s to %s: %w", a.ArtistStagingDir, a.DestinationDir, err)
	}
	if err := os.RemoveAll(a.ArtistStagingDir); err != nil {
		return n, fmt.Errorf("remove staging tree: %w", err)
	}
	if err := os.Remove(a.Path); err != nil {
		return n, fmt.Errorf("remove archive: %w", err)
	}
	return n, nil
}
