package models

import (
	"path/filepath"
	"time"
)

// Codec is the audio codec family found inside an archive.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecFLAC
	CodecAAC
)

// String returns the codec name, which is also the library subtree name.
func (c Codec) String() string {
	switch c {
	case CodecFLAC:
		return "FLAC"
	case CodecAAC:
		return "AAC"
	default:
		return "unknown"
	}
}

// Identity is the artist and album derived from an archive filename.
type Identity struct {
	Artist string
	Album  string
}

// Archive describes one downloaded album archive and where its files go.
type Archive struct {
	Path  string
	Name  string
	Codec Codec
	Identity

	// StagingDir is <stagingRoot>/<Artist>/<Album>, the extraction target.
	StagingDir string
	// ArtistStagingDir is <stagingRoot>/<Artist>, the tree that gets copied.
	ArtistStagingDir string
	// DestinationDir is <musicRoot>/<Codec>/<Artist>.
	DestinationDir string
}

// AlbumDir returns the library directory holding this archive's album.
func (a Archive) AlbumDir() string {
	if a.DestinationDir == "" {
		return ""
	}
	return filepath.Join(a.DestinationDir, a.Album)
}

// Track represents the metadata read from a single relocated audio file.
type Track struct {
	RelativePath    string    `json:"relative_path"`
	Filename        string    `json:"filename"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist,omitempty"`
	Album           string    `json:"album,omitempty"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	FilesizeBytes   int64     `json:"filesize_bytes"`
	ModifiedAt      time.Time `json:"modified_at"`
}
