package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"bandcamp-expand/internal/archive"
	"bandcamp-expand/internal/config"
	"bandcamp-expand/internal/display"
	"bandcamp-expand/internal/metadata"
	"bandcamp-expand/internal/models"
	"bandcamp-expand/internal/naming"
	"bandcamp-expand/internal/relocate"
)

// Expander moves album archives from the source directory into the library.
type Expander struct {
	settings config.Settings
	logger   *log.Logger
	observer Observer
}

type outcome struct {
	bytes  int64
	tracks int
}

// NewExpander returns an expander for settings, which should already be
// normalized. A nil observer discards progress events.
func NewExpander(settings config.Settings, logger *log.Logger, observer Observer) *Expander {
	if logger == nil {
		logger = log.Default()
	}
	if observer == nil {
		observer = discardObserver{}
	}
	return &Expander{settings: settings, logger: logger, observer: observer}
}

// Run processes every archive in the source directory in name order.
func (e *Expander) Run(ctx context.Context) RunStats {
	var stats RunStats

	paths, err := Discover(e.settings.SourceDir)
	if err != nil {
		e.emit(LevelError, "", fmt.Sprintf("scan %s: %v", e.settings.SourceDir, err))
		stats.Errors = append(stats.Errors, err)
		stats.Stopped = true
		return stats
	}
	stats.Total = len(paths)
	if stats.Total == 0 {
		e.emit(LevelInfo, "", fmt.Sprintf("no archives in %s", e.settings.SourceDir))
		return stats
	}
	e.emit(LevelInfo, "", fmt.Sprintf("found %d archive(s) in %s", stats.Total, e.settings.SourceDir))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			e.emit(LevelWarning, "", "interrupted, remaining archives left in place")
			stats.Stopped = true
			break
		}

		_, result, err := e.process(ctx, path)
		if err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, err)
			e.emit(LevelError, filepath.Base(path), err.Error())
			if e.settings.FailFast {
				e.emit(LevelWarning, "", "stopping after first failure")
				stats.Stopped = true
				break
			}
			continue
		}
		stats.Processed++
		stats.Bytes += result.bytes
		stats.Tracks += result.tracks
	}

	return stats
}

// ProcessArchive parses, sniffs, extracts and relocates a single archive,
// then reports on the relocated album. Failures are *ArchiveError.
func (e *Expander) ProcessArchive(ctx context.Context, path string) (models.Archive, error) {
	a, _, err := e.process(ctx, path)
	return a, err
}

func (e *Expander) process(ctx context.Context, path string) (models.Archive, outcome, error) {
	var result outcome
	a := models.Archive{Path: path, Name: filepath.Base(path)}

	id, err := naming.Parse(a.Name)
	if err != nil {
		return a, result, &ArchiveError{Path: path, Stage: StageParse, Err: err}
	}
	a.Identity = id
	e.emit(LevelVerbose, a.Name, fmt.Sprintf("artist %q, album %q", id.Artist, id.Album))

	zr, err := archive.Open(path)
	if err != nil {
		return a, result, &ArchiveError{Path: path, Stage: StageSniff, Err: err}
	}
	defer zr.Close()

	a.Codec = zr.Sniff()
	destRoot, err := relocate.DestinationRoot(e.settings.MusicRoot, a.Codec)
	if err != nil {
		return a, result, &ArchiveError{Path: path, Stage: StageSniff, Err: err}
	}
	e.emit(LevelInfo, a.Name, fmt.Sprintf("%s archive", a.Codec))

	a.ArtistStagingDir = filepath.Join(e.settings.StagingRoot, id.Artist)
	a.StagingDir = filepath.Join(a.ArtistStagingDir, id.Album)
	a.DestinationDir = filepath.Join(destRoot, id.Artist)

	if err := os.MkdirAll(a.StagingDir, 0o755); err != nil {
		return a, result, &ArchiveError{Path: path, Stage: StageExtract, Err: err}
	}

	extracted, err := zr.Extract(a.StagingDir, func(name string) {
		e.emit(LevelVerbose, a.Name, "extracting "+name)
	})
	for _, name := range extracted.Rejected {
		e.emit(LevelWarning, a.Name, fmt.Sprintf("skipped entry outside staging directory: %s", name))
	}
	if err != nil {
		e.discardStaging(a)
		return a, result, &ArchiveError{Path: path, Stage: StageExtract, Err: err}
	}
	e.emit(LevelVerbose, a.Name, fmt.Sprintf("extracted %d file(s) to %s", extracted.Files, a.StagingDir))

	// The archive must be closed before Relocate removes it.
	if err := zr.Close(); err != nil {
		e.logger.Printf("close %s: %v", path, err)
	}

	copied, err := relocate.Relocate(a)
	if err != nil {
		e.discardStaging(a)
		return a, result, &ArchiveError{Path: path, Stage: StageRelocate, Err: err}
	}
	result.bytes = copied
	e.emit(LevelSuccess, a.Name, fmt.Sprintf("moved to %s", a.AlbumDir()))

	result.tracks = e.report(ctx, a)
	return a, result, nil
}

// discardStaging removes the album's staging directory, and the artist
// directory when that leaves it empty.
func (e *Expander) discardStaging(a models.Archive) {
	if err := os.RemoveAll(a.StagingDir); err != nil {
		e.logger.Printf("cleanup %s: %v", a.StagingDir, err)
		return
	}
	_ = os.Remove(a.ArtistStagingDir)
}

func (e *Expander) report(ctx context.Context, a models.Archive) int {
	albumDir := a.AlbumDir()
	tracks, err := metadata.ScanAlbum(ctx, albumDir, e.settings.MusicRoot, config.AudioExtensions(), e.settings.ReportConcurrency, e.logger)
	if err != nil {
		e.emit(LevelWarning, a.Name, fmt.Sprintf("library report skipped: %v", err))
		return 0
	}

	var size int64
	for _, t := range tracks {
		size += t.FilesizeBytes
	}
	e.emit(LevelVerbose, a.Name, fmt.Sprintf("%d track(s), %s in %s", len(tracks), display.FormatBytes(size), albumDir))

	for _, m := range metadata.CheckIdentity(tracks, a.Identity, e.settings.IdentityThreshold) {
		if m.ArtistMismatch {
			e.emit(LevelWarning, a.Name, fmt.Sprintf("%s: tagged artist %q differs from %q", m.Track.Filename, m.Track.Artist, a.Artist))
		}
		if m.AlbumMismatch {
			e.emit(LevelWarning, a.Name, fmt.Sprintf("%s: tagged album %q differs from %q", m.Track.Filename, m.Track.Album, a.Album))
		}
	}
	return len(tracks)
}

func (e *Expander) emit(level ProgressLevel, archiveName, message string) {
	e.observer.Observe(ProgressEvent{Level: level, Archive: archiveName, Message: message})
}
