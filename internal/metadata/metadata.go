package metadata

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
	"golang.org/x/sync/errgroup"

	"bandcamp-expand/internal/models"
)

// BuildTrack constructs a metadata snapshot for the given audio file path.
func BuildTrack(path string, root string) (models.Track, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Track{}, err
	}

	relative, err := filepath.Rel(root, path)
	if err != nil {
		relative = filepath.Base(path)
	}
	relative = filepath.ToSlash(relative)

	title, artist, album := readTags(path)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var durationPtr *float64
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		dur, err := computeMP3Duration(path)
		if err == nil && dur > 0 {
			duration := dur
			durationPtr = &duration
		}
	}

	return models.Track{
		RelativePath:    relative,
		Filename:        filepath.Base(path),
		Title:           title,
		Artist:          artist,
		Album:           album,
		DurationSeconds: durationPtr,
		FilesizeBytes:   info.Size(),
		ModifiedAt:      info.ModTime().UTC().Round(time.Second),
	}, nil
}

// ScanAlbum builds tracks for every file below dir whose extension is in
// extensions. Tags are read by at most limit goroutines. Files that cannot be
// read are logged and left out; the result is sorted by relative path.
func ScanAlbum(ctx context.Context, dir, root string, extensions []string, limit int, logger *log.Logger) ([]models.Track, error) {
	if logger == nil {
		logger = log.Default()
	}
	if limit < 1 {
		limit = 1
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		tracks []models.Track
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, path := range paths {
		path := path // per-iteration copy (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			track, err := BuildTrack(path, root)
			if err != nil {
				logger.Printf("metadata error for %s: %v", path, err)
				return nil
			}
			mu.Lock()
			tracks = append(tracks, track)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].RelativePath < tracks[j].RelativePath
	})
	return tracks, nil
}

// Mismatch is a track whose embedded tags disagree with the filename identity.
type Mismatch struct {
	Track          models.Track
	ArtistScore    float64
	AlbumScore     float64
	ArtistMismatch bool
	AlbumMismatch  bool
}

// CheckIdentity compares each track's tag artist and album with id using
// Jaro-Winkler similarity. Tracks without tags are not compared. A score
// below threshold is a mismatch.
func CheckIdentity(tracks []models.Track, id models.Identity, threshold float64) []Mismatch {
	metric := metrics.NewJaroWinkler()
	metric.CaseSensitive = false

	var mismatches []Mismatch
	for _, track := range tracks {
		m := Mismatch{Track: track, ArtistScore: 1, AlbumScore: 1}
		if track.Artist != "" {
			m.ArtistScore = strutil.Similarity(track.Artist, id.Artist, metric)
			m.ArtistMismatch = m.ArtistScore < threshold
		}
		if track.Album != "" {
			m.AlbumScore = strutil.Similarity(track.Album, id.Album, metric)
			m.AlbumMismatch = m.AlbumScore < threshold
		}
		if m.ArtistMismatch || m.AlbumMismatch {
			mismatches = append(mismatches, m)
		}
	}
	return mismatches
}

func readTags(path string) (string, string, string) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return "", "", ""
	}

	artist := strings.TrimSpace(meta.AlbumArtist())
	if artist == "" {
		artist = strings.TrimSpace(meta.Artist())
	}
	return strings.TrimSpace(meta.Title()), artist, strings.TrimSpace(meta.Album())
}

func computeMP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
