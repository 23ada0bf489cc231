// Package naming derives artist and album names from storefront archive
// filenames of the form "<Artist> - <Album>[ (N)].zip".
package naming

import (
	"errors"
	"fmt"
	"strings"

	"bandcamp-expand/internal/models"
)

const (
	separator = " - "
	extLen    = len(".zip")
	// " (1)" style suffix added by browsers when the same order is downloaded twice.
	decorationLen = 4
)

var (
	ErrMissingSeparator = errors.New("filename has no \" - \" separator")
	ErrMalformedName    = errors.New("filename too short for album and extension")
	ErrUnusableName     = errors.New("artist or album is not usable as a directory name")
)

// Parse returns the artist and album encoded in the base filename name.
// Both parts become directory names, so empty, "." and ".." parts are
// rejected with ErrUnusableName.
func Parse(name string) (models.Identity, error) {
	artist, err := ParseArtist(name)
	if err != nil {
		return models.Identity{}, err
	}
	album, err := ParseAlbum(name)
	if err != nil {
		return models.Identity{}, err
	}
	if !usableDirName(artist) || !usableDirName(album) {
		return models.Identity{}, fmt.Errorf("%q: %w", name, ErrUnusableName)
	}
	return models.Identity{Artist: artist, Album: album}, nil
}

func usableDirName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// ParseArtist returns everything before the first separator.
func ParseArtist(name string) (string, error) {
	idx := strings.Index(name, separator)
	if idx < 0 {
		return "", fmt.Errorf("%q: %w", name, ErrMissingSeparator)
	}
	return name[:idx], nil
}

// ParseAlbum returns everything after the first separator with the four
// character extension removed. A trailing " (d)" with a single digit is
// stripped as well; " (10)" and wider are left alone.
func ParseAlbum(name string) (string, error) {
	idx := strings.Index(name, separator)
	if idx < 0 {
		return "", fmt.Errorf("%q: %w", name, ErrMissingSeparator)
	}

	album := name[idx+len(separator):]
	if len(album) < extLen {
		return "", fmt.Errorf("%q: %w", name, ErrMalformedName)
	}
	album = album[:len(album)-extLen]

	if hasDecoration(album) {
		album = album[:len(album)-decorationLen]
	}
	return album, nil
}

func hasDecoration(s string) bool {
	if len(s) < decorationLen {
		return false
	}
	tail := s[len(s)-decorationLen:]
	return strings.HasPrefix(tail, " (") && tail[3] == ')' && isDigit(tail[2])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
