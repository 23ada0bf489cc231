package models

import (
	"path/filepath"
	"testing"
)

func TestCodecString(t *testing.T) {
	tests := []struct {
		codec Codec
		want  string
	}{
		{CodecFLAC, "FLAC"},
		{CodecAAC, "AAC"},
		{CodecUnknown, "unknown"},
		{Codec(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.codec.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArchiveAlbumDir(t *testing.T) {
	a := Archive{
		Identity:       Identity{Artist: "Psycroptic", Album: "As the Kingdom Drowns"},
		DestinationDir: filepath.Join("music", "FLAC", "Psycroptic"),
	}
	want := filepath.Join("music", "FLAC", "Psycroptic", "As the Kingdom Drowns")
	if got := a.AlbumDir(); got != want {
		t.Errorf("AlbumDir() = %q, want %q", got, want)
	}

	if (Archive{}).AlbumDir() != "" {
		t.Errorf("expected empty album dir when destination is unset")
	}
}
