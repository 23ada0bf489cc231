package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

var settingsEnv = []string{
	"BANDCAMP_CONFIG",
	"BANDCAMP_SOURCE_DIR",
	"BANDCAMP_MUSIC_DIR",
	"BANDCAMP_STAGING_DIR",
	"BANDCAMP_FAIL_FAST",
	"BANDCAMP_WATCH_DEBOUNCE_MS",
	"BANDCAMP_REPORT_CONCURRENCY",
	"BANDCAMP_IDENTITY_THRESHOLD",
}

func clearSettingsEnv(t *testing.T) {
	t.Helper()
	for _, key := range settingsEnv {
		t.Setenv(key, "")
	}
}

func TestAudioExtensionsIsolation(t *testing.T) {
	first := AudioExtensions()
	second := AudioExtensions()

	if len(first) == 0 {
		t.Fatalf("expected audio extensions to be non-empty")
	}

	first[0] = ".doesnotexist"
	if first[0] == second[0] {
		t.Fatalf("mutating returned slice should not affect internal configuration")
	}
}

func TestDefaultSettingsFollowUserDirs(t *testing.T) {
	temp := t.TempDir()
	t.Cleanup(xdg.Reload)

	music := filepath.Join(temp, "Music")
	downloads := filepath.Join(temp, "Downloads")
	t.Setenv("XDG_MUSIC_DIR", music)
	t.Setenv("XDG_DOWNLOAD_DIR", downloads)
	xdg.Reload()

	s := DefaultSettings()
	if s.MusicRoot != music {
		t.Fatalf("MusicRoot = %q, want %q", s.MusicRoot, music)
	}
	if s.SourceDir != filepath.Join(downloads, "Bandcamp") {
		t.Fatalf("SourceDir = %q", s.SourceDir)
	}
	if s.StagingRoot != "" {
		t.Fatalf("expected staging root to be derived later, got %q", s.StagingRoot)
	}
	if s.WatchDebounce != 2*time.Second || s.ReportConcurrency != 4 || s.IdentityThreshold != 0.85 {
		t.Fatalf("unexpected defaults %+v", s)
	}
}

func TestResolveSettingsEnvOverrides(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("BANDCAMP_SOURCE_DIR", "/data/downloads")
	t.Setenv("BANDCAMP_MUSIC_DIR", "/data/music")
	t.Setenv("BANDCAMP_STAGING_DIR", "/data/staging")
	t.Setenv("BANDCAMP_FAIL_FAST", "true")
	t.Setenv("BANDCAMP_WATCH_DEBOUNCE_MS", "250")
	t.Setenv("BANDCAMP_REPORT_CONCURRENCY", "8")
	t.Setenv("BANDCAMP_IDENTITY_THRESHOLD", "0.9")

	s, err := ResolveSettings("")
	if err != nil {
		t.Fatalf("ResolveSettings: %v", err)
	}
	if s.SourceDir != "/data/downloads" || s.MusicRoot != "/data/music" || s.StagingRoot != "/data/staging" {
		t.Fatalf("unexpected directories %+v", s)
	}
	if !s.FailFast {
		t.Fatalf("expected fail fast from env")
	}
	if s.WatchDebounce != 250*time.Millisecond {
		t.Fatalf("WatchDebounce = %v", s.WatchDebounce)
	}
	if s.ReportConcurrency != 8 || s.IdentityThreshold != 0.9 {
		t.Fatalf("unexpected report settings %+v", s)
	}
}

func TestResolveSettingsIgnoresInvalidEnv(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("BANDCAMP_FAIL_FAST", "maybe")
	t.Setenv("BANDCAMP_WATCH_DEBOUNCE_MS", "-10")
	t.Setenv("BANDCAMP_REPORT_CONCURRENCY", "zero")
	t.Setenv("BANDCAMP_IDENTITY_THRESHOLD", "1.5")

	s, err := ResolveSettings("")
	if err != nil {
		t.Fatalf("ResolveSettings: %v", err)
	}
	if s.FailFast {
		t.Fatalf("expected fail fast to remain false")
	}
	if s.WatchDebounce != 2*time.Second {
		t.Fatalf("expected default debounce, got %v", s.WatchDebounce)
	}
	if s.ReportConcurrency != 4 || s.IdentityThreshold != 0.85 {
		t.Fatalf("expected defaults, got %+v", s)
	}
}

func TestResolveSettingsFromFile(t *testing.T) {
	clearSettingsEnv(t)
	temp := t.TempDir()
	configPath := filepath.Join(temp, "expand.yaml")
	content := "" +
		"source_dir: /srv/in\n" +
		"music_root: /srv/music\n" +
		"fail_fast: true\n" +
		"watch_debounce_ms: 100\n" +
		"report_concurrency: 2\n" +
		"identity_threshold: 0.5\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	s, err := ResolveSettings(configPath)
	if err != nil {
		t.Fatalf("ResolveSettings: %v", err)
	}
	if s.SourceDir != "/srv/in" || s.MusicRoot != "/srv/music" || s.StagingRoot != "" {
		t.Fatalf("expected file-derived directories, got %+v", s)
	}
	if !s.FailFast || s.WatchDebounce != 100*time.Millisecond || s.ReportConcurrency != 2 || s.IdentityThreshold != 0.5 {
		t.Fatalf("expected file-derived behaviour, got %+v", s)
	}

	t.Setenv("BANDCAMP_CONFIG", configPath)
	t.Setenv("BANDCAMP_MUSIC_DIR", "/env/music")
	s, err = ResolveSettings("")
	if err != nil {
		t.Fatalf("ResolveSettings env override: %v", err)
	}
	if s.MusicRoot != "/env/music" {
		t.Fatalf("expected env override to win, got %s", s.MusicRoot)
	}
	if s.SourceDir != "/srv/in" {
		t.Fatalf("expected BANDCAMP_CONFIG to be read, got %s", s.SourceDir)
	}
}

func TestResolveSettingsBadFile(t *testing.T) {
	clearSettingsEnv(t)
	temp := t.TempDir()

	if _, err := ResolveSettings(filepath.Join(temp, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}

	bad := filepath.Join(temp, "bad.yaml")
	if err := os.WriteFile(bad, []byte("source_dir: [unterminated\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	if _, err := ResolveSettings(bad); err == nil {
		t.Fatalf("expected YAML parse error")
	}
}

func TestLoadEnvFile(t *testing.T) {
	temp := t.TempDir()
	envFile := filepath.Join(temp, "expand.env")
	if err := os.WriteFile(envFile, []byte("BANDCAMP_MUSIC_DIR=/from/dotenv\nBANDCAMP_SOURCE_DIR=/from/dotenv/src\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("BANDCAMP_ENV_FILE", envFile)
	t.Setenv("BANDCAMP_MUSIC_DIR", "")
	os.Unsetenv("BANDCAMP_MUSIC_DIR")
	t.Setenv("BANDCAMP_SOURCE_DIR", "/already/set")

	if err := LoadEnvFile(); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("BANDCAMP_MUSIC_DIR"); got != "/from/dotenv" {
		t.Fatalf("BANDCAMP_MUSIC_DIR = %q", got)
	}
	if got := os.Getenv("BANDCAMP_SOURCE_DIR"); got != "/already/set" {
		t.Fatalf("expected existing variable to win, got %q", got)
	}
}

func TestLoadEnvFileMissingDefault(t *testing.T) {
	temp := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
	})
	if err := os.Chdir(temp); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	t.Setenv("BANDCAMP_ENV_FILE", "")
	if err := LoadEnvFile(); err != nil {
		t.Fatalf("expected no error without .env, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	temp := t.TempDir()
	home := filepath.Join(temp, "home")
	if err := os.Mkdir(home, 0o755); err != nil {
		t.Fatalf("mkdir temp home: %v", err)
	}
	t.Setenv("HOME", home)

	s := Settings{SourceDir: "~/Downloads/Bandcamp", MusicRoot: "~/Music", ReportConcurrency: 1}
	if err := s.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if s.SourceDir != filepath.Join(home, "Downloads", "Bandcamp") {
		t.Fatalf("SourceDir = %q", s.SourceDir)
	}
	if s.MusicRoot != filepath.Join(home, "Music") {
		t.Fatalf("MusicRoot = %q", s.MusicRoot)
	}
	if s.StagingRoot != filepath.Join(home, "Downloads", "Bandcamp", "auto") {
		t.Fatalf("StagingRoot = %q", s.StagingRoot)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestNormalizeRequiresDirectories(t *testing.T) {
	if err := (&Settings{MusicRoot: "/m"}).Normalize(); err == nil {
		t.Fatalf("expected error without source dir")
	}
	if err := (&Settings{SourceDir: "/s"}).Normalize(); err == nil {
		t.Fatalf("expected error without music dir")
	}
}

func TestValidateOverlap(t *testing.T) {
	cases := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"separate", Settings{SourceDir: "/dl", MusicRoot: "/music", StagingRoot: "/dl/auto", ReportConcurrency: 1}, false},
		{"sibling prefix", Settings{SourceDir: "/dl", MusicRoot: "/music", StagingRoot: "/music2", ReportConcurrency: 1}, false},
		{"staging in library", Settings{SourceDir: "/dl", MusicRoot: "/music", StagingRoot: "/music/auto", ReportConcurrency: 1}, true},
		{"library in staging", Settings{SourceDir: "/dl", MusicRoot: "/dl/auto/music", StagingRoot: "/dl/auto", ReportConcurrency: 1}, true},
		{"same directory", Settings{SourceDir: "/dl", MusicRoot: "/music", StagingRoot: "/music", ReportConcurrency: 1}, true},
		{"no workers", Settings{SourceDir: "/dl", MusicRoot: "/music", StagingRoot: "/dl/auto"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %t", err, tc.wantErr)
			}
		})
	}
}
