package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var audioExtensions = []string{
	".flac",
	".m4a",
	".aac",
	".mp3",
	".ogg",
	".wav",
}

const (
	defaultWatchDebounceMS   = 2000
	defaultReportConcurrency = 4
	defaultIdentityThreshold = 0.85
	stagingDirName           = "auto"
	storefrontDirName        = "Bandcamp"
)

// AudioExtensions returns the audio file extensions reported after relocation (lowercase).
func AudioExtensions() []string {
	result := make([]string, len(audioExtensions))
	copy(result, audioExtensions)
	return result
}

// Settings holds the directories and behaviour of one expander run.
type Settings struct {
	SourceDir   string
	MusicRoot   string
	StagingRoot string

	FailFast bool
	Watch    bool
	Verbose  bool

	WatchDebounce     time.Duration
	ReportConcurrency int
	IdentityThreshold float64
}

type settingsYAML struct {
	SourceDir         string   `yaml:"source_dir"`
	MusicRoot         string   `yaml:"music_root"`
	StagingRoot       string   `yaml:"staging_root"`
	FailFast          *bool    `yaml:"fail_fast"`
	WatchDebounceMS   *int     `yaml:"watch_debounce_ms"`
	ReportConcurrency *int     `yaml:"report_concurrency"`
	IdentityThreshold *float64 `yaml:"identity_threshold"`
}

// DefaultSettings returns settings derived from the platform's user
// directories: <Downloads>/Bandcamp as source and the user's music folder as
// library root. The staging root is left empty and follows the source
// directory unless set.
func DefaultSettings() Settings {
	return Settings{
		SourceDir:         filepath.Join(xdg.UserDirs.Download, storefrontDirName),
		MusicRoot:         xdg.UserDirs.Music,
		WatchDebounce:     time.Duration(defaultWatchDebounceMS) * time.Millisecond,
		ReportConcurrency: defaultReportConcurrency,
		IdentityThreshold: defaultIdentityThreshold,
	}
}

// LoadEnvFile loads KEY=VALUE pairs from BANDCAMP_ENV_FILE, or from ./.env
// when that variable is unset and the file exists. Variables that are
// already set are left untouched.
func LoadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("BANDCAMP_ENV_FILE"))
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}
	return godotenv.Load(resolved)
}

// ResolveSettings returns settings after applying defaults, the YAML file
// named by configPath (or BANDCAMP_CONFIG when configPath is empty), and
// environment variable overrides.
func ResolveSettings(configPath string) (Settings, error) {
	s := DefaultSettings()

	if strings.TrimSpace(configPath) == "" {
		configPath = strings.TrimSpace(os.Getenv("BANDCAMP_CONFIG"))
	}
	if configPath != "" {
		if err := s.applyFile(configPath); err != nil {
			return Settings{}, err
		}
	}

	s.applyEnv()
	return s, nil
}

func (s *Settings) applyFile(path string) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return err
	}

	var file settingsYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", resolved, err)
	}

	if value := strings.TrimSpace(file.SourceDir); value != "" {
		s.SourceDir = value
	}
	if value := strings.TrimSpace(file.MusicRoot); value != "" {
		s.MusicRoot = value
	}
	if value := strings.TrimSpace(file.StagingRoot); value != "" {
		s.StagingRoot = value
	}
	if file.FailFast != nil {
		s.FailFast = *file.FailFast
	}
	if file.WatchDebounceMS != nil && *file.WatchDebounceMS >= 0 {
		s.WatchDebounce = time.Duration(*file.WatchDebounceMS) * time.Millisecond
	}
	if file.ReportConcurrency != nil && *file.ReportConcurrency > 0 {
		s.ReportConcurrency = *file.ReportConcurrency
	}
	if file.IdentityThreshold != nil && *file.IdentityThreshold >= 0 && *file.IdentityThreshold <= 1 {
		s.IdentityThreshold = *file.IdentityThreshold
	}
	return nil
}

func (s *Settings) applyEnv() {
	if value := strings.TrimSpace(os.Getenv("BANDCAMP_SOURCE_DIR")); value != "" {
		s.SourceDir = value
	}
	if value := strings.TrimSpace(os.Getenv("BANDCAMP_MUSIC_DIR")); value != "" {
		s.MusicRoot = value
	}
	if value := strings.TrimSpace(os.Getenv("BANDCAMP_STAGING_DIR")); value != "" {
		s.StagingRoot = value
	}
	if value := strings.TrimSpace(os.Getenv("BANDCAMP_FAIL_FAST")); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			s.FailFast = b
		}
	}
	if value := strings.TrimSpace(os.Getenv("BANDCAMP_WATCH_DEBOUNCE_MS")); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			s.WatchDebounce = time.Duration(ms) * time.Millisecond
		}
	}
	if value := strings.TrimSpace(os.Getenv("BANDCAMP_REPORT_CONCURRENCY")); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			s.ReportConcurrency = n
		}
	}
	if value := strings.TrimSpace(os.Getenv("BANDCAMP_IDENTITY_THRESHOLD")); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 && f <= 1 {
			s.IdentityThreshold = f
		}
	}
}

// Normalize expands "~", makes every directory absolute and fills in the
// staging root (<SourceDir>/auto) when it is unset.
func (s *Settings) Normalize() error {
	if strings.TrimSpace(s.SourceDir) == "" {
		return errors.New("source directory is not set")
	}
	if strings.TrimSpace(s.MusicRoot) == "" {
		return errors.New("music directory is not set")
	}

	var err error
	if s.SourceDir, err = resolvePath(s.SourceDir); err != nil {
		return err
	}
	if s.MusicRoot, err = resolvePath(s.MusicRoot); err != nil {
		return err
	}
	if strings.TrimSpace(s.StagingRoot) == "" {
		s.StagingRoot = filepath.Join(s.SourceDir, stagingDirName)
	}
	if s.StagingRoot, err = resolvePath(s.StagingRoot); err != nil {
		return err
	}
	return nil
}

// Validate rejects layouts where staging and library overlap, since the
// staging artist tree is deleted after every relocation.
func (s Settings) Validate() error {
	if within(s.StagingRoot, s.MusicRoot) {
		return fmt.Errorf("staging directory %s must not be inside music directory %s", s.StagingRoot, s.MusicRoot)
	}
	if within(s.MusicRoot, s.StagingRoot) {
		return fmt.Errorf("music directory %s must not be inside staging directory %s", s.MusicRoot, s.StagingRoot)
	}
	if s.ReportConcurrency < 1 {
		return errors.New("report concurrency must be at least 1")
	}
	return nil
}

// within reports whether path equals root or lies below it.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Abs(path)
}
