package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const archiveExtension = ".zip"

// Discover lists the zip archives directly inside sourceDir, sorted by name.
// Subdirectories (including the staging root) are not descended into.
func Discover(sourceDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), archiveExtension) {
			files = append(files, filepath.Join(sourceDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
