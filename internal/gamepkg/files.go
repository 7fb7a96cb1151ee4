package gamepkg

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// ListFiles returns every regular file under dir as a sorted, slash-separated
// path relative to dir. Upload and download both walk packages this way, so
// a round trip preserves relative paths exactly.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
