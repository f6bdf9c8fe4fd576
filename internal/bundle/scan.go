package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"predictd/internal/common/fsutil"
)

// Entry is a bundle file discovered in a directory.
type Entry struct {
	// ID is the file name without extension; it names the service route.
	ID   string
	Path string
}

// Scan lists the bundle files in dir (non-recursive), sorted by ID. Metadata
// files are skipped.
func Scan(dir string) ([]Entry, error) {
	abs, err := fsutil.AbsPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !isBundleExt(ext) || strings.HasPrefix(strings.ToLower(name), "metadata.") {
			continue
		}
		out = append(out, Entry{ID: strings.TrimSuffix(name, ext), Path: filepath.Join(abs, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
