package output

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ManifestName is the tile manifest written next to the tile tree. It maps
// slash-separated "z/x/y.<ext>" paths to file sizes and is how downstream
// sync tooling decides which tiles changed.
const ManifestName = ".tile_manifest.json"

// TreeWriter writes encoded tiles into a {zoom}/{x}/{y}.<ext> directory
// tree. Safe for concurrent use by the tile generator's workers.
type TreeWriter struct {
	dir string
	ext string

	mu       sync.Mutex
	manifest map[string]int64
}

// NewTreeWriter creates a writer rooted at dir. ext is the tile file
// extension without the dot, e.g. "png".
func NewTreeWriter(dir, ext string) *TreeWriter {
	return &TreeWriter{
		dir:      dir,
		ext:      ext,
		manifest: make(map[string]int64),
	}
}

// Dir returns the tile tree root.
func (w *TreeWriter) Dir() string { return w.dir }

// WriteTile writes one encoded tile to {dir}/{z}/{x}/{y}.{ext}.
func (w *TreeWriter) WriteTile(z, x, y int, data []byte) error {
	tileDir := filepath.Join(w.dir, strconv.Itoa(z), strconv.Itoa(x))
	if err := os.MkdirAll(tileDir, 0o755); err != nil {
		return fmt.Errorf("creating tile directory: %w", err)
	}
	name := strconv.Itoa(y) + "." + w.ext
	if err := writeFileAtomic(filepath.Join(tileDir, name), data); err != nil {
		return err
	}

	rel := path.Join(strconv.Itoa(z), strconv.Itoa(x), name)
	w.mu.Lock()
	w.manifest[rel] = int64(len(data))
	w.mu.Unlock()
	return nil
}

// TileCount returns the number of tiles written so far.
func (w *TreeWriter) TileCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.manifest)
}

// WriteManifest writes the manifest of all tiles written by this writer.
// Map keys marshal in sorted order, so the manifest is byte-stable.
func (w *TreeWriter) WriteManifest() error {
	w.mu.Lock()
	data, err := json.Marshal(w.manifest)
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshalling tile manifest: %w", err)
	}
	return writeFileAtomic(filepath.Join(w.dir, ManifestName), data)
}

// ScanTiles walks a tile tree and returns the manifest of tiles present on
// disk, keyed the same way WriteManifest keys them.
func ScanTiles(dir, ext string) (map[string]int64, error) {
	suffix := "." + ext
	found := make(map[string]int64)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		found[filepath.ToSlash(rel)] = info.Size()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ManifestMatches reports whether the tiles on disk under dir agree with
// the saved manifest: same paths, same sizes, nothing added or removed.
// A missing manifest never matches.
func ManifestMatches(dir, ext string) bool {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return false
	}
	var saved map[string]int64
	if err := json.Unmarshal(data, &saved); err != nil {
		return false
	}
	current, err := ScanTiles(dir, ext)
	if err != nil {
		return false
	}
	if len(saved) != len(current) {
		return false
	}
	for rel, size := range saved {
		if current[rel] != size {
			return false
		}
	}
	return true
}

// ManifestMaxZoom reads a manifest and returns the highest zoom level
// present, or -1 when the manifest holds no well-formed tile paths.
func ManifestMaxZoom(manifestPath string) (int, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return -1, err
	}
	var manifest map[string]int64
	if err := json.Unmarshal(data, &manifest); err != nil {
		return -1, fmt.Errorf("parsing tile manifest: %w", err)
	}
	maxZoom := -1
	for key := range manifest {
		z, err := strconv.Atoi(strings.SplitN(key, "/", 2)[0])
		if err != nil {
			continue
		}
		if z > maxZoom {
			maxZoom = z
		}
	}
	return maxZoom, nil
}
