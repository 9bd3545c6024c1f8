// Package output writes analysis documents, tile trees, and completion
// markers. All writes go through a temp-file + rename so a crashed run
// never leaves a partially written file that a later run could mistake
// for a finished one.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hkuril/WildMaps-processing/internal/binning"
	"github.com/hkuril/WildMaps-processing/internal/raster"
)

// AnalysisDocument is the per-dataset analysis result serialised to JSON.
// It carries no timestamps so identical inputs produce identical bytes.
type AnalysisDocument struct {
	Key        string                 `json:"key"`
	CommonName string                 `json:"common_name"`
	Folder     string                 `json:"folder"`
	Region     string                 `json:"region"`
	Subregion  string                 `json:"subregion"`
	Summary    raster.Summary         `json:"summary"`
	Extents    []binning.ExtentResult `json:"extents"`
}

// WriteAnalysis writes the analysis document to dir/results_<key>.json
// and returns the final path.
func WriteAnalysis(dir, key string, doc *AnalysisDocument) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating analysis directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshalling analysis for %s: %w", key, err)
	}
	data = append(data, '\n')

	path := filepath.Join(dir, "results_"+key+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// MarkComplete records that every output for the dataset key was written.
// The pipeline calls it last, so the marker's existence implies a full set
// of outputs.
func MarkComplete(dir, key string) error {
	markerDir := filepath.Join(dir, ".complete")
	if err := os.MkdirAll(markerDir, 0o755); err != nil {
		return fmt.Errorf("creating marker directory: %w", err)
	}
	return writeFileAtomic(filepath.Join(markerDir, key), []byte(key+"\n"))
}

// IsComplete reports whether the dataset key has a completion marker.
func IsComplete(dir, key string) bool {
	_, err := os.Stat(filepath.Join(dir, ".complete", key))
	return err == nil
}

// ClearComplete removes the completion marker, if present. Used when a
// forced rerun is about to rewrite the dataset's outputs.
func ClearComplete(dir, key string) error {
	err := os.Remove(filepath.Join(dir, ".complete", key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by a rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
