package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hkuril/WildMaps-processing/internal/binning"
	"github.com/hkuril/WildMaps-processing/internal/raster"
)

func sampleDocument() *AnalysisDocument {
	return &AnalysisDocument{
		Key:        "mammals_Tropical_Andes_Mountain_Tapir",
		CommonName: "Mountain Tapir",
		Folder:     "mammals",
		Region:     "South America",
		Subregion:  "Tropical Andes",
		Summary: raster.Summary{
			Min: 0, Max: 0.95, Mean: 0.4, P99: 0.9,
			ValidCount: 100, TotalCount: 120, ValidFraction: 100.0 / 120.0,
		},
		Extents: []binning.ExtentResult{
			{Extent: "whole", Kind: "whole", ValidCount: 100, ValidAreaKm2: 100},
		},
	}
}

func TestWriteAnalysis(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDocument()

	path, err := WriteAnalysis(dir, doc.Key, doc)
	if err != nil {
		t.Fatalf("WriteAnalysis: %v", err)
	}
	want := filepath.Join(dir, "results_mammals_Tropical_Andes_Mountain_Tapir.json")
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading document: %v", err)
	}
	if len(first) == 0 || first[len(first)-1] != '\n' {
		t.Error("document missing trailing newline")
	}

	// Rewriting with identical inputs must produce identical bytes.
	if _, err := WriteAnalysis(dir, doc.Key, doc); err != nil {
		t.Fatalf("second WriteAnalysis: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("re-reading document: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("document bytes differ between identical runs")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the document", len(entries))
	}
}

func TestCompletionMarker(t *testing.T) {
	dir := t.TempDir()
	const key = "mammals_Cerrado_Giant_Anteater"

	if IsComplete(dir, key) {
		t.Fatal("fresh directory reports complete")
	}
	if err := MarkComplete(dir, key); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if !IsComplete(dir, key) {
		t.Fatal("marker written but IsComplete is false")
	}
	if IsComplete(dir, "some_other_key") {
		t.Error("marker for one key leaks to another")
	}

	if err := ClearComplete(dir, key); err != nil {
		t.Fatalf("ClearComplete: %v", err)
	}
	if IsComplete(dir, key) {
		t.Error("marker still present after ClearComplete")
	}
	// Clearing a missing marker is not an error.
	if err := ClearComplete(dir, key); err != nil {
		t.Errorf("ClearComplete on missing marker: %v", err)
	}
}

func TestTreeWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewTreeWriter(dir, "png")

	tiles := []struct {
		z, x, y int
		data    []byte
	}{
		{3, 1, 2, []byte("aaaa")},
		{3, 1, 3, []byte("bbbbbb")},
		{4, 2, 5, []byte("cc")},
	}
	for _, tile := range tiles {
		if err := w.WriteTile(tile.z, tile.x, tile.y, tile.data); err != nil {
			t.Fatalf("WriteTile(%d/%d/%d): %v", tile.z, tile.x, tile.y, err)
		}
	}
	if w.TileCount() != 3 {
		t.Errorf("TileCount = %d, want 3", w.TileCount())
	}

	data, err := os.ReadFile(filepath.Join(dir, "3", "1", "2.png"))
	if err != nil {
		t.Fatalf("reading tile: %v", err)
	}
	if string(data) != "aaaa" {
		t.Errorf("tile content = %q, want %q", data, "aaaa")
	}

	if err := w.WriteManifest(); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if !ManifestMatches(dir, "png") {
		t.Error("manifest does not match the tree it was written from")
	}

	maxZoom, err := ManifestMaxZoom(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatalf("ManifestMaxZoom: %v", err)
	}
	if maxZoom != 4 {
		t.Errorf("ManifestMaxZoom = %d, want 4", maxZoom)
	}
}

func TestManifestMatchesDetectsDrift(t *testing.T) {
	build := func(t *testing.T) (string, *TreeWriter) {
		t.Helper()
		dir := t.TempDir()
		w := NewTreeWriter(dir, "png")
		if err := w.WriteTile(2, 1, 1, []byte("tile-a")); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteTile(2, 1, 2, []byte("tile-b")); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteManifest(); err != nil {
			t.Fatal(err)
		}
		return dir, w
	}

	t.Run("missing manifest", func(t *testing.T) {
		if ManifestMatches(t.TempDir(), "png") {
			t.Error("empty directory without manifest matched")
		}
	})

	t.Run("tile added", func(t *testing.T) {
		dir, w := build(t)
		if err := w.WriteTile(3, 0, 0, []byte("extra")); err != nil {
			t.Fatal(err)
		}
		if ManifestMatches(dir, "png") {
			t.Error("added tile not detected")
		}
	})

	t.Run("tile removed", func(t *testing.T) {
		dir, _ := build(t)
		if err := os.Remove(filepath.Join(dir, "2", "1", "2.png")); err != nil {
			t.Fatal(err)
		}
		if ManifestMatches(dir, "png") {
			t.Error("removed tile not detected")
		}
	})

	t.Run("tile resized", func(t *testing.T) {
		dir, _ := build(t)
		path := filepath.Join(dir, "2", "1", "1.png")
		if err := os.WriteFile(path, []byte("tile-a-grown"), 0o644); err != nil {
			t.Fatal(err)
		}
		if ManifestMatches(dir, "png") {
			t.Error("resized tile not detected")
		}
	})

	t.Run("unchanged", func(t *testing.T) {
		dir, _ := build(t)
		if !ManifestMatches(dir, "png") {
			t.Error("unchanged tree reported as drifted")
		}
	})
}
