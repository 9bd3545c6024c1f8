// Package pipeline orchestrates per-dataset processing: load, analyse,
// tile, write. Datasets are independent, so a failure in one never stops
// the batch; each dataset ends the run as done, skipped, or failed.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hkuril/WildMaps-processing/internal/binning"
	"github.com/hkuril/WildMaps-processing/internal/catalog"
	"github.com/hkuril/WildMaps-processing/internal/dict"
	"github.com/hkuril/WildMaps-processing/internal/encode"
	"github.com/hkuril/WildMaps-processing/internal/geoio"
	"github.com/hkuril/WildMaps-processing/internal/layers"
	"github.com/hkuril/WildMaps-processing/internal/log"
	"github.com/hkuril/WildMaps-processing/internal/output"
	"github.com/hkuril/WildMaps-processing/internal/raster"
	"github.com/hkuril/WildMaps-processing/internal/region"
	"github.com/hkuril/WildMaps-processing/internal/tile"
)

// Options configures a batch run.
type Options struct {
	DataDir string // root holding <folder>/<input_file_name> rasters
	OutDir  string // root for raster_analysis/ and raster_tiles/

	// Tile settings. MinZoom/MaxZoom of -1 select the automatic range
	// derived from the source resolution.
	MinZoom         int
	MaxZoom         int
	TileSize        int
	TileFormat      string
	TileQuality     int
	TileConcurrency int

	Workers int  // concurrent datasets
	Force   bool // reprocess datasets that have a completion marker
}

// Status classifies how a dataset ended the run.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Report is the per-dataset outcome of a batch run.
type Report struct {
	Key    string
	Status Status
	// Reason classifies a failure: "input", "config", "data_unavailable"
	// or "internal".
	Reason string
	Err    error

	// SkippedExtents lists analysis extents dropped because an auxiliary
	// layer had no coverage there. The rest of the dataset still counts
	// as done.
	SkippedExtents []string

	Tiles tile.Stats
}

// Runner executes datasets against a fixed set of dictionaries and
// auxiliary layers.
type Runner struct {
	opts   Options
	dicts  *dict.Dictionaries
	layers *layers.Provider
	logTag string
}

func New(opts Options, dicts *dict.Dictionaries, provider *layers.Provider) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.TileFormat == "" {
		opts.TileFormat = "png"
	}
	return &Runner{opts: opts, dicts: dicts, layers: provider, logTag: "pipeline:"}
}

// Run processes every dataset through a worker pool and returns one report
// per dataset, in catalog order.
func (r *Runner) Run(datasets []catalog.Dataset) []Report {
	reports := make([]Report, len(datasets))

	jobs := make(chan int, len(datasets))
	var wg sync.WaitGroup
	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				reports[i] = r.processDataset(datasets[i])
			}
		}()
	}
	for i := range datasets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return reports
}

// Failed reports whether any dataset in the batch failed.
func Failed(reports []Report) bool {
	for _, rep := range reports {
		if rep.Status == StatusFailed {
			return true
		}
	}
	return false
}

// tileDir is the tile tree root for one dataset.
func (r *Runner) tileDir(d catalog.Dataset) string {
	return filepath.Join(r.opts.OutDir, "raster_tiles", d.Folder, d.Key())
}

func (r *Runner) processDataset(d catalog.Dataset) Report {
	key := d.Key()
	rep := Report{Key: key, Status: StatusDone}

	// A completion marker alone is not trusted: the tile tree must still
	// agree with its manifest, so a half-deleted tree gets reprocessed
	// instead of skipped.
	if output.IsComplete(r.opts.OutDir, key) {
		if !r.opts.Force {
			if output.ManifestMatches(r.tileDir(d), r.opts.TileFormat) {
				log.Info(r.logTag+"dataset already processed, skipping",
					zap.String("key", key))
				rep.Status = StatusSkipped
				return rep
			}
			log.Warn(r.logTag+"completion marker present but tile tree drifted, reprocessing",
				zap.String("key", key))
		}
		if err := output.ClearComplete(r.opts.OutDir, key); err != nil {
			return failure(key, err)
		}
	}

	if err := region.ValidateSpecies(r.dicts, d.CommonName); err != nil {
		return failure(key, err)
	}
	extents, err := region.Resolve(r.dicts, d.Regions(), d.Subregion)
	if err != nil {
		return failure(key, err)
	}

	srcPath := filepath.Join(r.opts.DataDir, d.Folder, d.InputFileName)
	src, err := geoio.Load(srcPath, d.Band)
	if err != nil {
		return failure(key, err)
	}
	summary := src.Summarize()

	log.Info(r.logTag+"processing dataset",
		zap.String("key", key),
		zap.String("raster", srcPath),
		zap.Int64("valid_pixels", summary.ValidCount),
		zap.Int("extents", len(extents)))

	// The analysis and the tile pyramid read the same source but warp it
	// to different grids, so they run concurrently.
	var (
		wg                   sync.WaitGroup
		analysisErr, tileErr error
		skipped              []string
		stats                tile.Stats
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		skipped, analysisErr = r.runAnalysis(d, key, srcPath, src, summary, extents)
	}()
	go func() {
		defer wg.Done()
		stats, tileErr = r.runTiles(d, key, srcPath, src, summary)
	}()
	wg.Wait()

	if analysisErr != nil {
		return failure(key, analysisErr)
	}
	if tileErr != nil {
		return failure(key, tileErr)
	}

	if err := output.MarkComplete(r.opts.OutDir, key); err != nil {
		return failure(key, err)
	}

	rep.SkippedExtents = skipped
	rep.Tiles = stats
	log.Info(r.logTag+"dataset done",
		zap.String("key", key),
		zap.Int64("tiles", stats.TileCount),
		zap.Strings("skipped_extents", skipped))
	return rep
}

// runAnalysis warps the source to an equal-area grid, samples the
// auxiliary layers onto it, bins every resolved extent, and writes the
// analysis document. Extents without auxiliary coverage are skipped and
// returned by name.
func (r *Runner) runAnalysis(d catalog.Dataset, key, srcPath string, src *raster.Surface, summary raster.Summary, extents []region.Extent) ([]string, error) {
	eq, err := geoio.EqualArea(srcPath, d.Band, src)
	if err != nil {
		return nil, err
	}
	protected, landuse, err := r.layers.Sample(eq)
	if err != nil {
		return nil, err
	}

	var skipped []string
	results := make([]binning.ExtentResult, 0, len(extents))
	for _, ext := range extents {
		var mask []uint8
		if !ext.Unbounded {
			if err := r.layers.CheckCoverage([4]float64(ext.Span)); err != nil {
				var unavailable *layers.DataUnavailableError
				if errors.As(err, &unavailable) {
					log.Warn(r.logTag+"no auxiliary coverage for extent, skipping",
						zap.String("key", key),
						zap.String("extent", ext.Name))
					skipped = append(skipped, ext.Name)
					continue
				}
				return nil, err
			}
			mask, err = geoio.ExtentMask(eq, [4]float64(ext.Span))
			if err != nil {
				return nil, err
			}
		}

		res, err := binning.Bin(eq, protected, landuse, mask, ext.Name, ext.Kind, binning.DefaultBuckets)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	doc := &output.AnalysisDocument{
		Key:        key,
		CommonName: d.CommonName,
		Folder:     d.Folder,
		Region:     d.Region,
		Subregion:  d.Subregion,
		Summary:    summary,
		Extents:    results,
	}
	_, err = output.WriteAnalysis(filepath.Join(r.opts.OutDir, "raster_analysis"), key, doc)
	return skipped, err
}

// runTiles warps the source to web mercator and renders the tile pyramid
// into the dataset's tile tree.
func (r *Runner) runTiles(d catalog.Dataset, key, srcPath string, src *raster.Surface, summary raster.Summary) (tile.Stats, error) {
	merc, err := geoio.WebMercator(srcPath, d.Band, src)
	if err != nil {
		return tile.Stats{}, err
	}

	minZoom, maxZoom := tile.AutoZoomRange(merc)
	if r.opts.MinZoom >= 0 {
		minZoom = r.opts.MinZoom
	}
	if r.opts.MaxZoom >= 0 {
		maxZoom = r.opts.MaxZoom
	}

	enc, err := encode.NewEncoder(r.opts.TileFormat, r.opts.TileQuality)
	if err != nil {
		return tile.Stats{}, err
	}

	writer := output.NewTreeWriter(r.tileDir(d), strings.TrimPrefix(enc.FileExtension(), "."))

	stats, err := tile.Generate(tile.Config{
		MinZoom:     minZoom,
		MaxZoom:     maxZoom,
		TileSize:    r.opts.TileSize,
		Concurrency: r.opts.TileConcurrency,
		Encoder:     enc,
		Ramp:        tile.ViridisRamp(0, summary.P99),
	}, merc, writer)
	if err != nil {
		return tile.Stats{}, err
	}

	return stats, writer.WriteManifest()
}

// failure builds a failed report, classifying the error for the batch
// summary.
func failure(key string, err error) Report {
	log.Error("pipeline: dataset failed",
		zap.String("key", key),
		zap.Error(err))
	return Report{
		Key:    key,
		Status: StatusFailed,
		Reason: classify(err),
		Err:    err,
	}
}

func classify(err error) string {
	var inputErr *raster.InputError
	if errors.As(err, &inputErr) {
		return "input"
	}
	var configErr *region.ConfigError
	if errors.As(err, &configErr) {
		return "config"
	}
	var unavailable *layers.DataUnavailableError
	if errors.As(err, &unavailable) {
		return "data_unavailable"
	}
	return "internal"
}

// Summarize formats the batch outcome for operator output.
func Summarize(reports []Report) string {
	var b strings.Builder
	var done, skipped, failed int
	for _, rep := range reports {
		switch rep.Status {
		case StatusDone:
			done++
			line := fmt.Sprintf("done     %s (%d tiles)", rep.Key, rep.Tiles.TileCount)
			if len(rep.SkippedExtents) > 0 {
				line += fmt.Sprintf(", extents without coverage: %s",
					strings.Join(rep.SkippedExtents, ", "))
			}
			b.WriteString(line + "\n")
		case StatusSkipped:
			skipped++
			b.WriteString(fmt.Sprintf("skipped  %s (already processed)\n", rep.Key))
		case StatusFailed:
			failed++
			b.WriteString(fmt.Sprintf("failed   %s (%s): %v\n", rep.Key, rep.Reason, rep.Err))
		}
	}
	b.WriteString(fmt.Sprintf("%d done, %d skipped, %d failed\n", done, skipped, failed))
	return b.String()
}
