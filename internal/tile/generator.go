package tile

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hkuril/WildMaps-processing/internal/coord"
	"github.com/hkuril/WildMaps-processing/internal/encode"
	"github.com/hkuril/WildMaps-processing/internal/log"
	"github.com/hkuril/WildMaps-processing/internal/raster"
)

// Config holds tile pyramid generation configuration.
type Config struct {
	MinZoom     int
	MaxZoom     int
	TileSize    int
	Concurrency int
	Encoder     encode.Encoder
	Ramp        Ramp
}

// Stats holds generation statistics.
type Stats struct {
	TileCount  int64
	EmptyTiles int64
	TotalBytes int64
}

// TileWriter receives encoded tiles addressed by zoom/column/row.
type TileWriter interface {
	WriteTile(z, x, y int, data []byte) error
}

// tileJob represents a single tile to render.
type tileJob struct {
	Z, X, Y int
}

// Generate renders the tile pyramid for a surface warped to EPSG:3857 and
// writes every non-empty tile via the TileWriter. Tiles with no valid data
// are counted but never written.
func Generate(cfg Config, s *raster.Surface, writer TileWriter) (Stats, error) {
	if cfg.MinZoom > cfg.MaxZoom {
		return Stats{}, &raster.InputError{
			Reason: fmt.Sprintf("zoom range inverted: min %d > max %d", cfg.MinZoom, cfg.MaxZoom),
		}
	}
	if cfg.Encoder == nil {
		return Stats{}, fmt.Errorf("no tile encoder configured")
	}
	tileSize := cfg.TileSize
	if tileSize <= 0 {
		tileSize = coord.DefaultTileSize
	}
	workers := cfg.Concurrency
	if workers < 1 {
		workers = 1
	}

	// Tile enumeration happens in WGS84.
	var proj coord.WebMercatorProj
	minX, minY, maxX, maxY := s.Bounds()
	minLon, minLat := proj.ToWGS84(minX, minY)
	maxLon, maxLat := proj.ToWGS84(maxX, maxY)

	var tileCount, emptyCount, totalBytes atomic.Int64

	for z := cfg.MinZoom; z <= cfg.MaxZoom; z++ {
		tiles := coord.TilesInBounds(z, minLon, minLat, maxLon, maxLat)
		if len(tiles) == 0 {
			continue
		}
		// Hilbert order keeps neighbouring tiles close in the queue, so
		// workers hit overlapping source rows while they are still warm.
		coord.SortTilesByHilbert(tiles)

		log.Debug("rendering zoom level",
			zap.Int("zoom", z),
			zap.Int("tiles", len(tiles)))

		jobs := make(chan tileJob, workers*2)
		errCh := make(chan error, 1)
		var failed atomic.Bool
		var wg sync.WaitGroup

		// Workers keep draining jobs after a failure so the feeder below
		// can never block on the bounded channel with no consumers left.
		fail := func(err error) {
			select {
			case errCh <- err:
			default:
			}
			failed.Store(true)
		}

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for job := range jobs {
					if failed.Load() {
						continue
					}
					img := renderTile(job.Z, job.X, job.Y, tileSize, s, cfg.Ramp)
					if img == nil {
						emptyCount.Add(1)
						continue
					}

					data, err := cfg.Encoder.Encode(img)
					PutRGBA(img)
					if err != nil {
						fail(fmt.Errorf("encoding tile z%d/%d/%d: %w", job.Z, job.X, job.Y, err))
						continue
					}

					if err := writer.WriteTile(job.Z, job.X, job.Y, data); err != nil {
						fail(fmt.Errorf("writing tile z%d/%d/%d: %w", job.Z, job.X, job.Y, err))
						continue
					}

					tileCount.Add(1)
					totalBytes.Add(int64(len(data)))
				}
			}()
		}

		for _, t := range tiles {
			jobs <- tileJob{Z: t[0], X: t[1], Y: t[2]}
		}
		close(jobs)
		wg.Wait()

		select {
		case err := <-errCh:
			return Stats{}, err
		default:
		}
	}

	return Stats{
		TileCount:  tileCount.Load(),
		EmptyTiles: emptyCount.Load(),
		TotalBytes: totalBytes.Load(),
	}, nil
}
