// Package layers supplies the two global reference layers every analysis is
// cross-tabulated against: protected-area boundaries (vector) and land-use
// classes (raster). Both are resampled onto the input raster's exact grid
// before any comparison, always with nearest-neighbour resampling because
// class labels and protection flags cannot be averaged.
package layers

import (
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"github.com/hkuril/WildMaps-processing/internal/geoio"
	"github.com/hkuril/WildMaps-processing/internal/log"
	"github.com/hkuril/WildMaps-processing/internal/raster"
)

// marineFilter keeps terrestrial and coastal protected areas and drops
// fully marine ones, whose boundaries have no meaning on a land-use grid.
const marineFilter = "MARINE IN ('0', '1')"

// DataUnavailableError reports that a requested footprint lies fully
// outside an auxiliary layer's coverage. Fatal only for the extent or
// dataset that requested it.
type DataUnavailableError struct {
	Layer string
	Span  [4]float64
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable: layer %q has no coverage for lon/lat span [%g %g %g %g]",
		e.Layer, e.Span[0], e.Span[1], e.Span[2], e.Span[3])
}

// Provider holds the paths of the two layers plus the land-use layer's
// coverage box. It is read only after construction and safe to share
// across workers; every Sample call opens its own GDAL datasets since those
// handles are not safe for concurrent use.
type Provider struct {
	protectedPath string
	landusePath   string
	landuseBounds [4]float64
	logTag        string
}

// NewProvider validates both layer paths and caches the land-use coverage
// box used by coverage checks.
func NewProvider(protectedPath, landusePath string) (*Provider, error) {
	if _, err := os.Stat(protectedPath); err != nil {
		return nil, fmt.Errorf("protected-area layer: %w", err)
	}
	bounds, err := geoio.RasterBoundsWGS84(landusePath)
	if err != nil {
		return nil, fmt.Errorf("land-use layer: %w", err)
	}
	return &Provider{
		protectedPath: protectedPath,
		landusePath:   landusePath,
		landuseBounds: bounds,
		logTag:        "layers:",
	}, nil
}

// Sample resamples both layers onto the surface's grid. The protected mask
// holds 1 inside any terrestrial or coastal protected area, the land-use
// grid holds the class code per pixel or binning.LandUseNone (-1) where the
// layer has no class.
func (p *Provider) Sample(s *raster.Surface) (protected []uint8, landuse []int32, err error) {
	footprint, err := geoio.SurfaceBoundsWGS84(s)
	if err != nil {
		return nil, nil, err
	}
	if err := p.checkCoverage(footprint); err != nil {
		return nil, nil, err
	}

	protected, err = geoio.VectorMask(p.protectedPath, marineFilter, s)
	if err != nil {
		return nil, nil, err
	}

	lu, err := geoio.MatchGrid(p.landusePath, s)
	if err != nil {
		return nil, nil, err
	}
	landuse = make([]int32, len(lu.Data))
	for i, v := range lu.Data {
		if !lu.ValidValue(v) {
			landuse[i] = -1
			continue
		}
		landuse[i] = int32(math.Round(v))
	}

	log.Debug(p.logTag+"sampled auxiliary layers",
		zap.Int("width", s.Width), zap.Int("height", s.Height))
	return protected, landuse, nil
}

// CheckCoverage reports DataUnavailableError when a lon/lat span is fully
// outside the land-use layer's coverage. The protected-area layer is
// global, so it never fails this check.
func (p *Provider) CheckCoverage(span [4]float64) error {
	return p.checkCoverage(span)
}

func (p *Provider) checkCoverage(span [4]float64) error {
	b := p.landuseBounds
	disjoint := span[2] < b[0] || span[0] > b[2] || span[3] < b[1] || span[1] > b[3]
	if disjoint {
		return &DataUnavailableError{Layer: "landuse", Span: span}
	}
	return nil
}
