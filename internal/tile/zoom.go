package tile

import (
	"math"

	"github.com/hkuril/WildMaps-processing/internal/coord"
	"github.com/hkuril/WildMaps-processing/internal/raster"
)

// AutoZoomRange picks min/max zoom levels from the ground resolution of a
// surface warped to EPSG:3857. Mercator metres stretch by 1/cos(lat), so
// the pixel size is scaled back to ground metres at the surface centre
// before matching it against the tile pyramid resolutions. The range spans
// six levels below the full-resolution zoom.
func AutoZoomRange(s *raster.Surface) (minZoom, maxZoom int) {
	dx, _ := s.PixelSize()
	minX, minY, maxX, maxY := s.Bounds()

	var proj coord.WebMercatorProj
	_, midLat := proj.ToWGS84((minX+maxX)/2, (minY+maxY)/2)

	groundMeters := dx * math.Cos(midLat*math.Pi/180)
	maxZoom = coord.MaxZoomForResolution(groundMeters, midLat)
	minZoom = maxZoom - 6
	if minZoom < 0 {
		minZoom = 0
	}
	return
}
