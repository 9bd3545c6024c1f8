package tile

import (
	"image"
	"math"

	"github.com/hkuril/WildMaps-processing/internal/coord"
	"github.com/hkuril/WildMaps-processing/internal/raster"
)

// renderTile renders a single web map tile from a surface already warped to
// EPSG:3857. Pixels with no valid source data stay fully transparent; if
// every pixel ends up transparent the tile is skipped and nil is returned.
//
// Instead of calling PixelToLonLat for every output pixel (which involves
// expensive trig), we precompute the Mercator X per column and Y per row.
// In web Mercator tiles, X is linear with pixel column and Y depends only
// on pixel row, so the trig cost drops from tileSize² to 2×tileSize calls.
func renderTile(z, tx, ty, tileSize int, s *raster.Surface, ramp Ramp) *image.RGBA {
	var proj coord.WebMercatorProj

	// Reject tiles fully outside the surface footprint before any
	// per-pixel work.
	minLon, minLat, maxLon, maxLat := coord.TileBounds(z, tx, ty)
	tileMinX, tileMinY := proj.FromWGS84(minLon, minLat)
	tileMaxX, tileMaxY := proj.FromWGS84(maxLon, maxLat)
	minX, minY, maxX, maxY := s.Bounds()
	if tileMaxX < minX || tileMinX > maxX || tileMaxY < minY || tileMinY > maxY {
		return nil
	}

	xs := make([]float64, tileSize)
	ys := make([]float64, tileSize)
	for px := 0; px < tileSize; px++ {
		lon, _ := coord.PixelToLonLat(z, tx, ty, tileSize, float64(px)+0.5, 0)
		xs[px], _ = proj.FromWGS84(lon, 0)
	}
	for py := 0; py < tileSize; py++ {
		_, lat := coord.PixelToLonLat(z, tx, ty, tileSize, 0, float64(py)+0.5)
		_, ys[py] = proj.FromWGS84(0, lat)
	}

	img := GetRGBA(tileSize, tileSize)
	hasData := false
	stride := img.Stride

	for py := 0; py < tileSize; py++ {
		y := ys[py]
		rowOff := py * stride

		for px := 0; px < tileSize; px++ {
			v, ok := bilinearSample(s, xs[px], y)
			if !ok {
				continue
			}
			red, green, blue := ramp.At(v)
			off := rowOff + px*4
			img.Pix[off+0] = red
			img.Pix[off+1] = green
			img.Pix[off+2] = blue
			img.Pix[off+3] = 255
			hasData = true
		}
	}

	if !hasData {
		PutRGBA(img)
		return nil
	}
	return img
}

// bilinearSample interpolates the surface value at CRS coordinates (x, y).
// Invalid neighbours get weight zero so nodata never bleeds into the
// result; ok is false when the point falls outside the surface or all
// four neighbours are invalid.
func bilinearSample(s *raster.Surface, x, y float64) (v float64, ok bool) {
	fc, fr := s.Pixel(x, y)
	// Shift to pixel-centre coordinates.
	fc -= 0.5
	fr -= 0.5

	if fc < -0.5 || fr < -0.5 || fc > float64(s.Width)-0.5 || fr > float64(s.Height)-0.5 {
		return 0, false
	}

	c0 := int(math.Floor(fc))
	r0 := int(math.Floor(fr))
	dx := fc - float64(c0)
	dy := fr - float64(r0)

	c1 := clamp(c0+1, 0, s.Width-1)
	r1 := clamp(r0+1, 0, s.Height-1)
	c0 = clamp(c0, 0, s.Width-1)
	r0 = clamp(r0, 0, s.Height-1)

	neighbours := [4]struct {
		col, row int
		w        float64
	}{
		{c0, r0, (1 - dx) * (1 - dy)},
		{c1, r0, dx * (1 - dy)},
		{c0, r1, (1 - dx) * dy},
		{c1, r1, dx * dy},
	}

	var sum, wsum float64
	for _, n := range neighbours {
		if !s.Valid(n.col, n.row) {
			continue
		}
		sum += s.Value(n.col, n.row) * n.w
		wsum += n.w
	}
	if wsum == 0 {
		return 0, false
	}
	return sum / wsum, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
