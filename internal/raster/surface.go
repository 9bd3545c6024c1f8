// Package raster defines the in-memory representation of a single band
// raster surface together with the error taxonomy shared by the processing
// pipeline. Reading surfaces from disk lives in the geoio package so that
// the analysis code stays free of GDAL.
package raster

import (
	"math"
	"sort"
)

// Surface is one band of a georeferenced raster held fully in memory.
// Data is stored row major, Data[row*Width+col]. Geo is the GDAL style
// affine transform: worldX = Geo[0] + col*Geo[1] + row*Geo[2],
// worldY = Geo[3] + col*Geo[4] + row*Geo[5].
type Surface struct {
	Data   []float64
	Width  int
	Height int

	Geo  [6]float64
	Proj string // CRS as WKT

	NoData     float64
	HasNoData  bool
	Geographic bool // CRS units are degrees
}

// Value returns the raw pixel value at (col, row). Out of range coordinates
// return NaN.
func (s *Surface) Value(col, row int) float64 {
	if col < 0 || row < 0 || col >= s.Width || row >= s.Height {
		return math.NaN()
	}
	return s.Data[row*s.Width+col]
}

// Valid reports whether the pixel at (col, row) holds a usable value.
func (s *Surface) Valid(col, row int) bool {
	if col < 0 || row < 0 || col >= s.Width || row >= s.Height {
		return false
	}
	return s.ValidValue(s.Data[row*s.Width+col])
}

// ValidValue reports whether v is a usable value under this surface's
// no-data convention.
func (s *Surface) ValidValue(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return !(s.HasNoData && v == s.NoData)
}

// PixelSize returns the absolute pixel dimensions in CRS units.
func (s *Surface) PixelSize() (dx, dy float64) {
	return math.Abs(s.Geo[1]), math.Abs(s.Geo[5])
}

// PixelAreaKm2 returns the planar area of one pixel in square kilometres.
// Only meaningful when the CRS units are metres; geographic surfaces must be
// reprojected to an equal-area CRS before area aggregation.
func (s *Surface) PixelAreaKm2() float64 {
	return math.Abs(s.Geo[1]*s.Geo[5]) / 1e6
}

// Bounds returns the raster footprint in CRS units as
// (minX, minY, maxX, maxY). Assumes a north-up transform without rotation.
func (s *Surface) Bounds() (minX, minY, maxX, maxY float64) {
	x0 := s.Geo[0]
	y0 := s.Geo[3]
	x1 := s.Geo[0] + float64(s.Width)*s.Geo[1]
	y1 := s.Geo[3] + float64(s.Height)*s.Geo[5]
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}

// World returns the CRS coordinates of the pixel centre at (col, row).
func (s *Surface) World(col, row int) (x, y float64) {
	fc := float64(col) + 0.5
	fr := float64(row) + 0.5
	x = s.Geo[0] + fc*s.Geo[1] + fr*s.Geo[2]
	y = s.Geo[3] + fc*s.Geo[4] + fr*s.Geo[5]
	return x, y
}

// Pixel maps CRS coordinates to fractional pixel coordinates.
func (s *Surface) Pixel(x, y float64) (col, row float64) {
	// Inverse of the affine transform for the north-up case.
	col = (x - s.Geo[0]) / s.Geo[1]
	row = (y - s.Geo[3]) / s.Geo[5]
	return col, row
}

// Summary holds per-surface statistics over valid pixels.
type Summary struct {
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Mean          float64 `json:"mean"`
	P99           float64 `json:"p99"`
	ValidCount    int64   `json:"valid_count"`
	TotalCount    int64   `json:"total_count"`
	ValidFraction float64 `json:"valid_fraction"`
}

// Summarize scans the surface once and computes Summary. The 99th
// percentile uses linear interpolation between ranks and is used as the
// upper stretch bound of the tile colour ramp, so a handful of outlier
// pixels cannot wash out the rendering.
func (s *Surface) Summarize() Summary {
	valid := make([]float64, 0, len(s.Data))
	sum := 0.0
	for _, v := range s.Data {
		if s.ValidValue(v) {
			valid = append(valid, v)
			sum += v
		}
	}
	out := Summary{TotalCount: int64(len(s.Data)), ValidCount: int64(len(valid))}
	if len(valid) == 0 {
		out.Min = math.NaN()
		out.Max = math.NaN()
		out.Mean = math.NaN()
		out.P99 = math.NaN()
		return out
	}
	sort.Float64s(valid)
	out.Min = valid[0]
	out.Max = valid[len(valid)-1]
	out.Mean = sum / float64(len(valid))
	out.P99 = percentile(valid, 0.99)
	out.ValidFraction = float64(out.ValidCount) / float64(out.TotalCount)
	return out
}

// percentile expects sorted values and p in [0,1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
