// Package binning cross-tabulates suitability values against protection
// status and land-use class, aggregating pixel counts into ground area.
package binning

import (
	"fmt"

	"github.com/hkuril/WildMaps-processing/internal/raster"
)

// DefaultBuckets partitions [0,1] into ten fixed width suitability ranges.
const DefaultBuckets = 10

// LandUseNone marks pixels without a usable land-use class in the sampled
// grid.
const LandUseNone = int32(-1)

// Edges returns the lower bound of each of n fixed width buckets over
// [0,1]. Bucket membership is decided by comparing against these
// precomputed bounds rather than by scaling and truncating, so a value that
// is exactly on a boundary always lands in the higher bucket no matter how
// it was computed.
func Edges(n int) []float64 {
	edges := make([]float64, n)
	for i := range edges {
		edges[i] = float64(i) / float64(n)
	}
	return edges
}

// BucketOf assigns v to a bucket. Values below the first edge clamp to
// bucket 0 and values of 1.0 or above clamp to the last bucket.
func BucketOf(v float64, edges []float64) int {
	for i := len(edges) - 1; i > 0; i-- {
		if v >= edges[i] {
			return i
		}
	}
	return 0
}

// Bucket is one suitability range with its aggregates. Area figures are in
// square kilometres of the surface's equal-area grid.
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`

	Count   int64   `json:"count"`
	AreaKm2 float64 `json:"area_km2"`

	ProtectedCount     int64   `json:"protected_count"`
	ProtectedAreaKm2   float64 `json:"protected_area_km2"`
	UnprotectedCount   int64   `json:"unprotected_count"`
	UnprotectedAreaKm2 float64 `json:"unprotected_area_km2"`

	// LandUseAreaKm2 maps land-use class code to area. Only classes
	// observed in the extent appear.
	LandUseAreaKm2 map[int32]float64 `json:"land_use_area_km2,omitempty"`
}

// ExtentResult is the analysis fragment for one extent. Empty marks an
// extent whose clip contained no valid pixels at all, which downstream
// consumers must distinguish from an analysis that ran and found nothing.
type ExtentResult struct {
	Extent string `json:"extent"`
	Kind   string `json:"kind,omitempty"`
	Empty  bool   `json:"empty"`

	ValidCount       int64   `json:"valid_count"`
	ValidAreaKm2     float64 `json:"valid_area_km2"`
	ProtectedAreaKm2 float64 `json:"protected_area_km2"`

	Buckets []Bucket `json:"buckets,omitempty"`
}

// Bin computes the cross-tabulation for one extent.
//
// protected and landuse must be sampled on exactly the surface's grid, one
// entry per pixel. extentMask restricts the analysis to pixels with a
// non-zero mask entry; a nil mask means the whole surface. Pixels that are
// no-data or outside the mask contribute to nothing.
func Bin(s *raster.Surface, protected []uint8, landuse []int32, extentMask []uint8, name, kind string, nBuckets int) (ExtentResult, error) {
	n := len(s.Data)
	if len(protected) != n || len(landuse) != n {
		return ExtentResult{}, fmt.Errorf("binning %s: grid size mismatch: surface %d, protected %d, landuse %d",
			name, n, len(protected), len(landuse))
	}
	if extentMask != nil && len(extentMask) != n {
		return ExtentResult{}, fmt.Errorf("binning %s: extent mask size %d does not match surface %d",
			name, len(extentMask), n)
	}
	if nBuckets <= 0 {
		nBuckets = DefaultBuckets
	}

	edges := Edges(nBuckets)
	pixelArea := s.PixelAreaKm2()

	buckets := make([]Bucket, nBuckets)
	for i := range buckets {
		buckets[i].Lower = edges[i]
		buckets[i].Upper = 1.0
		if i < nBuckets-1 {
			buckets[i].Upper = edges[i+1]
		}
	}

	res := ExtentResult{Extent: name, Kind: kind}
	for i, v := range s.Data {
		if extentMask != nil && extentMask[i] == 0 {
			continue
		}
		if !s.ValidValue(v) {
			continue
		}
		b := &buckets[BucketOf(v, edges)]
		b.Count++
		if protected[i] != 0 {
			b.ProtectedCount++
		} else {
			b.UnprotectedCount++
		}
		if c := landuse[i]; c != LandUseNone {
			if b.LandUseAreaKm2 == nil {
				b.LandUseAreaKm2 = make(map[int32]float64)
			}
			b.LandUseAreaKm2[c] += pixelArea
		}
		res.ValidCount++
	}

	if res.ValidCount == 0 {
		res.Empty = true
		return res, nil
	}

	for i := range buckets {
		b := &buckets[i]
		b.AreaKm2 = float64(b.Count) * pixelArea
		b.ProtectedAreaKm2 = float64(b.ProtectedCount) * pixelArea
		b.UnprotectedAreaKm2 = float64(b.UnprotectedCount) * pixelArea
		res.ProtectedAreaKm2 += b.ProtectedAreaKm2
	}
	res.ValidAreaKm2 = float64(res.ValidCount) * pixelArea
	res.Buckets = buckets
	return res, nil
}
