package geoio

import (
	"fmt"
	"math"
	"strconv"

	"github.com/airbusgeo/godal"

	"github.com/hkuril/WildMaps-processing/internal/raster"
)

// EqualArea reprojects the raster at path onto a Lambert azimuthal
// equal-area grid centred on its footprint, so that a pixel count times the
// pixel area is a faithful ground area. Projected inputs are returned
// unchanged: their planar pixel area is taken as ground area, a documented
// approximation rather than an error.
//
// Nearest-neighbour resampling is used on purpose. The suitability values
// feed a histogram, and interpolating across the no-data boundary would
// invent values that were never in the model output.
func EqualArea(path string, band int, s *raster.Surface) (*raster.Surface, error) {
	if !s.Geographic {
		return s, nil
	}
	minX, minY, maxX, maxY := s.Bounds()
	lon0 := (minX + maxX) / 2
	lat0 := (minY + maxY) / 2
	dst := fmt.Sprintf("+proj=laea +lat_0=%.6f +lon_0=%.6f +datum=WGS84 +units=m +no_defs", lat0, lon0)
	return warpBand(path, band, s, []string{"-t_srs", dst, "-r", "near"})
}

// WebMercator reprojects the raster at path into EPSG:3857 for tile
// rendering. Suitability is continuous, so bilinear resampling is correct
// here.
func WebMercator(path string, band int, s *raster.Surface) (*raster.Surface, error) {
	return warpBand(path, band, s, []string{"-t_srs", "EPSG:3857", "-r", "bilinear"})
}

func warpBand(path string, band int, s *raster.Surface, switches []string) (*raster.Surface, error) {
	Register()
	src, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return nil, &raster.InputError{Path: path, Reason: "cannot open raster", Err: err}
	}
	defer src.Close()

	// Pull the analysis band out first so the warp never mixes bands.
	bandFile := tmpPath(".vrt")
	one, err := src.Translate(bandFile, []string{"-of", "VRT", "-b", strconv.Itoa(band)})
	if err != nil {
		return nil, &raster.InputError{Path: path, Reason: fmt.Sprintf("extracting band %d", band), Err: err}
	}
	defer one.Close()
	defer godal.VSIUnlink(bandFile)

	// Force a float output and pin the no-data value, otherwise gdalwarp
	// initialises uncovered pixels to zero and they become suitability 0.
	switches = append(switches, "-ot", "Float64")
	if s.HasNoData {
		switches = append(switches, "-srcnodata", formatFloat(s.NoData), "-dstnodata", formatFloat(s.NoData))
	} else {
		switches = append(switches, "-dstnodata", "nan")
	}

	out := tmpPath(".tif")
	warped, err := godal.Warp(out, []*godal.Dataset{one}, switches)
	if err != nil {
		return nil, &raster.InputError{Path: path, Reason: "reprojection failed", Err: err}
	}
	defer warped.Close()
	defer godal.VSIUnlink(out)

	return surfaceFromDataset(warped, 1, path)
}

// MatchGrid warps the raster at path onto exactly the target surface's grid
// (CRS, origin, pixel size, dimensions) with nearest-neighbour resampling.
// Used for categorical layers, whose class codes cannot be averaged.
func MatchGrid(path string, target *raster.Surface) (*raster.Surface, error) {
	Register()
	src, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return nil, fmt.Errorf("auxiliary raster %s: %w", path, err)
	}
	defer src.Close()

	minX, minY, maxX, maxY := target.Bounds()
	switches := []string{
		"-t_srs", target.Proj,
		"-te", formatFloat(minX), formatFloat(minY), formatFloat(maxX), formatFloat(maxY),
		"-ts", strconv.Itoa(target.Width), strconv.Itoa(target.Height),
		"-r", "near",
		"-ot", "Float64",
		"-dstnodata", "nan",
	}
	out := tmpPath(".tif")
	warped, err := godal.Warp(out, []*godal.Dataset{src}, switches)
	if err != nil {
		return nil, fmt.Errorf("auxiliary raster %s: warp to analysis grid: %w", path, err)
	}
	defer warped.Close()
	defer godal.VSIUnlink(out)

	return surfaceFromDataset(warped, 1, path)
}

// RasterBoundsWGS84 returns the lon/lat bounding box of the raster at path.
func RasterBoundsWGS84(path string) ([4]float64, error) {
	Register()
	ds, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return [4]float64{}, fmt.Errorf("raster %s: %w", path, err)
	}
	defer ds.Close()
	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return [4]float64{}, fmt.Errorf("raster %s: %w", path, err)
	}
	sr := ds.SpatialRef()
	if sr == nil {
		return [4]float64{}, fmt.Errorf("raster %s: no CRS", path)
	}
	defer sr.Close()
	return cornersToWGS84(gt, st.SizeX, st.SizeY, sr)
}

// SurfaceBoundsWGS84 returns the lon/lat bounding box of a surface's
// footprint.
func SurfaceBoundsWGS84(s *raster.Surface) ([4]float64, error) {
	Register()
	if s.Geographic {
		minX, minY, maxX, maxY := s.Bounds()
		return [4]float64{minX, minY, maxX, maxY}, nil
	}
	sr, err := godal.NewSpatialRefFromWKT(s.Proj)
	if err != nil {
		return [4]float64{}, fmt.Errorf("surface CRS: %w", err)
	}
	defer sr.Close()
	return cornersToWGS84(s.Geo, s.Width, s.Height, sr)
}

func cornersToWGS84(gt [6]float64, width, height int, sr *godal.SpatialRef) ([4]float64, error) {
	// Corners at pixel coordinates (0,0), (w,0), (0,h), (w,h).
	w := float64(width)
	h := float64(height)
	xs := []float64{gt[0], gt[0] + w*gt[1], gt[0] + h*gt[2], gt[0] + w*gt[1] + h*gt[2]}
	ys := []float64{gt[3], gt[3] + w*gt[4], gt[3] + h*gt[5], gt[3] + w*gt[4] + h*gt[5]}

	tgt, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return [4]float64{}, err
	}
	defer tgt.Close()
	trans, err := godal.NewTransform(sr, tgt)
	if err != nil {
		return [4]float64{}, err
	}
	defer trans.Close()

	ok := make([]bool, len(xs))
	if err := trans.TransformEx(xs, ys, nil, ok); err != nil {
		return [4]float64{}, err
	}
	box := [4]float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for i := range xs {
		if !ok[i] {
			return [4]float64{}, fmt.Errorf("corner %d could not be transformed to lon/lat", i)
		}
		box[0] = math.Min(box[0], xs[i])
		box[1] = math.Min(box[1], ys[i])
		box[2] = math.Max(box[2], xs[i])
		box[3] = math.Max(box[3], ys[i])
	}
	return box, nil
}
