package geoio

import (
	"fmt"
	"strconv"

	"github.com/airbusgeo/godal"

	"github.com/hkuril/WildMaps-processing/internal/raster"
)

// spanWKT builds a polygon ring from a lon/lat span
// (minLon, minLat, maxLon, maxLat).
func spanWKT(span [4]float64) string {
	return fmt.Sprintf("POLYGON((%[1]f %[2]f, %[1]f %[4]f, %[3]f %[4]f, %[3]f %[2]f, %[1]f %[2]f))",
		span[0], span[1], span[2], span[3])
}

// ExtentMask rasterizes a lon/lat span onto the surface's grid. Entries are
// 1 inside the span and 0 outside.
func ExtentMask(s *raster.Surface, span [4]float64) ([]uint8, error) {
	Register()
	src, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	geom, err := godal.NewGeometryFromWKT(spanWKT(span), src)
	if err != nil {
		return nil, fmt.Errorf("extent polygon: %w", err)
	}
	defer geom.Close()

	dst, err := godal.NewSpatialRefFromWKT(s.Proj)
	if err != nil {
		return nil, fmt.Errorf("surface CRS: %w", err)
	}
	defer dst.Close()
	trans, err := godal.NewTransform(src, dst)
	if err != nil {
		return nil, err
	}
	defer trans.Close()
	if err := geom.Transform(trans); err != nil {
		return nil, fmt.Errorf("projecting extent onto surface CRS: %w", err)
	}

	return rasterizeOnGrid(s, dst, geom)
}

// VectorMask rasterizes the features of the vector dataset at path onto the
// surface's grid. where is an optional attribute filter in OGR SQL syntax.
// Entries are 1 where any feature covers the pixel and 0 elsewhere.
func VectorMask(path, where string, s *raster.Surface) ([]uint8, error) {
	Register()
	vec, err := godal.Open(path, godal.VectorOnly())
	if err != nil {
		return nil, fmt.Errorf("vector layer %s: %w", path, err)
	}
	defer vec.Close()

	// Reproject (and filter) into the surface CRS first; rasterization
	// happens in the grid's own coordinates.
	switches := []string{"-f", "GPKG", "-t_srs", s.Proj}
	if where != "" {
		switches = append(switches, "-where", where)
	}
	reprojFile := tmpPath(".gpkg")
	reproj, err := vec.VectorTranslate(reprojFile, switches)
	if err != nil {
		return nil, fmt.Errorf("vector layer %s: reprojection: %w", path, err)
	}
	defer reproj.Close()
	defer godal.VSIUnlink(reprojFile)

	minX, minY, maxX, maxY := s.Bounds()
	burnFile := tmpPath(".tif")
	burned, err := reproj.Rasterize(burnFile, []string{
		"-burn", "1",
		"-init", "0",
		"-ot", "Byte",
		"-ts", strconv.Itoa(s.Width), strconv.Itoa(s.Height),
		"-te", formatFloat(minX), formatFloat(minY), formatFloat(maxX), formatFloat(maxY),
	})
	if err != nil {
		return nil, fmt.Errorf("vector layer %s: rasterize: %w", path, err)
	}
	defer burned.Close()
	defer godal.VSIUnlink(burnFile)

	buf := make([]uint8, s.Width*s.Height)
	bands := burned.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("vector layer %s: rasterize produced no band", path)
	}
	if err := bands[0].IO(godal.IORead, 0, 0, buf, s.Width, s.Height); err != nil {
		return nil, fmt.Errorf("vector layer %s: reading mask: %w", path, err)
	}
	return buf, nil
}

func rasterizeOnGrid(s *raster.Surface, sr *godal.SpatialRef, geom *godal.Geometry) ([]uint8, error) {
	mem, err := godal.Create(godal.Memory, "", 1, godal.Byte, s.Width, s.Height)
	if err != nil {
		return nil, err
	}
	defer mem.Close()
	if err := mem.SetGeoTransform(s.Geo); err != nil {
		return nil, err
	}
	if err := mem.SetSpatialRef(sr); err != nil {
		return nil, err
	}
	if err := mem.RasterizeGeometry(geom, godal.Values(1), godal.AllTouched()); err != nil {
		return nil, fmt.Errorf("rasterizing geometry: %w", err)
	}
	buf := make([]uint8, s.Width*s.Height)
	if err := mem.Bands()[0].IO(godal.IORead, 0, 0, buf, s.Width, s.Height); err != nil {
		return nil, err
	}
	return buf, nil
}
