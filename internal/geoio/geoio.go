// Package geoio is the only package that talks to GDAL. It reads rasters
// into raster.Surface values, reprojects them for area computation and tile
// rendering, and rasterizes vector boundaries onto a surface's grid. All
// intermediate datasets live in GDAL's in-memory filesystem and are removed
// before returning.
package geoio

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/google/uuid"

	"github.com/hkuril/WildMaps-processing/internal/raster"
)

var registerOnce sync.Once

// Register loads the GDAL drivers. Called implicitly by every entry point,
// safe to call more than once.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

// tmpPath returns a fresh /vsimem path so concurrent workers never collide.
func tmpPath(ext string) string {
	return "/vsimem/" + uuid.NewString() + ext
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Load opens the raster at path and reads the declared band fully into
// memory. The no-data mask comes from the band's declared no-data value
// only.
func Load(path string, band int) (*raster.Surface, error) {
	Register()
	ds, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return nil, &raster.InputError{Path: path, Reason: "cannot open raster", Err: err}
	}
	defer ds.Close()
	return surfaceFromDataset(ds, band, path)
}

func surfaceFromDataset(ds *godal.Dataset, band int, path string) (*raster.Surface, error) {
	bands := ds.Bands()
	if band < 1 || band > len(bands) {
		return nil, &raster.InputError{
			Path:   path,
			Reason: fmt.Sprintf("band %d out of range, raster has %d band(s)", band, len(bands)),
		}
	}

	sr := ds.SpatialRef()
	if sr == nil {
		return nil, &raster.InputError{Path: path, Reason: "raster has no CRS"}
	}
	defer sr.Close()
	wkt, err := sr.WKT()
	if err != nil || wkt == "" {
		return nil, &raster.InputError{Path: path, Reason: "raster has no usable CRS", Err: err}
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, &raster.InputError{Path: path, Reason: "raster has no geotransform", Err: err}
	}

	b := bands[band-1]
	st := b.Structure()
	buf := make([]float64, st.SizeX*st.SizeY)
	if err := b.IO(godal.IORead, 0, 0, buf, st.SizeX, st.SizeY); err != nil {
		return nil, &raster.InputError{Path: path, Reason: fmt.Sprintf("reading band %d", band), Err: err}
	}
	nodata, hasNodata := b.NoData()

	return &raster.Surface{
		Data:       buf,
		Width:      st.SizeX,
		Height:     st.SizeY,
		Geo:        gt,
		Proj:       wkt,
		NoData:     nodata,
		HasNoData:  hasNodata,
		Geographic: sr.Geographic(),
	}, nil
}
