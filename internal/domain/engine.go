package domain

import "context"

// RasterStats are the global band statistics the raster engine computes over
// valid cells only.
type RasterStats struct {
	Min    float64
	Max    float64
	NoData float64
}

// Bounds is an axis-aligned extent in the coordinate system of the raster it
// was read from.
type Bounds struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Point is one rainfall observation located in geographic coordinates.
type Point struct {
	StationID string
	Lat       float64
	Lon       float64
	Value     float64
}

// GridRequest configures point-to-grid interpolation. The interpolation
// algorithm string is collaborator configuration (GDAL gdal_grid syntax),
// not core logic.
type GridRequest struct {
	Bounds    Bounds
	SRS       string
	NoData    float64
	Algorithm string
}

// RasterEngine is the external geospatial collaborator. All raster I/O,
// reprojection, resampling, interpolation, and clipping numerics live behind
// it; the core never reimplements them. Calls are synchronous and may be
// internally multi-threaded. Any failure is wrapped in CollaboratorError by
// the caller and aborts only the time-slice that made the call.
type RasterEngine interface {
	// ReadRaster materializes the band at path into memory.
	ReadRaster(ctx context.Context, path string) (*Raster, error)
	// WriteRaster persists r at path in the engine's storage format.
	WriteRaster(ctx context.Context, r *Raster, path string) error
	// GlobalStats computes min/max over valid cells of the band at path.
	GlobalStats(ctx context.Context, path string) (RasterStats, error)
	// Extent returns the georeferenced bounding box of the raster at path.
	Extent(ctx context.Context, path string) (Bounds, error)
	// GridFromPoints interpolates scattered points onto a regular grid.
	GridFromPoints(ctx context.Context, points []Point, req GridRequest) (*Raster, error)
	// Reproject warps r from srcSRS to dstSRS, stamping noData on the output.
	Reproject(ctx context.Context, r *Raster, srcSRS, dstSRS string, noData float64) (*Raster, error)
	// Resample regrids r to square cells of pixelSize map units.
	Resample(ctx context.Context, r *Raster, pixelSize float64) (*Raster, error)
	// Clip cuts r to the polygon boundary stored at boundaryPath.
	Clip(ctx context.Context, r *Raster, boundaryPath string) (*Raster, error)
}
