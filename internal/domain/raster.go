package domain

import "fmt"

// Sentinel values shared across the pipeline. ClassNoData marks cells in
// classified and fused rasters; WarpNoData is what the raster engine stamps
// on grid/warp stage outputs.
const (
	ClassNoData = -128.0
	WarpNoData  = -9999.0
)

// Raster is a single-band numeric grid. Data is row-major, top row first,
// and may be nil when the raster is an external handle that has not been
// materialized yet (Handle then names the backing file).
type Raster struct {
	Width  int
	Height int

	// GeoTransform is the six-element affine transform in GDAL order.
	// Opaque to this package; carried through unchanged.
	GeoTransform [6]float64
	SRS          string

	NoData float64
	Data   []float64
	Handle string
}

// NewRaster allocates a raster of the given shape with every cell set to the
// NoData sentinel.
func NewRaster(width, height int, noData float64) *Raster {
	data := make([]float64, width*height)
	for i := range data {
		data[i] = noData
	}
	return &Raster{Width: width, Height: height, NoData: noData, Data: data}
}

// Loaded reports whether the cell data is materialized in memory.
func (r *Raster) Loaded() bool {
	return r.Data != nil
}

// Valid reports whether v is a real sample rather than the NoData sentinel.
func (r *Raster) Valid(v float64) bool {
	return v != r.NoData
}

// SameShape reports whether two rasters cover the same grid.
func (r *Raster) SameShape(other *Raster) bool {
	return r.Width == other.Width && r.Height == other.Height
}

// Clone copies the raster including its cell data.
func (r *Raster) Clone() *Raster {
	out := *r
	if r.Data != nil {
		out.Data = make([]float64, len(r.Data))
		copy(out.Data, r.Data)
	}
	return &out
}

// Release drops the cell data so large intermediate buffers can be reclaimed
// as soon as their single consumer has read them. The georeferencing and any
// backing handle survive.
func (r *Raster) Release() {
	r.Data = nil
}

// checkShapes verifies that every raster matches the first one's grid.
func checkShapes(rasters ...*Raster) error {
	if len(rasters) == 0 {
		return nil
	}
	first := rasters[0]
	for i, r := range rasters[1:] {
		if !first.SameShape(r) {
			return fmt.Errorf("raster %d is %dx%d, want %dx%d",
				i+1, r.Width, r.Height, first.Width, first.Height)
		}
	}
	return nil
}
