package domain_test

import (
	"testing"

	"github.com/couchcryptid/landslide-riskmap/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRainfall_LiteralFormula(t *testing.T) {
	base := newTestRaster(100)
	recorded := newTestRaster(10)
	forecast := newTestRaster(5)
	stats := domain.RasterStats{Min: 0, Max: 200}

	out, err := domain.FuseRainfall(base, recorded, forecast, stats, 0.02, 0.1)
	require.NoError(t, err)

	// 100 + (200/100)*10*0.02 + (200/100)*5*0.1 = 100 + 0.4 + 1.0
	assert.InDelta(t, 101.4, out.Data[0], 1e-9)
	assert.Equal(t, domain.ClassNoData, out.NoData)
}

func TestFuseRainfall_MasksBaseBufferInPlace(t *testing.T) {
	base := newTestRaster(-5, 0, 100)
	recorded := newTestRaster(10, 10, 10)
	forecast := newTestRaster(5, 5, 5)
	stats := domain.RasterStats{Min: 0, Max: 200}

	out, err := domain.FuseRainfall(base, recorded, forecast, stats, 0.02, 0.1)
	require.NoError(t, err)

	// base <= 0 is forced to the sentinel in the input buffer itself.
	assert.Equal(t, domain.ClassNoData, base.Data[0])
	assert.Equal(t, domain.ClassNoData, base.Data[1])
	assert.Equal(t, 100.0, base.Data[2])

	// The sentinel then participates in the arithmetic; the negative result
	// clamps back to the sentinel after the fact.
	assert.Equal(t, domain.ClassNoData, out.Data[0])
	assert.Equal(t, domain.ClassNoData, out.Data[1])
	assert.InDelta(t, 101.4, out.Data[2], 1e-9)
}

func TestFuseRainfall_MasksNegativeRainfall(t *testing.T) {
	base := newTestRaster(100, 100)
	recorded := newTestRaster(-3, 10)
	forecast := newTestRaster(5, -1)
	stats := domain.RasterStats{Min: 0, Max: 200}

	out, err := domain.FuseRainfall(base, recorded, forecast, stats, 0.02, 0.1)
	require.NoError(t, err)

	assert.Equal(t, domain.ClassNoData, recorded.Data[0])
	assert.Equal(t, domain.ClassNoData, forecast.Data[1])

	// Cell 0: recorded masked to -128, so 100 + 2*(-128)*0.02 + 2*5*0.1 = 95.88.
	assert.InDelta(t, 95.88, out.Data[0], 1e-9)
	// Cell 1: forecast masked to -128, so 100 + 2*10*0.02 + 2*(-128)*0.1 = 74.8.
	assert.InDelta(t, 74.8, out.Data[1], 1e-9)
}

func TestFuseRainfall_ShapeMismatch(t *testing.T) {
	base := newTestRaster(100)
	recorded := newTestRaster(10, 20)
	forecast := newTestRaster(5)

	_, err := domain.FuseRainfall(base, recorded, forecast, domain.RasterStats{Max: 1}, 0.02, 0.1)
	require.Error(t, err)
}

func TestFuseRainfall_PreservesShapeAndGeoreferencing(t *testing.T) {
	base := newTestRaster(100, 150, 42)
	out, err := domain.FuseRainfall(base, newTestRaster(0, 0, 0), newTestRaster(0, 0, 0), domain.RasterStats{Min: 42, Max: 150}, 0.02, 0.1)
	require.NoError(t, err)

	assert.Equal(t, base.Width, out.Width)
	assert.Equal(t, base.Height, out.Height)
	assert.Equal(t, base.GeoTransform, out.GeoTransform)
	assert.Equal(t, base.SRS, out.SRS)
}
