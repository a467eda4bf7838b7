package gdal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/landslide-riskmap/internal/domain"
)

func TestAAIGrid_RoundTrip(t *testing.T) {
	in := &domain.Raster{
		Width:        3,
		Height:       2,
		GeoTransform: [6]float64{300000, 30, 0, 3100000, 0, -30},
		NoData:       -9999,
		Data:         []float64{1.5, -9999, 3, 4, 5.25, -128},
	}

	path := filepath.Join(t.TempDir(), "grid.asc")
	require.NoError(t, encodeAAIGrid(in, path))

	out, err := decodeAAIGrid(path)
	require.NoError(t, err)

	assert.Equal(t, in.Width, out.Width)
	assert.Equal(t, in.Height, out.Height)
	assert.Equal(t, in.NoData, out.NoData)
	assert.Equal(t, in.GeoTransform, out.GeoTransform)
	assert.Empty(t, cmp.Diff(in.Data, out.Data))
}

func TestParseAAIGrid_CellCenterOrigin(t *testing.T) {
	src := strings.NewReader(`ncols 2
nrows 2
xllcenter 15
yllcenter 25
cellsize 10
NODATA_value -128
1 2
3 4
`)

	r, err := parseAAIGrid(src)
	require.NoError(t, err)

	// Center coordinates shift half a cell to the corner.
	assert.Equal(t, [6]float64{10, 10, 0, 40, 0, -10}, r.GeoTransform)
	assert.Equal(t, -128.0, r.NoData)
	assert.Equal(t, []float64{1, 2, 3, 4}, r.Data)
}

func TestParseAAIGrid_DefaultNoData(t *testing.T) {
	src := strings.NewReader("ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n7\n")

	r, err := parseAAIGrid(src)
	require.NoError(t, err)
	assert.Equal(t, -9999.0, r.NoData)
}

func TestParseAAIGrid_Truncated(t *testing.T) {
	src := strings.NewReader("ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n")

	_, err := parseAAIGrid(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell 3 of 4")
}

func TestEncodeAAIGrid_RejectsNonSquareCells(t *testing.T) {
	r := &domain.Raster{
		Width:        1,
		Height:       1,
		GeoTransform: [6]float64{0, 30, 0, 0, 0, -10},
		Data:         []float64{1},
	}

	err := encodeAAIGrid(r, filepath.Join(t.TempDir(), "bad.asc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-square")
}

func TestEncodeAAIGrid_RejectsRotation(t *testing.T) {
	r := &domain.Raster{
		Width:        1,
		Height:       1,
		GeoTransform: [6]float64{0, 30, 0.1, 0, 0, -30},
		Data:         []float64{1},
	}

	err := encodeAAIGrid(r, filepath.Join(t.TempDir(), "bad.asc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rotated")
}

func TestWritePointsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.csv")
	points := []domain.Point{
		{StationID: "10101", Lat: 27.7, Lon: 85.3, Value: 12.5},
		{StationID: "10102", Lat: 28.2, Lon: 84.0, Value: 0},
	}

	require.NoError(t, writePointsCSV(path, points))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "municipality_id,lon,lat,rainfall", lines[0])
	assert.Equal(t, "10101,85.3,27.7,12.5", lines[1])
}

func TestPointsVRT(t *testing.T) {
	vrt := pointsVRT("/tmp/scratch/x000001.csv", "EPSG:4326")

	assert.Contains(t, vrt, `<OGRVRTLayer name="x000001">`)
	assert.Contains(t, vrt, "<SrcDataSource>/tmp/scratch/x000001.csv</SrcDataSource>")
	assert.Contains(t, vrt, "<LayerSRS>EPSG:4326</LayerSRS>")
	assert.Contains(t, vrt, `x="lon" y="lat" z="rainfall"`)
}

func TestGdalInfo_Parse(t *testing.T) {
	// Trimmed from real `gdalinfo -json -mm` output.
	payload := `{
		"size": [4, 3],
		"geoTransform": [300000.0, 30.0, 0.0, 3100000.0, 0.0, -30.0],
		"coordinateSystem": {"wkt": "PROJCRS[\"WGS 84 / UTM zone 45N\"]"},
		"bands": [{
			"noDataValue": -9999.0,
			"computedMin": 0.2,
			"computedMax": 4.8
		}]
	}`

	var info gdalInfo
	require.NoError(t, json.Unmarshal([]byte(payload), &info))

	assert.Equal(t, [2]int{4, 3}, info.Size)
	require.Len(t, info.Bands, 1)
	assert.Equal(t, -9999.0, *info.Bands[0].NoDataValue)
	assert.Equal(t, 0.2, *info.Bands[0].ComputedMin)
	assert.Equal(t, 4.8, *info.Bands[0].ComputedMax)
	assert.Contains(t, info.CoordinateSystem.WKT, "UTM zone 45N")
}

func TestExtentFromInfo(t *testing.T) {
	info := &gdalInfo{
		Size:         [2]int{4, 3},
		GeoTransform: []float64{300000, 30, 0, 3100000, 0, -30},
	}

	bounds, err := extentFromInfo(info)
	require.NoError(t, err)
	assert.Equal(t, domain.Bounds{MinX: 300000, MaxX: 300120, MinY: 3099910, MaxY: 3100000}, bounds)

	_, err = extentFromInfo(&gdalInfo{})
	require.Error(t, err)
}
