// Package gdal implements the raster engine on top of the GDAL command-line
// tools. Every geospatial operation shells out to the matching utility
// (gdal_grid, gdalwarp, gdal_translate, gdalinfo); cell arrays cross the
// process boundary as Arc/Info ASCII grids, everything else stays on disk as
// GeoTIFF and moves between stages by file handle.
package gdal

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/couchcryptid/landslide-riskmap/internal/domain"
)

const warpNoData = "-9999"

// Engine is a domain.RasterEngine backed by GDAL CLI tools. It keeps a
// scratch directory for exchange files and stage outputs; Close removes it.
type Engine struct {
	logger    *slog.Logger
	workDir   string
	pixelSize float64
	seq       atomic.Uint64
}

// NewEngine creates an engine with its own scratch directory. pixelSize is
// the square cell size, in target-SRS map units, stamped on clip outputs.
func NewEngine(logger *slog.Logger, pixelSize float64) (*Engine, error) {
	workDir, err := os.MkdirTemp("", "riskmap-gdal-")
	if err != nil {
		return nil, fmt.Errorf("create gdal scratch dir: %w", err)
	}
	return &Engine{logger: logger, workDir: workDir, pixelSize: pixelSize}, nil
}

// Close removes the scratch directory and every intermediate stage file
// in it. Raster handles returned by this engine are invalid afterwards.
func (e *Engine) Close() error {
	return os.RemoveAll(e.workDir)
}

// tmp returns a fresh scratch file path with the given suffix.
func (e *Engine) tmp(suffix string) string {
	return filepath.Join(e.workDir, fmt.Sprintf("x%06d%s", e.seq.Add(1), suffix))
}

// run executes one GDAL tool, surfacing stderr in the error.
func (e *Engine) run(ctx context.Context, tool string, args ...string) error {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Env = append(os.Environ(), "GDAL_NUM_THREADS=ALL_CPUS")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	e.logger.Debug("gdal exec", "tool", tool, "args", args)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", tool, err, msg)
		}
		return fmt.Errorf("%s: %w", tool, err)
	}
	return nil
}

// sourcePath returns a file GDAL can read for r: its backing handle when it
// has one, otherwise a scratch GeoTIFF encoded from the in-memory cells.
func (e *Engine) sourcePath(ctx context.Context, r *domain.Raster) (string, error) {
	if r.Handle != "" {
		return r.Handle, nil
	}
	if !r.Loaded() {
		return "", fmt.Errorf("raster has neither cell data nor a backing handle")
	}
	path := e.tmp(".tif")
	if err := e.WriteRaster(ctx, r, path); err != nil {
		return "", err
	}
	return path, nil
}

// ReadRaster materializes band 1 of the raster at path. The cell array is
// exchanged as an ASCII grid; georeferencing and nodata come from gdalinfo,
// which is exact where the text header rounds.
func (e *Engine) ReadRaster(ctx context.Context, path string) (*domain.Raster, error) {
	info, err := e.info(ctx, path, false)
	if err != nil {
		return nil, err
	}

	asc := e.tmp(".asc")
	defer os.Remove(asc)
	if err := e.run(ctx, "gdal_translate", "-q", "-of", "AAIGrid",
		"-co", "DECIMAL_PRECISION=10", path, asc); err != nil {
		return nil, err
	}
	r, err := decodeAAIGrid(asc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if r.Width != info.Size[0] || r.Height != info.Size[1] {
		return nil, fmt.Errorf("read %s: exchange grid is %dx%d, dataset is %dx%d",
			path, r.Width, r.Height, info.Size[0], info.Size[1])
	}
	copy(r.GeoTransform[:], info.GeoTransform)
	r.SRS = info.CoordinateSystem.WKT
	if len(info.Bands) > 0 && info.Bands[0].NoDataValue != nil {
		r.NoData = *info.Bands[0].NoDataValue
	}
	r.Handle = path
	return r, nil
}

// WriteRaster persists r at path as a Float32 GeoTIFF. A released raster
// that still carries a handle is copied from its backing file instead.
func (e *Engine) WriteRaster(ctx context.Context, r *domain.Raster, path string) error {
	if !r.Loaded() {
		if r.Handle == "" {
			return fmt.Errorf("write %s: raster has neither cell data nor a backing handle", path)
		}
		return e.run(ctx, "gdal_translate", "-q", "-of", "GTiff", "-ot", "Float32", r.Handle, path)
	}

	asc := e.tmp(".asc")
	defer os.Remove(asc)
	if err := encodeAAIGrid(r, asc); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	args := []string{"-q", "-of", "GTiff", "-ot", "Float32",
		"-a_nodata", formatFloat(r.NoData)}
	if r.SRS != "" {
		args = append(args, "-a_srs", r.SRS)
	}
	args = append(args, asc, path)
	return e.run(ctx, "gdal_translate", args...)
}

// GlobalStats computes min/max over valid cells via gdalinfo -mm.
func (e *Engine) GlobalStats(ctx context.Context, path string) (domain.RasterStats, error) {
	info, err := e.info(ctx, path, true)
	if err != nil {
		return domain.RasterStats{}, err
	}
	if len(info.Bands) == 0 {
		return domain.RasterStats{}, fmt.Errorf("stats %s: dataset has no bands", path)
	}
	band := info.Bands[0]

	stats := domain.RasterStats{NoData: domain.WarpNoData}
	if band.NoDataValue != nil {
		stats.NoData = *band.NoDataValue
	}
	switch {
	case band.ComputedMin != nil && band.ComputedMax != nil:
		stats.Min, stats.Max = *band.ComputedMin, *band.ComputedMax
	case band.Minimum != nil && band.Maximum != nil:
		stats.Min, stats.Max = *band.Minimum, *band.Maximum
	default:
		return domain.RasterStats{}, fmt.Errorf("stats %s: gdalinfo returned no min/max", path)
	}
	return stats, nil
}

// Extent returns the georeferenced bounding box derived from the dataset's
// geotransform and size.
func (e *Engine) Extent(ctx context.Context, path string) (domain.Bounds, error) {
	info, err := e.info(ctx, path, false)
	if err != nil {
		return domain.Bounds{}, err
	}
	bounds, err := extentFromInfo(info)
	if err != nil {
		return domain.Bounds{}, fmt.Errorf("extent %s: %w", path, err)
	}
	return bounds, nil
}

func extentFromInfo(info *gdalInfo) (domain.Bounds, error) {
	if len(info.GeoTransform) != 6 {
		return domain.Bounds{}, fmt.Errorf("dataset has no geotransform")
	}
	gt := info.GeoTransform
	return domain.Bounds{
		MinX: gt[0],
		MaxX: gt[0] + gt[1]*float64(info.Size[0]),
		MaxY: gt[3],
		MinY: gt[3] + gt[5]*float64(info.Size[1]),
	}, nil
}

// GridFromPoints interpolates scattered observations onto a regular grid
// with gdal_grid. The points travel through a scratch CSV wrapped in an OGR
// VRT layer; the output raster is returned as an unmaterialized handle so
// the next warp stage can consume the file directly.
func (e *Engine) GridFromPoints(ctx context.Context, points []domain.Point, req domain.GridRequest) (*domain.Raster, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("grid: no points to interpolate")
	}

	csvPath := e.tmp(".csv")
	if err := writePointsCSV(csvPath, points); err != nil {
		return nil, err
	}
	vrtPath := strings.TrimSuffix(csvPath, ".csv") + ".vrt"
	if err := os.WriteFile(vrtPath, []byte(pointsVRT(csvPath, req.SRS)), 0o644); err != nil {
		return nil, fmt.Errorf("grid: write vrt: %w", err)
	}

	out := e.tmp(".tif")
	layer := strings.TrimSuffix(filepath.Base(csvPath), ".csv")
	err := e.run(ctx, "gdal_grid", "-q",
		"-of", "GTiff", "-ot", "Float32",
		"-a", req.Algorithm,
		"-zfield", "rainfall",
		"-a_srs", req.SRS,
		"-txe", formatFloat(req.Bounds.MinX), formatFloat(req.Bounds.MaxX),
		"-tye", formatFloat(req.Bounds.MinY), formatFloat(req.Bounds.MaxY),
		"-l", layer, vrtPath, out)
	if err != nil {
		return nil, err
	}
	return &domain.Raster{Handle: out, SRS: req.SRS, NoData: req.NoData}, nil
}

// Reproject warps r from srcSRS to dstSRS with bilinear resampling.
func (e *Engine) Reproject(ctx context.Context, r *domain.Raster, srcSRS, dstSRS string, noData float64) (*domain.Raster, error) {
	src, err := e.sourcePath(ctx, r)
	if err != nil {
		return nil, err
	}
	out := e.tmp(".tif")
	err = e.run(ctx, "gdalwarp", "-q", "-overwrite",
		"-of", "GTiff", "-ot", "Float32",
		"-s_srs", srcSRS, "-t_srs", dstSRS,
		"-srcnodata", formatFloat(r.NoData), "-dstnodata", formatFloat(noData),
		"-r", "bilinear", "-multi", "-wm", "8192",
		src, out)
	if err != nil {
		return nil, err
	}
	return &domain.Raster{Handle: out, SRS: dstSRS, NoData: noData}, nil
}

// Resample regrids r onto square cells of pixelSize map units with cubic
// spline resampling.
func (e *Engine) Resample(ctx context.Context, r *domain.Raster, pixelSize float64) (*domain.Raster, error) {
	src, err := e.sourcePath(ctx, r)
	if err != nil {
		return nil, err
	}
	out := e.tmp(".tif")
	err = e.run(ctx, "gdalwarp", "-q", "-overwrite",
		"-of", "GTiff", "-ot", "Float32",
		"-tr", formatFloat(pixelSize), formatFloat(pixelSize),
		"-srcnodata", formatFloat(r.NoData), "-dstnodata", warpNoData,
		"-r", "cubicspline", "-multi", "-wm", "8192",
		src, out)
	if err != nil {
		return nil, err
	}
	return &domain.Raster{Handle: out, SRS: r.SRS, NoData: domain.WarpNoData}, nil
}

// Clip cuts r to the polygon at boundaryPath, cropping the extent to the
// cutline and snapping cells to the engine's pixel size.
func (e *Engine) Clip(ctx context.Context, r *domain.Raster, boundaryPath string) (*domain.Raster, error) {
	src, err := e.sourcePath(ctx, r)
	if err != nil {
		return nil, err
	}
	out := e.tmp(".tif")
	err = e.run(ctx, "gdalwarp", "-q", "-overwrite",
		"-of", "GTiff", "-ot", "Float32",
		"-cutline", boundaryPath, "-crop_to_cutline",
		"-tr", formatFloat(e.pixelSize), formatFloat(e.pixelSize),
		"-srcnodata", formatFloat(r.NoData), "-dstnodata", warpNoData,
		"-multi", "-wm", "8192",
		src, out)
	if err != nil {
		return nil, err
	}
	return &domain.Raster{Handle: out, SRS: r.SRS, NoData: domain.WarpNoData}, nil
}

// writePointsCSV writes the gdal_grid input table.
func writePointsCSV(path string, points []domain.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("grid: write points csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"municipality_id", "lon", "lat", "rainfall"}); err != nil {
		return err
	}
	for _, p := range points {
		err := w.Write([]string{
			p.StationID,
			strconv.FormatFloat(p.Lon, 'f', -1, 64),
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// pointsVRT wraps the points CSV in an OGR virtual layer so gdal_grid sees a
// point geometry column.
func pointsVRT(csvPath, srs string) string {
	layer := strings.TrimSuffix(filepath.Base(csvPath), ".csv")
	return fmt.Sprintf(`<OGRVRTDataSource>
  <OGRVRTLayer name=%q>
    <SrcDataSource>%s</SrcDataSource>
    <SrcLayer>%s</SrcLayer>
    <GeometryType>wkbPoint</GeometryType>
    <LayerSRS>%s</LayerSRS>
    <GeometryField encoding="PointFromColumns" x="lon" y="lat" z="rainfall"/>
  </OGRVRTLayer>
</OGRVRTDataSource>
`, layer, csvPath, layer, srs)
}

// gdalInfo is the subset of `gdalinfo -json` output this engine reads.
type gdalInfo struct {
	Size             [2]int    `json:"size"`
	GeoTransform     []float64 `json:"geoTransform"`
	CoordinateSystem struct {
		WKT string `json:"wkt"`
	} `json:"coordinateSystem"`
	Bands []struct {
		NoDataValue *float64 `json:"noDataValue"`
		Minimum     *float64 `json:"minimum"`
		Maximum     *float64 `json:"maximum"`
		ComputedMin *float64 `json:"computedMin"`
		ComputedMax *float64 `json:"computedMax"`
	} `json:"bands"`
}

// info runs gdalinfo -json on path. computeMinMax forces an exact min/max
// scan over the band.
func (e *Engine) info(ctx context.Context, path string, computeMinMax bool) (*gdalInfo, error) {
	args := []string{"-json"}
	if computeMinMax {
		args = append(args, "-mm")
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, "gdalinfo", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("gdalinfo %s: %w: %s", path, err, msg)
		}
		return nil, fmt.Errorf("gdalinfo %s: %w", path, err)
	}

	var info gdalInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("gdalinfo %s: parse output: %w", path, err)
	}
	return &info, nil
}
