package gdal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/landslide-riskmap/internal/domain"
)

// ASCII-grid (AAIGrid) is the exchange format used to move cell arrays
// between GDAL and this process: gdal_translate produces and consumes it,
// and the text layout is trivial to stream. Only axis-aligned grids with
// square cells can be represented, which holds for every raster this
// pipeline touches after the resample stage.

// decodeAAIGrid parses an Arc/Info ASCII grid file into a raster. NoData
// defaults to -9999 when the header omits it.
func decodeAAIGrid(path string) (*domain.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseAAIGrid(f)
}

func parseAAIGrid(r io.Reader) (*domain.Raster, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)

	next := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return scanner.Text(), nil
	}

	var (
		ncols, nrows       int
		xll, yll, cellsize float64
		centered           bool
		noData             = -9999.0
	)

	// Header: keyword/value pairs until the first numeric token, which is
	// the start of the cell data.
	var firstCell string
	for {
		tok, err := next()
		if err != nil {
			return nil, fmt.Errorf("aaigrid header: %w", err)
		}
		key := strings.ToLower(tok)
		if _, numErr := strconv.ParseFloat(tok, 64); numErr == nil {
			firstCell = tok
			break
		}

		val, err := next()
		if err != nil {
			return nil, fmt.Errorf("aaigrid header value for %s: %w", key, err)
		}
		switch key {
		case "ncols":
			ncols, err = strconv.Atoi(val)
		case "nrows":
			nrows, err = strconv.Atoi(val)
		case "xllcorner":
			xll, err = strconv.ParseFloat(val, 64)
		case "yllcorner":
			yll, err = strconv.ParseFloat(val, 64)
		case "xllcenter":
			xll, err = strconv.ParseFloat(val, 64)
			centered = true
		case "yllcenter":
			yll, err = strconv.ParseFloat(val, 64)
			centered = true
		case "cellsize":
			cellsize, err = strconv.ParseFloat(val, 64)
		case "dx":
			cellsize, err = strconv.ParseFloat(val, 64)
		case "dy":
			var dy float64
			dy, err = strconv.ParseFloat(val, 64)
			if err == nil && cellsize != 0 && math.Abs(dy-cellsize) > 1e-9 {
				return nil, fmt.Errorf("aaigrid: non-square cells %vx%v unsupported", cellsize, dy)
			}
		case "nodata_value":
			noData, err = strconv.ParseFloat(val, 64)
		default:
			return nil, fmt.Errorf("aaigrid: unknown header keyword %q", key)
		}
		if err != nil {
			return nil, fmt.Errorf("aaigrid header %s: %w", key, err)
		}
	}

	if ncols <= 0 || nrows <= 0 {
		return nil, fmt.Errorf("aaigrid: invalid size %dx%d", ncols, nrows)
	}
	if cellsize <= 0 {
		return nil, fmt.Errorf("aaigrid: missing or invalid cellsize")
	}
	if centered {
		xll -= cellsize / 2
		yll -= cellsize / 2
	}

	out := &domain.Raster{
		Width:  ncols,
		Height: nrows,
		NoData: noData,
		Data:   make([]float64, ncols*nrows),
		GeoTransform: [6]float64{
			xll, cellsize, 0,
			yll + cellsize*float64(nrows), 0, -cellsize,
		},
	}

	out.Data[0], _ = strconv.ParseFloat(firstCell, 64)
	for i := 1; i < len(out.Data); i++ {
		tok, err := next()
		if err != nil {
			return nil, fmt.Errorf("aaigrid: cell %d of %d: %w", i, len(out.Data), err)
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("aaigrid: cell %d: %w", i, err)
		}
		out.Data[i] = v
	}

	return out, nil
}

// encodeAAIGrid writes a raster as an Arc/Info ASCII grid. The raster must
// have axis-aligned square cells.
func encodeAAIGrid(r *domain.Raster, path string) error {
	gt := r.GeoTransform
	if gt[2] != 0 || gt[4] != 0 {
		return fmt.Errorf("aaigrid: rotated geotransform unsupported")
	}
	cellsize := gt[1]
	if cellsize <= 0 || math.Abs(gt[5]+cellsize) > 1e-9*math.Max(1, cellsize) {
		return fmt.Errorf("aaigrid: non-square cells %v x %v unsupported", gt[1], gt[5])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	yll := gt[3] + gt[5]*float64(r.Height)
	fmt.Fprintf(w, "ncols %d\n", r.Width)
	fmt.Fprintf(w, "nrows %d\n", r.Height)
	fmt.Fprintf(w, "xllcorner %s\n", formatFloat(gt[0]))
	fmt.Fprintf(w, "yllcorner %s\n", formatFloat(yll))
	fmt.Fprintf(w, "cellsize %s\n", formatFloat(cellsize))
	fmt.Fprintf(w, "NODATA_value %s\n", formatFloat(r.NoData))

	for row := 0; row < r.Height; row++ {
		line := r.Data[row*r.Width : (row+1)*r.Width]
		for col, v := range line {
			if col > 0 {
				if err := w.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(formatFloat(v)); err != nil {
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
