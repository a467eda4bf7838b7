// Package rainfall loads tabular rainfall observations and regroups them
// into the point sets the raster pipeline consumes: one set per forecast
// date, or one summed set per station for the recorded window.
package rainfall

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/landslide-riskmap/internal/domain"
	"github.com/montanaflynn/stats"
)

// Column names required in the source CSVs. Exact names, matching the
// upstream data exports.
const (
	stationColumn  = "municipality_id"
	latColumn      = "lat"
	lonColumn      = "lon"
	rainfallColumn = "rainfall"
)

// Record is one rainfall observation for one station on one date.
type Record struct {
	StationID string
	Lat       float64
	Lon       float64
	Rainfall  float64
	Date      string
}

// Table holds the parsed rows of one rainfall CSV in file order.
type Table struct {
	DateColumn string
	Records    []Record
}

// DaySet is one date's worth of rainfall points. Day is 1-based in the order
// dates first appear in the source table.
type DaySet struct {
	Day    int
	Date   string
	Points []domain.Point
}

// Load parses a rainfall CSV. dateColumn names the column holding the
// per-row date (forecast_date for forecasts, record_date for recordings);
// additional columns are ignored.
func Load(path, dateColumn string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rainfall csv: %w", err)
	}
	defer f.Close()

	t, err := parse(f, dateColumn)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

func parse(r io.Reader, dateColumn string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range []string{stationColumn, latColumn, lonColumn, rainfallColumn, dateColumn} {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	t := &Table{DateColumn: dateColumn}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := Record{
			StationID: row[idx[stationColumn]],
			Date:      row[idx[dateColumn]],
		}
		if rec.Lat, err = strconv.ParseFloat(row[idx[latColumn]], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad %s: %w", line, latColumn, err)
		}
		if rec.Lon, err = strconv.ParseFloat(row[idx[lonColumn]], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad %s: %w", line, lonColumn, err)
		}
		if rec.Rainfall, err = strconv.ParseFloat(row[idx[rainfallColumn]], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad %s: %w", line, rainfallColumn, err)
		}
		t.Records = append(t.Records, rec)
	}

	return t, nil
}

// SplitByDate groups the table into independent per-date point sets, in the
// order dates first appear. Each set feeds one time-slice of the pipeline.
func (t *Table) SplitByDate() []DaySet {
	var sets []DaySet
	byDate := make(map[string]int)

	for _, rec := range t.Records {
		i, ok := byDate[rec.Date]
		if !ok {
			i = len(sets)
			byDate[rec.Date] = i
			sets = append(sets, DaySet{Day: i + 1, Date: rec.Date})
		}
		sets[i].Points = append(sets[i].Points, domain.Point{
			StationID: rec.StationID,
			Lat:       rec.Lat,
			Lon:       rec.Lon,
			Value:     rec.Rainfall,
		})
	}

	return sets
}

// SumByStation collapses the table to one point per station with the
// station's rainfall summed over all its rows. Position comes from the
// station's first row. Station order is first-seen.
func (t *Table) SumByStation() ([]domain.Point, error) {
	var order []string
	samples := make(map[string][]float64)
	first := make(map[string]Record)

	for _, rec := range t.Records {
		if _, ok := first[rec.StationID]; !ok {
			order = append(order, rec.StationID)
			first[rec.StationID] = rec
		}
		samples[rec.StationID] = append(samples[rec.StationID], rec.Rainfall)
	}

	points := make([]domain.Point, 0, len(order))
	for _, id := range order {
		sum, err := stats.Sum(samples[id])
		if err != nil {
			return nil, fmt.Errorf("sum rainfall for station %s: %w", id, err)
		}
		points = append(points, domain.Point{
			StationID: id,
			Lat:       first[id].Lat,
			Lon:       first[id].Lon,
			Value:     sum,
		})
	}

	return points, nil
}
