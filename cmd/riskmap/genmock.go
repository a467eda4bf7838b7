package main

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

// Synthetic stations are scattered over the Nepal bounding box.
const (
	mockLatMin = 26.4
	mockLatMax = 30.4
	mockLonMin = 80.0
	mockLonMax = 88.2
)

var mockBaseDate = time.Date(2026, time.July, 14, 0, 0, 0, 0, time.UTC)

func genmockCmd() *cobra.Command {
	var (
		outDir   string
		stations int
		days     int
		history  int
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "genmock",
		Short: "Write synthetic rainfall CSV fixtures",
		RunE: func(_ *cobra.Command, _ []string) error {
			return writeMockRainfall(outDir, stations, days, history, seed)
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "Input/Raw/Csv", "directory for the generated CSV files")
	cmd.Flags().IntVar(&stations, "stations", 25, "number of synthetic rainfall stations")
	cmd.Flags().IntVar(&days, "days", 3, "forecast days to generate")
	cmd.Flags().IntVar(&history, "history", 5, "recorded-rainfall days to generate")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed, fixed for reproducible fixtures")
	return cmd
}

type mockStation struct {
	id  string
	lat float64
	lon float64
}

func writeMockRainfall(outDir string, stations, days, history int, seed int64) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	// Fixed clock so reruns with the same seed produce identical files.
	clock := clockwork.NewFakeClockAt(mockBaseDate)
	rng := rand.New(rand.NewSource(seed))

	sts := make([]mockStation, stations)
	for i := range sts {
		sts[i] = mockStation{
			id:  strconv.Itoa(10101 + i),
			lat: mockLatMin + rng.Float64()*(mockLatMax-mockLatMin),
			lon: mockLonMin + rng.Float64()*(mockLonMax-mockLonMin),
		}
	}

	forecastPath := filepath.Join(outDir, "municipalities_rain_forecast.csv")
	err := writeRainfallCSV(forecastPath, "forecast_date", sts, days, func(day int) string {
		return clock.Now().AddDate(0, 0, day+1).Format("2006-01-02")
	}, rng)
	if err != nil {
		return err
	}

	recordedPath := filepath.Join(outDir, "municipalities_rain_record.csv")
	err = writeRainfallCSV(recordedPath, "record_date", sts, history, func(day int) string {
		return clock.Now().AddDate(0, 0, -(history - day)).Format("2006-01-02")
	}, rng)
	if err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d stations x %d days)\n", forecastPath, stations, days)
	fmt.Printf("wrote %s (%d stations x %d days)\n", recordedPath, stations, history)
	return nil
}

func writeRainfallCSV(path, dateColumn string, sts []mockStation, days int, dateFor func(day int) string, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"municipality_id", "lat", "lon", "rainfall", dateColumn}); err != nil {
		return err
	}
	for day := 0; day < days; day++ {
		date := dateFor(day)
		for _, st := range sts {
			// Monsoon-ish values: mostly light, occasionally heavy.
			rainfall := rng.Float64() * 15
			if rng.Float64() < 0.15 {
				rainfall += 40 + rng.Float64()*80
			}
			err := w.Write([]string{
				st.id,
				strconv.FormatFloat(st.lat, 'f', 5, 64),
				strconv.FormatFloat(st.lon, 'f', 5, 64),
				strconv.FormatFloat(rainfall, 'f', 2, 64),
				date,
			})
			if err != nil {
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
