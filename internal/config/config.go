package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/landslide-riskmap/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// FactorConfig describes one static geomorphological factor: where its raw
// raster lives, where its classified artifact goes, its overlay weight, and
// its classification rules. Empty rules mean pass-through.
type FactorConfig struct {
	Name       string                    `yaml:"name"`
	Raster     string                    `yaml:"raster"`
	Classified string                    `yaml:"classified"`
	Weight     float64                   `yaml:"weight"`
	Rules      domain.ClassificationSpec `yaml:"rules"`
}

// Config holds all pipeline settings, populated from environment variables
// and an optional YAML factor table.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka artifact notifications (feature-flagged).
	KafkaBrokers  []string
	NotifyTopic   string
	NotifyEnabled bool

	// Input paths.
	ForecastCSV       string
	RecordedCSV       string
	InformationRaster string
	BoundaryPath      string

	// Artifact paths.
	ProcessedDir string
	OutputDir    string
	BaseMapPath  string

	// Raster engine parameters.
	SourceSRS     string
	TargetSRS     string
	PixelSize     float64
	GridAlgorithm string

	// Fusion parameters.
	RecordedRainfallWeight float64
	ForecastRainfallWeight float64

	MaxParallelDays int
	CacheVersioned  bool

	Factors []FactorConfig
}

// Load reads configuration from environment variables, applying defaults
// where unset. The factor table comes from FACTOR_CONFIG when set, otherwise
// the embedded deployment defaults.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pixelSize, err := parseFloat("PIXEL_SIZE", 30)
	if err != nil {
		return nil, err
	}
	recordedWeight, err := parseFloat("RECORDED_RAINFALL_WEIGHT", 0.02)
	if err != nil {
		return nil, err
	}
	forecastWeight, err := parseFloat("FORECAST_RAINFALL_WEIGHT", 0.1)
	if err != nil {
		return nil, err
	}
	maxParallel, err := parseInt("MAX_PARALLEL_DAYS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:  sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		NotifyTopic:   sharedcfg.EnvOrDefault("NOTIFY_TOPIC", "susceptibility-artifacts"),
		NotifyEnabled: os.Getenv("NOTIFY_ENABLED") == "true",

		ForecastCSV:       sharedcfg.EnvOrDefault("FORECAST_CSV", "Input/Raw/Csv/municipalities_rain_forecast.csv"),
		RecordedCSV:       sharedcfg.EnvOrDefault("RECORDED_CSV", "Input/Raw/Csv/municipalities_rain_record.csv"),
		InformationRaster: sharedcfg.EnvOrDefault("INFORMATION_RASTER", "Input/Raw/Raster/dem_wgs84.tif"),
		BoundaryPath:      sharedcfg.EnvOrDefault("BOUNDARY_SHAPEFILE", "Input/Raw/Vector/nepal_boundary_exact_utm45n.shp"),

		ProcessedDir: sharedcfg.EnvOrDefault("PROCESSED_DIR", "Input/Processed"),
		OutputDir:    sharedcfg.EnvOrDefault("OUTPUT_DIR", "Output"),
		BaseMapPath:  sharedcfg.EnvOrDefault("BASE_MAP_PATH", "Input/Processed/landslide_susceptibility_map_base.tif"),

		SourceSRS:     sharedcfg.EnvOrDefault("SOURCE_SRS", "EPSG:4326"),
		TargetSRS:     sharedcfg.EnvOrDefault("TARGET_SRS", "EPSG:32645"),
		PixelSize:     pixelSize,
		GridAlgorithm: sharedcfg.EnvOrDefault("GRID_ALGORITHM", defaultGridAlgorithm),

		RecordedRainfallWeight: recordedWeight,
		ForecastRainfallWeight: forecastWeight,

		MaxParallelDays: maxParallel,
		CacheVersioned:  os.Getenv("CACHE_VERSIONED") == "true",
	}

	if path := os.Getenv("FACTOR_CONFIG"); path != "" {
		cfg.Factors, err = loadFactorFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg.Factors = DefaultFactors()
	}

	if cfg.NotifyEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("NOTIFY_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.PixelSize <= 0 {
		return nil, errors.New("PIXEL_SIZE must be positive")
	}
	if cfg.MaxParallelDays < 1 {
		return nil, errors.New("MAX_PARALLEL_DAYS must be at least 1")
	}

	return cfg, nil
}

// Validate checks the factor table and enumerates missing input files. It
// performs no raster work.
func (c *Config) Validate() error {
	if len(c.Factors) == 0 {
		return &domain.ConfigurationError{Reason: "no factors configured"}
	}

	weights := make([]float64, len(c.Factors))
	for i, f := range c.Factors {
		weights[i] = f.Weight
		if err := f.Rules.Validate(); err != nil {
			return fmt.Errorf("factor %s: %w", f.Name, err)
		}
	}
	if err := domain.ValidateWeights(weights); err != nil {
		return err
	}

	paths := []string{c.ForecastCSV, c.RecordedCSV, c.InformationRaster, c.BoundaryPath}
	for _, f := range c.Factors {
		paths = append(paths, f.Raster)
	}
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &domain.MissingInputError{Paths: missing}
	}

	return nil
}

// FactorDigest hashes the factor table and fusion weights. Used for the
// opt-in versioned artifact layout; the default existence-only cache ignores
// it.
func (c *Config) FactorDigest() string {
	h := sha256.New()
	enc := yaml.NewEncoder(h)
	_ = enc.Encode(c.Factors)
	_ = enc.Encode([]float64{c.RecordedRainfallWeight, c.ForecastRainfallWeight})
	_ = enc.Close()
	return hex.EncodeToString(h.Sum(nil))[:8]
}

type factorFile struct {
	Factors []FactorConfig `yaml:"factors"`
}

func loadFactorFile(path string) ([]FactorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read factor config: %w", err)
	}
	var f factorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse factor config %s: %w", path, err)
	}
	if len(f.Factors) == 0 {
		return nil, fmt.Errorf("factor config %s lists no factors", path)
	}
	return f.Factors, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
