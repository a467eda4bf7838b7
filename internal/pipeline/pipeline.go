// Package pipeline sequences the raster engine through the staged chains
// that produce classified factor rasters, the base susceptibility map,
// rainfall rasters per time-slice, and the final per-forecast-day fused
// maps. Finished artifacts are memoized on the filesystem by existence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/landslide-riskmap/internal/config"
	"github.com/couchcryptid/landslide-riskmap/internal/domain"
	"github.com/couchcryptid/landslide-riskmap/internal/observability"
	"github.com/couchcryptid/landslide-riskmap/internal/rainfall"
	"golang.org/x/sync/errgroup"
)

// Artifact kinds, used as metric labels and notification fields.
const (
	kindFactor   = "factor"
	kindBaseMap  = "base_map"
	kindRecorded = "recorded_rainfall"
	kindForecast = "forecast_rainfall"
	kindFinal    = "final_map"
)

// Artifact describes one persisted pipeline output.
type Artifact struct {
	RunID       string    `json:"run_id"`
	Kind        string    `json:"kind"`
	Path        string    `json:"path"`
	Date        string    `json:"date,omitempty"`
	ForecastDay int       `json:"forecast_day,omitempty"`
	WrittenAt   time.Time `json:"written_at"`
}

// ArtifactNotifier publishes completed artifacts to downstream consumers.
type ArtifactNotifier interface {
	NotifyArtifact(ctx context.Context, artifact Artifact) error
}

// DayResult is the outcome of one forecast day's stage chain and fusion.
type DayResult struct {
	Day          int
	Date         string
	RainfallPath string
	FinalPath    string
	Err          error
}

// RunResult collects the artifact paths of one orchestrator invocation.
// Per-day failures are recorded in Days; they never abort sibling days.
type RunResult struct {
	RunID        string
	BaseMapPath  string
	RecordedPath string
	Days         []DayResult
}

// Failed reports whether any forecast day ended in error.
func (r *RunResult) Failed() bool {
	for _, d := range r.Days {
		if d.Err != nil {
			return true
		}
	}
	return false
}

// Orchestrator drives the classification and fusion engines against the
// injected raster engine collaborator. It owns no raster numerics itself:
// its only logic is sequencing, cache checks, metadata pass-through, and
// buffer release.
type Orchestrator struct {
	engine   domain.RasterEngine
	cfg      *config.Config
	store    *ArtifactStore
	logger   *slog.Logger
	metrics  *observability.Metrics
	notifier ArtifactNotifier
	ready    atomic.Bool

	extentOnce sync.Once
	extent     domain.Bounds
	extentErr  error
}

// New creates an Orchestrator. Pass a nil notifier to disable artifact
// notifications.
func New(engine domain.RasterEngine, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, notifier ArtifactNotifier) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		cfg:      cfg,
		store:    NewArtifactStore(cfg.CacheVersioned, cfg.FactorDigest()),
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
	}
}

// CheckReadiness returns nil once the shared base map is in place, or an
// error describing why the run is not yet past that point.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("base susceptibility map not ready yet")
	}
	return nil
}

// Run executes one full pipeline invocation: constant factors, base map,
// recorded rainfall, per-forecast-day chains, and final fused maps.
//
// Configuration and missing-input errors are fatal and returned before any
// raster work. A raster engine failure inside one forecast day's chain is
// recorded on that day's result only; sibling days keep running.
func (o *Orchestrator) Run(ctx context.Context, runID string) (*RunResult, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	o.metrics.PipelineRunning.Set(1)
	defer o.metrics.PipelineRunning.Set(0)
	start := domain.Clock().Now()
	defer func() { o.metrics.RunDuration.Observe(domain.Clock().Since(start).Seconds()) }()

	o.logger.Info("pipeline started", "run_id", runID, "factors", len(o.cfg.Factors))

	classified, err := o.ensureClassifiedFactors(ctx)
	if err != nil {
		return nil, err
	}

	basePath, err := o.ensureBaseMap(ctx, runID, classified)
	if err != nil {
		return nil, err
	}
	o.ready.Store(true)

	recordedPath, err := o.ensureRecordedRainfall(ctx, runID)
	if err != nil {
		return nil, err
	}

	forecast, err := rainfall.Load(o.cfg.ForecastCSV, "forecast_date")
	if err != nil {
		return nil, err
	}
	days := forecast.SplitByDate()
	if len(days) == 0 {
		return nil, errors.New("forecast table has no rows; nothing to compute")
	}

	result := &RunResult{
		RunID:        runID,
		BaseMapPath:  basePath,
		RecordedPath: recordedPath,
		Days:         make([]DayResult, len(days)),
	}

	// Forecast days are independent: they share only read-only inputs, each
	// owns its own buffers and output paths, and one day's failure must not
	// cancel its siblings. Errors are recorded per day, never returned to
	// the group.
	var g errgroup.Group
	g.SetLimit(o.cfg.MaxParallelDays)
	for i, day := range days {
		g.Go(func() error {
			result.Days[i] = o.runForecastDay(ctx, runID, day, basePath, recordedPath)
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range result.Days {
		if d.Err != nil {
			o.logger.Error("forecast day failed", "run_id", runID, "day", d.Day, "date", d.Date, "error", d.Err)
		}
	}
	o.logger.Info("pipeline finished", "run_id", runID, "days", len(days), "failed", result.Failed())

	return result, nil
}

// ensureClassifiedFactors produces the classified raster for every constant
// factor, skipping those already cached, and returns them as weighted layers
// by path.
func (o *Orchestrator) ensureClassifiedFactors(ctx context.Context) ([]factorArtifact, error) {
	artifacts := make([]factorArtifact, 0, len(o.cfg.Factors))

	for _, factor := range o.cfg.Factors {
		path := o.store.Resolve(factor.Classified)
		artifacts = append(artifacts, factorArtifact{factor: factor, path: path})

		if o.cacheHit(kindFactor, path) {
			o.logger.Info("classified raster already exists, skipping", "factor", factor.Name, "path", path)
			continue
		}
		if err := o.constantChain(ctx, factor, path); err != nil {
			return nil, fmt.Errorf("factor %s: %w", factor.Name, err)
		}
	}

	return artifacts, nil
}

// ensureBaseMap fuses the classified factors into the base susceptibility
// map unless it is already cached.
func (o *Orchestrator) ensureBaseMap(ctx context.Context, runID string, classified []factorArtifact) (string, error) {
	path := o.store.Resolve(o.cfg.BaseMapPath)
	if o.cacheHit(kindBaseMap, path) {
		o.logger.Info("base map already exists, skipping", "path", path)
		return path, nil
	}
	if err := o.buildBaseMap(ctx, runID, classified, path); err != nil {
		return "", err
	}
	return path, nil
}

// ensureRecordedRainfall sums the recorded rainfall per station and pushes
// the point set through the full stage chain unless already cached.
func (o *Orchestrator) ensureRecordedRainfall(ctx context.Context, runID string) (string, error) {
	path := o.store.Resolve(filepath.Join(o.cfg.ProcessedDir, "Raster", "recorded_rainfall_utm45n_cls.tif"))
	if o.cacheHit(kindRecorded, path) {
		o.logger.Info("recorded rainfall raster already exists, skipping", "path", path)
		return path, nil
	}

	table, err := rainfall.Load(o.cfg.RecordedCSV, "record_date")
	if err != nil {
		return "", err
	}
	points, err := table.SumByStation()
	if err != nil {
		return "", err
	}

	if err := o.sliceChain(ctx, points, nil, path); err != nil {
		o.metrics.SlicesFailed.Inc()
		return "", err
	}
	o.metrics.SlicesCompleted.Inc()
	o.notify(ctx, Artifact{RunID: runID, Kind: kindRecorded, Path: path, WrittenAt: domain.Clock().Now()})
	return path, nil
}

// runForecastDay executes one day's chain and its final fusion. All
// failures land on the returned result.
func (o *Orchestrator) runForecastDay(ctx context.Context, runID string, day rainfall.DaySet, basePath, recordedPath string) DayResult {
	res := DayResult{Day: day.Day, Date: day.Date}

	res.RainfallPath = o.store.Resolve(filepath.Join(o.cfg.ProcessedDir, "Raster",
		fmt.Sprintf("%d_day_forecast_rainfall_cls.tif", day.Day)))
	if o.cacheHit(kindForecast, res.RainfallPath) {
		o.logger.Info("forecast rainfall raster already exists, skipping", "day", day.Day, "path", res.RainfallPath)
	} else {
		if err := o.sliceChain(ctx, day.Points, nil, res.RainfallPath); err != nil {
			o.metrics.SlicesFailed.Inc()
			res.Err = err
			return res
		}
		o.metrics.SlicesCompleted.Inc()
		o.notify(ctx, Artifact{RunID: runID, Kind: kindForecast, Path: res.RainfallPath,
			Date: day.Date, ForecastDay: day.Day, WrittenAt: domain.Clock().Now()})
	}

	res.FinalPath = o.store.Resolve(filepath.Join(o.cfg.OutputDir,
		fmt.Sprintf("%d_day_landslide_map_FINAL.tif", day.Day)))
	if o.cacheHit(kindFinal, res.FinalPath) {
		o.logger.Info("final map already exists, skipping", "day", day.Day, "path", res.FinalPath)
		return res
	}
	if err := o.fuseDay(ctx, basePath, recordedPath, res.RainfallPath, res.FinalPath); err != nil {
		o.metrics.SlicesFailed.Inc()
		res.Err = err
		return res
	}
	o.notify(ctx, Artifact{RunID: runID, Kind: kindFinal, Path: res.FinalPath,
		Date: day.Date, ForecastDay: day.Day, WrittenAt: domain.Clock().Now()})
	o.logger.Info("final susceptibility map created", "day", day.Day, "date", day.Date, "path", res.FinalPath)

	return res
}

// cacheHit checks artifact existence and records the lookup.
func (o *Orchestrator) cacheHit(kind, path string) bool {
	if o.store.Exists(path) {
		o.metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
		return true
	}
	o.metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()
	return false
}

// notify publishes an artifact record; failures are logged, never fatal.
func (o *Orchestrator) notify(ctx context.Context, artifact Artifact) {
	o.metrics.ArtifactsWritten.WithLabelValues(artifact.Kind).Inc()
	if o.notifier == nil {
		return
	}
	if err := o.notifier.NotifyArtifact(ctx, artifact); err != nil {
		o.logger.Warn("artifact notification failed", "kind", artifact.Kind, "path", artifact.Path, "error", err)
	}
}

// factorArtifact pairs a factor's config with its resolved classified path.
type factorArtifact struct {
	factor config.FactorConfig
	path   string
}
