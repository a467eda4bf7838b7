package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/landslide-riskmap/internal/config"
	"github.com/couchcryptid/landslide-riskmap/internal/domain"
)

// Stage names, also used as metric labels.
const (
	stageRead      = "read"
	stageWrite     = "write"
	stageStats     = "stats"
	stageGrid      = "grid"
	stageReproject = "reproject"
	stageResample  = "resample"
	stageClip      = "clip"
)

// timed runs one collaborator call, records its duration, and wraps any
// failure in a CollaboratorError carrying the stage name.
func (o *Orchestrator) timed(stage string, fn func() error) error {
	start := domain.Clock().Now()
	err := fn()
	o.metrics.StageDuration.WithLabelValues(stage).Observe(domain.Clock().Since(start).Seconds())
	if err != nil {
		o.metrics.CollaboratorErrs.WithLabelValues(stage).Inc()
		return &domain.CollaboratorError{Stage: stage, Err: err}
	}
	return nil
}

// informationExtent reads the gridding bounds off the information raster
// once per orchestrator; every slice chain shares the same extent.
func (o *Orchestrator) informationExtent(ctx context.Context) (domain.Bounds, error) {
	o.extentOnce.Do(func() {
		o.extentErr = o.timed(stageStats, func() error {
			var err error
			o.extent, err = o.engine.Extent(ctx, o.cfg.InformationRaster)
			return err
		})
	})
	return o.extent, o.extentErr
}

// materialize loads an external raster handle into memory. Rasters the
// engine returned already loaded pass through untouched.
func (o *Orchestrator) materialize(ctx context.Context, r *domain.Raster) (*domain.Raster, error) {
	if r.Loaded() {
		return r, nil
	}
	var loaded *domain.Raster
	err := o.timed(stageRead, func() error {
		var err error
		loaded, err = o.engine.ReadRaster(ctx, r.Handle)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// writeArtifact persists a raster at path, creating parent directories.
func (o *Orchestrator) writeArtifact(ctx context.Context, r *domain.Raster, path string) error {
	if err := o.store.Prepare(path); err != nil {
		return fmt.Errorf("prepare artifact dir: %w", err)
	}
	return o.timed(stageWrite, func() error {
		return o.engine.WriteRaster(ctx, r, path)
	})
}

// constantChain is the two-stage chain for static factor rasters:
// classify then clip. Computed once and shared by all forecast days.
func (o *Orchestrator) constantChain(ctx context.Context, factor config.FactorConfig, outPath string) error {
	o.logger.Info("processing factor raster", "factor", factor.Name, "raster", factor.Raster)

	var raw *domain.Raster
	if err := o.timed(stageRead, func() error {
		var err error
		raw, err = o.engine.ReadRaster(ctx, factor.Raster)
		return err
	}); err != nil {
		return err
	}

	classified, err := domain.Classify(raw, factor.Rules)
	if err != nil {
		return err
	}
	raw.Release()

	var clipped *domain.Raster
	if err := o.timed(stageClip, func() error {
		var err error
		clipped, err = o.engine.Clip(ctx, classified, o.cfg.BoundaryPath)
		return err
	}); err != nil {
		return err
	}
	classified.Release()

	clipped, err = o.materialize(ctx, clipped)
	if err != nil {
		return err
	}
	if err := o.writeArtifact(ctx, clipped, outPath); err != nil {
		return err
	}
	clipped.Release()

	o.metrics.ArtifactsWritten.WithLabelValues(kindFactor).Inc()
	return nil
}

// sliceChain pushes one rainfall point set through the full five-stage
// chain: grid, reproject, resample, clip, then classify or pass through.
// Each intermediate buffer is released as soon as the next stage has
// consumed it.
func (o *Orchestrator) sliceChain(ctx context.Context, points []domain.Point, spec domain.ClassificationSpec, outPath string) error {
	bounds, err := o.informationExtent(ctx)
	if err != nil {
		return err
	}

	var gridded *domain.Raster
	if err := o.timed(stageGrid, func() error {
		var err error
		gridded, err = o.engine.GridFromPoints(ctx, points, domain.GridRequest{
			Bounds:    bounds,
			SRS:       o.cfg.SourceSRS,
			NoData:    domain.WarpNoData,
			Algorithm: o.cfg.GridAlgorithm,
		})
		return err
	}); err != nil {
		return err
	}

	var reprojected *domain.Raster
	if err := o.timed(stageReproject, func() error {
		var err error
		reprojected, err = o.engine.Reproject(ctx, gridded, o.cfg.SourceSRS, o.cfg.TargetSRS, domain.WarpNoData)
		return err
	}); err != nil {
		return err
	}
	gridded.Release()

	var resampled *domain.Raster
	if err := o.timed(stageResample, func() error {
		var err error
		resampled, err = o.engine.Resample(ctx, reprojected, o.cfg.PixelSize)
		return err
	}); err != nil {
		return err
	}
	reprojected.Release()

	var clipped *domain.Raster
	if err := o.timed(stageClip, func() error {
		var err error
		clipped, err = o.engine.Clip(ctx, resampled, o.cfg.BoundaryPath)
		return err
	}); err != nil {
		return err
	}
	resampled.Release()

	clipped, err = o.materialize(ctx, clipped)
	if err != nil {
		return err
	}
	classified, err := domain.Classify(clipped, spec)
	if err != nil {
		return err
	}
	clipped.Release()

	if err := o.writeArtifact(ctx, classified, outPath); err != nil {
		return err
	}
	classified.Release()

	return nil
}

// buildBaseMap reads every classified factor and fuses them into the
// weighted base susceptibility map.
func (o *Orchestrator) buildBaseMap(ctx context.Context, runID string, classified []factorArtifact, outPath string) error {
	layers := make([]domain.FactorLayer, 0, len(classified))
	for _, fa := range classified {
		var r *domain.Raster
		if err := o.timed(stageRead, func() error {
			var err error
			r, err = o.engine.ReadRaster(ctx, fa.path)
			return err
		}); err != nil {
			return fmt.Errorf("factor %s: %w", fa.factor.Name, err)
		}
		o.logger.Info("overlay layer loaded", "factor", fa.factor.Name, "weight", fa.factor.Weight, "path", fa.path)
		layers = append(layers, domain.FactorLayer{Name: fa.factor.Name, Raster: r, Weight: fa.factor.Weight})
	}

	fused, err := domain.FuseOverlay(layers)
	if err != nil {
		return err
	}
	for _, l := range layers {
		l.Raster.Release()
	}

	if err := o.writeArtifact(ctx, fused, outPath); err != nil {
		return err
	}
	fused.Release()

	o.notify(ctx, Artifact{RunID: runID, Kind: kindBaseMap, Path: outPath, WrittenAt: domain.Clock().Now()})
	o.logger.Info("base susceptibility map created", "path", outPath, "layers", len(layers))
	return nil
}

// fuseDay joins one forecast day's rainfall raster with the shared base map
// and recorded rainfall into the final susceptibility map for that day.
func (o *Orchestrator) fuseDay(ctx context.Context, basePath, recordedPath, dayPath, outPath string) error {
	var stats domain.RasterStats
	if err := o.timed(stageStats, func() error {
		var err error
		stats, err = o.engine.GlobalStats(ctx, basePath)
		return err
	}); err != nil {
		return err
	}

	read := func(path string) (*domain.Raster, error) {
		var r *domain.Raster
		err := o.timed(stageRead, func() error {
			var err error
			r, err = o.engine.ReadRaster(ctx, path)
			return err
		})
		return r, err
	}

	base, err := read(basePath)
	if err != nil {
		return err
	}
	recorded, err := read(recordedPath)
	if err != nil {
		return err
	}
	forecast, err := read(dayPath)
	if err != nil {
		return err
	}

	fused, err := domain.FuseRainfall(base, recorded, forecast, stats,
		o.cfg.RecordedRainfallWeight, o.cfg.ForecastRainfallWeight)
	if err != nil {
		return err
	}
	base.Release()
	recorded.Release()
	forecast.Release()

	if err := o.writeArtifact(ctx, fused, outPath); err != nil {
		return err
	}
	fused.Release()

	return nil
}
