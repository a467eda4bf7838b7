package config

import "github.com/couchcryptid/landslide-riskmap/internal/domain"

// defaultGridAlgorithm is the gdal_grid interpolation spec used for rainfall
// point sets: inverse-distance weighting, matching the deployed pipeline.
const defaultGridAlgorithm = "invdist:power=2.0:smoothing=0.0:radius1=0.0:radius2=0.0:angle=0.0:max_points=0:min_points=0:nodata=-128"

func f(v float64) *float64 { return &v }

func rule(low, high *float64, class int) domain.ClassificationRule {
	return domain.ClassificationRule{Low: low, High: high, Class: class}
}

// DefaultFactors is the Nepal deployment's factor table: raw/classified
// raster locations, overlay weights summing to 1.0, and per-factor
// classification rules. Geology ships already classified and passes through.
func DefaultFactors() []FactorConfig {
	return []FactorConfig{
		{
			Name:       "slope",
			Raster:     "Input/Raw/Raster/slope_utm45n.tif",
			Classified: "Input/Processed/Raster/slope_utm45n_cls.tif",
			Weight:     0.15,
			Rules: domain.ClassificationSpec{
				rule(nil, f(15), 1),
				rule(f(15), f(30), 8),
				rule(f(30), f(60), 10),
				rule(f(60), nil, 4),
			},
		},
		{
			Name:       "curvature",
			Raster:     "Input/Raw/Raster/curvature_utm45n.tif",
			Classified: "Input/Processed/Raster/curvature_utm45n_cls.tif",
			Weight:     0.08,
			Rules: domain.ClassificationSpec{
				rule(nil, f(0), 2),
				rule(f(0), f(0.001), 1),
				rule(f(0.01), nil, 3),
			},
		},
		{
			Name:       "lulc",
			Raster:     "Input/Raw/Raster/lulc_utm45n.tif",
			Classified: "Input/Processed/Raster/lulc_utm45n_cls.tif",
			Weight:     0.09,
			Rules: domain.ClassificationSpec{
				rule(nil, f(1), 1),
				rule(f(1), f(2), 1),
				rule(f(2), f(4), 3),
				rule(f(4), f(5), 7),
				rule(f(5), f(7), 3),
				rule(f(7), f(8), 2),
				rule(f(8), f(9), 8),
				rule(f(9), f(11), 1),
				rule(f(11), nil, 7),
			},
		},
		{
			Name:       "ndvi",
			Raster:     "Input/Raw/Raster/ndvi_utm45n.tif",
			Classified: "Input/Processed/Raster/ndvi_utm45n_cls.tif",
			Weight:     0.08,
			Rules: domain.ClassificationSpec{
				rule(nil, f(0), 9),
				rule(f(0), f(0.2), 7),
				rule(f(0.2), f(0.4), 5),
				rule(f(0.4), nil, 2),
			},
		},
		{
			Name:       "aspect",
			Raster:     "Input/Raw/Raster/aspect_utm45n.tif",
			Classified: "Input/Processed/Raster/aspect_utm45n_cls.tif",
			Weight:     0.09,
			// Octants in compass order: N, NE, E, SE, S, SW, W, NW, N.
			Rules: domain.ClassificationSpec{
				rule(f(0), f(22.5), 2),
				rule(f(22.5), f(67.5), 2),
				rule(f(67.5), f(112.5), 3),
				rule(f(112.5), f(157.5), 4),
				rule(f(157.5), f(202.5), 6),
				rule(f(202.5), f(247.5), 4),
				rule(f(247.5), f(292.5), 6),
				rule(f(292.5), f(337.5), 2),
				rule(f(337.5), f(360), 2),
			},
		},
		{
			Name:       "river",
			Raster:     "Input/Raw/Raster/river_utm45n.tif",
			Classified: "Input/Processed/Raster/river_utm45n_cls.tif",
			Weight:     0.07,
			Rules:      proximityRules(),
		},
		{
			Name:       "road",
			Raster:     "Input/Raw/Raster/road_utm45n.tif",
			Classified: "Input/Processed/Raster/road_utm45n_cls.tif",
			Weight:     0.09,
			Rules:      proximityRules(),
		},
		{
			Name:       "fault",
			Raster:     "Input/Raw/Raster/thrust_utm45n.tif",
			Classified: "Input/Processed/Raster/thrust_utm45n_cls.tif",
			Weight:     0.13,
			Rules:      proximityRules(),
		},
		{
			Name:       "soil",
			Raster:     "Input/Raw/Raster/soil_utm45n.tif",
			Classified: "Input/Processed/Raster/soil_utm45n_cls.tif",
			Weight:     0.1,
			Rules: domain.ClassificationSpec{
				rule(nil, f(2), 2),
				rule(f(2), f(3), 6),
				rule(f(3), f(4), 7),
				rule(f(4), f(5), 3),
				rule(f(5), f(12), 2),
				rule(f(12), f(13), 2),
				rule(f(13), f(14), 3),
				rule(f(14), f(15), 4),
				rule(f(15), nil, 2),
			},
		},
		{
			Name:       "geology",
			Raster:     "Input/Raw/Raster/geology_utm45n.tif",
			Classified: "Input/Processed/Raster/geology_utm45n_cls.tif",
			Weight:     0.12,
			Rules:      nil,
		},
	}
}

// proximityRules classifies distance-to-feature rasters (river, road,
// fault): closer means more susceptible.
func proximityRules() domain.ClassificationSpec {
	return domain.ClassificationSpec{
		rule(nil, f(100), 5),
		rule(f(100), f(500), 3),
		rule(f(500), nil, 2),
	}
}
