package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FactorLayer pairs a classified factor raster with its overlay weight.
type FactorLayer struct {
	Name   string
	Raster *Raster
	Weight float64
}

// ValidateWeights rejects any zero weight and any weight set whose sum
// strays more than 0.05 from 1.0. The margin absorbs floating-point drift in
// hand-maintained tables; the deployed weight table sums to 1.0 exactly.
func ValidateWeights(weights []float64) error {
	if len(weights) == 0 {
		return configErrorf("no weights given")
	}
	for i, w := range weights {
		if w == 0 {
			return configErrorf("weight %d is zero; all weights must be non-zero", i)
		}
	}
	if sum := floats.Sum(weights); math.Abs(sum-1) > 0.05 {
		return configErrorf("weights sum to %v, must sum to 1", sum)
	}
	return nil
}

// FuseOverlay combines classified factor layers into one weighted linear
// combination, processed in the order given.
//
// The first layer determines validity: the output starts at the sentinel
// everywhere and only cells valid in the first layer receive value*weight.
// Cells NoData in the first layer stay NoData permanently; later layers
// cannot revalidate them, regardless of what they hold there. Each
// subsequent layer adds value*weight where both the accumulation and its own
// cell are valid. Negative totals clamp to the sentinel at the end.
func FuseOverlay(layers []FactorLayer) (*Raster, error) {
	if len(layers) == 0 {
		return nil, configErrorf("overlay fusion needs at least one layer")
	}

	weights := make([]float64, len(layers))
	rasters := make([]*Raster, len(layers))
	for i, l := range layers {
		weights[i] = l.Weight
		rasters[i] = l.Raster
	}
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	if err := checkShapes(rasters...); err != nil {
		return nil, err
	}

	first := layers[0]
	out := NewRaster(first.Raster.Width, first.Raster.Height, ClassNoData)
	out.GeoTransform = first.Raster.GeoTransform
	out.SRS = first.Raster.SRS

	valid := make([]bool, len(out.Data))
	for i, v := range first.Raster.Data {
		if first.Raster.Valid(v) {
			out.Data[i] = v * first.Weight
			valid[i] = true
		}
	}

	for _, layer := range layers[1:] {
		for i, v := range layer.Raster.Data {
			if valid[i] && layer.Raster.Valid(v) {
				out.Data[i] += v * layer.Weight
			}
		}
	}

	for i, v := range out.Data {
		if v < 0 {
			out.Data[i] = ClassNoData
		}
	}

	return out, nil
}
