package domain

// FuseRainfall adjusts the base susceptibility map by recorded and forecast
// rainfall intensity, producing a float raster with the base map's shape and
// the ClassNoData sentinel.
//
// The scaling factor is the base map's dynamic range (max-min over valid
// cells), taken from stats rather than recomputed here. Masking mutates the
// provided buffers: base cells <= 0 and rainfall cells < 0 become the
// sentinel before the formula runs, and those sentinel values then
// participate in the division and products. Only after the full expression
// is evaluated are negative results clamped to the sentinel. The formula is
// reproduced literally; inserting validity guards would change the published
// numbers.
func FuseRainfall(base, recorded, forecast *Raster, stats RasterStats, recordedWeight, forecastWeight float64) (*Raster, error) {
	if err := checkShapes(base, recorded, forecast); err != nil {
		return nil, err
	}

	scalingFactor := stats.Max - stats.Min

	for i, v := range base.Data {
		if v <= 0 {
			base.Data[i] = ClassNoData
		}
	}
	for i, v := range recorded.Data {
		if v < 0 {
			recorded.Data[i] = ClassNoData
		}
	}
	for i, v := range forecast.Data {
		if v < 0 {
			forecast.Data[i] = ClassNoData
		}
	}

	out := NewRaster(base.Width, base.Height, ClassNoData)
	out.GeoTransform = base.GeoTransform
	out.SRS = base.SRS

	for i := range out.Data {
		intensity := scalingFactor / base.Data[i]
		result := base.Data[i] +
			intensity*recorded.Data[i]*recordedWeight +
			intensity*forecast.Data[i]*forecastWeight
		if result < 0 {
			result = ClassNoData
		}
		out.Data[i] = result
	}

	return out, nil
}
