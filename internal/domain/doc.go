// Package domain models rasters and the numeric engines that turn
// geomorphological factor layers plus rainfall into a landslide
// susceptibility surface.
//
// # Rasters
//
// A Raster is a single-band numeric grid with opaque georeferencing
// (geotransform and SRS identifier are carried through unchanged, never
// interpreted here). Every raster declares a NoData sentinel; a cell holding
// that value is never a valid sample in any arithmetic or comparison. Class
// rasters and fused susceptibility maps use -128 as their sentinel, matching
// the GDAL Int8 convention of the deployed raster stack. Warp-stage rasters
// arriving from the collaborator typically carry -9999.
//
// # Classification
//
// Classify maps continuous factor values to small-integer class codes using
// an ordered list of half-open interval rules:
//
//	(nil, 15)  →  v < 15
//	(15, 30)   →  15 <= v < 30
//	(60, nil)  →  v >= 60
//
// Rules are applied in declared order and a later rule overwrites whatever an
// earlier rule assigned on any cell they both cover: last matching rule wins.
// Valid cells that match no rule stay at the output sentinel, so unclassified
// real data becomes NoData downstream. Both behaviors are load-bearing for
// the published susceptibility numbers and are asserted in tests; do not
// reorder rules or close the gaps without recomputing the weight table.
//
// # Weighted overlay
//
// FuseOverlay builds the base susceptibility map as a linear combination of
// classified factor layers. The first layer decides validity: a cell that is
// NoData in the first layer stays NoData in the output no matter what later
// layers hold there. Later layers contribute value*weight only where the
// accumulation is already valid and their own cell is valid. Negative sums
// clamp to the sentinel after all layers are accumulated.
//
// Weights must be non-zero and sum to 1.0 within a small tolerance; both
// checks run before any raster is touched.
//
// # Rainfall adjustment
//
// FuseRainfall lifts the base map by recorded and forecast rainfall
// intensity, scaled by the base map's own dynamic range:
//
//	result = base + (max-min)/base * recorded * wr + (max-min)/base * forecast * wf
//
// Masking happens in place before the formula runs (base <= 0, rainfall < 0
// all become the sentinel) and the masked sentinel values then participate in
// the division and products. The clamp to the sentinel happens only after the
// full expression is evaluated. This mirrors the published numeric behavior
// exactly, artifacts included.
package domain
