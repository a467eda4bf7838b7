package domain_test

import (
	"errors"
	"testing"

	"github.com/couchcryptid/landslide-riskmap/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

// newTestRaster builds a 1-row raster with the given samples and NoData -9999.
func newTestRaster(values ...float64) *domain.Raster {
	r := domain.NewRaster(len(values), 1, -9999)
	copy(r.Data, values)
	r.GeoTransform = [6]float64{84.0, 0.01, 0, 30.0, 0, -0.01}
	r.SRS = "EPSG:4326"
	return r
}

func TestClassify_IntervalSemantics(t *testing.T) {
	spec := domain.ClassificationSpec{
		{Low: nil, High: f(15), Class: 1},
		{Low: f(15), High: f(30), Class: 8},
		{Low: f(30), High: f(60), Class: 10},
		{Low: f(60), High: nil, Class: 4},
	}

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"below first upper bound", 3.2, 1},
		{"negative still below", -40, 1},
		{"lower bound inclusive", 15, 8},
		{"upper bound exclusive", 29.999, 8},
		{"next interval at boundary", 30, 10},
		{"unbounded high inclusive", 60, 4},
		{"far above", 89.5, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := domain.Classify(newTestRaster(tt.value), spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Data[0])
		})
	}
}

func TestClassify_LastMatchingRuleWins(t *testing.T) {
	// Overlapping intervals: declared order decides, later rules overwrite.
	spec := domain.ClassificationSpec{
		{Low: f(0), High: f(100), Class: 1},
		{Low: f(50), High: f(100), Class: 2},
		{Low: f(75), High: f(100), Class: 3},
	}

	out, err := domain.Classify(newTestRaster(10, 60, 80), spec)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3}, out.Data)
}

func TestClassify_UnmatchedValidCellBecomesNoData(t *testing.T) {
	// Gap between 0.001 and 0.01, as in the deployed curvature table.
	spec := domain.ClassificationSpec{
		{Low: nil, High: f(0), Class: 2},
		{Low: f(0), High: f(0.001), Class: 1},
		{Low: f(0.01), High: nil, Class: 3},
	}

	out, err := domain.Classify(newTestRaster(0.005), spec)
	require.NoError(t, err)

	// Real data in the gap silently classifies to NoData. Documented quirk.
	assert.Equal(t, domain.ClassNoData, out.Data[0])
}

func TestClassify_InputNoDataAlwaysWins(t *testing.T) {
	// The unbounded-low rule covers -9999, but NoData must not classify.
	spec := domain.ClassificationSpec{
		{Low: nil, High: f(100), Class: 5},
	}

	out, err := domain.Classify(newTestRaster(-9999, 42), spec)
	require.NoError(t, err)

	assert.Equal(t, domain.ClassNoData, out.Data[0])
	assert.Equal(t, float64(5), out.Data[1])
	assert.Equal(t, domain.ClassNoData, out.NoData)
}

func TestClassify_PassthroughReturnsIdenticalRaster(t *testing.T) {
	in := newTestRaster(1.5, -9999, 200)

	out, err := domain.Classify(in, nil)
	require.NoError(t, err)

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("passthrough mismatch (-in +out):\n%s", diff)
	}
	// Clone, not alias: mutating the output must not touch the input.
	out.Data[0] = 99
	assert.Equal(t, 1.5, in.Data[0])
}

func TestClassify_PreservesGeoreferencing(t *testing.T) {
	in := newTestRaster(12)
	spec := domain.ClassificationSpec{{Low: nil, High: nil, Class: 1}}

	out, err := domain.Classify(in, spec)
	require.NoError(t, err)

	assert.Equal(t, in.GeoTransform, out.GeoTransform)
	assert.Equal(t, in.SRS, out.SRS)
	assert.Equal(t, in.Width, out.Width)
	assert.Equal(t, in.Height, out.Height)
}

func TestClassify_MalformedBoundsRejectedBeforeRasterWork(t *testing.T) {
	spec := domain.ClassificationSpec{
		{Low: f(30), High: f(15), Class: 1},
	}
	require.Error(t, spec.Validate())

	_, err := domain.Classify(newTestRaster(1), spec)
	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "lower bound")
}
