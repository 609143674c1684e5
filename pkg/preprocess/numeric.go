package preprocess

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// NumericParams are the learned parameters for one numeric column.
type NumericParams struct {
	Column string  `json:"column"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

// SafeLog is log(1 + max(x, 0)). Non-positive inputs map to 0.
func SafeLog(x float64) float64 {
	return math.Log1p(math.Max(x, 0))
}

// Median returns the median of the non-NaN values, averaging the middle
// pair for even counts. It reports false when there are no values.
func Median(x []float64) (float64, bool) {
	vals := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	slices.Sort(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], true
	}
	return (vals[mid-1] + vals[mid]) / 2, true
}

// isConstant flags variances that are indistinguishable from zero given
// float rounding over n samples.
func isConstant(variance, mean float64, n int) bool {
	eps := math.Nextafter(1, 2) - 1
	fn := float64(n)
	upper := fn*eps*variance + math.Pow(fn*mean*eps, 2)
	return variance <= upper
}

// fitNumeric learns the median, then the mean and population standard
// deviation of the imputed, log-transformed column. A column with no values
// imputes 0. A constant column scales by 1.
func fitNumeric(column string, x []float64) NumericParams {
	median, ok := Median(x)
	if !ok {
		median = 0
	}

	logged := make([]float64, len(x))
	for i, v := range x {
		if math.IsNaN(v) {
			v = median
		}
		logged[i] = SafeLog(v)
	}

	mean, variance := stat.PopMeanVariance(logged, nil)
	scale := math.Sqrt(variance)
	if isConstant(variance, mean, len(logged)) {
		scale = 1
	}

	return NumericParams{
		Column: column,
		Median: median,
		Mean:   mean,
		Scale:  scale,
	}
}

func (p NumericParams) check() error {
	for _, v := range []float64{p.Median, p.Mean, p.Scale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s median=%v mean=%v scale=%v", ErrNonFinite, p.Column, p.Median, p.Mean, p.Scale)
		}
	}
	return nil
}

// apply imputes, log-transforms and standardizes a single value.
func (p NumericParams) apply(v float64) float64 {
	if math.IsNaN(v) {
		v = p.Median
	}
	return (SafeLog(v) - p.Mean) / p.Scale
}
