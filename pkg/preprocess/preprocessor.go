// Package preprocess implements the fit/transform preprocessor that turns an
// engineered feature frame into the numeric matrix the classifier expects.
//
// Numeric columns are median-imputed, passed through log(1 + max(x, 0)) and
// standardized. Categorical columns are imputed with their most frequent
// value and one-hot encoded. The numeric block always precedes the
// categorical block.
package preprocess

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/mchmarny/riskscore/pkg/features"
)

const (
	numericPrefix     = "num__"
	categoricalPrefix = "cat__"
)

var (
	// ErrNotFitted is returned when Transform is called before Fit.
	ErrNotFitted = errors.New("preprocessor is not fitted")

	// ErrEmptyTable is returned for frames with no rows.
	ErrEmptyTable = errors.New("table has no rows")

	// ErrSchemaMismatch is returned when a saved artifact was fitted against
	// a different column layout than this build uses.
	ErrSchemaMismatch = errors.New("preprocessor schema mismatch")

	// ErrNonFinite is returned when a numeric column yields an infinite or
	// NaN parameter, usually because the input holds inf values.
	ErrNonFinite = errors.New("non-finite numeric parameter")
)

// Preprocessor is a two-phase transformation. New returns it unfitted; Fit
// learns imputation values, scaling and vocabularies once; Transform then
// applies them. Transform does not modify the preprocessor and is safe for
// concurrent use. Fit is not safe to call concurrently with anything else.
type Preprocessor struct {
	numeric     []string
	categorical []string

	fitted bool
	num    []NumericParams
	cat    []CategoricalParams
}

// New returns an unfitted preprocessor over the standard feature columns.
func New() *Preprocessor {
	return &Preprocessor{
		numeric:     features.NumericColumns(),
		categorical: features.CategoricalColumns(),
	}
}

// Fitted reports whether Fit (or Load) has completed.
func (p *Preprocessor) Fitted() bool {
	return p.fitted
}

// Fit learns parameters from a training frame. Columns other than the
// numeric and categorical inputs are ignored.
func (p *Preprocessor) Fit(df dataframe.DataFrame) error {
	if err := p.check(df); err != nil {
		return err
	}

	num := make([]NumericParams, len(p.numeric))
	for i, col := range p.numeric {
		num[i] = fitNumeric(col, features.Floats(df, col))
		if err := num[i].check(); err != nil {
			return err
		}
	}

	cat := make([]CategoricalParams, len(p.categorical))
	for i, col := range p.categorical {
		vals, ok := features.Strings(df, col)
		cat[i] = fitCategorical(col, vals, ok)
	}

	p.num = num
	p.cat = cat
	p.fitted = true
	return nil
}

// Transform applies the fitted parameters. The result has one row per input
// row and Width() columns in FeatureNames() order.
func (p *Preprocessor) Transform(df dataframe.DataFrame) (*mat.Dense, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	if err := p.check(df); err != nil {
		return nil, err
	}

	rows, cols := df.Nrow(), p.Width()
	out := mat.NewDense(rows, cols, nil)
	raw := out.RawMatrix()

	for j, np := range p.num {
		x := features.Floats(df, np.Column)
		for i, v := range x {
			raw.Data[i*raw.Stride+j] = np.apply(v)
		}
	}

	offset := len(p.num)
	for _, cp := range p.cat {
		vals, ok := features.Strings(df, cp.Column)
		w := cp.width()
		for i := range vals {
			start := i*raw.Stride + offset
			cp.encode(vals[i], ok[i], raw.Data[start:start+w])
		}
		offset += w
	}

	return out, nil
}

// FitTransform fits on df and transforms it.
func (p *Preprocessor) FitTransform(df dataframe.DataFrame) (*mat.Dense, error) {
	if err := p.Fit(df); err != nil {
		return nil, err
	}
	return p.Transform(df)
}

// Width is the number of output columns: one per numeric input plus the
// vocabulary size of every categorical input. Zero before fit.
func (p *Preprocessor) Width() int {
	w := len(p.num)
	for _, c := range p.cat {
		w += c.width()
	}
	return w
}

// FeatureNames returns the output column names in matrix order.
func (p *Preprocessor) FeatureNames() ([]string, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	names := make([]string, 0, p.Width())
	for _, n := range p.num {
		names = append(names, numericPrefix+n.Column)
	}
	for _, c := range p.cat {
		for _, v := range c.Categories {
			names = append(names, fmt.Sprintf("%s%s_%s", categoricalPrefix, c.Column, v))
		}
	}
	return names, nil
}

// Numeric returns a copy of the learned numeric parameters.
func (p *Preprocessor) Numeric() []NumericParams {
	return append([]NumericParams(nil), p.num...)
}

// Categorical returns a copy of the learned categorical parameters.
func (p *Preprocessor) Categorical() []CategoricalParams {
	return append([]CategoricalParams(nil), p.cat...)
}

func (p *Preprocessor) check(df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("invalid frame: %w", df.Err)
	}
	if err := features.RequireColumns(df, slices.Concat(p.numeric, p.categorical)...); err != nil {
		return err
	}
	if df.Nrow() == 0 {
		return ErrEmptyTable
	}
	return nil
}
