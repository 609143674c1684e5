// Package model defines the classifier contract used for scoring and a
// file-backed nearest-centroid implementation of it.
package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrFeatureMismatch is returned when a classifier and the feature matrix
// disagree on columns.
var ErrFeatureMismatch = errors.New("feature mismatch")

// Classifier assigns clusters to rows of a feature matrix.
type Classifier interface {
	// Predict returns one cluster label per row.
	Predict(x mat.Matrix) ([]int, error)
	// PredictProba returns one row of class probabilities per input row,
	// columns ordered as Classes().
	PredictProba(x mat.Matrix) (*mat.Dense, error)
	// Classes returns the cluster labels in probability column order.
	Classes() []int
	// FeatureNames returns the input columns the classifier was trained on.
	FeatureNames() []string
}

// CheckFeatures fails with ErrFeatureMismatch unless the classifier expects
// exactly names, in order.
func CheckFeatures(c Classifier, names []string) error {
	want := c.FeatureNames()
	if len(want) != len(names) {
		return fmt.Errorf("%w: classifier expects %d columns, preprocessor emits %d", ErrFeatureMismatch, len(want), len(names))
	}
	for i := range want {
		if want[i] != names[i] {
			return fmt.Errorf("%w: column %d is %q, classifier expects %q", ErrFeatureMismatch, i, names[i], want[i])
		}
	}
	return nil
}
