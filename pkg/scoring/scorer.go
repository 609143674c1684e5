// Package scoring turns raw transactions into cluster assignments using a
// fitted preprocessor and a classifier supplied by the caller.
package scoring

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mchmarny/riskscore/pkg/features"
	"github.com/mchmarny/riskscore/pkg/model"
)

// Transformer is the fitted preprocessing stage.
type Transformer interface {
	Transform(df dataframe.DataFrame) (*mat.Dense, error)
	FeatureNames() ([]string, error)
}

// Result is the score for a single transaction.
type Result struct {
	TransactionID string  `json:"transaction_id" yaml:"transaction_id"`
	CustomerID    string  `json:"customer_id" yaml:"customer_id"`
	Cluster       int     `json:"cluster" yaml:"cluster"`
	Probability   float64 `json:"probability" yaml:"probability"`
}

// Scorer holds the fitted preprocessor and classifier. Neither is modified
// after New, so a Scorer is safe for concurrent use.
type Scorer struct {
	pre Transformer
	clf model.Classifier
}

// New validates that clf was trained on exactly the columns pre emits, in
// the same order, and returns a Scorer over them.
func New(pre Transformer, clf model.Classifier) (*Scorer, error) {
	if pre == nil || clf == nil {
		return nil, fmt.Errorf("scorer requires both a preprocessor and a classifier")
	}

	names, err := pre.FeatureNames()
	if err != nil {
		return nil, fmt.Errorf("reading preprocessor features: %w", err)
	}
	if err := model.CheckFeatures(clf, names); err != nil {
		return nil, err
	}

	return &Scorer{pre: pre, clf: clf}, nil
}

// Classes returns the cluster labels the classifier can assign.
func (s *Scorer) Classes() []int {
	return s.clf.Classes()
}

// Score runs feature engineering, preprocessing and classification over
// df. Customer aggregates are computed across the rows of df only, so a
// single-row frame always sees a transaction count of one.
func (s *Scorer) Score(df dataframe.DataFrame) ([]Result, error) {
	engineered, err := features.Engineer(df)
	if err != nil {
		return nil, fmt.Errorf("engineering features: %w", err)
	}

	x, err := s.pre.Transform(engineered)
	if err != nil {
		return nil, fmt.Errorf("transforming features: %w", err)
	}
	rows, _ := x.Dims()

	labels, err := s.clf.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("predicting clusters: %w", err)
	}
	proba, err := s.clf.PredictProba(x)
	if err != nil {
		return nil, fmt.Errorf("predicting probabilities: %w", err)
	}
	if proba == nil {
		return nil, fmt.Errorf("classifier returned no probabilities")
	}
	if pr, _ := proba.Dims(); len(labels) != rows || pr != rows {
		return nil, fmt.Errorf("classifier returned %d labels and %d probability rows for %d inputs", len(labels), pr, rows)
	}

	ids, _ := features.Strings(df, features.ColTransactionID)
	customers, _ := features.Strings(df, features.ColCustomerID)

	out := make([]Result, rows)
	for i := range out {
		out[i] = Result{
			TransactionID: ids[i],
			CustomerID:    customers[i],
			Cluster:       labels[i],
			Probability:   floats.Max(mat.Row(nil, i, proba)),
		}
	}
	return out, nil
}

// ScoreTransactions scores txns as one batch.
func (s *Scorer) ScoreTransactions(txns []features.Transaction) ([]Result, error) {
	df := features.NewFrame(txns)
	if df.Err != nil {
		return nil, fmt.Errorf("building frame: %w", df.Err)
	}
	return s.Score(df)
}
