package features

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

// Step is one stage of feature engineering.
type Step func(dataframe.DataFrame) (dataframe.DataFrame, error)

// Steps returns the engineering stages in the order the model expects:
// date extraction, customer aggregates, then column pruning.
func Steps() []Step {
	return []Step{ExtractDateFeatures, BuildAggregateFeatures, Clean}
}

// Engineer runs every step over df and returns the frame ready for the
// preprocessor. The input frame is never modified.
func Engineer(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, fmt.Errorf("invalid input frame: %w", df.Err)
	}

	out := df
	var err error
	for _, step := range Steps() {
		if out, err = step(out); err != nil {
			return out, err
		}
	}
	return out, nil
}
