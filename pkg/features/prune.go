package features

import (
	"fmt"
	"slices"

	"github.com/go-gota/gota/dataframe"
)

// Clean drops the identifier, timestamp and currency/country columns that
// must not reach the model. Columns that are not present are skipped; the
// remaining columns keep their relative order.
func Clean(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	drop := DroppedColumns()
	keep := make([]string, 0, df.Ncol())
	for _, name := range df.Names() {
		if !slices.Contains(drop, name) {
			keep = append(keep, name)
		}
	}

	if len(keep) == 0 {
		// gota refuses to build a frame without columns
		return dataframe.DataFrame{}, nil
	}

	out := df.Select(keep)
	if out.Err != nil {
		return out, fmt.Errorf("dropping columns: %w", out.Err)
	}
	return out, nil
}
