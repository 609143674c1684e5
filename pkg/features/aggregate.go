package features

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CustomerAggregate holds the per-customer statistics computed over a batch.
type CustomerAggregate struct {
	Count int
	Total float64
	Mean  float64
	// Std is the sample standard deviation, NaN for fewer than two amounts.
	Std float64
}

// Aggregate computes count, sum, mean and sample standard deviation of
// amounts. Count includes every row with a transaction id; the amount
// statistics skip null amounts.
func Aggregate(amounts []float64, counted int) CustomerAggregate {
	vals := make([]float64, 0, len(amounts))
	for _, a := range amounts {
		if !math.IsNaN(a) {
			vals = append(vals, a)
		}
	}

	agg := CustomerAggregate{
		Count: counted,
		Total: floats.Sum(vals),
		Mean:  math.NaN(),
		Std:   math.NaN(),
	}

	switch {
	case len(vals) == 1:
		agg.Mean = vals[0]
	case len(vals) > 1:
		agg.Mean, agg.Std = stat.MeanStdDev(vals, nil)
	}
	return agg
}

// groupRows maps each row to its group. Rows without a customer id form
// their own singleton group, the same shape a single-row request produces.
func groupRows(keys []string, present []bool) [][]int {
	groups := make([][]int, 0)
	index := make(map[string]int)
	for i, k := range keys {
		if !present[i] {
			groups = append(groups, []int{i})
			continue
		}
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// BuildAggregateFeatures groups rows by CustomerId over the given batch and
// joins transaction_count, total_amount, avg_amount and std_amount back onto
// every row. Row order is preserved. A customer with a single transaction
// gets a null std_amount.
func BuildAggregateFeatures(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := RequireColumns(df, ColTransactionID, ColCustomerID, ColAmount); err != nil {
		return df, err
	}

	keys, keyOK := Strings(df, ColCustomerID)
	_, idOK := Strings(df, ColTransactionID)
	amounts := Floats(df, ColAmount)

	n := len(keys)
	counts := make([]int, n)
	totals := make([]float64, n)
	means := make([]float64, n)
	stds := make([]float64, n)

	for _, rows := range groupRows(keys, keyOK) {
		groupAmounts := make([]float64, len(rows))
		counted := 0
		for j, r := range rows {
			groupAmounts[j] = amounts[r]
			if idOK[r] {
				counted++
			}
		}

		agg := Aggregate(groupAmounts, counted)
		for _, r := range rows {
			counts[r] = agg.Count
			totals[r] = agg.Total
			means[r] = agg.Mean
			stds[r] = agg.Std
		}
	}

	return mutate(df,
		series.New(counts, series.Int, ColTxnCount),
		floatSeries(ColTotalAmount, totals),
		floatSeries(ColAvgAmount, means),
		floatSeries(ColStdAmount, stds),
	)
}
