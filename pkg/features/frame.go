package features

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrSchemaViolation is returned when a required column is absent from the input.
var ErrSchemaViolation = errors.New("schema violation")

// Transaction is a single raw transaction record. Empty strings and nil
// numeric fields are nulls.
type Transaction struct {
	TransactionID   string   `json:"TransactionId" yaml:"TransactionId"`
	BatchID         string   `json:"BatchId,omitempty" yaml:"BatchId,omitempty"`
	AccountID       string   `json:"AccountId,omitempty" yaml:"AccountId,omitempty"`
	SubscriptionID  string   `json:"SubscriptionId,omitempty" yaml:"SubscriptionId,omitempty"`
	CustomerID      string   `json:"CustomerId" yaml:"CustomerId"`
	CurrencyCode    string   `json:"CurrencyCode,omitempty" yaml:"CurrencyCode,omitempty"`
	CountryCode     *int     `json:"CountryCode,omitempty" yaml:"CountryCode,omitempty"`
	ProviderID      string   `json:"ProviderId" yaml:"ProviderId"`
	ProductID       string   `json:"ProductId,omitempty" yaml:"ProductId,omitempty"`
	ProductCategory string   `json:"ProductCategory" yaml:"ProductCategory"`
	ChannelID       string   `json:"ChannelId" yaml:"ChannelId"`
	Amount          *float64 `json:"Amount,omitempty" yaml:"Amount,omitempty"`
	Value           *float64 `json:"Value,omitempty" yaml:"Value,omitempty"`
	StartTime       string   `json:"TransactionStartTime" yaml:"TransactionStartTime"`
	PricingStrategy *int     `json:"PricingStrategy,omitempty" yaml:"PricingStrategy,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// csvTypes pins identifier columns to strings so that numeric-looking ids
// are not coerced, and the measures to numbers.
var csvTypes = map[string]series.Type{
	ColTransactionID:   series.String,
	ColBatchID:         series.String,
	ColAccountID:       series.String,
	ColSubscriptionID:  series.String,
	ColCustomerID:      series.String,
	ColCurrencyCode:    series.String,
	ColCountryCode:     series.Int,
	ColProviderID:      series.String,
	ColProductID:       series.String,
	ColProductCategory: series.String,
	ColChannelID:       series.String,
	ColAmount:          series.Float,
	ColValue:           series.Float,
	ColStartTime:       series.String,
	ColPricingStrategy: series.Int,
}

// NewFrame builds a frame holding one row per transaction.
func NewFrame(txns []Transaction) dataframe.DataFrame {
	n := len(txns)
	ids := make([]string, n)
	batches := make([]string, n)
	accounts := make([]string, n)
	subs := make([]string, n)
	customers := make([]string, n)
	currencies := make([]string, n)
	countries := make([]int, n)
	countryOK := make([]bool, n)
	providers := make([]string, n)
	products := make([]string, n)
	categories := make([]string, n)
	channels := make([]string, n)
	amounts := make([]float64, n)
	values := make([]float64, n)
	times := make([]string, n)
	pricing := make([]int, n)
	pricingOK := make([]bool, n)

	for i, t := range txns {
		ids[i] = t.TransactionID
		batches[i] = t.BatchID
		accounts[i] = t.AccountID
		subs[i] = t.SubscriptionID
		customers[i] = t.CustomerID
		currencies[i] = t.CurrencyCode
		countries[i], countryOK[i] = intValue(t.CountryCode)
		providers[i] = t.ProviderID
		products[i] = t.ProductID
		categories[i] = t.ProductCategory
		channels[i] = t.ChannelID
		amounts[i] = floatValue(t.Amount)
		values[i] = floatValue(t.Value)
		times[i] = t.StartTime
		pricing[i], pricingOK[i] = intValue(t.PricingStrategy)
	}

	return dataframe.New(
		series.New(ids, series.String, ColTransactionID),
		series.New(batches, series.String, ColBatchID),
		series.New(accounts, series.String, ColAccountID),
		series.New(subs, series.String, ColSubscriptionID),
		series.New(customers, series.String, ColCustomerID),
		series.New(currencies, series.String, ColCurrencyCode),
		intSeries(ColCountryCode, countries, countryOK),
		series.New(providers, series.String, ColProviderID),
		series.New(products, series.String, ColProductID),
		series.New(categories, series.String, ColProductCategory),
		series.New(channels, series.String, ColChannelID),
		floatSeries(ColAmount, amounts),
		floatSeries(ColValue, values),
		series.New(times, series.String, ColStartTime),
		intSeries(ColPricingStrategy, pricing, pricingOK),
	)
}

// ReadCSV loads transactions from CSV with a header row. Columns other than
// the known transaction fields are kept as-is.
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r, dataframe.WithTypes(csvTypes))
	if df.Err != nil {
		return df, fmt.Errorf("reading csv: %w", df.Err)
	}
	return df, nil
}

// Transactions converts a frame back to records. TransactionId and
// CustomerId are required. Absent columns and null cells stay null: empty
// strings and nil numeric fields.
func Transactions(df dataframe.DataFrame) ([]Transaction, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("invalid frame: %w", df.Err)
	}
	if err := RequireColumns(df, ColTransactionID, ColCustomerID); err != nil {
		return nil, err
	}

	n := df.Nrow()
	str := func(col string) []string {
		if !HasColumn(df, col) {
			return make([]string, n)
		}
		v, _ := Strings(df, col)
		return v
	}
	num := func(col string) []*float64 {
		out := make([]*float64, n)
		if !HasColumn(df, col) {
			return out
		}
		for i, v := range Floats(df, col) {
			if !math.IsNaN(v) {
				out[i] = Ptr(v)
			}
		}
		return out
	}
	integer := func(col string) []*int {
		out := make([]*int, n)
		for i, v := range num(col) {
			if v != nil {
				out[i] = Ptr(int(*v))
			}
		}
		return out
	}

	ids, batches, accounts := str(ColTransactionID), str(ColBatchID), str(ColAccountID)
	subs, customers, currencies := str(ColSubscriptionID), str(ColCustomerID), str(ColCurrencyCode)
	providers, products, categories := str(ColProviderID), str(ColProductID), str(ColProductCategory)
	channels, times := str(ColChannelID), str(ColStartTime)
	amounts, values := num(ColAmount), num(ColValue)
	countries, pricing := integer(ColCountryCode), integer(ColPricingStrategy)

	txns := make([]Transaction, n)
	for i := range txns {
		txns[i] = Transaction{
			TransactionID:   ids[i],
			BatchID:         batches[i],
			AccountID:       accounts[i],
			SubscriptionID:  subs[i],
			CustomerID:      customers[i],
			CurrencyCode:    currencies[i],
			CountryCode:     countries[i],
			ProviderID:      providers[i],
			ProductID:       products[i],
			ProductCategory: categories[i],
			ChannelID:       channels[i],
			Amount:          amounts[i],
			Value:           values[i],
			StartTime:       times[i],
			PricingStrategy: pricing[i],
		}
	}
	return txns, nil
}

func floatValue(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func intValue(p *int) (int, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// HasColumn reports whether the frame carries the named column.
func HasColumn(df dataframe.DataFrame, name string) bool {
	return slices.Contains(df.Names(), name)
}

// RequireColumns returns ErrSchemaViolation naming every absent column.
func RequireColumns(df dataframe.DataFrame, names ...string) error {
	present := df.Names()
	var missing []string
	for _, n := range names {
		if !slices.Contains(present, n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required columns: %s", ErrSchemaViolation, strings.Join(missing, ", "))
	}
	return nil
}

// IsMissing reports whether an element is null. Empty strings, which is
// what a blank CSV cell reads as, count as null; whitespace does not.
func IsMissing(e series.Element) bool {
	if e == nil || e.IsNA() {
		return true
	}
	switch e.Type() {
	case series.Float, series.Int:
		return math.IsNaN(e.Float())
	case series.String:
		return e.String() == ""
	}
	return false
}

// Strings returns the column values as strings with a parallel validity mask.
func Strings(df dataframe.DataFrame, name string) ([]string, []bool) {
	s := df.Col(name)
	vals := make([]string, s.Len())
	ok := make([]bool, s.Len())
	for i := range vals {
		e := s.Elem(i)
		if IsMissing(e) {
			continue
		}
		vals[i] = e.String()
		ok[i] = true
	}
	return vals, ok
}

// Floats returns the column values with NaN for nulls.
func Floats(df dataframe.DataFrame, name string) []float64 {
	s := df.Col(name)
	vals := make([]float64, s.Len())
	for i := range vals {
		e := s.Elem(i)
		if IsMissing(e) {
			vals[i] = math.NaN()
			continue
		}
		vals[i] = e.Float()
	}
	return vals
}

// floatSeries builds a float column mapping NaN to null.
func floatSeries(name string, vals []float64) series.Series {
	items := make([]interface{}, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		items[i] = v
	}
	return series.New(items, series.Float, name)
}

// intSeries builds an int column with nulls where ok is false.
func intSeries(name string, vals []int, ok []bool) series.Series {
	items := make([]interface{}, len(vals))
	for i, v := range vals {
		if ok[i] {
			items[i] = v
		}
	}
	return series.New(items, series.Int, name)
}

func mutate(df dataframe.DataFrame, cols ...series.Series) (dataframe.DataFrame, error) {
	out := df
	for _, c := range cols {
		out = out.Mutate(c)
		if out.Err != nil {
			return out, fmt.Errorf("adding column %s: %w", c.Name, out.Err)
		}
	}
	return out, nil
}
