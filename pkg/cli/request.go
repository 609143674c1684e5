package cli

import (
	"fmt"

	"github.com/mchmarny/riskscore/pkg/features"
	"github.com/mchmarny/riskscore/pkg/scoring"
)

// PredictionRequest is one transaction submitted for scoring. Every field is
// required; pointers distinguish absent fields from zero values.
type PredictionRequest struct {
	TransactionID   *string  `json:"TransactionId,omitempty"`
	CustomerID      *string  `json:"CustomerId,omitempty"`
	StartTime       *string  `json:"TransactionStartTime,omitempty"`
	Amount          *float64 `json:"Amount,omitempty"`
	Value           *float64 `json:"Value,omitempty"`
	ProductID       *string  `json:"ProductId,omitempty"`
	ProductCategory *string  `json:"ProductCategory,omitempty"`
	ChannelID       *string  `json:"ChannelId,omitempty"`
	ProviderID      *string  `json:"ProviderId,omitempty"`
	PricingStrategy *int     `json:"PricingStrategy,omitempty"`
}

// PredictionResponse is the score for a single request.
type PredictionResponse struct {
	Cluster     int     `json:"cluster" yaml:"cluster"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// BatchPredictionResponse carries one result per submitted transaction, in
// request order.
type BatchPredictionResponse struct {
	RequestID string           `json:"request_id" yaml:"requestId"`
	Results   []scoring.Result `json:"results" yaml:"results"`
}

// Missing returns the JSON names of absent fields.
func (r *PredictionRequest) Missing() []string {
	var m []string
	check := func(absent bool, name string) {
		if absent {
			m = append(m, name)
		}
	}
	check(r.TransactionID == nil, features.ColTransactionID)
	check(r.CustomerID == nil, features.ColCustomerID)
	check(r.StartTime == nil, features.ColStartTime)
	check(r.Amount == nil, features.ColAmount)
	check(r.Value == nil, features.ColValue)
	check(r.ProductID == nil, features.ColProductID)
	check(r.ProductCategory == nil, features.ColProductCategory)
	check(r.ChannelID == nil, features.ColChannelID)
	check(r.ProviderID == nil, features.ColProviderID)
	check(r.PricingStrategy == nil, features.ColPricingStrategy)
	return m
}

// Transaction converts a validated request. Call Missing first.
func (r *PredictionRequest) Transaction() features.Transaction {
	return features.Transaction{
		TransactionID:   *r.TransactionID,
		CustomerID:      *r.CustomerID,
		StartTime:       *r.StartTime,
		Amount:          r.Amount,
		Value:           r.Value,
		ProductID:       *r.ProductID,
		ProductCategory: *r.ProductCategory,
		ChannelID:       *r.ChannelID,
		ProviderID:      *r.ProviderID,
		PricingStrategy: r.PricingStrategy,
	}
}

// NewPredictionRequest builds a request from a transaction. Null fields of
// the transaction are left out so the server reports them as missing.
func NewPredictionRequest(t features.Transaction) PredictionRequest {
	return PredictionRequest{
		TransactionID:   optional(t.TransactionID),
		CustomerID:      optional(t.CustomerID),
		StartTime:       optional(t.StartTime),
		Amount:          t.Amount,
		Value:           t.Value,
		ProductID:       optional(t.ProductID),
		ProductCategory: optional(t.ProductCategory),
		ChannelID:       optional(t.ChannelID),
		ProviderID:      optional(t.ProviderID),
		PricingStrategy: t.PricingStrategy,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// batchTransactions validates every request and returns the missing fields
// prefixed with the request index.
func batchTransactions(reqs []PredictionRequest) ([]features.Transaction, []string) {
	var missing []string
	txns := make([]features.Transaction, 0, len(reqs))
	for i := range reqs {
		if m := reqs[i].Missing(); len(m) > 0 {
			for _, f := range m {
				missing = append(missing, fmt.Sprintf("[%d].%s", i, f))
			}
			continue
		}
		txns = append(txns, reqs[i].Transaction())
	}
	return txns, missing
}
