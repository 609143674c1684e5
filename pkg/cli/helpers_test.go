package cli

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/features"
	"github.com/mchmarny/riskscore/pkg/model"
	"github.com/mchmarny/riskscore/pkg/preprocess"
	"github.com/mchmarny/riskscore/pkg/scoring"
)

const testCSV = `TransactionId,BatchId,AccountId,SubscriptionId,CustomerId,CurrencyCode,CountryCode,ProviderId,ProductId,ProductCategory,ChannelId,Amount,Value,TransactionStartTime,PricingStrategy,FraudResult
T1,B1,A1,S1,C1,UGX,256,ProviderId_1,ProductId_1,airtime,ChannelId_1,1000,1000,2024-01-01T10:00:00Z,1,0
T2,B1,A2,S2,C2,UGX,256,ProviderId_2,ProductId_2,financial_services,ChannelId_2,2000,2000,2024-01-02T15:00:00Z,2,1
T3,B2,A1,S1,C1,UGX,256,ProviderId_1,ProductId_1,airtime,ChannelId_1,3000,3000,2024-01-03T18:30:00Z,1,0
`

// testNullCSV leaves Amount and PricingStrategy blank on T2.
const testNullCSV = `TransactionId,BatchId,AccountId,SubscriptionId,CustomerId,CurrencyCode,CountryCode,ProviderId,ProductId,ProductCategory,ChannelId,Amount,Value,TransactionStartTime,PricingStrategy,FraudResult
T1,B1,A1,S1,C1,UGX,256,ProviderId_1,ProductId_1,airtime,ChannelId_1,1000,1000,2024-01-01T10:00:00Z,1,0
T2,B1,A2,S2,C2,UGX,,ProviderId_2,ProductId_2,financial_services,ChannelId_2,,2000,2024-01-02T15:00:00Z,,1
T3,B2,A1,S1,C1,UGX,256,ProviderId_1,ProductId_1,airtime,ChannelId_1,3000,3000,2024-01-03T18:30:00Z,2,0
`

func testTransactions() []features.Transaction {
	return []features.Transaction{
		{
			TransactionID: "T1", CustomerID: "C1", StartTime: "2024-01-01T10:00:00Z", Amount: features.Ptr(1000.0), Value: features.Ptr(1000.0),
			ProductID: "ProductId_1", ProductCategory: "airtime", ChannelID: "ChannelId_1", ProviderID: "ProviderId_1", PricingStrategy: features.Ptr(1),
		},
		{
			TransactionID: "T2", CustomerID: "C2", StartTime: "2024-01-02T15:00:00Z", Amount: features.Ptr(2000.0), Value: features.Ptr(2000.0),
			ProductID: "ProductId_2", ProductCategory: "financial_services", ChannelID: "ChannelId_2", ProviderID: "ProviderId_2", PricingStrategy: features.Ptr(2),
		},
		{
			TransactionID: "T3", CustomerID: "C1", StartTime: "2024-01-03T18:30:00Z", Amount: features.Ptr(3000.0), Value: features.Ptr(3000.0),
			ProductID: "ProductId_1", ProductCategory: "airtime", ChannelID: "ChannelId_1", ProviderID: "ProviderId_1", PricingStrategy: features.Ptr(1),
		},
	}
}

func testCentroid(t *testing.T, names []string) *model.Centroid {
	t.Helper()
	far := make([]float64, len(names))
	for i := range far {
		far[i] = 100
	}
	c, err := model.NewCentroid(names, []model.Cluster{
		{Label: 0, Center: make([]float64, len(names))},
		{Label: 1, Center: far},
	})
	require.NoError(t, err)
	return c
}

func testScorer(t *testing.T) *scoring.Scorer {
	t.Helper()
	df, err := features.Engineer(features.NewFrame(testTransactions()))
	require.NoError(t, err)

	pre := preprocess.New()
	require.NoError(t, pre.Fit(df))
	names, err := pre.FeatureNames()
	require.NoError(t, err)

	s, err := scoring.New(pre, testCentroid(t, names))
	require.NoError(t, err)
	return s
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []*data.ScoreRecord
	saveErr error
	listErr error
	limit   int
}

func (f *fakeRecorder) SaveScores(_ context.Context, records []*data.ScoreRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeRecorder) ListScores(_ context.Context, limit int) ([]*data.ScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return f.records[:limit], nil
}
