package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/riskscore/pkg/features"
)

func testTransactions() []features.Transaction {
	return []features.Transaction{
		{
			TransactionID: "T2", BatchID: "B1", CustomerID: "C2", CurrencyCode: "UGX", CountryCode: features.Ptr(256),
			StartTime: "2024-01-02T15:00:00Z", Amount: features.Ptr(2000.0), Value: features.Ptr(2000.0), ProductCategory: "financial_services",
			ChannelID: "ChannelId_2", ProviderID: "ProviderId_2", ProductID: "ProductId_2", PricingStrategy: features.Ptr(2),
		},
		{
			TransactionID: "T1", BatchID: "B1", CustomerID: "C1", CurrencyCode: "UGX", CountryCode: features.Ptr(256),
			StartTime: "2024-01-01T10:00:00Z", Amount: features.Ptr(1000.0), Value: features.Ptr(1000.0), ProductCategory: "airtime",
			ChannelID: "ChannelId_1", ProviderID: "ProviderId_1", ProductID: "ProductId_1", PricingStrategy: features.Ptr(1),
		},
		{
			TransactionID: "T3", BatchID: "B2", CustomerID: "C1", CurrencyCode: "UGX", CountryCode: features.Ptr(256),
			StartTime: "2024-01-03T18:30:00Z", Amount: features.Ptr(-3000.0), Value: features.Ptr(3000.0), ProductCategory: "airtime",
			ChannelID: "ChannelId_1", ProviderID: "ProviderId_1", ProductID: "ProductId_1", PricingStrategy: features.Ptr(1),
		},
	}
}

func testStoreTransactions(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	txns := testTransactions()

	require.NoError(t, s.SaveTransactions(ctx, txns))
	require.NoError(t, s.SaveTransactions(ctx, nil))

	list, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, txns[1], list[0])
	assert.Equal(t, txns[0], list[1])
	assert.Equal(t, txns[2], list[2])

	// upsert replaces by id
	txns[0].Amount = features.Ptr(2500.0)
	require.NoError(t, s.SaveTransactions(ctx, txns[:1]))
	list, err = s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.NotNil(t, list[1].Amount)
	assert.InDelta(t, 2500.0, *list[1].Amount, 1e-9)

	// nulls are kept as nulls
	txns[1].Amount = nil
	txns[1].Value = nil
	txns[1].CountryCode = nil
	txns[1].PricingStrategy = nil
	txns[1].ProductCategory = ""
	require.NoError(t, s.SaveTransactions(ctx, txns[1:2]))
	list, err = s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, txns[1], list[0])
	assert.Nil(t, list[0].Amount)
	assert.Nil(t, list[0].PricingStrategy)

	sum, err := s.SummarizeTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Transactions)
	assert.Equal(t, 2, sum.Customers)
}

func TestTransactions(t *testing.T) {
	testStoreTransactions(t, setupTestStore(t))
}

func TestSaveTransactions_MissingID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	txns := testTransactions()
	txns[2].TransactionID = ""

	assert.Error(t, s.SaveTransactions(ctx, txns))

	// nothing from the failed batch is kept
	list, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListTransactions_Frame(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveTransactions(ctx, testTransactions()))

	list, err := s.ListTransactions(ctx)
	require.NoError(t, err)

	df, err := features.Engineer(features.NewFrame(list))
	require.NoError(t, err)
	assert.Equal(t, 3, df.Nrow())
	assert.True(t, features.HasColumn(df, features.ColTxnCount))
}
