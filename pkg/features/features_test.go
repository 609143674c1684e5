package features

import (
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `TransactionId,BatchId,AccountId,SubscriptionId,CustomerId,TransactionStartTime,CurrencyCode,Amount,Value,ProductCategory,ChannelId,ProviderId,PricingStrategy,FraudResult
T1,B1,A1,S1,C1,2024-01-01T10:00:00Z,UGX,1000,1000,airtime,ChannelId_1,ProviderId_1,1,0
T2,B1,A2,S2,C2,2024-01-02T15:00:00Z,UGX,2000,2000,financial_services,ChannelId_2,ProviderId_2,2,1
T3,B2,A1,S1,C1,2024-01-03T18:30:00Z,UGX,3000,3000,airtime,ChannelId_1,ProviderId_1,1,0
`

func sampleTransactions() []Transaction {
	return []Transaction{
		{
			TransactionID: "T1", BatchID: "B1", AccountID: "A1", SubscriptionID: "S1", CustomerID: "C1",
			StartTime: "2024-01-01T10:00:00Z", CurrencyCode: "UGX", CountryCode: Ptr(256), Amount: Ptr(1000.0), Value: Ptr(1000.0),
			ProductCategory: "airtime", ChannelID: "ChannelId_1", ProviderID: "ProviderId_1", PricingStrategy: Ptr(1),
		},
		{
			TransactionID: "T2", BatchID: "B1", AccountID: "A2", SubscriptionID: "S2", CustomerID: "C2",
			StartTime: "2024-01-02T15:00:00Z", CurrencyCode: "UGX", CountryCode: Ptr(256), Amount: Ptr(2000.0), Value: Ptr(2000.0),
			ProductCategory: "financial_services", ChannelID: "ChannelId_2", ProviderID: "ProviderId_2", PricingStrategy: Ptr(2),
		},
		{
			TransactionID: "T3", BatchID: "B2", AccountID: "A1", SubscriptionID: "S1", CustomerID: "C1",
			StartTime: "2024-01-03T18:30:00Z", CurrencyCode: "UGX", CountryCode: Ptr(256), Amount: Ptr(3000.0), Value: Ptr(3000.0),
			ProductCategory: "airtime", ChannelID: "ChannelId_1", ProviderID: "ProviderId_1", PricingStrategy: Ptr(1),
		},
	}
}

func sampleFrame(t *testing.T) dataframe.DataFrame {
	t.Helper()
	df := NewFrame(sampleTransactions())
	require.NoError(t, df.Err)
	return df
}

func sampleCSVFrame(t *testing.T) dataframe.DataFrame {
	t.Helper()
	df, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return df
}

func intAt(t *testing.T, df dataframe.DataFrame, col string, row int) int {
	t.Helper()
	v, err := df.Col(col).Elem(row).Int()
	require.NoError(t, err)
	return v
}
