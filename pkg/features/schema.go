package features

// SchemaVersion identifies the feature column layout below. Any change to the
// column lists or their order must bump it so stale artifacts fail to load.
const SchemaVersion = "v1"

// Raw transaction columns.
const (
	ColTransactionID   = "TransactionId"
	ColBatchID         = "BatchId"
	ColAccountID       = "AccountId"
	ColSubscriptionID  = "SubscriptionId"
	ColCustomerID      = "CustomerId"
	ColCurrencyCode    = "CurrencyCode"
	ColCountryCode     = "CountryCode"
	ColProviderID      = "ProviderId"
	ColProductID       = "ProductId"
	ColProductCategory = "ProductCategory"
	ColChannelID       = "ChannelId"
	ColAmount          = "Amount"
	ColValue           = "Value"
	ColStartTime       = "TransactionStartTime"
	ColPricingStrategy = "PricingStrategy"
)

// Derived date columns.
const (
	ColYear      = "transaction_year"
	ColMonth     = "transaction_month"
	ColDay       = "transaction_day"
	ColHour      = "transaction_hour"
	ColDayOfWeek = "transaction_dayofweek"
)

// Derived per-customer aggregate columns.
const (
	ColTxnCount    = "transaction_count"
	ColTotalAmount = "total_amount"
	ColAvgAmount   = "avg_amount"
	ColStdAmount   = "std_amount"
)

// NumericColumns returns the numeric model inputs in their contract order.
func NumericColumns() []string {
	return []string{
		ColAmount, ColValue,
		ColTxnCount, ColTotalAmount, ColAvgAmount, ColStdAmount,
		ColYear, ColMonth, ColDay, ColHour, ColDayOfWeek,
	}
}

// CategoricalColumns returns the categorical model inputs in their contract order.
func CategoricalColumns() []string {
	return []string{ColProductCategory, ColChannelID, ColProviderID, ColPricingStrategy}
}

// DateColumns returns the columns added by ExtractDateFeatures.
func DateColumns() []string {
	return []string{ColYear, ColMonth, ColDay, ColHour, ColDayOfWeek}
}

// AggregateColumns returns the columns added by BuildAggregateFeatures.
func AggregateColumns() []string {
	return []string{ColTxnCount, ColTotalAmount, ColAvgAmount, ColStdAmount}
}

// DroppedColumns returns the identifier and free-text columns removed by Clean.
func DroppedColumns() []string {
	return []string{
		ColTransactionID, ColBatchID, ColAccountID, ColSubscriptionID,
		ColStartTime, ColCurrencyCode, ColCountryCode,
	}
}
