package data

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/mchmarny/riskscore/pkg/features"
)

const (
	upsertTxnSQL = `INSERT INTO txn (
			transaction_id,
			batch_id,
			account_id,
			subscription_id,
			customer_id,
			currency_code,
			country_code,
			provider_id,
			product_id,
			product_category,
			channel_id,
			amount,
			value,
			start_time,
			pricing_strategy,
			imported_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO UPDATE SET
			batch_id = excluded.batch_id,
			account_id = excluded.account_id,
			subscription_id = excluded.subscription_id,
			customer_id = excluded.customer_id,
			currency_code = excluded.currency_code,
			country_code = excluded.country_code,
			provider_id = excluded.provider_id,
			product_id = excluded.product_id,
			product_category = excluded.product_category,
			channel_id = excluded.channel_id,
			amount = excluded.amount,
			value = excluded.value,
			start_time = excluded.start_time,
			pricing_strategy = excluded.pricing_strategy,
			imported_at = excluded.imported_at
	`

	selectTxnSQL = `SELECT
			transaction_id,
			batch_id,
			account_id,
			subscription_id,
			customer_id,
			currency_code,
			country_code,
			provider_id,
			product_id,
			product_category,
			channel_id,
			amount,
			value,
			start_time,
			pricing_strategy
		FROM txn
		ORDER BY transaction_id
	`

	countTxnSQL = `SELECT COUNT(*) FROM txn`

	countCustomerSQL = `SELECT COUNT(DISTINCT customer_id) FROM txn`
)

// TransactionSummary describes the imported training set.
type TransactionSummary struct {
	Transactions int `json:"transactions" yaml:"transactions"`
	Customers    int `json:"customers" yaml:"customers"`
}

// SaveTransactions inserts or replaces txns keyed by transaction id in a
// single database transaction.
func (s *Store) SaveTransactions(ctx context.Context, txns []features.Transaction) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(txns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(upsertTxnSQL))
	if err != nil {
		rollbackTransaction(tx)
		return errors.Wrap(err, "failed to prepare txn upsert statement")
	}
	defer stmt.Close()

	now := time.Now().UTC().Unix()
	for i, t := range txns {
		if t.TransactionID == "" {
			rollbackTransaction(tx)
			return errors.Errorf("transaction[%d] has no id", i)
		}
		if _, err := stmt.ExecContext(ctx,
			t.TransactionID, t.BatchID, t.AccountID, t.SubscriptionID, t.CustomerID,
			t.CurrencyCode, nullable(t.CountryCode), t.ProviderID, t.ProductID, t.ProductCategory,
			t.ChannelID, nullable(t.Amount), nullable(t.Value), t.StartTime, nullable(t.PricingStrategy), now); err != nil {
			slog.Error("failed to insert transaction",
				"index", i,
				"id", t.TransactionID,
				"customer", t.CustomerID,
				"error", err,
			)
			rollbackTransaction(tx)
			return errors.Wrapf(err, "error inserting transaction[%d]: %s", i, t.TransactionID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// ListTransactions returns every imported transaction ordered by id.
func (s *Store) ListTransactions(ctx context.Context) ([]features.Transaction, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectTxnSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute txn select statement")
	}
	defer rows.Close()

	list := make([]features.Transaction, 0)
	for rows.Next() {
		var (
			t              features.Transaction
			amount, value  sql.NullFloat64
			country, price sql.NullInt64
		)
		if err := rows.Scan(
			&t.TransactionID, &t.BatchID, &t.AccountID, &t.SubscriptionID, &t.CustomerID,
			&t.CurrencyCode, &country, &t.ProviderID, &t.ProductID, &t.ProductCategory,
			&t.ChannelID, &amount, &value, &t.StartTime, &price); err != nil {
			return nil, errors.Wrap(err, "failed to scan txn row")
		}
		t.CountryCode = nullInt(country)
		t.Amount = nullFloat(amount)
		t.Value = nullFloat(value)
		t.PricingStrategy = nullInt(price)
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate txn rows")
	}
	return list, nil
}

// SummarizeTransactions counts imported transactions and distinct customers.
func (s *Store) SummarizeTransactions(ctx context.Context) (*TransactionSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	sum := &TransactionSummary{}
	if err := s.db.QueryRowContext(ctx, countTxnSQL).Scan(&sum.Transactions); err != nil {
		return nil, errors.Wrap(err, "failed to count transactions")
	}
	if err := s.db.QueryRowContext(ctx, countCustomerSQL).Scan(&sum.Customers); err != nil {
		return nil, errors.Wrap(err, "failed to count customers")
	}
	return sum, nil
}

// nullable maps a nil pointer to SQL NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return features.Ptr(int(v.Int64))
}
