package data

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mchmarny/riskscore/pkg/scoring"
)

const (
	insertScoreSQL = `INSERT INTO score (
			id,
			request_id,
			transaction_id,
			customer_id,
			cluster,
			probability,
			scored_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectScoreSQL = `SELECT
			id,
			request_id,
			transaction_id,
			customer_id,
			cluster,
			probability,
			scored_at
		FROM score
		ORDER BY scored_at DESC, id
		LIMIT ?
	`

	DefaultScoreLimit = 100
)

// ScoreRecord is one audited scoring decision.
type ScoreRecord struct {
	ID            string    `json:"id" yaml:"id"`
	RequestID     string    `json:"request_id" yaml:"requestId"`
	TransactionID string    `json:"transaction_id,omitempty" yaml:"transactionId,omitempty"`
	CustomerID    string    `json:"customer_id,omitempty" yaml:"customerId,omitempty"`
	Cluster       int       `json:"cluster" yaml:"cluster"`
	Probability   float64   `json:"probability" yaml:"probability"`
	ScoredAt      time.Time `json:"scored_at" yaml:"scoredAt"`
}

// NewScoreRecords stamps results from one request with fresh ids and the
// current time.
func NewScoreRecords(requestID string, results []scoring.Result) []*ScoreRecord {
	now := time.Now().UTC()
	list := make([]*ScoreRecord, len(results))
	for i, r := range results {
		list[i] = &ScoreRecord{
			ID:            uuid.NewString(),
			RequestID:     requestID,
			TransactionID: r.TransactionID,
			CustomerID:    r.CustomerID,
			Cluster:       r.Cluster,
			Probability:   r.Probability,
			ScoredAt:      now,
		}
	}
	return list
}

// SaveScores appends records to the audit log.
func (s *Store) SaveScores(ctx context.Context, records []*ScoreRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertScoreSQL))
	if err != nil {
		rollbackTransaction(tx)
		return errors.Wrap(err, "failed to prepare score insert statement")
	}
	defer stmt.Close()

	for i, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.ScoredAt.IsZero() {
			r.ScoredAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.RequestID, r.TransactionID, r.CustomerID,
			r.Cluster, r.Probability, r.ScoredAt.UnixNano()); err != nil {
			rollbackTransaction(tx)
			return errors.Wrapf(err, "error inserting score[%d]: %s", i, r.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// ListScores returns up to limit of the most recent records, newest first.
// A non-positive limit uses DefaultScoreLimit.
func (s *Store) ListScores(ctx context.Context, limit int) ([]*ScoreRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultScoreLimit
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(selectScoreSQL), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute score select statement")
	}
	defer rows.Close()

	list := make([]*ScoreRecord, 0)
	for rows.Next() {
		r := &ScoreRecord{}
		var at int64
		if err := rows.Scan(&r.ID, &r.RequestID, &r.TransactionID, &r.CustomerID,
			&r.Cluster, &r.Probability, &at); err != nil {
			return nil, errors.Wrap(err, "failed to scan score row")
		}
		r.ScoredAt = time.Unix(0, at).UTC()
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate score rows")
	}
	return list, nil
}
