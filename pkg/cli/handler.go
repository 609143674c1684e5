package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/features"
	"github.com/mchmarny/riskscore/pkg/logging"
	"github.com/mchmarny/riskscore/pkg/scoring"
)

const (
	rootMessage     = "Credit Risk Scoring API is up and running"
	maxRequestBytes = 1 << 20
	maxScoresLimit  = 1000
)

type scoreRecorder interface {
	SaveScores(ctx context.Context, records []*data.ScoreRecord) error
	ListScores(ctx context.Context, limit int) ([]*data.ScoreRecord, error)
}

type validationError struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody decodes the request body into v and writes the error response
// when it cannot: 400 for malformed JSON, 422 for well-formed JSON of the
// wrong shape.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(v)
	if err == nil {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		msg := "invalid request body: expected " + typeErr.Type.String()
		if typeErr.Field != "" {
			msg = "invalid type for field " + typeErr.Field + ": expected " + typeErr.Type.String()
		}
		writeJSON(w, http.StatusUnprocessableEntity, validationError{Error: msg})
		return false
	}
	var sizeErr *http.MaxBytesError
	if errors.As(err, &sizeErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "malformed JSON request body")
	return false
}

func rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": rootMessage,
			"version": version,
		})
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// score runs the batch, records it when a recorder is set and writes a 500
// on failure. Audit failures are logged but do not fail the request.
func score(w http.ResponseWriter, r *http.Request, s *scoring.Scorer, rec scoreRecorder, txns []features.Transaction) ([]scoring.Result, bool) {
	results, err := s.ScoreTransactions(txns)
	if err != nil {
		slog.Error("failed to score transactions", "count", len(txns), "error", err)
		writeError(w, http.StatusInternalServerError, "error scoring transactions")
		return nil, false
	}

	if rec != nil {
		id := r.Header.Get(logging.RequestIDHeader)
		if err := rec.SaveScores(r.Context(), data.NewScoreRecords(id, results)); err != nil {
			slog.Error("failed to record scores", "request", id, "error", err)
		}
	}
	return results, true
}

func predictHandler(s *scoring.Scorer, rec scoreRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PredictionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if missing := req.Missing(); len(missing) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, validationError{
				Error:   "missing required fields",
				Missing: missing,
			})
			return
		}

		results, ok := score(w, r, s, rec, []features.Transaction{req.Transaction()})
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, PredictionResponse{
			Cluster:     results[0].Cluster,
			Probability: results[0].Probability,
		})
	}
}

func batchPredictHandler(s *scoring.Scorer, rec scoreRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reqs []PredictionRequest
		if !decodeBody(w, r, &reqs) {
			return
		}
		if len(reqs) == 0 {
			writeJSON(w, http.StatusUnprocessableEntity, validationError{Error: "at least one transaction required"})
			return
		}
		txns, missing := batchTransactions(reqs)
		if len(missing) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, validationError{
				Error:   "missing required fields",
				Missing: missing,
			})
			return
		}

		results, ok := score(w, r, s, rec, txns)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, BatchPredictionResponse{
			RequestID: r.Header.Get(logging.RequestIDHeader),
			Results:   results,
		})
	}
}

func scoresHandler(rec scoreRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			writeError(w, http.StatusNotFound, "score audit is not enabled")
			return
		}

		limit := data.DefaultScoreLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxScoresLimit {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxScoresLimit))
				return
			}
			limit = n
		}

		list, err := rec.ListScores(r.Context(), limit)
		if err != nil {
			slog.Error("failed to list scores", "error", err)
			writeError(w, http.StatusInternalServerError, "error listing scores")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
