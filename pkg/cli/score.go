package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/features"
	client "github.com/mchmarny/riskscore/pkg/http"
	"github.com/mchmarny/riskscore/pkg/logging"
)

const endpointFlag = "endpoint"

func newScoreCmd() *cli.Command {
	return &cli.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Score transactions from CSV locally or against a running server",
		UsageText: `riskscore score --file data.csv                                  # score with local artifacts
   riskscore score --file data.csv --endpoint http://localhost:8080  # score remotely`,
		Action: cmdScore,
		Flags: []cli.Flag{
			newFileFlag(true),
			&cli.StringFlag{
				Name:  endpointFlag,
				Usage: "Base URL of a running scoring server",
			},
			newPreprocessorFlag(),
			newModelFlag(),
		},
	}
}

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	df, err := readFrame(cmd.String(fileFlag), os.Stdin)
	if err != nil {
		return err
	}

	requestID := uuid.NewString()
	if endpoint := cmd.String(endpointFlag); endpoint != "" {
		return scoreRemote(ctx, cfg, endpoint, requestID, df)
	}

	scorer, err := loadScorer(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	results, err := scorer.Score(df)
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	if cfg.Scoring.Audit {
		store, err := cfg.Store(ctx)
		if err != nil {
			return err
		}
		if err := store.SaveScores(ctx, data.NewScoreRecords(requestID, results)); err != nil {
			return fmt.Errorf("recording scores: %w", err)
		}
	}

	return cfg.encode(&BatchPredictionResponse{
		RequestID: requestID,
		Results:   results,
	})
}

func scoreRemote(ctx context.Context, cfg *appConfig, endpoint, requestID string, df dataframe.DataFrame) error {
	txns, err := features.Transactions(df)
	if err != nil {
		return err
	}
	reqs := make([]PredictionRequest, len(txns))
	for i, t := range txns {
		reqs[i] = NewPredictionRequest(t)
	}

	base := strings.TrimRight(endpoint, "/")
	var health map[string]string
	if err := client.GetJSON(ctx, nil, base+"/health", &health); err != nil {
		return fmt.Errorf("checking %s health: %w", endpoint, err)
	}
	slog.Debug("remote server ready", "endpoint", endpoint, "status", health["status"])

	h := http.Header{}
	h.Set(logging.RequestIDHeader, requestID)

	var resp BatchPredictionResponse
	if err := client.PostJSON(ctx, nil, base+"/predict/batch", reqs, &resp, h); err != nil {
		return fmt.Errorf("scoring against %s: %w", endpoint, err)
	}
	slog.Debug("remote scoring complete", "endpoint", endpoint, "results", len(resp.Results))
	return cfg.encode(&resp)
}
