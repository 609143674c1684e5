package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/urfave/cli/v3"

	"github.com/mchmarny/riskscore/pkg/features"
	"github.com/mchmarny/riskscore/pkg/preprocess"
)

func newFitCmd() *cli.Command {
	return &cli.Command{
		Name:  "fit",
		Usage: "Fit the preprocessor on imported transactions or a CSV file",
		UsageText: `riskscore fit                          # fit on every imported transaction
   riskscore fit --file data.csv --out pre.json`,
		Action: cmdFit,
		Flags: []cli.Flag{
			newFileFlag(false),
			&cli.StringFlag{
				Name:    outFlag,
				Aliases: []string{"o"},
				Usage:   "Output path (default: preprocessor path from config)",
			},
		},
	}
}

type FitResult struct {
	Source   string   `json:"source" yaml:"source"`
	Rows     int      `json:"rows" yaml:"rows"`
	Width    int      `json:"width" yaml:"width"`
	Features []string `json:"features" yaml:"features"`
	Out      string   `json:"out" yaml:"out"`
	Duration string   `json:"duration" yaml:"duration"`
}

func trainingFrame(ctx context.Context, cmd *cli.Command, cfg *appConfig) (dataframe.DataFrame, string, error) {
	if path := cmd.String(fileFlag); path != "" {
		df, err := readFrame(path, os.Stdin)
		return df, path, err
	}

	store, err := cfg.Store(ctx)
	if err != nil {
		return dataframe.DataFrame{}, "", err
	}
	txns, err := store.ListTransactions(ctx)
	if err != nil {
		return dataframe.DataFrame{}, "", fmt.Errorf("listing transactions: %w", err)
	}
	if len(txns) == 0 {
		return dataframe.DataFrame{}, "", fmt.Errorf("no imported transactions, run import first or pass --%s", fileFlag)
	}
	return features.NewFrame(txns), "store:" + cfg.Storage.Driver, nil
}

func cmdFit(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	cfg := getConfig(cmd)

	df, source, err := trainingFrame(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	engineered, err := features.Engineer(df)
	if err != nil {
		return fmt.Errorf("engineering features: %w", err)
	}

	pre := preprocess.New()
	if err := pre.Fit(engineered); err != nil {
		return fmt.Errorf("fitting preprocessor: %w", err)
	}

	out := flagOr(cmd, outFlag, cfg.Artifacts.Preprocessor)
	if err := pre.SaveFile(out); err != nil {
		return err
	}

	names, err := pre.FeatureNames()
	if err != nil {
		return err
	}
	slog.Info("preprocessor fitted", "rows", engineered.Nrow(), "width", pre.Width(), "out", out)

	return cfg.encode(&FitResult{
		Source:   source,
		Rows:     engineered.Nrow(),
		Width:    pre.Width(),
		Features: names,
		Out:      out,
		Duration: time.Since(start).String(),
	})
}
