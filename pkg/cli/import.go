package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/urfave/cli/v3"

	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/features"
)

func newFileFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     fileFlag,
		Aliases:  []string{"f"},
		Usage:    "Path to a transactions CSV file with a header row (- for stdin)",
		Required: required,
	}
}

func newImportCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Aliases:   []string{"i"},
		Usage:     "Import transactions from CSV into the store",
		UsageText: "riskscore import --file data/raw/data.csv",
		Action:    cmdImport,
		Flags: []cli.Flag{
			newFileFlag(true),
		},
	}
}

type ImportResult struct {
	File     string                   `json:"file" yaml:"file"`
	Imported int                      `json:"imported" yaml:"imported"`
	Store    *data.TransactionSummary `json:"store" yaml:"store"`
	Duration string                   `json:"duration" yaml:"duration"`
}

func readFrame(path string, stdin io.Reader) (dataframe.DataFrame, error) {
	if path == "" {
		return dataframe.DataFrame{}, fmt.Errorf("input file required")
	}
	if path == "-" {
		return features.ReadCSV(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return features.ReadCSV(f)
}

func cmdImport(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	cfg := getConfig(cmd)
	path := cmd.String(fileFlag)

	df, err := readFrame(path, os.Stdin)
	if err != nil {
		return err
	}
	txns, err := features.Transactions(df)
	if err != nil {
		return fmt.Errorf("reading transactions from %s: %w", path, err)
	}

	store, err := cfg.Store(ctx)
	if err != nil {
		return err
	}
	if err := store.SaveTransactions(ctx, txns); err != nil {
		return fmt.Errorf("saving transactions: %w", err)
	}

	sum, err := store.SummarizeTransactions(ctx)
	if err != nil {
		return fmt.Errorf("summarizing store: %w", err)
	}
	slog.Debug("import complete", "file", path, "rows", len(txns))

	return cfg.encode(&ImportResult{
		File:     path,
		Imported: len(txns),
		Store:    sum,
		Duration: time.Since(start).String(),
	})
}
