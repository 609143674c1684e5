package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/urfave/cli/v3"

	"github.com/mchmarny/riskscore/pkg/features"
)

func newTransformCmd() *cli.Command {
	return &cli.Command{
		Name:      "transform",
		Usage:     "Print the feature matrix for a CSV file as CSV",
		UsageText: "riskscore transform --file data.csv [--out features.csv]",
		Action:    cmdTransform,
		Flags: []cli.Flag{
			newFileFlag(true),
			newPreprocessorFlag(),
			&cli.StringFlag{
				Name:    outFlag,
				Aliases: []string{"o"},
				Usage:   "Output CSV path (default: stdout)",
			},
		},
	}
}

func cmdTransform(ctx context.Context, cmd *cli.Command) (retErr error) {
	cfg := getConfig(cmd)

	pre, err := loadPreprocessor(ctx, flagOr(cmd, preprocessorFlag, cfg.Artifacts.Preprocessor))
	if err != nil {
		return fmt.Errorf("loading preprocessor: %w", err)
	}

	df, err := readFrame(cmd.String(fileFlag), os.Stdin)
	if err != nil {
		return err
	}
	engineered, err := features.Engineer(df)
	if err != nil {
		return fmt.Errorf("engineering features: %w", err)
	}
	x, err := pre.Transform(engineered)
	if err != nil {
		return fmt.Errorf("transforming features: %w", err)
	}
	names, err := pre.FeatureNames()
	if err != nil {
		return err
	}

	out := dataframe.LoadMatrix(x)
	if err := out.SetNames(names...); err != nil {
		return fmt.Errorf("naming feature columns: %w", err)
	}

	var w io.Writer = cfg.Out
	if path := cmd.String(outFlag); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && retErr == nil {
				retErr = fmt.Errorf("closing %s: %w", path, cerr)
			}
		}()
		w = f
	}

	if err := out.WriteCSV(w); err != nil {
		return fmt.Errorf("writing feature matrix: %w", err)
	}
	return nil
}
