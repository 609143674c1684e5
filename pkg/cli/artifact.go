package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	client "github.com/mchmarny/riskscore/pkg/http"
	"github.com/mchmarny/riskscore/pkg/model"
	"github.com/mchmarny/riskscore/pkg/preprocess"
	"github.com/mchmarny/riskscore/pkg/scoring"
)

func newPreprocessorFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  preprocessorFlag,
		Usage: "Path or http(s) URL of the fitted preprocessor (default: from config)",
	}
}

func newModelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  modelFlag,
		Usage: "Path or http(s) URL of the classifier model (default: from config)",
	}
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// fetchArtifact returns a local path for ref, downloading remote artifacts
// into a temporary directory that cleanup removes.
func fetchArtifact(ctx context.Context, ref string) (path string, cleanup func(), err error) {
	if ref == "" {
		return "", nil, fmt.Errorf("artifact location not set")
	}
	if !isRemote(ref) {
		return ref, func() {}, nil
	}

	dir, err := os.MkdirTemp("", appName+"-")
	if err != nil {
		return "", nil, fmt.Errorf("creating download dir: %w", err)
	}
	cleanup = func() { os.RemoveAll(dir) }

	path = filepath.Join(dir, "artifact.json")
	slog.Debug("downloading artifact", "url", ref)
	if err := client.Download(ctx, nil, ref, path); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("downloading %s: %w", ref, err)
	}
	return path, cleanup, nil
}

func flagOr(cmd *cli.Command, name, fallback string) string {
	if v := cmd.String(name); v != "" {
		return v
	}
	return fallback
}

func loadPreprocessor(ctx context.Context, ref string) (*preprocess.Preprocessor, error) {
	path, cleanup, err := fetchArtifact(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return preprocess.LoadFile(path)
}

func loadModel(ctx context.Context, ref string) (*model.Centroid, error) {
	path, cleanup, err := fetchArtifact(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return model.LoadCentroidFile(path)
}

// loadScorer loads both artifacts concurrently and checks that they agree
// on the feature layout.
func loadScorer(ctx context.Context, cmd *cli.Command, c *appConfig) (*scoring.Scorer, error) {
	preRef := flagOr(cmd, preprocessorFlag, c.Artifacts.Preprocessor)
	modelRef := flagOr(cmd, modelFlag, c.Artifacts.Model)

	var (
		pre *preprocess.Preprocessor
		clf *model.Centroid
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if pre, err = loadPreprocessor(gctx, preRef); err != nil {
			return fmt.Errorf("loading preprocessor: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if clf, err = loadModel(gctx, modelRef); err != nil {
			return fmt.Errorf("loading model: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s, err := scoring.New(pre, clf)
	if err != nil {
		return nil, fmt.Errorf("validating artifacts: %w", err)
	}
	slog.Debug("artifacts loaded", "preprocessor", preRef, "model", modelRef, "features", pre.Width())
	return s, nil
}
