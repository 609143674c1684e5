package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/mchmarny/riskscore/pkg/logging"
	"github.com/mchmarny/riskscore/pkg/scoring"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 60
	serverMaxHeaderBytes      = 20

	hostFlag = "host"
	portFlag = "port"
)

func newServeCmd() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Start the HTTP scoring API",
		Action:  cmdServe,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  hostFlag,
				Usage: "Address on which the server will listen (default: from config)",
			},
			&cli.IntFlag{
				Name:  portFlag,
				Usage: "Port on which the server will listen (default: from config)",
			},
			newPreprocessorFlag(),
			newModelFlag(),
		},
	}
}

func makeRouter(s *scoring.Scorer, rec scoreRecorder) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", rootHandler())
	mux.HandleFunc("GET /health", healthHandler())

	mux.HandleFunc("POST /predict", predictHandler(s, rec))
	mux.HandleFunc("POST /predict/batch", batchPredictHandler(s, rec))

	mux.HandleFunc("GET /scores", scoresHandler(rec))

	return mux
}

func cmdServe(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	srv := cfg.Server
	if v := cmd.String(hostFlag); v != "" {
		srv.Host = v
	}
	if v := cmd.Int(portFlag); v != 0 {
		srv.Port = v
	}

	scorer, err := loadScorer(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	var rec scoreRecorder
	if cfg.Scoring.Audit {
		store, err := cfg.Store(ctx)
		if err != nil {
			return err
		}
		rec = store
	}

	s := &http.Server{
		Addr:              srv.Addr(),
		Handler:           logging.Middleware(slog.Default(), makeRouter(scorer, rec)),
		ReadHeaderTimeout: serverTimeoutSeconds * time.Second,
		ReadTimeout:       serverTimeoutSeconds * time.Second,
		WriteTimeout:      serverTimeoutSeconds * time.Second,
		MaxHeaderBytes:    1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServer(ctx, s)
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, s *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server started", "address", fmt.Sprintf("http://%s", s.Addr))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error shutting down server: %w", err)
		}
		slog.Info("server stopped")
		return nil
	})

	return g.Wait()
}
