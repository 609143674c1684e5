// Package cli implements the riskscore command line application and the
// HTTP scoring server it runs.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/mchmarny/riskscore/pkg/config"
	"github.com/mchmarny/riskscore/pkg/data"
	"github.com/mchmarny/riskscore/pkg/logging"
)

const (
	appName      = "riskscore"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

const (
	debugFlag        = "debug"
	configFlag       = "config"
	formatFlag       = "format"
	fileFlag         = "file"
	outFlag          = "out"
	preprocessorFlag = "preprocessor"
	modelFlag        = "model"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	stdout io.Writer = os.Stdout
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefault("info", logging.FormatCLI)

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	*config.Config
	Debug  bool
	Format string
	Out    io.Writer

	store *data.Store
}

// Store opens the configured store on first use.
func (c *appConfig) Store(ctx context.Context) (*data.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	s, err := data.Open(ctx, c.Storage.Driver, c.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", c.Storage.Driver, err)
	}
	c.store = s
	return s, nil
}

func (c *appConfig) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			slog.Error("closing store", "error", err)
		}
		c.store = nil
	}
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Credit risk feature pipeline and scoring service",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  debugFlag,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&cli.StringFlag{
				Name:    configFlag,
				Usage:   "Path to the config file (default: $HOME/.riskscore/config.yaml)",
				Sources: cli.EnvVars("RISKSCORE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  formatFlag,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*cli.Command{
			newImportCmd(),
			newFitCmd(),
			newTransformCmd(),
			newScoreCmd(),
			newServeCmd(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			conf, err := loadConfig(cmd.String(configFlag))
			if err != nil {
				return ctx, err
			}

			debug := cmd.Bool(debugFlag)
			level := conf.LogLevel
			if debug {
				level = "debug"
			}
			logging.SetDefault(level, conf.LogFormat)

			format := formatJSON
			if f := cmd.String(formatFlag); f == formatYAML || f == "yml" {
				format = formatYAML
			}

			cmd.Metadata[appConfigKey] = &appConfig{
				Config: conf,
				Debug:  debug,
				Format: format,
				Out:    stdout,
			}
			slog.Debug("config loaded", "driver", conf.Storage.Driver, "format", format)
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok {
				cfg.close()
			}
			return nil
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		c, err := config.Read(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return c, nil
	}

	dir, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	c, err := config.ReadOrCreate(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return c, nil
}

func (c *appConfig) encode(v any) error {
	if c.Format == formatYAML {
		e := yaml.NewEncoder(c.Out)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(c.Out)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
