package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dcshock/passengerpipe/config"
	"github.com/dcshock/passengerpipe/errs"
	"github.com/dcshock/passengerpipe/logging"
	"github.com/dcshock/passengerpipe/observer"
	"github.com/dcshock/passengerpipe/pipeline"
	"github.com/dcshock/passengerpipe/stages"
)

// Version is set at build time
var Version = "0.1.0"

// Names from the built-in pipeline definitions.
const (
	sequenceAll    = "all"
	pipelineIngest = "ingest"
	pipelinePrep   = "preprocess"
)

// loggedError marks an error that was already written to the log.
type loggedError struct{ error }

func (e loggedError) Unwrap() error { return e.error }

type app struct {
	configPath    string
	pipelinesPath string
	root          string
	console       io.Writer
}

func newRootCmd(console io.Writer) *cobra.Command {
	a := &app{console: console}
	rootCmd := &cobra.Command{
		Use:   "passengerpipe",
		Short: "Ingest and preprocess the passenger train/test datasets",
		Long: `passengerpipe loads the passenger train and test CSV files named in the
settings file and runs the data pipelines over them.

Commands:
  (none)      - run ingest then preprocess
  ingest      - drop identifier/target columns, write data/processed
  preprocess  - impute missing values, split Name, write data/interim

Error records are mirrored to errors.log.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, sequenceAll, true)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultSettingsPath, "settings file")
	rootCmd.PersistentFlags().StringVar(&a.pipelinesPath, "pipelines", "", "pipeline definitions file (built-in definitions when empty)")
	rootCmd.PersistentFlags().StringVar(&a.root, "root", "", "data root for stage outputs (overrides data.root)")

	for _, name := range []string{pipelineIngest, pipelinePrep} {
		name := name
		rootCmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: fmt.Sprintf("Run only the %s pipeline", name),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.run(cmd, name, false)
			},
		})
	}
	return rootCmd
}

// run executes the named sequence or pipeline.
func (a *app) run(cmd *cobra.Command, target string, sequence bool) error {
	ctx := cmd.Context()

	settings, loadErr := config.Load(a.configPath)
	if loadErr != nil {
		// no settings means no log configuration; report through the defaults
		return a.logFatal(logging.Config{}, loadErr)
	}
	if a.root != "" {
		settings.Data.Root = a.root
	}

	logger, err := logging.New(logging.Config{
		Level:     settings.Log.Level,
		Format:    settings.Log.Format,
		ErrorFile: settings.Log.ErrorFile,
		Console:   a.console,
	})
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.Logger

	fail := func(err error) error {
		log.Error("run aborted", zap.String("code", errs.Code(err)), zap.Error(err))
		return loggedError{err}
	}

	pipelinesPath := a.pipelinesPath
	if pipelinesPath == "" {
		pipelinesPath = settings.Pipelines
	}
	defs, err := config.LoadPipelines(pipelinesPath)
	if err != nil {
		return fail(err)
	}
	reg := config.NewRegistry()
	(&stages.Set{Log: log, Root: settings.Data.Root}).Register(reg)

	built, err := config.BuildAllPipelines(reg, defs)
	if err != nil {
		return fail(err)
	}
	seqs, err := config.BuildAllSequences(defs, built)
	if err != nil {
		return fail(err)
	}

	metrics := observer.NewMetricsObserver()
	observers := []pipeline.Observer{observer.NewLogObserver(log), metrics}
	if dsn := settings.RunStore.DSN; dsn != "" {
		pool, err := openRunStore(ctx, dsn)
		if err != nil {
			return fail(err)
		}
		defer pool.Close()
		observers = append(observers, observer.NewRunStore(pool))
	}
	opts := &pipeline.RunOptions{Observer: pipeline.MultiObserver(observers...)}

	params := settings.Data
	if sequence {
		seq, ok := seqs[target]
		if !ok {
			return fail(fmt.Errorf("sequence %q not defined", target))
		}
		_, err = seq.Run(ctx, &params, opts)
	} else {
		p, ok := built[target]
		if !ok {
			return fail(fmt.Errorf("pipeline %q not defined", target))
		}
		_, err = p.RunWithInput(ctx, &params, opts)
	}
	if err != nil {
		// stage and hook failures are logged by the LogObserver
		err = loggedError{err}
	}

	if path := settings.Metrics.Textfile; path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			log.Error("write metrics textfile", zap.String("path", path), zap.Error(werr))
			err = errors.Join(err, loggedError{werr})
		}
	}
	if err == nil {
		log.Info("run complete", zap.String("target", target))
	}
	return err
}

// logFatal reports err through a logger built from cfg.
func (a *app) logFatal(cfg logging.Config, err error) error {
	cfg.Console = a.console
	logger, lerr := logging.New(cfg)
	if lerr != nil {
		return errors.Join(err, lerr)
	}
	defer logger.Close()
	logger.Error("run aborted", zap.String("code", errs.Code(err)), zap.Error(err))
	return loggedError{err}
}

func openRunStore(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect run store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping run store: %w", err)
	}
	if err := observer.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
