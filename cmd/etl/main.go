// Command etl runs the restaurant staging pipeline.
//
// Usage:
//
//	etl run                     # every stage, in order
//	etl transform               # offline stages only (no API, no database)
//	etl restaurants hours ...   # the named stages, in pipeline order
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/restaurant-staging-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/restaurant-staging-etl/internal/adapter/kafka"
	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/postgres"
	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/rawstore"
	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/yelp"
	"github.com/couchcryptid/restaurant-staging-etl/internal/config"
	"github.com/couchcryptid/restaurant-staging-etl/internal/observability"
	"github.com/couchcryptid/restaurant-staging-etl/internal/pipeline"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before reading the environment")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: etl [-env-file path] run | transform | <stage>...\n\nstages: %s\n\nflags:\n",
			strings.Join(pipeline.StageNames(pipeline.Stages()), ", "))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if code := run(*envFile, flag.Args()); code != 0 {
		os.Exit(code)
	}
}

func run(envFile string, args []string) int {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", envFile, "error", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	runID := uuid.NewString()
	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat).With("run_id", runID)
	metrics := observability.NewMetrics()

	stages, err := pipeline.Select(args, cfg.PublishEnabled())
	if err != nil {
		logger.Error("invalid stage selection", "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, cleanup, err := collaborators(ctx, cfg, stages, metrics, logger)
	defer cleanup()
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return 1
	}
	opts = append(opts, pipeline.WithRunID(runID), pipeline.WithConsole(os.Stdout))

	p := pipeline.New(cfg, logger, metrics, opts...)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	runErr := p.Run(ctx, stages)

	if cfg.MetricsTextfile != "" {
		if err := observability.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}

	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
		return 1
	}
	return 0
}

// collaborators builds the network clients the selected stages need.
// Credentials are checked here, before any stage touches the network.
func collaborators(ctx context.Context, cfg *config.Config, stages []pipeline.Stage, metrics *observability.Metrics, logger *slog.Logger) ([]pipeline.Option, func(), error) {
	var (
		opts    []pipeline.Option
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	mapping, err := config.LoadCuisineMapping(cfg.CuisineMapFile)
	if err != nil {
		return nil, cleanup, err
	}
	opts = append(opts, pipeline.WithCuisineMapping(mapping))

	var needFetcher, needSink, needPublisher bool
	for _, s := range stages {
		needFetcher = needFetcher || s.NeedsFetcher()
		needSink = needSink || s.NeedsSink()
		needPublisher = needPublisher || s.NeedsPublisher()
	}

	if needFetcher {
		if err := cfg.RequireYelp(); err != nil {
			return nil, cleanup, err
		}
		client := yelp.NewClient(cfg, metrics, logger)
		store := rawstore.New(cfg.RawDir, cfg.DetailsDir)
		opts = append(opts, pipeline.WithFetcher(yelp.NewCachedClient(client, store, metrics)))
		logger.Info("yelp client enabled", "base_url", cfg.YelpBaseURL, "timeout", cfg.YelpTimeout)
	}

	if needSink {
		if err := cfg.RequirePostgres(); err != nil {
			return nil, cleanup, err
		}
		loader, err := postgres.NewLoader(ctx, cfg.PostgresURL, metrics, logger)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, loader.Close)
		opts = append(opts, pipeline.WithSink(loader))
	}

	if needPublisher {
		if err := cfg.RequireKafka(); err != nil {
			return nil, cleanup, err
		}
		pub := kafkaadapter.NewPublisher(cfg, metrics, logger)
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		})
		opts = append(opts, pipeline.WithPublisher(pub))
		logger.Info("view publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	return opts, cleanup, nil
}
