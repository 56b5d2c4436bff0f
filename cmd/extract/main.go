package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/ocean-sample-etl/internal/adapter/kafka"
	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/npy"
	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/plot"
	"github.com/couchcryptid/ocean-sample-etl/internal/config"
	"github.com/couchcryptid/ocean-sample-etl/internal/observability"
	"github.com/couchcryptid/ocean-sample-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger, logCloser := observability.NewLogger(observability.LogOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer logCloser.Close()
	metrics := observability.NewMetrics()

	srcOpts := netcdf.Options{
		ModelFile:       cfg.MITgcmFile,
		ClimatologyFile: cfg.ClimatologyFile,
		CacheSize:       cfg.FrameCacheSize,
	}
	if cfg.Run.Density {
		srcOpts.DensityFile = cfg.DensityFile
	}
	source, err := netcdf.Open(srcOpts, logger)
	if err != nil {
		logger.Error("failed to open model output", "error", err)
		return 1
	}
	defer source.Close()

	loaders := []pipeline.Loader{npy.NewStore(cfg.OutputDir, cfg.SaveArrays, logger)}
	if cfg.PlotHistograms {
		loaders = append(loaders, plot.NewHistograms(cfg.OutputDir, logger))
	}
	if cfg.KafkaNotifyTopic != "" {
		notifier := kafkaadapter.NewNotifier(cfg, logger)
		defer func() {
			if err := notifier.Close(); err != nil {
				logger.Error("kafka notifier close error", "error", err)
			}
		}()
		loaders = append(loaders, notifier)
		logger.Info("run completion events enabled", "topic", cfg.KafkaNotifyTopic)
	}

	p := pipeline.New(source, pipeline.Options{
		Name:       cfg.DataName(),
		Run:        cfg.Run,
		Wrap:       cfg.Wrap,
		Total:      cfg.DataEndIndex,
		Stride:     cfg.SubsampleRate,
		TrainRatio: cfg.TrainValSplitRatio,
		ValRatio:   cfg.ValTestSplitRatio,
		Seed:       cfg.ShuffleSeed,
		Strict:     cfg.NormalizeStrict,
	}, logger, metrics, loaders...)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	if _, err := p.Run(ctx); err != nil {
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if cfg.PushgatewayURL != "" {
		if err := observability.PushMetrics(shutdownCtx, cfg.PushgatewayURL, "ocean_sample_extract", metrics); err != nil {
			logger.Error("metrics push error", "error", err)
		}
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete", "exit_code", code)
	return code
}
