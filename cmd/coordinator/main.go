package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/metrika/internal/config"
	"github.com/vshulcz/metrika/internal/server"
	"github.com/vshulcz/metrika/internal/server/middlewares"
	"github.com/vshulcz/metrika/pkg/remote"
	"github.com/vshulcz/metrika/pkg/reporting"
	"github.com/vshulcz/metrika/pkg/util"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	util.PrintBuildInfo(buildVersion, buildDate, buildCommit)

	cfg, err := config.LoadCoordinatorConfig(os.Args[1:], nil)
	if err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	sinks, pg := buildSinks(cfg, logger)
	last := server.NewLastBatch()

	multi := reporting.NewMultiHandler(append(sinks, last)...)
	multi.SetErrorHandler(func(err error) {
		logger.Warn("sink failed", zap.Error(err))
	})

	agg := remote.NewAggregator(multi, remote.AggregatorConfig{
		ExpectedWorkers: cfg.ExpectedWorkers,
		FlushTimeout:    cfg.FlushTimeout,
		Logger:          logger,
	})

	var pinger server.Pinger
	if pg != nil {
		pinger = pg
	}
	h := server.NewHandler(agg, last, pinger)
	r := server.NewRouter(h,
		middlewares.ZapLogger(logger),
		middlewares.GzipRequest(),
		middlewares.VerifyHashSHA256(cfg.Key),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go agg.Run(ctx)

	srv := &http.Server{Addr: cfg.Address, Handler: r}
	go func() {
		logger.Info("coordinator started",
			zap.String("addr", cfg.Address),
			zap.Duration("flush_timeout", cfg.FlushTimeout),
			zap.Int("expected_workers", cfg.ExpectedWorkers),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("shutdown failed", zap.Error(err))
	}
	logger.Info("coordinator stopped")
}
