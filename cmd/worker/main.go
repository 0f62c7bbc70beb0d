package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vshulcz/metrika/internal/collector"
	"github.com/vshulcz/metrika/internal/config"
	"github.com/vshulcz/metrika/pkg/metrics"
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

	cfg, err := config.LoadWorkerConfig(os.Args[1:], nil)
	if err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	reg := metrics.NewRegistry(nil)
	col, err := collector.New(reg)
	if err != nil {
		log.Fatalf("failed to init collector: %v", err)
	}

	fwd := remote.NewForwarder(remote.ForwarderConfig{
		URL:              cfg.CoordinatorURL + "/report",
		Worker:           cfg.Worker,
		ReportingContext: "metrika",
		TargetReporter:   "coordinator",
		Window:           cfg.ReportInterval,
		Key:              cfg.Key,
		Tags:             cfg.Tags,
		Logger:           logger,
	})

	rep := reporting.New(fwd, []*metrics.Registry{reg},
		reporting.WithInterval(cfg.ReportInterval),
		reporting.WithMinReportingTimeout(cfg.MinReportingTimeout),
		reporting.WithTags(cfg.Tags),
		reporting.WithLogger(logger),
		reporting.WithReportingContext("metrika"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	col.Start(ctx, cfg.PollInterval)
	rep.Start()

	logger.Info("worker started",
		zap.String("coordinator", cfg.CoordinatorURL),
		zap.String("worker", cfg.Worker),
		zap.Duration("report", cfg.ReportInterval),
		zap.Duration("poll", cfg.PollInterval),
	)

	<-ctx.Done()

	rep.Stop()
	col.Stop()
	logger.Info("worker stopped")
}
