package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpIncentives/internal/config"
	"lpIncentives/internal/metrics"
	"lpIncentives/internal/server"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	runner, cleanup, err := buildRunner(ctx, cfg.RunConfig, m, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.AuthHeader == "" || cfg.AuthValue == "" {
		logger.Warn("run endpoint is not authenticated")
	}
	srv := server.New(server.Config{
		Addr:       cfg.Addr,
		AuthHeader: cfg.AuthHeader,
		AuthValue:  cfg.AuthValue,
		RunTimeout: cfg.RunTimeout,
	}, runner, reg, logger)

	logger.Info("serving", zap.String("addr", cfg.Addr))
	return srv.Start(ctx)
}
