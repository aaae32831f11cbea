package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/millken/onceflag"
	"github.com/millken/onceflag/internal/lifecycle"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type config struct {
	Workers     int
	Interval    time.Duration
	RunFor      time.Duration
	StopTimeout time.Duration
	LogLevel    string
}

func main() {
	cfg := config{}
	flag.IntVar(&cfg.Workers, "workers", 4, "Number of workers to start")
	flag.DurationVar(&cfg.Interval, "interval", 250*time.Millisecond, "Interval between worker ticks")
	flag.DurationVar(&cfg.RunFor, "run-for", 2*time.Second, "How long to run before shutting down (0 waits for a signal)")
	flag.DurationVar(&cfg.StopTimeout, "stop-timeout", time.Second, "How long each worker may take to stop")
	flag.StringVar(&cfg.LogLevel, "log-level", zap.InfoLevel.String(), "Log level")
	flag.Parse()

	if cfg.Workers < 1 {
		_, _ = fmt.Fprintf(os.Stderr, "Invalid worker count: %d\n", cfg.Workers)
		os.Exit(1)
	}
	if cfg.Interval <= 0 || cfg.StopTimeout <= 0 || cfg.RunFor < 0 {
		_, _ = fmt.Fprintln(os.Stderr, "interval and stop-timeout must be positive, run-for must not be negative")
		os.Exit(1)
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Invalid log level: %s\n", cfg.LogLevel)
		os.Exit(1)
	}
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level.SetLevel(level)
	logger := zap.Must(logConfig.Build())
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group := lifecycle.NewGroup(logger)
	for i := 0; i < cfg.Workers; i++ {
		w := lifecycle.NewWorker(fmt.Sprintf("ticker-%d", i), logger)
		w.Start(ticker(cfg.Interval, logger.With(zap.String("worker", w.Name()))))
		group.Add(w)
	}

	if cfg.RunFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunFor)
		defer cancel()
	}
	<-ctx.Done()

	return group.Stop(context.Background(), cfg.StopTimeout)
}

func ticker(interval time.Duration, logger *zap.Logger) lifecycle.RunFunc {
	return func(shutdown *onceflag.OnceFlag) error {
		ticks := 0
		for !shutdown.WaitFor(interval) {
			ticks++
			logger.Debug("tick", zap.Int("ticks", ticks))
		}
		logger.Info("ticker finished", zap.Int("ticks", ticks))
		return nil
	}
}
