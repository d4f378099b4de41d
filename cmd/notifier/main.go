package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/config"
	"github.com/tazhibayda/todo-service/internal/log"
	"github.com/tazhibayda/todo-service/internal/mail"
	"github.com/tazhibayda/todo-service/internal/metrics"
	"github.com/tazhibayda/todo-service/internal/queue"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a TOML config file (env vars override it)")
	metricsAddr := pflag.String("metrics-addr", ":9101", "address for /metrics; empty disables it")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, err := log.Init(cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sender, err := mail.NewSMTP(mail.SMTPConfig{
		Host: cfg.SMTPHost, Port: cfg.SMTPPort,
		Username: cfg.SMTPUser, Password: cfg.SMTPPass,
		From: cfg.MailFrom,
	})
	if err != nil {
		logger.Fatal("smtp init failed", zap.Error(err))
	}

	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue, queue.KeyMailSend)
	if err != nil {
		logger.Fatal("rabbit consumer init failed", zap.Error(err))
	}
	defer cons.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	logger.Info("notifier up",
		zap.String("exchange", cfg.RabbitExchange),
		zap.String("queue", cfg.RabbitQueue),
		zap.String("key", queue.KeyMailSend),
		zap.Int("workers", cfg.RabbitConcurrency),
	)

	deliver := mail.JobHandler(sender)
	err = cons.Consume(ctx, cfg.RabbitConcurrency, func(ctx context.Context, body []byte) error {
		err := deliver(ctx, body)
		if err != nil {
			metrics.MailJobs.WithLabelValues("fail").Inc()
		} else {
			metrics.MailJobs.WithLabelValues("sent").Inc()
		}
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
	}
}
