package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calderhq/opsdesk-backend/internal/agreements"
	"github.com/calderhq/opsdesk-backend/internal/cron"
	"github.com/calderhq/opsdesk-backend/internal/invoices"
	"github.com/calderhq/opsdesk-backend/internal/payments"
	"github.com/calderhq/opsdesk-backend/pkg/config"
	"github.com/calderhq/opsdesk-backend/pkg/db"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
	"github.com/calderhq/opsdesk-backend/pkg/metrics"
	"github.com/calderhq/opsdesk-backend/pkg/migrate"
	"github.com/calderhq/opsdesk-backend/pkg/outbox"
	"github.com/calderhq/opsdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gdb := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)
	agreementsRepo := agreements.NewRepository(gdb)
	invoicesRepo := invoices.NewRepository(gdb)
	paymentsRepo := payments.NewRepository(gdb)

	invoicesService, err := invoices.NewService(invoicesRepo, agreementsRepo, dbClient, outboxService, cfg.Billing)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoices service", err)
		os.Exit(1)
	}
	paymentsService, err := payments.NewService(paymentsRepo, agreementsRepo, dbClient, outboxService, cfg.Billing)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	runner, err := cron.NewRunner(redisClient, jobMetrics, logg, cfg.Cron)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron runner", err)
		os.Exit(1)
	}

	overdueJob, err := cron.NewInvoiceOverdueJob(invoicesRepo, dbClient, outboxService, logg, cfg.Billing)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice overdue job", err)
		os.Exit(1)
	}
	runner.Register(overdueJob)

	billingJob, err := cron.NewRecurringBillingJob(agreementsRepo, invoicesService, paymentsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create recurring billing job", err)
		os.Exit(1)
	}
	runner.Register(billingJob)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	go serveMetrics(ctx, logg, cfg.Cron.MetricsPort)

	logg.Info(ctx, "starting cron worker")
	runner.Start(ctx)
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	if port == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}
