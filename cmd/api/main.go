package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/calderhq/opsdesk-backend/api/routes"
	"github.com/calderhq/opsdesk-backend/internal/agreements"
	"github.com/calderhq/opsdesk-backend/internal/auth"
	"github.com/calderhq/opsdesk-backend/internal/invoices"
	"github.com/calderhq/opsdesk-backend/internal/milestones"
	"github.com/calderhq/opsdesk-backend/internal/payments"
	"github.com/calderhq/opsdesk-backend/internal/projects"
	"github.com/calderhq/opsdesk-backend/internal/settlements"
	"github.com/calderhq/opsdesk-backend/internal/stakeholders"
	"github.com/calderhq/opsdesk-backend/internal/tasks"
	"github.com/calderhq/opsdesk-backend/internal/users"
	"github.com/calderhq/opsdesk-backend/pkg/auth/session"
	"github.com/calderhq/opsdesk-backend/pkg/config"
	"github.com/calderhq/opsdesk-backend/pkg/db"
	"github.com/calderhq/opsdesk-backend/pkg/logger"
	"github.com/calderhq/opsdesk-backend/pkg/migrate"
	"github.com/calderhq/opsdesk-backend/pkg/outbox"
	"github.com/calderhq/opsdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	usersRepo := users.NewRepository(gdb)
	stakeholdersRepo := stakeholders.NewRepository(gdb)
	projectsRepo := projects.NewRepository(gdb)
	tasksRepo := tasks.NewRepository(gdb)
	milestonesRepo := milestones.NewRepository(gdb)
	settlementsRepo := settlements.NewRepository(gdb)
	agreementsRepo := agreements.NewRepository(gdb)
	invoicesRepo := invoices.NewRepository(gdb)
	paymentsRepo := payments.NewRepository(gdb)

	authService, err := auth.NewService(usersRepo, sessionManager, redisClient, cfg.JWT, cfg.AuthRateLimit)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	usersService, err := users.NewService(usersRepo, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}
	stakeholdersService, err := stakeholders.NewService(stakeholdersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create stakeholders service", err)
		os.Exit(1)
	}
	projectsService, err := projects.NewService(projectsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create projects service", err)
		os.Exit(1)
	}
	tasksService, err := tasks.NewService(tasksRepo, projectsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create tasks service", err)
		os.Exit(1)
	}
	milestonesService, err := milestones.NewService(milestonesRepo, projectsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create milestones service", err)
		os.Exit(1)
	}
	settlementsService, err := settlements.NewService(settlementsRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlements service", err)
		os.Exit(1)
	}
	agreementsService, err := agreements.NewService(agreementsRepo, stakeholdersRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create agreements service", err)
		os.Exit(1)
	}
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:         authService,
			Users:        usersService,
			Stakeholders: stakeholdersService,
			Projects:     projectsService,
			Tasks:        tasksService,
			Milestones:   milestonesService,
			Settlements:  settlementsService,
			Agreements:   agreementsService,
			Invoices:     invoicesService,
			Payments:     paymentsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
