package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"workorder-service/internal/auth"
	"workorder-service/internal/client"
	"workorder-service/internal/config"
	"workorder-service/internal/db"
	httphandler "workorder-service/internal/http"
	"workorder-service/internal/http/middleware"
	"workorder-service/internal/logger"
	"workorder-service/internal/policy"
	"workorder-service/internal/repository"
	"workorder-service/internal/repository/memory"
	"workorder-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)

	stores, closeStores, err := openStores(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer closeStores()

	notifier, closeNotifier, err := openNotifier(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect notification broker")
	}
	defer closeNotifier()

	boundary, err := policy.ParseBoundary(cfg.WorkOrders.OverlapBoundary)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("invalid overlap boundary")
	}

	workOrderService := service.NewWorkOrderService(stores, notifier, service.WorkOrderSettings{
		SchedulingWindow: cfg.WorkOrders.SchedulingWindow,
		OverlapBoundary:  boundary,
		NumberRetries:    cfg.WorkOrders.NumberRetries,
	}, appLogger)
	taskService := service.NewTaskService(stores, appLogger)
	templateService := service.NewTaskTemplateService(stores, appLogger)
	clientService := service.NewClientService(stores, appLogger)
	userService := service.NewUserService(stores,
		auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.SessionTTL, cfg.Auth.ConfirmationTTL),
		auth.NewParser(cfg.Auth.AccessSecret),
		notifier,
		service.UserSettings{MaxFailedLogins: cfg.Auth.MaxFailedLogins, BaseURL: cfg.Notify.BaseURL},
		appLogger,
	)
	auditService := service.NewAuditService(stores)

	if path := cfg.WorkOrders.TemplateSeedFile; path != "" {
		if _, err := templateService.SeedFromFile(context.Background(), path); err != nil {
			appLogger.Fatal().Err(err).Str("file", path).Msg("failed to seed task templates")
		}
	}

	handler := httphandler.NewHandler(workOrderService, taskService, templateService, clientService, userService, auditService, appLogger)
	loginLimiter := middleware.NewRateLimiter(cfg.Auth.LoginRateLimitRPS, cfg.Auth.LoginRateLimitBurst)
	router := httphandler.NewRouter(handler, middleware.Auth(userService), loginLimiter.Middleware(), cfg.Environment, appLogger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		appLogger.Info().Str("addr", addr).Str("storage", cfg.DB.Driver).Msg("starting workorder service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStores(cfg *config.Config, log zerolog.Logger) (service.Stores, func(), error) {
	if cfg.DB.Driver == config.StorageDriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		audit := store.AuditLogs()
		return service.Stores{
			WorkOrders: store.WorkOrders(),
			Tasks:      store.Tasks(),
			Evidences:  store.Evidences(),
			Templates:  store.Templates(),
			Clients:    store.Clients(),
			Users:      store.Users(),
			AuditLogs:  audit,
			Audit:      audit,
			Tx:         store.Transactor(),
		}, func() {}, nil
	}

	database, err := db.New(cfg, log)
	if err != nil {
		return service.Stores{}, nil, err
	}
	closeDB := func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	audit := repository.NewAuditLogRepository(database)
	return service.Stores{
		WorkOrders: repository.NewWorkOrderRepository(database),
		Tasks:      repository.NewWorkOrderTaskRepository(database),
		Evidences:  repository.NewTaskEvidenceRepository(database),
		Templates:  repository.NewTaskTemplateRepository(database),
		Clients:    repository.NewClientRepository(database),
		Users:      repository.NewUserRepository(database),
		AuditLogs:  audit,
		Audit:      audit,
		Tx:         repository.NewTransactor(database),
	}, closeDB, nil
}

// openNotifier publishes to NATS when a URL is configured and falls back to
// logging otherwise.
func openNotifier(cfg *config.Config, log zerolog.Logger) (service.Notifier, func(), error) {
	if cfg.Notify.NATSURL == "" {
		log.Warn().Msg("NATS_URL not set, notifications are only logged")
		return client.NewLogNotifier(log), func() {}, nil
	}

	conn, err := client.Connect(cfg.Notify.NATSURL, log)
	if err != nil {
		return nil, nil, err
	}
	publisher := client.NewNotificationPublisher(conn, cfg.Notify.SubjectPrefix, cfg.Notify.Timeout, log)
	return publisher, func() {
		if err := conn.Drain(); err != nil {
			log.Warn().Err(err).Msg("nats drain failed")
		}
	}, nil
}
