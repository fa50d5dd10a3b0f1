package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/config"
	"waste-fleet-monitor/internal/delivery/http/handler"
	"waste-fleet-monitor/internal/infrastructure/cache"
	"waste-fleet-monitor/internal/infrastructure/database/postgres"
	"waste-fleet-monitor/internal/ingestion"
	"waste-fleet-monitor/internal/jobs"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/middleware"
	"waste-fleet-monitor/internal/notification"
	"waste-fleet-monitor/internal/realtime"
	"waste-fleet-monitor/internal/routes"
	"waste-fleet-monitor/internal/routing"
	"waste-fleet-monitor/internal/scheduler"
	"waste-fleet-monitor/internal/telemetry"
	"waste-fleet-monitor/internal/trashbin"
	"waste-fleet-monitor/internal/usecase/device"
	"waste-fleet-monitor/internal/usecase/route"
	"waste-fleet-monitor/internal/usecase/user"
	"waste-fleet-monitor/pkg/codec"
	pkgmqtt "waste-fleet-monitor/pkg/mqtt"
)

const (
	shutdownTimeout = 30 * time.Second
	messageTimeout  = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, MQTT ingestion and periodic tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		migrate, _ := cmd.Flags().GetBool("migrate")

		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		return serve(cfg, migrate)
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "Migrate the database schema before serving")
}

func brokerConfig(cfg *config.Config) pkgmqtt.Config {
	return pkgmqtt.Config{
		Broker:               cfg.MQTT.Broker,
		ClientID:             cfg.MQTT.ClientID,
		Username:             cfg.MQTT.Username,
		Password:             cfg.MQTT.Password,
		KeepAlive:            cfg.MQTT.KeepAlive,
		ConnectTimeout:       cfg.MQTT.ConnectTimeout,
		AutoReconnect:        true,
		MaxReconnectInterval: cfg.MQTT.MaxReconnectInterval,
	}
}

func assetHolder(cfg *config.Config) (uuid.UUID, error) {
	if cfg.License.AssetHolderCompanyID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(cfg.License.AssetHolderCompanyID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid SENSOR_ASSET_HOLDER_COMPANY_ID: %w", err)
	}
	return id, nil
}

func serve(cfg *config.Config, migrate bool) error {
	if err := codec.Validate(); err != nil {
		return fmt.Errorf("settings field table is inconsistent: %w", err)
	}

	holder, err := assetHolder(cfg)
	if err != nil {
		return err
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	if migrate {
		if err := db.Migrate(); err != nil {
			return err
		}
	}

	routeCache, err := cache.NewRouteStore(cfg.Cache.RoutesPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := routeCache.Close(); err != nil {
			logger.Error("Failed to close route cache", zap.Error(err))
		}
	}()

	companies := postgres.NewCompanyRepository(db)
	users := postgres.NewUserRepository(db)
	sensors := postgres.NewSensorRepository(db)
	trashbins := postgres.NewTrashbinRepository(db)
	records := postgres.NewRecordRepository(db)
	onboardingRequests := postgres.NewOnboardingRepository(db)
	profiles := postgres.NewProfileRepository(db)
	jobRepository := postgres.NewJobRepository(db)
	notifications := postgres.NewNotificationRepository(db)
	routeRepository := postgres.NewRouteRepository(db)

	hub := realtime.NewHub()

	registry := notification.NewRegistry()
	notification.RegisterSensorKinds(registry)
	notification.RegisterTrashbinKinds(registry)
	notification.RegisterRouteKinds(registry)
	notifier := notification.NewNotifier(notifications, users, registry)
	notifier.SetListener(hub)
	policy := notification.NewPolicy(notifier)
	push := notification.NewPushClient(cfg.Notification.PushEndpoint, cfg.Notification.PushServerKey, routeRepository)
	mail := notification.NewMailClient(cfg.SMTP)
	fanout := notification.NewFanout(notifications, users, registry, push, mail, cfg.Notification.SiteURL, cfg.Notification.PageSize)

	commander := jobs.NewCommander(db, jobRepository, cfg.Jobs.PayloadLimit)
	reconciler := jobs.NewReconciler(db, jobRepository, cfg.Jobs.PayloadLimit)
	propagator := jobs.NewPropagator(sensors, reconciler, cfg.Jobs.PageSize)
	sweeper := jobs.NewSweeper(jobRepository, sensors, cfg.Jobs.AllowedConnections, cfg.Jobs.FailAfterDays, cfg.Jobs.PageSize)
	locations := jobs.NewLocationScheduler(sensors, jobRepository, cfg.Jobs.PageSize)
	sender := jobs.NewSender(jobRepository, jobs.MQTTDialer(brokerConfig(cfg)), cfg.MQTT.QoS, cfg.MQTT.SettleDelay)

	license := ingestion.NewLicenseService(companies, sensors, trashbins, holder)
	onboarding := ingestion.NewOnboarding(db, onboardingRequests, sensors, holder)

	pipelineDeps := ingestion.PipelineDeps{
		Tx:          db,
		Sensors:     sensors,
		Records:     records,
		RawMessages: records,
		Onboarding:  onboardingRequests,
		License:     license,
		Telemetry:   telemetry.NewService(db, sensors, records),
		Acks:        jobs.NewAcknowledger(jobRepository),
		Sweeper:     sweeper,
		Policy:      policy,
	}
	if cfg.MQTT.SenderEnabled {
		jobDispatcher := ingestion.NewDispatcher(sender, cfg.Ingestion.Workers, cfg.Ingestion.BufferSize)
		jobDispatcher.Start()
		defer jobDispatcher.Stop()
		pipelineDeps.Dispatcher = jobDispatcher
	}

	processor := ingestion.NewProcessor(ingestion.NewPipeline(pipelineDeps), cfg.Ingestion.Workers, cfg.Ingestion.BufferSize, messageTimeout)
	processor.Start()
	defer processor.Stop()

	listenerConfig := brokerConfig(cfg)
	listener, err := ingestion.NewMQTTListener(pkgmqtt.NewClient(&listenerConfig), cfg.MQTT.DataTopic, cfg.MQTT.QoS, processor)
	if err != nil {
		return err
	}
	if err := listener.Start(); err != nil {
		return err
	}
	defer listener.Stop()

	routeDispatcher := routing.NewDispatcher(routeCache, hub.Drivers(), push)
	routingService := routing.NewService(db, routeRepository, users, routeDispatcher, notifier)

	trashbinService := trashbin.NewService(db, trashbins, records, records, jobRepository, companies, policy,
		trashbin.TokenConfig{Secret: cfg.JWT.Secret, ExpiryHours: cfg.JWT.ExpiryHours})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst)
	go limiter.Cleanup(ctx, time.Minute)

	tasks := scheduler.New()
	scheduler.Register(tasks, cfg, scheduler.Services{
		Sweeper:   sweeper,
		Locations: locations,
		Usage:     license,
		Fanout:    fanout,
	})
	tasks.Start(ctx)

	router := routes.SetupRoutes(cfg, routes.Dependencies{
		DB:        db,
		Limiter:   limiter,
		Realtime:  realtime.NewEndpoint(hub, cfg.JWT.Secret, realtime.NewDriverHandler(routingService), routingService),
		Auth:      handler.NewAuthHandler(user.NewService(users, cfg.JWT)),
		Trashbins: trashbin.NewHandler(trashbinService),
		Routes:    handler.NewRouteHandler(route.NewService(routingService, users)),
		Sensors: handler.NewSensorHandler(device.NewService(db, sensors, profiles,
			commander, reconciler, propagator, onboarding)),
	})

	host := cfg.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	addr := net.JoinHostPort(host, port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown Server ...")
	case err := <-serverErr:
		stop()
		tasks.Wait()
		return fmt.Errorf("failed to start server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.CloseAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", zap.Error(err))
	}
	tasks.Wait()

	logger.Info("Server exited properly")
	return nil
}
