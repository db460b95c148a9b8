package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dias-T/tow-dispatch-system/config"
	"github.com/Dias-T/tow-dispatch-system/internal/adapter/http/server"
	wshandler "github.com/Dias-T/tow-dispatch-system/internal/adapter/http/ws"
	repo "github.com/Dias-T/tow-dispatch-system/internal/adapter/postgres"
	rabbitadapter "github.com/Dias-T/tow-dispatch-system/internal/adapter/rabbit"
	"github.com/Dias-T/tow-dispatch-system/internal/adapter/weather"
	"github.com/Dias-T/tow-dispatch-system/internal/service/auth"
	"github.com/Dias-T/tow-dispatch-system/internal/service/dispatch"
	"github.com/Dias-T/tow-dispatch-system/internal/service/fare"
	"github.com/Dias-T/tow-dispatch-system/internal/service/geo"
	"github.com/Dias-T/tow-dispatch-system/internal/service/request"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	"github.com/Dias-T/tow-dispatch-system/pkg/postgres"
	"github.com/Dias-T/tow-dispatch-system/pkg/rabbit"
	"github.com/Dias-T/tow-dispatch-system/pkg/trm"
	ws "github.com/Dias-T/tow-dispatch-system/pkg/wsHub"
)

type App struct {
	postgresDB  *postgres.PostgreDB
	rabbitMQ    *rabbit.RabbitMQ
	coordinator *dispatch.Coordinator
	connHub     *ws.ConnectionHub
	httpServer  *server.API

	cfg config.Config
	log logger.Logger
}

// NewApplication wires every adapter and service together.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	rabbitMQ, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "Failed to setup rabbitmq", err)
		return nil, err
	}

	broker := rabbitadapter.NewBroker(rabbitMQ, log)
	if err := broker.SetupTopology(ctx); err != nil {
		log.Error(ctx, "Failed to declare rabbitmq topology", err)
		return nil, err
	}

	// Repositories
	requestRepo := repo.NewRequestRepo(postgresDB.Pool)
	driverRepo := repo.NewDriverRepo(postgresDB.Pool)
	eventRepo := repo.NewRequestEvent(postgresDB.Pool)

	txManager := trm.New(postgresDB.Pool)

	// Domain services
	geoIndex := geo.New(driverRepo, log)

	weatherClient := weather.New(cfg.Weather.BaseURL, cfg.Weather.Timeout)
	fareEngine := fare.New(weatherClient, requestRepo, geoIndex, cfg.Fare.ScarcityWindow, log)

	lifecycle := request.NewLifecycle(
		requestRepo,
		driverRepo,
		eventRepo,
		fareEngine,
		geoIndex,
		broker,
		cfg.Dispatch.SearchRadiusKm,
		txManager,
		log,
	)

	connHub := ws.NewConnHub(log)
	driverHub := wshandler.NewDriverHub(connHub, log)

	coordinator := dispatch.NewCoordinator(lifecycle, driverHub, cfg.Dispatch.BroadcastWindow, cfg.Dispatch.MaxRounds, log)
	driverHub.SetResolver(coordinator)

	tokenService := auth.NewTokenService(cfg.Auth.JWTSecret, log)

	httpServer, err := server.New(cfg, server.Deps{
		TowService: lifecycle,
		Dispatcher: coordinator,
		FareQuoter: fareEngine,
		GeoService: geoIndex,
		DriverHub:  driverHub,
		Auth:       tokenService,
	}, lifecycle, geoIndex, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	return &App{
		postgresDB:  postgresDB,
		rabbitMQ:    rabbitMQ,
		coordinator: coordinator,
		connHub:     connHub,
		httpServer:  httpServer,
		cfg:         cfg,
		log:         log,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.httpServer.Run(ctx, errCh)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "dispatch service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "dispatch service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.coordinator != nil {
		a.coordinator.Close()
	}

	if a.connHub != nil {
		a.connHub.Close()
	}

	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close rabbitmq connection", "error", err.Error())
		}
	}

	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
}
