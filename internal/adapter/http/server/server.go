package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dias-T/tow-dispatch-system/config"
	"github.com/Dias-T/tow-dispatch-system/internal/adapter/http/handler"
	"github.com/Dias-T/tow-dispatch-system/internal/adapter/http/middleware"
	wshandler "github.com/Dias-T/tow-dispatch-system/internal/adapter/http/ws"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	tow       *handler.Tow
	driver    *handler.Driver
	admin     *handler.Admin
	health    *handler.Health
	driverHub *wshandler.DriverHub
}

type Deps struct {
	TowService handler.TowService
	Dispatcher Dispatcher
	FareQuoter handler.FareService
	GeoService handler.GeoService
	DriverHub  *wshandler.DriverHub
	Auth       middleware.AuthService
}

// Dispatcher is everything the HTTP layer needs from the dispatch
// coordinator.
type Dispatcher interface {
	handler.Dispatcher
	handler.DriverDispatcher
}

func New(cfg config.Config, deps Deps, lifecycle handler.LifecycleApplier, counter handler.DriverCounter, log logger.Logger) (*API, error) {
	if deps.Auth == nil {
		return nil, errors.New("auth service is required")
	}

	addr := fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.HTTP.Port)

	routes := &handlers{
		tow:       handler.NewTow(deps.TowService, deps.Dispatcher, deps.FareQuoter, log),
		driver:    handler.NewDriver(deps.GeoService, deps.Dispatcher, lifecycle, log),
		admin:     handler.NewAdmin(lifecycle, counter, log),
		health:    handler.NewHealth(cfg.Service.Name, log),
		driverHub: deps.DriverHub,
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(deps.Auth, log),
		addr:   addr,
		cfg:    cfg,
		log:    log,
	}

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(api.mux),
	}

	api.setupRoutes()

	return api, nil
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	h := a.m.Auth(next)
	h = a.m.Metrics(a.cfg.Service.Name)(h)
	h = a.m.Logging(h)
	h = a.m.Recover(h)
	return h
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	ctx = wrap.WithAction(ctx, "http_server_run")

	a.log.Info(ctx, "starting HTTP server", "address", a.addr)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("http server: %w", err)
	}
}
