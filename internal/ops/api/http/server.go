package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"curbside/internal/config"
	"curbside/internal/mylogger"
	"curbside/internal/ops/api/http/handle"
	"curbside/internal/ops/app/core"
	"curbside/internal/ops/app/services"
	pkgdb "curbside/pkg/db"
	"curbside/pkg/rabbitmq"

	"curbside/internal/ops/adapter/courier"
	database "curbside/internal/ops/adapter/db"
)

var ErrServerClosed = errors.New("server closed")

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	params *core.OpsParams
	mylog  mylogger.Logger
	pool   *pgxpool.Pool
	mb     *rabbitmq.RabbitMQ
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
}

func NewServer(ctx, appCtx context.Context, cfg *config.Config, params *core.OpsParams, mylog mylogger.Logger) *Server {
	return &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		params: params,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}
}

func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	pool, err := pkgdb.ConnectDB(s.cfg.DB, s.mylog)
	if err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return err
	}
	s.pool = pool

	if err := pkgdb.EnsureSchema(s.ctx, pool); err != nil {
		mylog.Action("schema_setup_failed").Error("Failed to ensure database schema", err)
		return err
	}

	mb, err := rabbitmq.ConnectRabbitMQ(s.cfg.RMQ, s.mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	s.mb = mb

	s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.params.Port),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog.Info("Operations service is running", "port", s.params.Port)
	return s.startHTTPServer()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down operations service")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.pool != nil {
		s.pool.Close()
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
	}

	s.mylog.Action("graceful_shutdown_completed").Info("Operations service shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Configure wires repositories, services and routes.
func (s *Server) Configure() {
	orderRepo := database.NewOrderRepo(s.pool, s.mylog)
	deliveryRepo := database.NewDeliveryRepo(s.pool, s.mylog)
	orgRepo := database.NewOrgRepo(s.pool)
	courierClient := courier.NewClient(s.cfg.Courier, s.mylog)

	dispatchService := services.NewDispatchService(orderRepo, deliveryRepo, orgRepo, courierClient, s.mylog)
	lifecycleService := services.NewLifecycleService(orderRepo, dispatchService, deliveryRepo, s.mb, s.mylog)

	ordersHandler := handle.NewOrdersHandler(lifecycleService, dispatchService, s.mylog)

	s.mux.Handle("POST /orders/{id}/transitions", ordersHandler.Transition())
	s.mux.Handle("POST /orders/{id}/dispatch", ordersHandler.Dispatch())
	s.mux.Handle("POST /courier/callbacks", ordersHandler.CourierCallback())
}
