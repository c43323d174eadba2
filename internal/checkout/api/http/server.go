package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"curbside/internal/checkout/api/http/handle"
	"curbside/internal/checkout/app/core"
	"curbside/internal/checkout/app/services"
	"curbside/internal/config"
	"curbside/internal/mylogger"
	pkgdb "curbside/pkg/db"
	"curbside/pkg/rabbitmq"

	database "curbside/internal/checkout/adapter/db"
	"curbside/internal/checkout/adapter/gateway"
)

var ErrServerClosed = errors.New("server closed")

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	params *core.CheckoutParams
	mylog  mylogger.Logger
	pool   *pgxpool.Pool
	mb     *rabbitmq.RabbitMQ
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
}

func NewServer(ctx, appCtx context.Context, cfg *config.Config, params *core.CheckoutParams, mylog mylogger.Logger) *Server {
	return &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		params: params,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}
}

// Run connects the backing services, registers routes and listens until the
// context is canceled or the listener fails.
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

	mylog.Info("Checkout service is running", "port", s.params.Port)
	return s.startHTTPServer()
}

// Stop shuts the server down gracefully and closes its connections.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down checkout service")

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

	s.mylog.Action("graceful_shutdown_completed").Info("Checkout service shut down gracefully")
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
	catalogRepo := database.NewCatalogRepo(s.pool)
	gatewayClient := gateway.NewClient(s.cfg.Gateway, s.mylog)

	intentService := services.NewIntentService(orderRepo, catalogRepo, gatewayClient, s.mb, s.mylog)

	checkoutHandler := handle.NewCheckoutHandler(intentService, catalogRepo, s.mylog)

	s.mux.Handle("GET /orgs/{slug}/slots", checkoutHandler.Slots())
	s.mux.Handle("POST /checkout/quote", checkoutHandler.Quote())
	s.mux.Handle("POST /checkout/payment-intents", checkoutHandler.CreateIntent())
	s.mux.Handle("POST /payments/confirmations", checkoutHandler.Confirm())
}
