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
	database "curbside/internal/tracking/adapter/db"
	"curbside/internal/tracking/api/http/handle"
	"curbside/internal/tracking/app/core"
	"curbside/internal/tracking/app/services"
	pkgdb "curbside/pkg/db"
)

var ErrServerClosed = errors.New("server closed")

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	params *core.TrackingParams
	mylog  mylogger.Logger
	pool   *pgxpool.Pool
	ctx    context.Context
	mu     sync.Mutex
}

func NewServer(ctx context.Context, cfg *config.Config, params *core.TrackingParams, mylog mylogger.Logger) *Server {
	return &Server{
		ctx:    ctx,
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

	s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.params.Port),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog.Info("Tracking service is running", "port", s.params.Port)
	return s.startHTTPServer()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down tracking service")

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

	s.mylog.Action("graceful_shutdown_completed").Info("Tracking service shut down gracefully")
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

func (s *Server) Configure() {
	orderRepo := database.NewOrderRepo(s.pool)
	trackingService := services.NewTrackingService(orderRepo, s.mylog)
	trackingHandler := handle.NewTrackingHandler(trackingService, s.mylog)

	s.mux.Handle("GET /track/{token}", trackingHandler.Track())
}
