// Package server assembles the licensegate process: store, services, the
// HTTP dispatcher and the RPC surface, and runs them until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/licensegate/internal/cryptox"
	"github.com/dmitrijs2005/licensegate/internal/dbx"
	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/config"
	"github.com/dmitrijs2005/licensegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/licensegate/internal/server/rest"
	"github.com/dmitrijs2005/licensegate/internal/server/services"
	"github.com/dmitrijs2005/licensegate/internal/telemetry"
	"go.opentelemetry.io/otel"

	gs "github.com/dmitrijs2005/licensegate/internal/server/grpc"
)

const (
	serviceName     = "licensegate"
	shutdownTimeout = 5 * time.Second
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	conn       *dbx.Conn
	handler    http.Handler
	grpcServer *gs.GRPCServer
	telemetry  telemetry.ShutdownFunc
}

// NewApp opens the store, applies migrations and builds both surfaces.
// The caller must Close the returned App.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	shutdownTelemetry, err := telemetry.Setup(ctx, serviceName, c.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}

	app := &App{config: c, logger: logger, telemetry: shutdownTelemetry}
	if err := app.init(ctx); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	rm, err := repomanager.NewSQLRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	app.conn, err = dbx.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, app.conn.DB()); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	hasher, err := cryptox.NewHasher(c.Argon2)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	welcome, err := services.RenderWelcome(c.PublicURL)
	if err != nil {
		return fmt.Errorf("welcome message: %w", err)
	}

	users := services.NewUserService(app.conn, rm, hasher, welcome, app.logger)
	sessions := services.NewSessionService(app.conn, rm, app.logger)
	exam := services.NewExamService(app.conn, rm, app.logger)

	app.handler = rest.NewHandler(users, sessions, exam, app.logger, otel.Meter(serviceName))
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger, sessions, c.ServiceSecret, c.ServiceTokenValidity)

	return nil
}

// Close releases the store and flushes pending telemetry.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	if app.conn != nil {
		errs = append(errs, app.conn.Close())
	}
	if app.telemetry != nil {
		errs = append(errs, app.telemetry(ctx))
	}
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run listens on the configured addresses and serves until ctx is cancelled
// or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	httpLis, err := net.Listen("tcp", app.config.EndpointAddrHTTP)
	if err != nil {
		return err
	}

	grpcLis, err := net.Listen("tcp", app.config.EndpointAddrGRPC)
	if err != nil {
		_ = httpLis.Close()
		return err
	}

	return app.Serve(ctx, httpLis, grpcLis)
}

// Serve runs both surfaces on the given listeners. When either stops with
// an error the other is shut down too; the first error is returned.
func (app *App) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	// A failed listener is fatal: both surfaces stop and the process exits.
	fail := func(err error) {
		app.logger.Error(ctx, err.Error())
		errOnce.Do(func() { firstErr = err })
		cancelFunc()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.serveHTTP(ctx, httpLis); err != nil {
			fail(fmt.Errorf("http server: %w", err))
		}
		cancelFunc()
	}()
	go func() {
		defer wg.Done()
		if err := app.grpcServer.Serve(ctx, grpcLis); err != nil {
			fail(fmt.Errorf("grpc server: %w", err))
		}
		cancelFunc()
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")

	return firstErr
}

func (app *App) serveHTTP(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
