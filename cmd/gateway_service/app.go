package gatewayservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"safetrail/internal/general/config"
	"safetrail/internal/general/jwt"
	"safetrail/internal/general/logger"
	"safetrail/internal/general/metrics"
	"safetrail/internal/general/postgres"
	"safetrail/internal/general/rabbitmq"
	"safetrail/internal/general/websocket"
	"safetrail/internal/software/gateway/handler"
	"safetrail/internal/software/gateway/service"
)

// Run wires the gateway service and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent, prefetch int) error {
	// set up a new logger and context for the gateway with a static request ID for startup logs
	logger := logger.New("gateway-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}

	// set up the RabbitMQ publisher
	pub := rabbitmq.NewPublisher(rmq)

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 24*time.Hour)

	// set up the necessary repos
	uow := postgres.NewUnitOfWork(pool)
	locRepo := postgres.NewLocationRepo()
	zoneRepo := postgres.NewZoneRepo()
	alertRepo := postgres.NewAlertRepo()

	// prometheus registry for gateway metrics
	met := metrics.New()

	// set up the gateway service and the websocket hub; they reference each other
	svc := service.New(logger, uow, locRepo, zoneRepo, alertRepo, pub, rmq, met)
	hub := websocket.NewHub(logger, jwtManager, svc, met)
	svc.AttachHub(hub)

	// run the background consumer for authority alerts
	svc.RunBackgroundConsumers(ctx, prefetch)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewGatewayHTTPHandler(svc, logger, hub, zoneRepo, uow, met)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) — blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Gateway.Port),              // listen on the specified port
		Handler:           limitedHandler,                                    // apply the concurrency limiter to the HTTP handler
		ReadHeaderTimeout: 5 * time.Second,                                   // time to read headers
		ReadTimeout:       10 * time.Second,                                  // time to read full request body
		WriteTimeout:      15 * time.Second,                                  // full response write timeout
		IdleTimeout:       60 * time.Second,                                  // keep-alive window
		BaseContext:       func(net.Listener) context.Context { return ctx }, // pass base ctx to all handlers
	}

	// log service start
	logger.Info(ctx, "service_started",
		fmt.Sprintf("Gateway Service started on port %d", cfg.Gateway.Port),
		map[string]any{"port": cfg.Gateway.Port, "max_concurrent": maxConcurrent, "prefetch": prefetch},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Gateway shutting down", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Gateway.Port})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
