// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/config"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/handler"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/queue"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/service"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		configPath = flag.StringP("config", "c", "", "path to a YAML config file")
		storeFlag  = flag.String("store", "", "storage driver: postgres, sqlite or memory")
		addrFlag   = flag.String("addr", "", "listen address, overrides server.addr")
		mintUser   = flag.String("mint-token", "", "print an access token for this user id and exit")
		mintName   = flag.String("name", "", "display name for --mint-token")
		mintEmail  = flag.String("email", "", "email for --mint-token")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *storeFlag != "" {
		cfg.Store.Driver = *storeFlag
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if *mintUser != "" {
		token, exp, err := auth.NewAccessToken(cfg.Auth.JWTSecret, model.UserSnapshot{
			ID:    *mintUser,
			Name:  *mintName,
			Email: *mintEmail,
		}, cfg.Auth.TokenTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mint token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
		return
	}

	logger := newLogger(os.Stdout, cfg.Log)
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Open storage ──────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Optional infrastructure ───────────────────────────────────────
	var limiter redis.Scripter
	if rdb := connectRedis(ctx, cfg.Redis, logger); rdb != nil {
		defer func() { _ = rdb.Close() }()
		limiter = rdb
	}

	var opts []service.CommitterOption
	if cfg.AMQP.URL != "" {
		pub := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger.With("component", "queue"))
		defer func() { _ = pub.Close() }()
		opts = append(opts, service.WithPublisher(pub))
		logger.Info("publishing booking events", "queue", cfg.AMQP.Queue)
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	committer := service.NewBookingCommitter(store, service.CommitterConfig{
		ReadTimeout:  cfg.Booking.ReadTimeout,
		WriteTimeout: cfg.Booking.WriteTimeout,
	}, logger.With("component", "committer"), opts...)
	eventHandler := handler.NewEventHandler(
		service.NewEventService(store, logger.With("component", "events")),
		committer,
		service.NewTicketValidator(store, logger.With("component", "validator")),
		logger,
	)

	// ── 4. Build the router ──────────────────────────────────────────────
	router := handler.NewRouter(eventHandler, handler.RouterConfig{
		JWTSecret:  cfg.Auth.JWTSecret,
		CORSOrigin: cfg.Server.CORSOrigin,
		RateLimit:  cfg.RateLimit,
		Redis:      limiter,
		Logger:     logger,
	})

	// ── 5. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	committer.Wait()
	logger.Info("server stopped")
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		logger.Info("connected to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		return repository.NewPostgresStore(pool), pool.Close, nil

	case config.DriverSQLite:
		pool, err := database.OpenSQLite(cfg.SQLite, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		logger.Info("opened SQLite database", "path", cfg.SQLite.Path)
		return repository.NewSQLiteStore(pool), func() { _ = pool.Close() }, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return repository.NewMemoryStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// connectRedis returns nil when Redis is not configured or not reachable;
// booking attempts are then not rate limited.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", "addr", cfg.Addr, "error", err)
		_ = rdb.Close()
		return nil
	}
	logger.Info("connected to Redis", "addr", cfg.Addr)
	return rdb
}
