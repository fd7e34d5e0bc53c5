package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/junii03/banking-ledger/internal/config"
	"github.com/junii03/banking-ledger/internal/events"
	"github.com/junii03/banking-ledger/internal/graph"
	"github.com/junii03/banking-ledger/internal/handler"
	"github.com/junii03/banking-ledger/internal/logging"
	"github.com/junii03/banking-ledger/internal/notification"
	"github.com/junii03/banking-ledger/internal/repository"
	"github.com/junii03/banking-ledger/internal/service"
	"github.com/junii03/banking-ledger/internal/statement"
	u "github.com/junii03/banking-ledger/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err.Error())
		os.Exit(1)
	}
	defer closeStore()

	sinks, closeSinks := eventSinks(ctx, cfg, logger)
	defer closeSinks()

	publisher := service.NewAsyncPublisher(sinks, cfg.Ledger.PublishTimeout, logger)
	locker := service.NewAccountLocker()
	limits := service.NewLimitEvaluator(store.Accounts, store.Transactions, cfg.Ledger.Location())

	registry, err := service.NewAccountRegistry(store, locker, publisher, cfg.Ledger, logger)
	if err != nil {
		logger.Error("failed to initialise account registry", "error", err.Error())
		os.Exit(1)
	}
	engine := service.NewTransferEngine(store, limits, locker, publisher, cfg.Ledger, logger)
	statements := statement.NewBuilder(registry, engine)

	router := mux.NewRouter()
	handler.NewAccountHandler(registry, engine, statements, cfg.Ledger.Location(), logger).RegisterRoutes(router)
	handler.NewTransactionHandler(engine, logger).RegisterRoutes(router)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		u.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "store": cfg.Store.Driver})
	}).Methods(http.MethodGet)
	router.Use(loggingMiddleware(logger))

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err.Error())
	}
	publisher.Wait()

	logger.Info("server exited gracefully")
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, data is lost on exit")
		return repository.NewMemoryStore().Store(), func() {}, nil
	}

	db, err := repository.Open(ctx, repository.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Name:            cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return repository.Store{}, nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return repository.Store{}, nil, err
	}
	logger.Info("connected to database successfully")
	return repository.NewPostgresStore(db, cfg.Database.LockTimeout), closeDB(db, logger), nil
}

func closeDB(db *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err.Error())
		}
	}
}

// eventSinks builds the downstream consumers of ledger events. The graph
// projection is skipped when no URI is configured or it cannot be reached.
func eventSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) (events.Publisher, func()) {
	dispatchers := notification.Multi{notification.LogDispatcher{Logger: logger}}
	if cfg.Notifications.WebhookURL != "" {
		dispatchers = append(dispatchers, notification.NewWebhookDispatcher(cfg.Notifications.WebhookURL, cfg.Notifications.Timeout))
	}
	sinks := events.Fanout{notification.NewPublisher(dispatchers)}

	if cfg.Graph.URI == "" {
		return sinks, func() {}
	}
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		logger.Warn("graph projection disabled", "error", err.Error())
		return sinks, func() {}
	}
	logger.Info("graph projection enabled", "uri", cfg.Graph.URI)
	return append(sinks, graph.NewProjector(client)), func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Error("failed to close graph client", "error", err.Error())
		}
	}
}

// loggingMiddleware logs incoming HTTP requests
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
