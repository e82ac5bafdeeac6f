package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	httpHandlers "github.com/tanguilp/apiac-filter-throttler/internal/adapters/http/handlers"
	httpMiddleware "github.com/tanguilp/apiac-filter-throttler/internal/adapters/http/middleware"
	memorystorage "github.com/tanguilp/apiac-filter-throttler/internal/adapters/storage/memory"
	redisstorage "github.com/tanguilp/apiac-filter-throttler/internal/adapters/storage/redis"
	"github.com/tanguilp/apiac-filter-throttler/internal/config"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/keys"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/ports"
	"github.com/tanguilp/apiac-filter-throttler/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeFn, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer closeFn()

	throttler, err := services.NewThrottleService(backend)
	if err != nil {
		log.Fatalf("failed to create throttler: %v", err)
	}

	strategy, err := keys.Resolve(cfg.Throttle.Strategy, cfg.Throttle.Hashed)
	if err != nil {
		log.Fatalf("failed to resolve key strategy: %v", err)
	}

	opts := httpMiddleware.Options{
		Strategy:  strategy,
		Scale:     cfg.Throttle.Scale,
		Limit:     cfg.Throttle.Limit,
		Increment: cfg.Throttle.Increment,
		Verbosity: cfg.Throttle.Verbosity,
	}
	if cfg.Throttle.FailOpen {
		opts.OnBackendError = httpMiddleware.FailOpen
	}
	if cfg.Throttle.ExemptMachines {
		opts.ExecCondition = notMachineToMachine
	}

	throttle, err := httpMiddleware.NewThrottleMiddleware(throttler, opts)
	if err != nil {
		log.Fatalf("failed to create throttle middleware: %v", err)
	}

	r := chi.NewRouter()
	r.Use(throttle)
	r.Get("/test", httpHandlers.TestHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func initStorage(ctx context.Context, cfg config.StorageConfig) (ports.Backend, func(), error) {
	switch cfg.Type {
	case "memory":
		backend := memorystorage.New()
		backend.StartJanitor(ctx)
		return backend, func() {}, nil
	case "redis":
		redisCfg := redisstorage.Config{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		backend, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() {
			if err := backend.Close(); err != nil {
				log.Printf("failed to close redis storage: %v", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// notMachineToMachine isenta do filtro o tráfego autenticado por cliente sem
// subject (fluxos machine-to-machine).
func notMachineToMachine(rc domain.RequestContext) bool {
	return !(rc.ClientID != "" && rc.SubjectID == "")
}
