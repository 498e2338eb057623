// Command burger-server runs an in-memory storefront API for development.
// It serves the same routes and feed protocol as the production service, so
// the burger CLI can be pointed at it with -api http://localhost:8080/api.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/config"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/limiter"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/repository/memory"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/server/rest"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// statusInterval is how often orders advance created -> pending -> done.
const statusInterval = 15 * time.Second

// main parses configuration and starts the HTTP server.
func main() {
	cfgPath := flag.String("config", "", "config file (YAML)")
	addr := flag.String("addr", "", "listen address override")
	jwtKey := flag.String("jwt-key", "", "HS256 signing key override")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *jwtKey != "" {
		cfg.Server.JWTKey = *jwtKey
	}

	logger, _ := zap.NewProduction()
	if cfg.Log.Pretty {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
	)

	if cfg.Server.JWTKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key or server.jwtKey)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories
	accounts := memory.NewAccounts()
	refresh := memory.NewRefreshTokens()
	orders := memory.NewOrders()

	lim := limiter.NewMemory(15*time.Minute, 5, 15*time.Minute)

	// Services
	authSvc := service.NewAuthService(accounts, refresh, []byte(cfg.Server.JWTKey), cfg.Server.AccessTTL, cfg.Server.RefreshTTL, lim)
	orderSvc := service.NewOrderService(orders, service.DefaultCatalog())

	app := rest.New(authSvc, orderSvc, rest.NewHub(logger), logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Status ticker pushes fresh snapshots as orders progress.
	go func() {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				moved, err := orderSvc.AdvanceStatuses(ctx)
				if err != nil {
					logger.Warn("advance statuses", zap.Error(err))
					continue
				}
				if moved > 0 {
					app.PushFeeds(ctx)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
