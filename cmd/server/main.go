package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/IlyushaZ/vinyl-store/pkg/cache"
	"github.com/IlyushaZ/vinyl-store/pkg/config"
	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/identity"
	"github.com/IlyushaZ/vinyl-store/pkg/limiter"
	"github.com/IlyushaZ/vinyl-store/pkg/server"
	"github.com/IlyushaZ/vinyl-store/pkg/service"
	"github.com/IlyushaZ/vinyl-store/pkg/storage"
)

const (
	gracefulTimeout = time.Second * 15
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("### Can't load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("### Can't init storage: %v", err)
	}
	defer closeStore()

	var rdb *redis.Client
	if cfg.KeepsLimit > 0 || cfg.CacheCatalog {
		var closeRedis func() error

		rdb, closeRedis, err = cache.NewRedis(cfg.RedisAddr, cfg.RedisUser, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("### Can't init redis: %v", err)
		}
		defer closeRedis()
	}

	attempts := database.NewKeepAttemptBatching(store.KeepAttempts(), cfg.KeepAttemptsBatchSize, cfg.KeepAttemptsFlushInterval)

	svc := composeServices(store, attempts, rdb, cfg)

	srv, err := server.New(cfg.ListenAddr, svc)
	if err != nil {
		log.Fatalf("### Can't create server: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info(fmt.Sprintf("HTTP server listening at %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("can't listen and serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
		defer cancel()

		return srv.Shutdown(ctx)
	})

	g.Go(func() error {
		return attempts.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func composeServices(store database.Store, attempts database.KeepAttemptRepository, rdb *redis.Client, cfg *config.Config) server.Services {
	var reservation service.Reservation = &service.ReservationGeneric{
		Store:        store,
		KeepAttempts: attempts,
		KeepPeriod:   cfg.KeepPeriod,
	}
	if cfg.KeepsLimit > 0 {
		reservation = &service.ReservationLimiting{reservation, &limiter.Limiter{Redis: rdb, Limit: cfg.KeepsLimit}, cfg.LimiterFailOpen}
	}
	reservation = &service.ReservationLogging{reservation}

	var catalog service.Catalog = &service.CatalogGeneric{Store: store}
	if cfg.CacheCatalog {
		catalog = &service.CatalogCaching{catalog, rdb, cfg.CatalogCacheTTL}
	}

	return server.Services{
		Identity:     &identity.JWT{Secret: []byte(cfg.JWTSecret)},
		Reservations: reservation,
		Catalog:      catalog,
		Wishlist:     &service.WishlistGeneric{Store: store},
	}
}

func parseLogLevel(lvl string) slog.Level {
	switch lvl {
	case slog.LevelDebug.String():
		return slog.LevelDebug
	case slog.LevelInfo.String():
		return slog.LevelInfo
	case slog.LevelWarn.String(), "WARNING":
		return slog.LevelWarn
	case slog.LevelError.String():
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
