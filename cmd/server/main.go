package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/warblerhq/warbler/internal/api/handler"
	"github.com/warblerhq/warbler/internal/api/router"
	"github.com/warblerhq/warbler/internal/cache"
	"github.com/warblerhq/warbler/internal/config"
	"github.com/warblerhq/warbler/internal/repository"
	"github.com/warblerhq/warbler/internal/service"
	"github.com/warblerhq/warbler/internal/session"
	"github.com/warblerhq/warbler/pkg/logger"
	"github.com/warblerhq/warbler/pkg/tracing"
)

// followerCacheTTL bounds staleness of the Redis follower index if an
// invalidation is ever lost.
const followerCacheTTL = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(ctx, "warbler", cfg.Tracing.Endpoint)
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	db, err := repository.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := repository.Migrate(db); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	followers := cache.NewFollowerCache(rdb, followerCacheTTL)
	sessions := session.NewManager(rdb, cfg.Session.Secret, cfg.Session.CookieName, cfg.Session.TTL)

	users := service.NewUserService(userRepo, followRepo, followers, cfg.Auth.BcryptCost)
	messages := service.NewMessageService(msgRepo, likeRepo, followRepo)
	relations := service.NewRelationshipService(followRepo, userRepo, followers)

	h := handler.New(users, messages, relations, sessions)
	r := router.New(cfg, h, sessions)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
