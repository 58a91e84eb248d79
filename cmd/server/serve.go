package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hexmap-server/internal/auth"
	"hexmap-server/internal/content"
	"hexmap-server/internal/events"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/middleware"
	"hexmap-server/internal/server"
	"hexmap-server/internal/shared/config"
	"hexmap-server/internal/shared/database"
	"hexmap-server/internal/shared/redis"
	"hexmap-server/internal/tree"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	cfg := config.GlobalConfig
	logger := slog.With("component", "main", "operation", "serve")

	db, err := database.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	var publisher events.Publisher = events.Noop{}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Failed to close redis client", "error", err)
			}
		}()
		publisher = events.NewRedisPublisher(redisClient.Client, cfg.Redis.Channel, slog.Default())
	}

	validator, err := auth.NewValidator(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	items := mapitem.NewRepository(db, slog.Default(), cfg.Tree.ContentBatchSize)
	contents := content.NewRepository(db, slog.Default(), cfg.Tree.ContentBatchSize)
	treeService := tree.NewService(db, items, contents, publisher, cfg.Tree, slog.Default())

	routes := server.NewRoutes(
		db,
		redisClient,
		treeService,
		middleware.NewAuthenticator(validator),
		middleware.NewCORS(cfg.Frontend),
		middleware.NewRateLimiter(ctx, cfg.RateLimit),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      routes.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
			"database_driver", cfg.Database.Driver,
			"events_enabled", redisClient != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
