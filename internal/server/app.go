// Package server wires the sync server: Postgres storage, the snapshot
// broker, the gRPC endpoint and the admin HTTP endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/dmitrijs2005/foodie/internal/server/admin"
	"github.com/dmitrijs2005/foodie/internal/server/broker"
	"github.com/dmitrijs2005/foodie/internal/server/config"
	"github.com/dmitrijs2005/foodie/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/foodie/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/foodie/internal/server/grpc"
)

// tokenSweepInterval is how often expired refresh tokens are purged.
const tokenSweepInterval = time.Hour

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	broker          broker.Broker
	redis           *broker.RedisBroker
	registry        *prometheus.Registry
	metrics         *gs.Metrics
	userService     *services.UserService
	documentService *services.DocumentService
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db}

	if c.RedisAddr != "" {
		rb, err := broker.NewRedisBroker(ctx, c.RedisAddr, c.RedisChannel, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		app.redis = rb
		app.broker = rb
	} else {
		app.broker = broker.NewHub()
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "foodie"),
	)
	if app.metrics, err = gs.NewMetrics(app.registry); err != nil {
		app.Close()
		return nil, err
	}

	app.userService = services.NewUserService(db, rm, c)
	app.documentService = services.NewDocumentService(db, rm, app.broker, logger)

	return app, nil
}

// Run serves until ctx is done or one component fails.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.documentService,
			app.config.SecretKey, app.metrics)
		return s.Run(ctx)
	})

	if app.config.AdminAddr != "" {
		g.Go(func() error {
			r := admin.NewRouter(admin.Config{
				Health:    app.db.PingContext,
				Gatherer:  app.registry,
				Documents: app.documentService,
				Gauge:     app.metrics,
				JWTSecret: []byte(app.config.SecretKey),
				Log:       app.logger,
			})
			return admin.Run(ctx, app.config.AdminAddr, r, app.logger)
		})
	}

	if app.redis != nil {
		g.Go(func() error { return app.redis.Run(ctx) })
	}

	g.Go(func() error {
		app.sweepTokens(ctx)
		return nil
	})

	return g.Wait()
}

func (app *App) sweepTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.userService.PurgeExpiredTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "refresh token sweep failed", "error", err)
				continue
			}
			app.logger.Debug(ctx, "refresh tokens purged", "count", n)
		}
	}
}

// Close releases the database and Redis connections.
func (app *App) Close() error {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	return app.db.Close()
}
