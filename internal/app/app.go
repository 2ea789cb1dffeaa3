// Package app wires configuration, storage, providers and use cases into one
// graph shared by the server and the operator CLI.
package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/domain/repository"
	"vehicle-data-service/internal/infrastructure/config"
	"vehicle-data-service/internal/infrastructure/oauth"
	"vehicle-data-service/internal/infrastructure/persistence"
	"vehicle-data-service/internal/interface/provider"
	repo "vehicle-data-service/internal/interface/repository"
	"vehicle-data-service/internal/usecase"
	"vehicle-data-service/pkg/logger"
	"vehicle-data-service/pkg/metrics"
)

// App is the assembled service
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metrics.Metrics

	Mongo    *mongo.Client
	Postgres *gorm.DB
	MOTAuth  *oauth.MOTOAuth

	Providers *provider.Set
	Vehicles  repository.VehicleRepository
	Snapshots repository.VehicleSnapshotRepository
	Listings  repository.ListingRepository
	Calls     repository.ProviderCallRepository

	Cache       *usecase.CachePolicy
	Reconciler  *usecase.Reconciler
	Aggregator  *usecase.VehicleAggregator
	Enricher    *usecase.ListingEnricher
	Maintenance *usecase.Maintenance

	startedAt time.Time
}

// New connects to the stores and builds every component. reg receives the
// service metrics.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    log,
		Metrics:   metrics.NewMetrics("vehicle_data", reg),
		startedAt: time.Now(),
	}

	log.Info("Connecting to MongoDB", "database", cfg.MongoDB)
	mongoClient, db, err := persistence.NewMongoClient(ctx, persistence.MongoOptions{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDB,
		Username: cfg.MongoUser,
		Password: cfg.MongoPassword,
		AppName:  "vehicle-data-service",
	})
	if err != nil {
		return nil, eris.Wrap(err, "connect mongo")
	}
	a.Mongo = mongoClient

	a.Vehicles = repo.NewMongoVehicleRepository(db)
	a.Snapshots = repo.NewMongoVehicleSnapshotRepository(db)
	a.Listings = repo.NewMongoListingRepository(db)

	if cfg.PostgresURI != "" {
		log.Info("Connecting to PostgreSQL for the provider call ledger")
		gormDB, err := persistence.NewPostgres(cfg.PostgresURI, &repo.ProviderCalls{})
		if err != nil {
			a.Close(ctx)
			return nil, eris.Wrap(err, "connect postgres")
		}
		a.Postgres = gormDB
		a.Calls = repo.NewGormProviderCallRepository(gormDB)
	} else {
		log.Warn("POSTGRES_DSN not set, provider calls will not be recorded")
	}

	var motHTTP *http.Client
	if cfg.MOTOAuthEnabled() {
		a.MOTAuth = oauth.NewMOTOAuth(cfg.MOTClientID, cfg.MOTClientSecret, cfg.MOTTokenURL, cfg.MOTScope, log)
		motHTTP = a.MOTAuth.HTTPClient(context.WithoutCancel(ctx))
	}
	a.Providers = provider.NewSet(cfg, motHTTP, log)

	a.Cache = usecase.NewCachePolicy(a.Vehicles, cfg.CacheTTL, a.Metrics, log)
	a.Reconciler = usecase.NewReconciler(a.Listings, log)

	a.Aggregator = usecase.NewVehicleAggregator(
		usecase.Providers{
			History:   a.Providers.History,
			Specs:     a.Providers.Specs,
			MOT:       a.Providers.MOT,
			Valuation: a.Providers.Valuation,
		},
		a.Vehicles,
		a.Snapshots,
		a.Calls,
		a.Cache,
		a.Reconciler,
		a.Metrics,
		log,
		usecase.AggregatorConfig{
			CallTimeout:  cfg.ProviderTimeout,
			FanOut:       cfg.FanOutEnabled,
			UnitCosts:    UnitCosts(cfg),
			ProviderName: a.Providers.Name,
			TestMode:     a.Providers.TestMode,
		},
	)
	a.Enricher = usecase.NewListingEnricher(a.Listings, a.Aggregator, a.Metrics, log, cfg.EnrichBatchSize)
	a.Maintenance = usecase.NewMaintenance(a.Vehicles, a.Snapshots, a.Listings, a.Aggregator, a.Reconciler, log)

	return a, nil
}

// UnitCosts maps each provider service to its configured price
func UnitCosts(cfg *config.Config) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		entity.ServiceHistory:   cfg.CostHistory,
		entity.ServiceSpecs:     cfg.CostSpecs,
		entity.ServiceMOT:       cfg.CostMOT,
		entity.ServiceValuation: cfg.CostValuation,
	}
}

// Close releases the database connections
func (a *App) Close(ctx context.Context) {
	if a.Postgres != nil {
		if sqlDB, err := a.Postgres.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("PostgreSQL close error", "error", err)
			}
		}
	}
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			a.Logger.Error("MongoDB disconnect error", "error", err)
		}
	}
}

// HealthStatus is the /health response body
type HealthStatus struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Provider string            `json:"provider"`
	TestMode bool              `json:"testMode"`
	Uptime   string            `json:"uptime"`
	Breakers map[string]string `json:"breakers"`
}

// HealthHandler reports liveness plus the provider circuit states. An open
// circuit degrades the status but the service still answers from cache.
func HealthHandler(version string, providers *provider.Set, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{
			Status:   "ok",
			Version:  version,
			Provider: providers.Name,
			TestMode: providers.TestMode,
			Uptime:   time.Since(startedAt).Round(time.Second).String(),
			Breakers: providers.BreakerStates(entity.Services),
		}
		for _, state := range status.Breakers {
			if state != "closed" {
				status.Status = "degraded"
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}

// Health returns the health handler for this app
func (a *App) Health() http.HandlerFunc {
	return HealthHandler(a.Config.AppVersion, a.Providers, a.startedAt)
}
