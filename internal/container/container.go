package container

import (
	"context"
	"fmt"

	"visitor-counter/internal/config"
	"visitor-counter/internal/domain"
	"visitor-counter/internal/repository"
	"visitor-counter/internal/scheduler"
	"visitor-counter/internal/service"
	"visitor-counter/pkg/database"
	"visitor-counter/pkg/logger"
	"visitor-counter/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	RedisClient  *redis.Client
	DB           *database.PostgresDB // nil when snapshots are disabled
	Catalog      domain.PageCatalog
	Repositories *repository.Repositories
	Settings     domain.CounterSettings
	Services     *service.Services
	Scheduler    *scheduler.Scheduler
}

// New creates a new dependency injection container. Redis is required;
// PostgreSQL is optional and only enables snapshot backups.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	policy, err := service.ParseFailurePolicy(cfg.RateLimitFailurePolicy)
	if err != nil {
		return nil, err
	}

	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.WithField("key_prefix", redisClient.KeyBuilder.GetPrefix()).Info("Redis client initialized successfully")

	c := &Container{
		Config:       cfg,
		Logger:       log,
		RedisClient:  redisClient,
		Catalog:      domain.DefaultPageCatalog(),
		Repositories: &repository.Repositories{},
	}

	if cfg.HasDatabase() {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Warn("Failed to connect to database, proceeding without snapshots")
		} else {
			c.DB = db
			c.Repositories.Visitor = repository.NewVisitorRepository(db.Pool)
			log.Info("Database connection established")
		}
	} else {
		log.Info("Database URL not configured, proceeding without snapshots")
	}

	keys := redisClient.KeyBuilder
	settings := cfg.CounterSettings()
	settings.Location = location
	c.Settings = settings

	limiter := service.NewRateLimiter(redisClient, keys, policy, log)
	stats := service.NewStatsService(redisClient, keys, c.Catalog, log)

	c.Services = &service.Services{
		Visitor: service.NewVisitorService(redisClient, keys, limiter, c.Catalog, settings, log),
		Stats:   stats,
		Reset:   service.NewResetService(redisClient, keys, log),
	}

	if c.Repositories.Visitor != nil {
		c.Services.Snapshot = service.NewSnapshotService(redisClient, keys, stats, c.Repositories.Visitor, location, cfg.SnapshotRetention(), log)
	}

	c.Scheduler = scheduler.New(location, log)
	if err := c.registerJobs(); err != nil {
		c.closeStores()
		return nil, err
	}

	return c, nil
}

func (c *Container) registerJobs() error {
	if c.Settings.DailyResetEnabled {
		if err := c.Scheduler.Register(scheduler.DailyResetSpec, scheduler.NewDailyResetJob(c.Services.Reset, c.Logger)); err != nil {
			return err
		}
	}

	if c.Services.Snapshot != nil {
		if err := c.Scheduler.Register(scheduler.BackupSpec(c.Config.BackupIntervalHours), scheduler.NewBackupJob(c.Services.Snapshot, c.Logger)); err != nil {
			return err
		}
	}

	return nil
}

// Start restores counters from the latest snapshot and starts periodic jobs
func (c *Container) Start(ctx context.Context) error {
	if c.Services.Snapshot != nil {
		if err := c.Services.Snapshot.Start(ctx); err != nil {
			return fmt.Errorf("failed to start snapshot service: %w", err)
		}
	}

	c.Scheduler.Start()
	return nil
}

// HasSnapshots returns true if snapshot backups are enabled
func (c *Container) HasSnapshots() bool {
	return c.Services.Snapshot != nil
}

func (c *Container) closeStores() {
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
