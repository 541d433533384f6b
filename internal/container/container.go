package container

import (
	"github.com/redis/go-redis/v9"

	"github.com/praxlog/logbook-backend/internal/access"
	"github.com/praxlog/logbook-backend/internal/api"
	"github.com/praxlog/logbook-backend/internal/audit"
	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/config"
	"github.com/praxlog/logbook-backend/internal/database"
	"github.com/praxlog/logbook-backend/internal/logging"
	"github.com/praxlog/logbook-backend/internal/middleware"
	"github.com/praxlog/logbook-backend/internal/ratelimit"
	"github.com/praxlog/logbook-backend/internal/store"
)

type Container struct {
	Config      *config.Config
	Database    *database.Database
	Store       *store.Store
	RedisClient *redis.Client
	Queue       *audit.TaskQueue
	JWTService  *auth.JWTService
	TokenStore  *auth.TokenStore
	Resolver    *auth.Resolver
	Access      *access.Resolver
	Limiter     *ratelimit.Limiter
	Auditor     *audit.QueueRecorder
	Guard       *middleware.Guard
	Server      *api.Server
	Worker      *audit.Worker
}

func New(cfg config.Config) (*Container, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}

	st := store.New(db.Pool())

	taskQueue, err := audit.NewQueue(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	// Two separate Redis connection pools are used: the asynq task queue
	// manages its own connection, and this client backs revocation state,
	// the access cache, and the rate limiter.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	jwtService, err := auth.NewJWTService([]byte(cfg.JWT.SigningKey), cfg.JWT.Issuer, cfg.JWT.Expiry)
	if err != nil {
		return nil, err
	}

	tokenStore := auth.NewTokenStore(redisClient)
	accessCache := auth.NewRedisAccessCache(redisClient, cfg.Redis.AccessCacheTTL)
	resolver := auth.NewResolver(st, accessCache)
	accessResolver := access.NewResolver(st)
	limiter := ratelimit.NewLimiter(redisClient)

	auditor := audit.NewQueueRecorder(taskQueue, st)

	guard := middleware.NewGuard(jwtService, tokenStore, st, resolver, accessResolver, limiter, auditor)

	server := api.NewServer(st, jwtService, tokenStore, resolver, guard, auditor, &cfg)

	worker := audit.NewWorker(&cfg.Redis, st, cfg.Audit.Retention)

	logging.Info("Connected to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port)

	return &Container{
		Config:      &cfg,
		Database:    db,
		Store:       st,
		RedisClient: redisClient,
		Queue:       taskQueue,
		JWTService:  jwtService,
		TokenStore:  tokenStore,
		Resolver:    resolver,
		Access:      accessResolver,
		Limiter:     limiter,
		Auditor:     auditor,
		Guard:       guard,
		Server:      server,
		Worker:      worker,
	}, nil
}

func (c *Container) Cleanup() {
	if c.Queue != nil {
		c.Queue.Close()
		logging.Info("Queue client closed")
	}
	if c.Worker != nil {
		c.Worker.Close()
		logging.Info("Worker closed")
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
		logging.Info("Redis client closed")
	}
	if c.Database != nil {
		c.Database.Close()
		logging.Info("Database connection closed")
	}
}
