package app

import (
	"context"
	"fmt"

	"medmind-api/internal/auth"
	"medmind-api/internal/config"
	"medmind-api/internal/lock"
	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"
	"medmind-api/internal/service/conversation"
	"medmind-api/internal/service/quota"
	"medmind-api/internal/service/session"

	"github.com/redis/go-redis/v9"
)

// Config holds all application dependencies and configuration
type Config struct {
	// Database interface for data persistence
	DB db.Database
	// Centralized application configuration
	AppConfig *config.AppConfig
	// Auth issues and validates bearer tokens
	Auth *auth.Authenticator
	// Quota evaluates subscription tiers
	Quota *quota.Gate
	// Conversations orchestrates exchanges with the assistants
	Conversations *conversation.ConversationService
}

// NewConfig wires the services on top of a database, an assistants provider and a locker
func NewConfig(database db.Database, appConfig *config.AppConfig, provider session.Provider, locker lock.Locker) *Config {
	gate := quota.NewGate(appConfig.Quota)
	runner := session.NewRunner(provider, appConfig.Execution)

	return &Config{
		DB:            database,
		AppConfig:     appConfig,
		Auth:          auth.NewAuthenticator(appConfig.Auth),
		Quota:         gate,
		Conversations: conversation.NewConversationService(database, runner, gate, locker, appConfig.Pricing),
	}
}

// NewLocker builds the configured per-conversation locker. The returned close
// function releases the redis connection pool, if any.
func NewLocker(ctx context.Context, cfg config.LockConfig) (lock.Locker, func() error, error) {
	noop := func() error { return nil }

	if lock.Driver(cfg.Driver) != lock.DriverRedis {
		locker, err := lock.New(lock.Driver(cfg.Driver))
		return locker, noop, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, noop, fmt.Errorf("error connecting to redis at %s: %w", cfg.RedisAddr, err)
	}

	locker, err := lock.New(lock.DriverRedis, lock.WithRedisClient(client), lock.WithTTL(cfg.TTL))
	if err != nil {
		client.Close()
		return nil, noop, err
	}

	logger.Log.WithField("addr", cfg.RedisAddr).Info("Using redis conversation locks")
	return locker, client.Close, nil
}
