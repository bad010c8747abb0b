package server

import (
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"cloudmart/config"
	"cloudmart/database"
)

// ReadyState tracks startup progress for the readiness probe. CloudMart
// boots with every backing store optional, so a phase whose store is not
// configured gets marked ready immediately by the wiring code.
type ReadyState struct {
	db     database.Database
	rdb    *redis.Client
	config *config.Config

	databaseReady atomic.Bool
	catalogReady  atomic.Bool
	redisReady    atomic.Bool
}

// NewReadyState creates a new ReadyState instance. db and rdb may be nil
// when the corresponding store is not configured.
func NewReadyState(db database.Database, rdb *redis.Client, cfg *config.Config) *ReadyState {
	return &ReadyState{
		db:     db,
		rdb:    rdb,
		config: cfg,
	}
}

// MarkDatabaseReady marks the database connection phase as complete.
func (r *ReadyState) MarkDatabaseReady() {
	r.databaseReady.Store(true)
}

// MarkCatalogReady marks catalog seeding as complete.
func (r *ReadyState) MarkCatalogReady() {
	r.catalogReady.Store(true)
}

// MarkRedisReady marks the Redis connection phase as complete.
func (r *ReadyState) MarkRedisReady() {
	r.redisReady.Store(true)
}

// IsFullyReady returns true once every startup phase has completed.
func (r *ReadyState) IsFullyReady() bool {
	return r.databaseReady.Load() &&
		r.catalogReady.Load() &&
		r.redisReady.Load()
}

// IsDatabaseReady returns true if the database phase is complete.
func (r *ReadyState) IsDatabaseReady() bool {
	return r.databaseReady.Load()
}

// IsCatalogReady returns true if catalog seeding is complete.
func (r *ReadyState) IsCatalogReady() bool {
	return r.catalogReady.Load()
}

// IsRedisReady returns true if the Redis phase is complete.
func (r *ReadyState) IsRedisReady() bool {
	return r.redisReady.Load()
}

// GetDB returns the database handle, nil when running without one.
func (r *ReadyState) GetDB() database.Database {
	return r.db
}

// GetRedis returns the Redis client, nil when running without one.
func (r *ReadyState) GetRedis() *redis.Client {
	return r.rdb
}

// GetConfig returns the application configuration.
func (r *ReadyState) GetConfig() *config.Config {
	return r.config
}
