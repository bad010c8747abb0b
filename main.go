package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "cloudmart/config"
	appcrypto "cloudmart/crypto"
	"cloudmart/database"
	"cloudmart/server"
	"cloudmart/services"
	"cloudmart/utils"
	"cloudmart/websocket"
)

func main() {
	// Initialize logging
	utils.InitLogging()

	// Load configuration
	config := appconfig.LoadConfig()
	utils.TrustProxyHeaders.Store(config.TrustProxyHeaders)

	// Track application start time for uptime calculation
	startTime := time.Now()

	log.Printf("🚀 Starting %s v%s on port %s", appconfig.ServiceName, appconfig.Version, config.Port)

	// Setup database. A missing or unreachable database is not fatal: the
	// API keeps serving with empty catalog responses so the container can
	// run without any backing stores.
	var pool *pgxpool.Pool
	var db database.Database
	if config.HasDatabase() {
		setup := database.SetupDatabase
		if appconfig.GetEnvAsBool("SKIP_MIGRATION_CHECK", false) {
			setup = database.SetupDatabaseFast
		}

		p, err := setup(config.DatabaseURL)
		if err != nil {
			log.Printf("⚠️ Database unavailable, continuing in degraded mode: %v", err)
		} else {
			pool = p
			db = p
			defer pool.Close()
		}
	} else {
		log.Printf("ℹ️ No database configured, catalog and cart endpoints return empty data")
	}

	// Setup Redis for session records and distributed rate limiting
	var rdb *redis.Client
	if config.HasRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisURL,
			Password: config.RedisPassword,
			DB:       0,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Printf("⚠️ Redis unavailable, sessions will not be recorded: %v", err)
			_ = client.Close()
		} else {
			rdb = client
			defer rdb.Close()
		}
		cancel()
	}

	// Initialize crypto service for session record encryption
	crypto := appcrypto.NewCryptoService(config.EncryptionKey)

	// WebSocket hub for the live storefront feed
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Close()

	// Readiness tracking. Unconfigured stores are marked ready immediately;
	// the catalog phase completes once seeding has run.
	readyState := server.NewReadyState(db, rdb, config)
	readyState.MarkDatabaseReady()
	readyState.MarkRedisReady()

	if db != nil {
		seeder := services.NewSeedService(pool, config, hub)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := seeder.Run(ctx); err != nil {
				log.Printf("⚠️ Seeding failed: %v", err)
			}
			readyState.MarkCatalogReady()
		}()
	} else {
		readyState.MarkCatalogReady()
	}

	// Periodic stats sweep keeps the catalog, order and session gauges fresh
	var statsDB services.Database
	var poolStats services.PoolStats
	if pool != nil {
		statsDB = pool
		poolStats = pool
	}
	services.StartStatsService(statsDB, poolStats, rdb, config.StatsInterval)

	// Create Fiber app with error handling and base middleware
	app := server.CreateFiberApp(startTime, config, readyState)

	setupRoutes(app, db, rdb, crypto, config, hub)

	// Container platforms stop with SIGTERM; drain in-flight requests first
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		log.Printf("🛑 Received %s, shutting down", sig)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			utils.LogError("SHUTDOWN", err)
		}
	}()

	if err := server.ListenWithIPv6Fallback(app, config.Port, startTime); err != nil {
		log.Fatal("Server failed:", err)
	}

	log.Println("👋 Server stopped")
}
