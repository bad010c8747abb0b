package services

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"cloudmart/metrics"
)

// PoolStats is the slice of pgxpool.Pool the sweeper needs for the
// connection gauges.
type PoolStats interface {
	Stat() *pgxpool.Stat
}

const defaultSweepInterval = 5 * time.Minute

// sweepInterval guards the ticker against non-positive intervals, which
// time.NewTicker panics on.
func sweepInterval(d time.Duration) time.Duration {
	if d <= 0 {
		log.Printf("⚠️ Invalid stats interval %v, using %v", d, defaultSweepInterval)
		return defaultSweepInterval
	}
	return d
}

// StartStatsService starts a background sweeper that refreshes the
// operational gauges on a fixed interval. Any of db, pool and rdb may be
// nil; the corresponding gauges are then left alone.
func StartStatsService(db Database, pool PoolStats, rdb *redis.Client, interval time.Duration) {
	interval = sweepInterval(interval)
	go func() {
		ctx := context.Background()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Run initial sweep so gauges are populated right after startup
		RunStatsSweep(ctx, db, pool, rdb)

		for range ticker.C {
			RunStatsSweep(ctx, db, pool, rdb)
		}
	}()
}

// RunStatsSweep refreshes catalog, order, session and pool gauges once.
func RunStatsSweep(ctx context.Context, db Database, pool PoolStats, rdb *redis.Client) {
	log.Println("📊 Running stats sweep...")

	if db != nil {
		var products int
		if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&products); err != nil {
			log.Printf("⚠️ Failed to count products: %v", err)
		} else {
			metrics.UpdateCatalogSize(products)
		}

		var orders int
		if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orders); err != nil {
			log.Printf("⚠️ Failed to count orders: %v", err)
		} else {
			metrics.UpdateOrdersStored(orders)
		}

		if _, err := db.Exec(ctx, `
			INSERT INTO app_stats (key, value) VALUES ('last_sweep', $1)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			log.Printf("⚠️ Failed to record stats sweep: %v", err)
		}
	}

	if pool != nil {
		stat := pool.Stat()
		metrics.UpdateDatabaseMetrics(int(stat.AcquiredConns()), int(stat.IdleConns()))
	}

	if rdb != nil {
		// Session records expire via TTL; counting live keys is enough
		count := 0
		iter := rdb.Scan(ctx, 0, "session:*", 100).Iterator()
		for iter.Next(ctx) {
			count++
		}
		if err := iter.Err(); err != nil {
			log.Printf("⚠️ Failed to count active sessions: %v", err)
		} else {
			metrics.UpdateActiveSessions(count)
		}
	}
}
