package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	neturl "net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrationSchemaVersion tracks the current schema version
const MigrationSchemaVersion = "2025.08.26.001" // Initial catalog/cart/orders schema

// Database interface for dependency injection and testing
type Database interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

var identRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// SetupDatabase opens the connection pool, creates the target database if
// needed and brings the schema up to date.
func SetupDatabase(dbURL string) (*pgxpool.Pool, error) {
	ensureDatabaseExists(dbURL)

	ctx := context.Background()
	pool, err := openPool(ctx, dbURL, false)
	if err != nil {
		return nil, err
	}

	if err := runOptimizedMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := fastHealthCheck(checkCtx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database connectivity validation failed: %w", err)
	}

	log.Println("Database setup completed successfully")
	return pool, nil
}

// SetupDatabaseFast opens the pool without touching the schema. Used with
// SKIP_MIGRATION_CHECK=true on replicas that know the schema is current.
func SetupDatabaseFast(dbURL string) (*pgxpool.Pool, error) {
	log.Println("Setting up database connection (fast mode - skipping migrations)")

	ensureDatabaseExists(dbURL)

	ctx := context.Background()
	pool, err := openPool(ctx, dbURL, true)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("Database connection established (fast mode)")
	return pool, nil
}

// openPool parses the URL and builds the pool. Fast mode runs a smaller
// pool with a tighter connect timeout since it serves replica startups.
func openPool(ctx context.Context, dbURL string, fast bool) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if fast {
		config.MaxConns = 10
		config.MinConns = 2
		config.HealthCheckPeriod = 2 * time.Minute
		config.ConnConfig.ConnectTimeout = 3 * time.Second
	} else {
		// Sized for small managed Postgres instances
		config.MaxConns = 25
		config.MinConns = 5
		config.HealthCheckPeriod = 1 * time.Minute
		config.ConnConfig.ConnectTimeout = 5 * time.Second
	}
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 15 * time.Minute

	config.ConnConfig.RuntimeParams["jit"] = "off" // JIT warmup only hurts these short queries
	config.ConnConfig.RuntimeParams["application_name"] = "cloudmart"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// ensureDatabaseExists connects to the admin database and issues a
// best-effort CREATE DATABASE for the target. Failures are logged, not
// returned: the target usually already exists and the real connection
// attempt reports anything genuinely wrong.
func ensureDatabaseExists(dbURL string) {
	adminURL, dbName := adminURLAndDBName(dbURL)
	if dbName == "" || dbName == "postgres" {
		return
	}

	safe, ok := safePgIdent(dbName)
	if !ok {
		log.Printf("Warning: database name '%s' contains unsupported characters; skipping CREATE DATABASE step", dbName)
		return
	}

	adminDB, err := sql.Open("pgx", adminURL)
	if err != nil {
		log.Printf("Note: could not open admin connection for CREATE DATABASE: %v", err)
		return
	}
	defer func() { _ = adminDB.Close() }()

	if _, err := adminDB.Exec("CREATE DATABASE " + safe); err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
		log.Printf("Note: CREATE DATABASE may have failed (continuing if it exists): %v", err)
	}
}

// runOptimizedMigrations checks if migrations are needed before running them
func runOptimizedMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	currentVersion, needsMigration := checkMigrationStatus(ctx, pool)

	if !needsMigration {
		log.Printf("Database schema is up to date (version: %s), skipping migrations", currentVersion)
		return nil
	}

	log.Printf("Running database migrations (current: %s, target: %s)...", currentVersion, MigrationSchemaVersion)
	start := time.Now()

	// One transaction so a half-applied schema never survives a crash
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, DatabaseSchema); err != nil {
		return fmt.Errorf("failed to execute migrations: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO _migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING",
		MigrationSchemaVersion,
	); err != nil {
		return fmt.Errorf("failed to update migration version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	log.Printf("Database migrations completed in %v", time.Since(start))
	return nil
}

// checkMigrationStatus returns current version and whether migration is needed
func checkMigrationStatus(ctx context.Context, pool *pgxpool.Pool) (string, bool) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			id SERIAL PRIMARY KEY,
			version TEXT UNIQUE NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW(),
			checksum TEXT
		)
	`)
	if err != nil {
		log.Printf("Warning: Could not create migration table, running full migrations: %v", err)
		return "", true
	}

	var currentVersion string
	err = pool.QueryRow(ctx, "SELECT version FROM _migrations ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Fresh database
			return "", true
		}
		log.Printf("Warning: Could not check migration version, running full migrations: %v", err)
		return "", true
	}

	return currentVersion, currentVersion != MigrationSchemaVersion
}

// fastHealthCheck performs a lightweight database connectivity check
func fastHealthCheck(ctx context.Context, pool *pgxpool.Pool) error {
	var result int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// adminURLAndDBName builds an admin URL pointing to the 'postgres' database and returns the target db name
func adminURLAndDBName(dbURL string) (string, string) {
	u, err := neturl.Parse(dbURL)
	if err != nil {
		return dbURL, ""
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	u.Path = "/postgres"
	return u.String(), dbName
}

// safePgIdent validates and quotes identifier safely for CREATE DATABASE
func safePgIdent(name string) (string, bool) {
	if identRe.MatchString(name) {
		return name, true
	}
	return "", false
}
