package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"cloudmart/config"
	"cloudmart/websocket"
)

// Mock Database implementation for testing
type mockDatabase struct {
	queryRowFunc func(ctx context.Context, sql string, args ...interface{}) pgx.Row
	execFunc     func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	beginFunc    func(ctx context.Context) (pgx.Tx, error)
}

type mockRow struct {
	scanFunc func(dest ...interface{}) error
}

func (m mockRow) Scan(dest ...interface{}) error {
	if m.scanFunc != nil {
		return m.scanFunc(dest...)
	}
	return nil
}

func (m *mockDatabase) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return mockRow{}
}

func (m *mockDatabase) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockDatabase) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFunc != nil {
		return m.beginFunc(ctx)
	}
	return &mockTx{}, nil
}

// Mock transaction implementation for testing
type mockTx struct {
	execFunc     func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	commitFunc   func(ctx context.Context) error
	rollbackFunc func(ctx context.Context) error
}

func (m *mockTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFunc != nil {
		return m.commitFunc(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFunc != nil {
		return m.rollbackFunc(ctx)
	}
	return nil
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return m, nil }

func (m *mockTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return mockRow{}
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (m *mockTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Deallocate(ctx context.Context, name string) error { return nil }

func (m *mockTx) Conn() *pgx.Conn { return nil }

func seedTestConfig() *config.Config {
	return &config.Config{
		DemoUsername: "demo",
		DemoPassword: "demo123",
		SeedProducts: true,
	}
}

// gaugeValue reads a gauge from the default Prometheus registry.
func gaugeValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestEnsureDemoUser(t *testing.T) {
	t.Run("creates demo user when missing", func(t *testing.T) {
		var gotSQL string
		var gotArgs []interface{}

		mockDB := &mockDatabase{
			execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				gotSQL = sql
				gotArgs = args
				return pgconn.NewCommandTag("INSERT 0 1"), nil
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), nil)
		if err := svc.EnsureDemoUser(context.Background()); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if !strings.Contains(gotSQL, "INSERT INTO users") {
			t.Errorf("expected users insert, got: %s", gotSQL)
		}
		if !strings.Contains(gotSQL, "ON CONFLICT (username) DO NOTHING") {
			t.Errorf("expected conflict-tolerant insert, got: %s", gotSQL)
		}
		if len(gotArgs) != 2 {
			t.Fatalf("expected 2 args, got %d", len(gotArgs))
		}
		if gotArgs[0] != "demo" {
			t.Errorf("expected username demo, got: %v", gotArgs[0])
		}
		if hash, ok := gotArgs[1].(string); !ok || !strings.HasPrefix(hash, "$argon2id$") {
			t.Errorf("expected Argon2id password hash, got: %v", gotArgs[1])
		}
	})

	t.Run("leaves existing user untouched", func(t *testing.T) {
		mockDB := &mockDatabase{
			execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("INSERT 0 0"), nil
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), nil)
		if err := svc.EnsureDemoUser(context.Background()); err != nil {
			t.Fatalf("expected no error for existing user, got: %v", err)
		}
	})

	t.Run("rejects empty credentials", func(t *testing.T) {
		cfg := seedTestConfig()
		cfg.DemoUsername = ""

		svc := NewSeedService(&mockDatabase{}, cfg, nil)
		if err := svc.EnsureDemoUser(context.Background()); err == nil {
			t.Error("expected error for empty credentials")
		}
	})

	t.Run("wraps database errors", func(t *testing.T) {
		mockDB := &mockDatabase{
			execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("connection reset")
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), nil)
		err := svc.EnsureDemoUser(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "failed to insert demo user") {
			t.Errorf("unexpected error message: %v", err)
		}
	})
}

func TestSeedCatalog(t *testing.T) {
	t.Run("skips when catalog already populated", func(t *testing.T) {
		beginCalled := false

		mockDB := &mockDatabase{
			queryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				return mockRow{
					scanFunc: func(dest ...interface{}) error {
						if count, ok := dest[0].(*int); ok {
							*count = 5
						}
						return nil
					},
				}
			},
			beginFunc: func(ctx context.Context) (pgx.Tx, error) {
				beginCalled = true
				return &mockTx{}, nil
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), nil)
		if err := svc.SeedCatalog(context.Background()); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if beginCalled {
			t.Error("expected no transaction when catalog is populated")
		}
	})

	t.Run("seeds empty catalog in one transaction", func(t *testing.T) {
		var insertedIDs []string
		committed := false

		tx := &mockTx{
			execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				if !strings.Contains(sql, "INSERT INTO products") {
					t.Errorf("unexpected statement in seed transaction: %s", sql)
				}
				insertedIDs = append(insertedIDs, args[0].(string))
				return pgconn.NewCommandTag("INSERT 0 1"), nil
			},
			commitFunc: func(ctx context.Context) error {
				committed = true
				return nil
			},
		}

		mockDB := &mockDatabase{
			queryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				return mockRow{
					scanFunc: func(dest ...interface{}) error {
						if count, ok := dest[0].(*int); ok {
							*count = 0
						}
						return nil
					},
				}
			},
			beginFunc: func(ctx context.Context) (pgx.Tx, error) {
				return tx, nil
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), nil)
		if err := svc.SeedCatalog(context.Background()); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if len(insertedIDs) != len(DefaultCatalog) {
			t.Errorf("expected %d inserts, got %d", len(DefaultCatalog), len(insertedIDs))
		}
		if insertedIDs[0] != "1" || insertedIDs[len(insertedIDs)-1] != "8" {
			t.Errorf("unexpected insert order: %v", insertedIDs)
		}
		if !committed {
			t.Error("expected transaction to be committed")
		}

		if got := gaugeValue(t, "cloudmart_product_catalog_size"); got != float64(len(DefaultCatalog)) {
			t.Errorf("expected catalog gauge %d, got %v", len(DefaultCatalog), got)
		}
	})

	t.Run("broadcasts seeded event when hub is attached", func(t *testing.T) {
		hub := websocket.NewHub()
		go hub.Run()
		defer hub.Close()

		mockDB := &mockDatabase{
			queryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				return mockRow{
					scanFunc: func(dest ...interface{}) error {
						if count, ok := dest[0].(*int); ok {
							*count = 0
						}
						return nil
					},
				}
			},
			beginFunc: func(ctx context.Context) (pgx.Tx, error) {
				return &mockTx{}, nil
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), hub)
		if err := svc.SeedCatalog(context.Background()); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
	})

	t.Run("returns error when count query fails", func(t *testing.T) {
		mockDB := &mockDatabase{
			queryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				return mockRow{
					scanFunc: func(dest ...interface{}) error {
						return errors.New("relation products does not exist")
					},
				}
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), nil)
		if err := svc.SeedCatalog(context.Background()); err == nil {
			t.Error("expected error when count query fails")
		}
	})

	t.Run("aborts on insert failure without committing", func(t *testing.T) {
		committed := false
		inserts := 0

		tx := &mockTx{
			execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				inserts++
				if args[0].(string) == "3" {
					return pgconn.CommandTag{}, errors.New("disk full")
				}
				return pgconn.NewCommandTag("INSERT 0 1"), nil
			},
			commitFunc: func(ctx context.Context) error {
				committed = true
				return nil
			},
		}

		mockDB := &mockDatabase{
			queryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				return mockRow{
					scanFunc: func(dest ...interface{}) error {
						if count, ok := dest[0].(*int); ok {
							*count = 0
						}
						return nil
					},
				}
			},
			beginFunc: func(ctx context.Context) (pgx.Tx, error) {
				return tx, nil
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), nil)
		err := svc.SeedCatalog(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "product 3") {
			t.Errorf("unexpected error message: %v", err)
		}
		if committed {
			t.Error("expected transaction to not be committed")
		}
		if inserts != 3 {
			t.Errorf("expected insert loop to stop at the failure, got %d inserts", inserts)
		}
	})
}

func TestSeedServiceRun(t *testing.T) {
	t.Run("skips catalog when seeding disabled", func(t *testing.T) {
		countQueried := false

		mockDB := &mockDatabase{
			execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("INSERT 0 1"), nil
			},
			queryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				countQueried = true
				return mockRow{}
			},
		}

		cfg := seedTestConfig()
		cfg.SeedProducts = false

		svc := NewSeedService(mockDB, cfg, nil)
		if err := svc.Run(context.Background()); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if countQueried {
			t.Error("expected catalog count to not be queried when seeding is disabled")
		}
	})

	t.Run("runs both phases", func(t *testing.T) {
		countQueried := false

		mockDB := &mockDatabase{
			execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("INSERT 0 1"), nil
			},
			queryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				countQueried = true
				return mockRow{
					scanFunc: func(dest ...interface{}) error {
						if count, ok := dest[0].(*int); ok {
							*count = 8
						}
						return nil
					},
				}
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), nil)
		if err := svc.Run(context.Background()); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !countQueried {
			t.Error("expected catalog phase to run")
		}
	})

	t.Run("surfaces demo user failure", func(t *testing.T) {
		mockDB := &mockDatabase{
			execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("permission denied")
			},
		}

		svc := NewSeedService(mockDB, seedTestConfig(), nil)
		err := svc.Run(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "demo user seeding failed") {
			t.Errorf("unexpected error message: %v", err)
		}
	})
}

func TestRunStatsSweep(t *testing.T) {
	t.Run("tolerates missing stores", func(t *testing.T) {
		// Nothing configured; the sweep must be a no-op, not a panic
		RunStatsSweep(context.Background(), nil, nil, nil)
	})

	t.Run("records counts and sweep timestamp", func(t *testing.T) {
		var statsValue string

		mockDB := &mockDatabase{
			queryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				return mockRow{
					scanFunc: func(dest ...interface{}) error {
						count, ok := dest[0].(*int)
						if !ok {
							return errors.New("unexpected scan target")
						}
						if strings.Contains(sql, "FROM products") {
							*count = 8
						} else if strings.Contains(sql, "FROM orders") {
							*count = 3
						}
						return nil
					},
				}
			},
			execFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				if !strings.Contains(sql, "app_stats") {
					t.Errorf("unexpected exec during sweep: %s", sql)
				}
				statsValue = args[0].(string)
				return pgconn.NewCommandTag("INSERT 0 1"), nil
			},
		}

		RunStatsSweep(context.Background(), mockDB, nil, nil)

		if statsValue == "" {
			t.Fatal("expected last_sweep to be recorded")
		}
		if _, err := time.Parse(time.RFC3339, statsValue); err != nil {
			t.Errorf("expected RFC3339 sweep timestamp, got: %s", statsValue)
		}

		if got := gaugeValue(t, "cloudmart_product_catalog_size"); got != 8 {
			t.Errorf("expected catalog gauge 8, got %v", got)
		}
		if got := gaugeValue(t, "cloudmart_orders_stored"); got != 3 {
			t.Errorf("expected orders gauge 3, got %v", got)
		}
	})

	t.Run("counts live session records", func(t *testing.T) {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("failed to start miniredis: %v", err)
		}
		defer mr.Close()

		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = rdb.Close() }()

		mr.Set("session:aaa", "sealed")
		mr.Set("session:bbb", "sealed")
		mr.Set("ratelimit:ccc", "1")

		RunStatsSweep(context.Background(), nil, nil, rdb)

		if got := gaugeValue(t, "cloudmart_active_sessions"); got != 2 {
			t.Errorf("expected 2 active sessions, got %v", got)
		}
	})
}

func TestSweepInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{"zero falls back to default", 0, 5 * time.Minute},
		{"negative falls back to default", -1 * time.Minute, 5 * time.Minute},
		{"positive passes through", 30 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sweepInterval(tt.interval); got != tt.want {
				t.Errorf("sweepInterval(%v) = %v, want %v", tt.interval, got, tt.want)
			}
		})
	}
}

func TestStartStatsServiceZeroInterval(t *testing.T) {
	// STATS_INTERVAL_MINUTES=0 must not take the process down; the
	// sweeper used to hand time.NewTicker a zero interval, which panics
	// inside the goroutine and kills the container at startup.
	StartStatsService(nil, nil, nil, 0)
	time.Sleep(20 * time.Millisecond)
}
