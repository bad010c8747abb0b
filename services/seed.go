package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cloudmart/config"
	"cloudmart/crypto"
	"cloudmart/metrics"
	"cloudmart/websocket"
)

// Database interface for database operations
type Database interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CatalogProduct is one row of the built-in demo catalog.
type CatalogProduct struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
	Stock       int
	Image       string
}

// DefaultCatalog is the demo inventory seeded into an empty products table.
var DefaultCatalog = []CatalogProduct{
	{ID: "1", Name: "Wireless Headphones Pro", Description: "Premium noise-cancelling wireless headphones with 30hr battery", Category: "Electronics", Price: 199.99, Stock: 50, Image: "🎧"},
	{ID: "2", Name: "Smart Watch Elite", Description: "Advanced fitness tracking smartwatch with GPS", Category: "Electronics", Price: 299.99, Stock: 30, Image: "⌚"},
	{ID: "3", Name: "Running Shoes X1", Description: "Lightweight breathable running shoes", Category: "Sports", Price: 89.99, Stock: 100, Image: "👟"},
	{ID: "4", Name: "Laptop Backpack Pro", Description: "Water-resistant 15.6 inch laptop backpack", Category: "Accessories", Price: 49.99, Stock: 75, Image: "🎒"},
	{ID: "5", Name: "Coffee Maker Deluxe", Description: "12-cup programmable coffee maker", Category: "Home", Price: 79.99, Stock: 40, Image: "☕"},
	{ID: "6", Name: "Yoga Mat Premium", Description: "Extra thick eco-friendly yoga mat", Category: "Sports", Price: 35.99, Stock: 60, Image: "🧘"},
	{ID: "7", Name: "Bluetooth Speaker", Description: "Portable waterproof bluetooth speaker", Category: "Electronics", Price: 59.99, Stock: 45, Image: "🔊"},
	{ID: "8", Name: "Desk Lamp LED", Description: "Adjustable LED desk lamp with USB port", Category: "Home", Price: 29.99, Stock: 80, Image: "💡"},
}

// SeedService populates an empty database with the demo user and catalog.
type SeedService struct {
	db     Database
	config *config.Config
	hub    *websocket.Hub
}

// NewSeedService creates a new seed service. hub may be nil; the seeded
// event is then simply not broadcast.
func NewSeedService(db Database, cfg *config.Config, hub *websocket.Hub) *SeedService {
	return &SeedService{
		db:     db,
		config: cfg,
		hub:    hub,
	}
}

// Run executes all seeding steps. Seeding failures are returned but the
// caller is expected to treat them as non-fatal: a running store with an
// empty catalog beats a crash-looping container.
func (s *SeedService) Run(ctx context.Context) error {
	if err := s.EnsureDemoUser(ctx); err != nil {
		return fmt.Errorf("demo user seeding failed: %w", err)
	}
	if !s.config.SeedProducts {
		log.Println("⏭️ Product catalog seeding is disabled")
		return nil
	}
	if err := s.SeedCatalog(ctx); err != nil {
		return fmt.Errorf("catalog seeding failed: %w", err)
	}
	return nil
}

// EnsureDemoUser creates the demo login account if it does not exist yet.
// An existing row is left untouched so a password change survives restarts.
func (s *SeedService) EnsureDemoUser(ctx context.Context) error {
	if s.config.DemoUsername == "" || s.config.DemoPassword == "" {
		return errors.New("demo credentials cannot be empty")
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	passwordHash := crypto.HashPassword(s.config.DemoPassword, salt)

	tag, err := s.db.Exec(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING`,
		s.config.DemoUsername, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert demo user: %w", err)
	}

	if tag.RowsAffected() > 0 {
		log.Printf("✅ Created demo user '%s'", s.config.DemoUsername)
	} else {
		log.Printf("ℹ️ Demo user '%s' already exists", s.config.DemoUsername)
	}
	return nil
}

// SeedCatalog inserts the demo inventory when the products table is empty.
// A partially populated catalog is considered intentional and left alone.
func (s *SeedService) SeedCatalog(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check product count: %w", err)
	}

	if count > 0 {
		log.Printf("⏭️ Product catalog already populated (%d products), skipping seed", count)
		metrics.UpdateCatalogSize(count)
		return nil
	}

	log.Printf("🌱 Seeding product catalog with %d demo products...", len(DefaultCatalog))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, p := range DefaultCatalog {
		if _, err := tx.Exec(ctx, `
			INSERT INTO products (id, name, description, category, price, stock, image)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Description, p.Category, p.Price, p.Stock, p.Image,
		); err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	log.Printf("✅ Seeded %d products into the catalog", len(DefaultCatalog))
	metrics.UpdateCatalogSize(len(DefaultCatalog))

	if s.hub != nil {
		s.hub.Publish(websocket.NewCatalogSeededEvent(len(DefaultCatalog)))
	}
	return nil
}
