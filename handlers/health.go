package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"cloudmart/config"
	"cloudmart/database"
)

// buildTime is captured once at process start
var buildTime = time.Now().UTC().Format(time.RFC3339)

// HealthHandler reports service identity and backing store status
type HealthHandler struct {
	db     database.Database
	config *config.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db database.Database, cfg *config.Config) *HealthHandler {
	return &HealthHandler{db: db, config: cfg}
}

// Health godoc
// @Summary Service health
// @Description Report identity, build time and database status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{} "Health report"
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	dbStatus := "disconnected"
	if h.db != nil {
		dbStatus = "connected"
	}

	return c.JSON(fiber.Map{
		"status":       "healthy",
		"service":      config.ServiceName,
		"version":      config.Version,
		"build_time":   buildTime,
		"database":     "postgres",
		"db_status":    dbStatus,
		"deployed_via": h.config.DeployedVia,
	})
}
