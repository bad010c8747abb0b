package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"cloudmart/config"
	"cloudmart/utils"
)

// CreateFiberApp creates and configures the Fiber application. Probe
// endpoints are mounted here so the container answers health checks
// before the store connections and catalog seeding finish.
func CreateFiberApp(startTime time.Time, cfg *config.Config, readyState *ReadyState) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               config.ServiceName,
		DisableStartupMessage: false,
		BodyLimit:             512 * 1024, // 512KB body size limit
		// Enable proxy header trust for Cloudflare/nginx/ingress reverse proxies
		EnableTrustedProxyCheck: utils.TrustProxyHeaders.Load(),
		ProxyHeader:             fiber.HeaderXForwardedFor,
		TrustedProxies: []string{
			"10.0.0.0/8",     // Private IPv4
			"172.16.0.0/12",  // Private IPv4
			"192.168.0.0/16", // Private IPv4
			"fd00::/8",       // Private IPv6
			"::1",            // IPv6 localhost
			"127.0.0.1",      // IPv4 localhost
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			} else {
				// Log server errors but don't expose details
				utils.LogError("HTTP_ERROR", err,
					"method", c.Method(),
					"path", c.Path(),
					"ip", c.IP(),
				)
			}

			return c.Status(code).JSON(fiber.Map{"detail": message})
		},
	})

	// Panic recovery with error logging
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			utils.LogError("PANIC RECOVERED", fmt.Errorf("%v", e),
				"method", c.Method(),
				"path", c.Path(),
				"ip", c.IP(),
				"user_agent", c.Get("User-Agent"),
			)
		},
	}))

	// Request ID middleware for error correlation
	app.Use(func(c *fiber.Ctx) error {
		requestID := uuid.New().String()
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)
		return c.Next()
	})

	// The storefront is served cross-origin in demos, so stay permissive
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Request logging
	app.Use(logger.New(logger.Config{
		Output: utils.InfoLogger.Writer(),
		Format: "[${time}] ${locals:request_id} ${status} - ${method} ${path} - ${ip} - ${latency}\n",
	}))

	// Compression middleware for API responses
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c *fiber.Ctx) bool {
			// Skip compression for WebSocket upgrades
			return c.Get("Upgrade") == "websocket"
		},
	}))

	// Liveness probe - just checks if the server is running
	liveness := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "live",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		})
	}

	// Readiness probe - checks if startup finished and configured stores answer
	readiness := func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		health := fiber.Map{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		}

		if !readyState.IsFullyReady() {
			health["status"] = "initializing"
			health["database_ready"] = readyState.IsDatabaseReady()
			health["catalog_ready"] = readyState.IsCatalogReady()
			health["redis_ready"] = readyState.IsRedisReady()
			return c.Status(503).JSON(health)
		}

		// Stores are optional; only probe the ones that were configured
		if db := readyState.GetDB(); db != nil {
			var one int
			if err := db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
				health["status"] = "unhealthy"
				health["error"] = "database check failed"
				return c.Status(503).JSON(health)
			}
			health["database"] = "connected"
		} else {
			health["database"] = "skipped"
		}

		if rdb := readyState.GetRedis(); rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				health["status"] = "unhealthy"
				health["error"] = "redis check failed"
				return c.Status(503).JSON(health)
			}
			health["redis"] = "connected"
		} else {
			health["redis"] = "skipped"
		}

		health["status"] = "ready"
		return c.JSON(health)
	}

	app.Get("/livez", liveness)
	app.Get("/readyz", readiness)

	// Aliases under the API prefix for platforms that only probe one path tree
	app.Get("/api/v1/health/live", liveness)
	app.Get("/api/v1/health/ready", readiness)

	return app
}
