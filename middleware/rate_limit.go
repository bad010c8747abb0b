package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"cloudmart/utils"
)

// RateLimitConfig holds all rate limiter instances
type RateLimitConfig struct {
	AuthLimiter   fiber.Handler
	BrowseLimiter fiber.Handler
	CartLimiter   fiber.Handler
	OrderLimiter  fiber.Handler
}

// NewRateLimitConfig creates all rate limiters. When a Redis client is
// provided the counters live there so limits hold across replicas;
// otherwise each limiter falls back to fiber's in-memory storage.
func NewRateLimitConfig(rdb *redis.Client) *RateLimitConfig {
	var storage fiber.Storage
	if rdb != nil {
		storage = redisstorage.NewFromConnection(rdb)
	}

	// Tier 1: Login (strictest - prevent credential stuffing)
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 5 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"detail": "Too many login attempts. Please try again later.",
			})
		},
	})

	// Tier 2: Catalog browsing and search (liberal - read only)
	browseLimiter := limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"detail": "Too many requests. Please try again later.",
			})
		},
	})

	// Tier 3: Cart mutations (normal usage)
	cartLimiter := limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"detail": "Too many cart requests. Please try again later.",
			})
		},
	})

	// Tier 4: Order placement (each one writes several rows)
	orderLimiter := limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"detail": "Too many order requests. Please try again later.",
			})
		},
	})

	return &RateLimitConfig{
		AuthLimiter:   authLimiter,
		BrowseLimiter: browseLimiter,
		CartLimiter:   cartLimiter,
		OrderLimiter:  orderLimiter,
	}
}
