package main

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	fiberws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "cloudmart/config"
	appcrypto "cloudmart/crypto"
	"cloudmart/database"
	"cloudmart/handlers"
	"cloudmart/metrics"
	"cloudmart/middleware"
	appserver "cloudmart/server"
	websocketpkg "cloudmart/websocket"
)

// setupRoutes configures all API routes and route-level middleware. db and
// rdb may be nil; handlers then serve their degraded responses.
func setupRoutes(app *fiber.App, db database.Database, rdb *redis.Client, crypto *appcrypto.CryptoService, config *appconfig.Config, hub *websocketpkg.Hub) {
	// Security headers. The storefront page uses inline style and script,
	// so the CSP must allow them; the live feed needs ws:/wss: connects.
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge: func() int {
			if config.Environment == "production" {
				return 31536000
			}
			return 0
		}(),
		ContentSecurityPolicy: "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline' https://unpkg.com; " +
			"style-src 'self' 'unsafe-inline' https://unpkg.com; " +
			"img-src 'self' data:; " +
			"connect-src 'self' ws: wss:; " +
			"object-src 'none'; " +
			"base-uri 'self'",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}))

	// Request metrics
	if config.MetricsEnabled {
		app.Use(metrics.PrometheusMiddleware())
	}

	// Rate limiting tiers; disabled means every tier passes through
	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	authLimit, browseLimit, cartLimit, orderLimit := passthrough, passthrough, passthrough, passthrough
	if config.RateLimitEnabled {
		rateLimits := middleware.NewRateLimitConfig(rdb)
		authLimit = rateLimits.AuthLimiter
		browseLimit = rateLimits.BrowseLimiter
		cartLimit = rateLimits.CartLimiter
		orderLimit = rateLimits.OrderLimiter
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, rdb, crypto, config)
	productsHandler := handlers.NewProductsHandler(db)
	cartHandler := handlers.NewCartHandler(db)
	ordersHandler := handlers.NewOrdersHandler(db, hub)
	healthHandler := handlers.NewHealthHandler(db, config)

	// Storefront and service health
	app.Get("/", storefrontHandler)
	app.Get("/health", healthHandler.Health)

	// API documentation
	app.Get("/docs", docsUIHandler)
	app.Get("/openapi.json", openAPIHandler)

	// Prometheus exposition endpoint
	if config.MetricsEnabled {
		app.Get("/metrics", func(c *fiber.Ctx) error {
			handler := promhttp.Handler()
			req := &http.Request{
				Method:     c.Method(),
				URL:        &url.URL{Path: c.Path(), RawQuery: string(c.Request().URI().QueryString())},
				Header:     make(http.Header),
				Body:       io.NopCloser(bytes.NewReader(c.Body())),
				Host:       string(c.Request().Host()),
				RequestURI: c.OriginalURL(),
			}
			c.Request().Header.VisitAll(func(key, value []byte) {
				req.Header.Add(string(key), string(value))
			})

			handler.ServeHTTP(appserver.NewFiberResponseWriter(c), req)
			return nil
		})
	}

	// Authentication (public)
	app.Post("/auth/login", authLimit, authHandler.Login)

	// API group
	api := app.Group("/api/v1")

	// Catalog routes (public)
	api.Get("/products", browseLimit, productsHandler.ListProducts)
	api.Get("/products/:id", browseLimit, productsHandler.GetProduct)
	api.Get("/search", browseLimit, productsHandler.SearchProducts)
	api.Get("/categories", browseLimit, productsHandler.GetCategories)

	// Protected routes (require JWT)
	protected := api.Group("", middleware.JWTMiddleware(config.JWTSecret))

	// Cart routes
	protected.Get("/cart", cartLimit, cartHandler.GetCart)
	protected.Post("/cart/items", cartLimit, cartHandler.AddToCart)
	protected.Delete("/cart/items/:product_id", cartLimit, cartHandler.RemoveFromCart)

	// Order routes
	protected.Post("/orders", orderLimit, ordersHandler.CreateOrder)
	protected.Get("/orders", orderLimit, ordersHandler.GetOrders)

	// Public live feed: order and catalog events, read only
	app.Use("/ws/live", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/live", fiberws.New(func(conn *fiberws.Conn) {
		websocketpkg.HandleLiveFeed(conn, hub)
	}))
}
