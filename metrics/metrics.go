package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudmart_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudmart_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Storefront metrics
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudmart_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // success, failure
	)

	cartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudmart_cart_operations_total",
			Help: "Total number of cart mutations",
		},
		[]string{"operation"}, // add, remove
	)

	ordersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cloudmart_orders_created_total",
			Help: "Total number of orders placed",
		},
	)

	catalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudmart_product_catalog_size",
			Help: "Number of products currently in the catalog",
		},
	)

	ordersStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudmart_orders_stored",
			Help: "Number of orders currently stored",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudmart_active_sessions",
			Help: "Number of live session records in Redis",
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudmart_websocket_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	// Database metrics
	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudmart_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	dbConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudmart_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Error metrics
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudmart_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"}, // auth, database, redis, validation
	)
)

// PrometheusMiddleware creates a Fiber middleware for Prometheus metrics
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Process request
		err := c.Next()

		// Record metrics
		duration := time.Since(start).Seconds()
		method := c.Method()
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// RecordLogin increments the login counter with the given result
func RecordLogin(success bool) {
	if success {
		loginsTotal.WithLabelValues("success").Inc()
	} else {
		loginsTotal.WithLabelValues("failure").Inc()
	}
}

// IncrementCartOperation increments cart mutation counter
func IncrementCartOperation(operation string) {
	cartOperationsTotal.WithLabelValues(operation).Inc()
}

// IncrementOrdersCreated increments the placed-orders counter
func IncrementOrdersCreated() {
	ordersCreatedTotal.Inc()
}

// UpdateCatalogSize updates the product catalog gauge
func UpdateCatalogSize(count int) {
	catalogSize.Set(float64(count))
}

// UpdateOrdersStored updates the stored-orders gauge
func UpdateOrdersStored(count int) {
	ordersStored.Set(float64(count))
}

// UpdateActiveSessions updates the live-sessions gauge
func UpdateActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// UpdateWebSocketConnections updates WebSocket connections gauge
func UpdateWebSocketConnections(count int) {
	websocketConnections.Set(float64(count))
}

// UpdateDatabaseMetrics updates database connection metrics
func UpdateDatabaseMetrics(active, idle int) {
	dbConnectionsActive.Set(float64(active))
	dbConnectionsIdle.Set(float64(idle))
}

// IncrementError increments error counter
func IncrementError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
