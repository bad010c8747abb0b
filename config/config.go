package config

import (
	"crypto/sha256"
	"log"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Service identity reported by /health and the OpenAPI document.
const (
	ServiceName = "cloudmart-api"
	Version     = "1.2.0"
)

// DefaultUser is the shared demo identity that owns carts and orders.
// Every authenticated shopper operates on this single cart.
const DefaultUser = "demo_user"

// DefaultJWTSecret is the development fallback secret. Running on it in
// production is loudly warned about but not fatal: the container must come
// up with zero environment configured.
const DefaultJWTSecret = "cloudmart-dev-secret-key"

// Config holds application configuration
type Config struct {
	DatabaseURL   string
	RedisURL      string
	RedisPassword string
	JWTSecret     []byte
	EncryptionKey []byte
	Port          string

	AllowedOrigins []string

	DemoUsername string
	DemoPassword string

	TokenDuration time.Duration
	SessionTTL    time.Duration

	SeedProducts     bool
	MetricsEnabled   bool
	RateLimitEnabled bool

	TrustProxyHeaders bool
	Environment       string
	DeployedVia       string

	StatsInterval time.Duration
}

// LoadConfig loads configuration from environment variables.
//
// Unlike most services, CloudMart is designed to boot with nothing set:
// no database, no Redis, no secrets. Backing stores are optional and the
// JWT secret falls back to a well-known dev value with a warning.
func LoadConfig() *Config {
	jwtSecret := GetEnvOrDefault("JWT_SECRET_KEY", DefaultJWTSecret)
	if jwtSecret == DefaultJWTSecret {
		log.Printf("⚠️  [WARNING] JWT_SECRET_KEY not set, using built-in development secret. Set JWT_SECRET_KEY before exposing this service.")
	} else if len(jwtSecret) < 32 {
		log.Printf("⚠️  [WARNING] JWT_SECRET_KEY is shorter than 32 characters, consider a longer secret")
	} else {
		weakSecrets := []string{"default", "secret", "jwt_secret", "change_me", "insecure", "test", "password", "admin", "your_"}
		jwtLower := strings.ToLower(jwtSecret)
		for _, weak := range weakSecrets {
			if strings.HasPrefix(jwtLower, weak) || strings.EqualFold(jwtSecret, weak) {
				log.Printf("⚠️  [WARNING] JWT_SECRET_KEY starts with a weak value: '%s'", weak)
				break
			}
		}
	}

	// Session records in Redis are sealed with a dedicated key; when none is
	// provided the key is derived from the JWT secret so a bare deployment
	// still encrypts at rest.
	var encKey []byte
	if raw := os.Getenv("SESSION_ENCRYPTION_KEY"); raw != "" {
		sum := sha256.Sum256([]byte(raw))
		encKey = sum[:]
	} else {
		sum := sha256.Sum256([]byte("cloudmart-session:" + jwtSecret))
		encKey = sum[:]
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Managed-Postgres style env vars (Railway/Coolify add-ons)
		dbURL = buildDatabaseURLFromEnv()
	}
	if dbURL == "" {
		log.Printf("⚠️  [WARNING] DATABASE_URL not set, running without a database (catalog and cart endpoints return empty data)")
	} else if strings.Contains(dbURL, ":postgres@") || strings.Contains(dbURL, ":password@") || strings.Contains(dbURL, ":123456@") {
		log.Printf("⚠️  [WARNING] Database URL appears to use a weak password - consider using a strong password")
	}

	redisPassword := resolveRedisPassword(os.Getenv("REDIS_URL"), os.Getenv("REDIS_PASSWORD"))

	return &Config{
		DatabaseURL:   dbURL,
		RedisURL:      normalizeRedisAddress(GetEnvOrDefault("REDIS_URL", os.Getenv("REDIS_ADDR"))),
		RedisPassword: redisPassword,
		JWTSecret:     []byte(jwtSecret),
		EncryptionKey: encKey,
		Port:          GetEnvOrDefault("PORT", "80"),
		AllowedOrigins: func() []string {
			origins := strings.Split(GetEnvOrDefault("CORS_ORIGINS", "*"), ",")
			// Trim whitespace from each origin to prevent CORS issues
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			return origins
		}(),
		DemoUsername:      GetEnvOrDefault("DEMO_USERNAME", "demo"),
		DemoPassword:      GetEnvOrDefault("DEMO_PASSWORD", "demo123"),
		TokenDuration:     time.Duration(GetEnvAsInt("TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		SessionTTL:        time.Duration(GetEnvAsInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		SeedProducts:      GetEnvAsBool("SEED_PRODUCTS", true),
		MetricsEnabled:    GetEnvAsBool("METRICS_ENABLED", true),
		RateLimitEnabled:  GetEnvAsBool("RATE_LIMIT_ENABLED", true),
		TrustProxyHeaders: GetEnvAsBool("TRUST_PROXY_HEADERS", false),
		Environment:       GetEnvOrDefault("APP_ENV", "production"),
		DeployedVia:       GetEnvOrDefault("DEPLOYED_VIA", "container"),
		StatsInterval:     time.Duration(GetEnvAsInt("STATS_INTERVAL_MINUTES", 5)) * time.Minute,
	}
}

// HasDatabase reports whether a database was configured at all.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasRedis reports whether a Redis endpoint was configured.
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

// GetEnvOrDefault returns environment variable value or default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsBool parses environment variable as boolean
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		value = strings.ToLower(value)
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		if value == "false" || value == "0" || value == "no" {
			return false
		}
	}
	return defaultValue
}

// GetEnvAsStringSlice parses environment variable as comma-separated list
func GetEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

// GetEnvAsInt parses environment variable as integer
func GetEnvAsInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// normalizeRedisAddress converts redis:// URLs into host[:port] that go-redis expects.
func normalizeRedisAddress(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if !strings.Contains(trimmed, "://") {
		return trimmed
	}
	u, err := neturl.Parse(trimmed)
	if err != nil {
		log.Printf("Warning: could not parse REDIS_URL '%s': %v", trimmed, err)
		return trimmed
	}
	if u.Host != "" {
		return u.Host
	}
	return trimmed
}

// resolveRedisPassword returns an explicit password if provided, otherwise pulls
// the password component from a redis:// URL when available.
func resolveRedisPassword(redisURL, explicit string) string {
	if explicit != "" {
		return explicit
	}
	trimmed := strings.TrimSpace(redisURL)
	if trimmed == "" || !strings.Contains(trimmed, "://") {
		return explicit
	}
	u, err := neturl.Parse(trimmed)
	if err != nil {
		return explicit
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			return pw
		}
	}
	return explicit
}

// buildDatabaseURLFromEnv builds a postgres URL from common env vars (Railway/Coolify/Postgres add-on style)
// Recognized: POSTGRESQL_* vars, Railway PG* vars, and POSTGRES_PASSWORD
func buildDatabaseURLFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRESQL_HOST"))
	if host == "" {
		host = strings.TrimSpace(os.Getenv("PGHOST"))
	}
	user := strings.TrimSpace(os.Getenv("POSTGRESQL_USER"))
	if user == "" {
		user = strings.TrimSpace(os.Getenv("PGUSER"))
	}
	pass := os.Getenv("POSTGRESQL_PASSWORD") // may contain spaces/specials
	if pass == "" {
		pass = os.Getenv("PGPASSWORD")
	}
	if pass == "" {
		pass = os.Getenv("POSTGRES_PASSWORD")
	}
	db := strings.TrimSpace(os.Getenv("POSTGRESQL_DATABASE"))
	if db == "" {
		db = strings.TrimSpace(os.Getenv("PGDATABASE"))
	}
	if host == "" || user == "" || db == "" {
		return ""
	}
	port := strings.TrimSpace(os.Getenv("POSTGRESQL_PORT"))
	if port == "" {
		port = strings.TrimSpace(os.Getenv("PGPORT"))
	}
	if port == "" {
		port = "5432"
	}
	sslmode := strings.TrimSpace(os.Getenv("POSTGRESQL_SSLMODE"))
	if sslmode == "" {
		sslmode = strings.TrimSpace(os.Getenv("PGSSLMODE"))
	}
	if sslmode == "" {
		sslmode = "require"
	}
	u := &neturl.URL{
		Scheme: "postgres",
		User:   neturl.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	q := neturl.Values{}
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}
