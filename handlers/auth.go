package handlers

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"cloudmart/config"
	"cloudmart/crypto"
	"cloudmart/database"
	"cloudmart/metrics"
	"cloudmart/utils"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db     database.Database
	redis  *redis.Client
	crypto *crypto.CryptoService
	config *config.Config
}

// NewAuthHandler creates a new authentication handler. Both db and redis
// may be nil; login then falls back to comparing against the configured
// demo credentials and skips the session record.
func NewAuthHandler(db database.Database, rdb *redis.Client, cryptoService *crypto.CryptoService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		db:     db,
		redis:  rdb,
		crypto: cryptoService,
		config: cfg,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionData structure for Redis storage
type SessionData struct {
	Username  string    `json:"username"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login godoc
// @Summary Log in with the demo credentials
// @Description Exchange username and password for a bearer token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]interface{} "Access token"
// @Failure 401 {object} map[string]interface{} "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"detail": "Invalid request"})
	}

	if !h.verifyCredentials(c.Context(), req.Username, req.Password) {
		metrics.RecordLogin(false)
		metrics.IncrementError("auth", "login")
		return c.Status(401).JSON(fiber.Map{"detail": "Invalid credentials"})
	}

	token, expiresAt, err := h.generateToken(req.Username)
	if err != nil {
		utils.LogRequestError(c, "token generation failed", err)
		return c.Status(500).JSON(fiber.Map{"detail": "Authentication failed"})
	}

	// Session record is observability only, never a login blocker
	if h.redis != nil {
		if err := h.storeSessionInRedis(c.Context(), token, req.Username, c, expiresAt); err != nil {
			log.Printf("Warning: failed to store session record: %v", err)
		}
	}
	h.touchLastLogin(c.Context(), req.Username)

	metrics.RecordLogin(true)

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// verifyCredentials checks the password against the seeded user row when a
// database is up, and against the configured demo credentials otherwise.
// A reachable database whose seeding failed must not lock out the demo
// user, so the literal comparison is also the fallback on lookup misses.
func (h *AuthHandler) verifyCredentials(ctx context.Context, username, password string) bool {
	if h.db != nil {
		var passwordHash string
		err := h.db.QueryRow(ctx,
			`SELECT password_hash FROM users WHERE username = $1`,
			username,
		).Scan(&passwordHash)
		if err == nil {
			return crypto.VerifyPassword(password, passwordHash)
		}
	}

	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(h.config.DemoUsername))
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(h.config.DemoPassword))
	return userMatch == 1 && passMatch == 1
}

func (h *AuthHandler) generateToken(username string) (string, time.Time, error) {
	expiresAt := time.Now().Add(h.config.TokenDuration)
	claims := jwt.MapClaims{
		"sub": username,
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.config.JWTSecret)
	return signed, expiresAt, err
}

// Store session in Redis with encrypted metadata
func (h *AuthHandler) storeSessionInRedis(ctx context.Context, token, username string, c *fiber.Ctx, expiresAt time.Time) error {
	sessionData := SessionData{
		Username:  username,
		IPAddress: utils.ClientIP(c),
		UserAgent: utils.Truncate(c.Get("User-Agent"), 256),
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}

	data, err := json.Marshal(sessionData)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	encryptedData, err := h.crypto.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt session data: %w", err)
	}

	// Keyed by token hash so one token maps to one session record
	tokenHash := sha256.Sum256([]byte(token))
	sessionKey := fmt.Sprintf("session:%x", tokenHash)

	ttl := h.config.SessionTTL
	if ttl <= 0 {
		ttl = time.Until(expiresAt)
	}
	return h.redis.Set(ctx, sessionKey, encryptedData, ttl).Err()
}

func (h *AuthHandler) touchLastLogin(ctx context.Context, username string) {
	if h.db == nil {
		return
	}
	if _, err := h.db.Exec(ctx,
		`UPDATE users SET last_login = NOW() WHERE username = $1`,
		username,
	); err != nil {
		log.Printf("Warning: failed to update last_login for %s: %v", username, err)
	}
}
