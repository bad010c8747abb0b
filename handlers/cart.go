package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cloudmart/config"
	"cloudmart/database"
	"cloudmart/metrics"
)

// CartHandler handles the shared demo cart
type CartHandler struct {
	db database.Database
}

// NewCartHandler creates a new cart handler
func NewCartHandler(db database.Database) *CartHandler {
	return &CartHandler{db: db}
}

// AddToCartRequest represents a cart mutation. Quantity replaces any
// existing quantity for the product rather than adding to it.
type AddToCartRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// GetCart returns the cart joined with live catalog data. Items whose
// product has left the catalog are omitted.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON([]fiber.Map{})
	}

	rows, err := h.db.Query(c.Context(), `
		SELECT p.id, p.name, p.price, ci.quantity, p.image, p.category
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at`,
		config.DefaultUser)
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	defer rows.Close()

	cart := []fiber.Map{}
	for rows.Next() {
		var (
			id, name, image, category string
			price                     float64
			quantity                  int
		)
		if err := rows.Scan(&id, &name, &price, &quantity, &image, &category); err != nil {
			continue
		}
		cart = append(cart, fiber.Map{
			"id":       id,
			"name":     name,
			"price":    price,
			"quantity": quantity,
			"image":    image,
			"category": category,
		})
	}

	return c.JSON(cart)
}

// AddToCart godoc
// @Summary Put a product in the cart
// @Description Set the cart quantity for a product
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body AddToCartRequest true "Product and quantity"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Saved"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Router /api/v1/cart/items [post]
func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	req := AddToCartRequest{Quantity: 1}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"detail": "Invalid request"})
	}
	if req.ProductID == "" {
		return c.Status(400).JSON(fiber.Map{"detail": "Invalid request"})
	}
	if req.Quantity < 1 {
		return c.Status(400).JSON(fiber.Map{"detail": "Quantity must be at least 1"})
	}

	if h.db == nil {
		return c.JSON(fiber.Map{"error": "Database not available"})
	}

	_, err := h.db.Exec(c.Context(), `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		config.DefaultUser, req.ProductID, req.Quantity)
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}

	metrics.IncrementCartOperation("add")

	return c.JSON(fiber.Map{"message": "Saved to PostgreSQL"})
}

// RemoveFromCart drops a product from the cart. Removing a product that
// is not in the cart is not an error.
func (h *CartHandler) RemoveFromCart(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON(fiber.Map{"error": "Database not available"})
	}

	_, err := h.db.Exec(c.Context(),
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		config.DefaultUser, c.Params("product_id"))
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}

	metrics.IncrementCartOperation("remove")

	return c.JSON(fiber.Map{"message": "Removed from PostgreSQL"})
}
