package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cloudmart/config"
	"cloudmart/database"
	"cloudmart/metrics"
	"cloudmart/websocket"
)

// OrdersHandler handles order placement and history
type OrdersHandler struct {
	db  database.Database
	hub *websocket.Hub
}

// NewOrdersHandler creates a new orders handler. hub may be nil when the
// live feed is not running.
func NewOrdersHandler(db database.Database, hub *websocket.Hub) *OrdersHandler {
	return &OrdersHandler{db: db, hub: hub}
}

// OrderItem is one line of an order, snapshotted from the cart
type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOrder godoc
// @Summary Place an order
// @Description Snapshot the cart into a confirmed order and clear the cart
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "The confirmed order"
// @Router /api/v1/orders [post]
func (h *OrdersHandler) CreateOrder(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON(fiber.Map{"error": "Database not available"})
	}

	ctx := c.Context()

	tx, err := h.db.Begin(ctx)
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx,
		`SELECT product_id, quantity FROM cart_items WHERE user_id = $1 ORDER BY created_at`,
		config.DefaultUser)
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}

	items := []OrderItem{}
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			rows.Close()
			return c.JSON(fiber.Map{"error": err.Error()})
		}
		items = append(items, item)
	}
	rows.Close()

	orderID := uuid.New()
	createdAt := time.Now().UTC()

	if _, err := tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, status, created_at) VALUES ($1, $2, $3, $4)`,
		orderID, config.DefaultUser, "confirmed", createdAt); err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}

	for _, item := range items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)`,
			orderID, item.ProductID, item.Quantity); err != nil {
			return c.JSON(fiber.Map{"error": err.Error()})
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1`,
		config.DefaultUser); err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}

	metrics.IncrementOrdersCreated()
	if h.hub != nil {
		h.hub.Publish(websocket.NewOrderPlacedEvent(orderID.String(), len(items)))
	}

	return c.JSON(fiber.Map{
		"id":         orderID.String(),
		"user_id":    config.DefaultUser,
		"items":      items,
		"status":     "confirmed",
		"created_at": createdAt.Format(time.RFC3339),
	})
}

// GetOrders returns all orders for the demo user, newest first
func (h *OrdersHandler) GetOrders(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON([]fiber.Map{})
	}

	ctx := c.Context()

	rows, err := h.db.Query(ctx,
		`SELECT id, user_id, status, created_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		config.DefaultUser)
	if err != nil {
		return c.JSON([]fiber.Map{})
	}

	type orderRow struct {
		id        uuid.UUID
		userID    string
		status    string
		createdAt time.Time
	}

	orderRows := []orderRow{}
	orderIDs := []uuid.UUID{}
	for rows.Next() {
		var o orderRow
		if err := rows.Scan(&o.id, &o.userID, &o.status, &o.createdAt); err != nil {
			continue
		}
		orderRows = append(orderRows, o)
		orderIDs = append(orderIDs, o.id)
	}
	rows.Close()

	itemsByOrder := map[uuid.UUID][]OrderItem{}
	if len(orderIDs) > 0 {
		itemRows, err := h.db.Query(ctx,
			`SELECT order_id, product_id, quantity FROM order_items WHERE order_id = ANY($1)`,
			orderIDs)
		if err != nil {
			return c.JSON([]fiber.Map{})
		}
		for itemRows.Next() {
			var (
				orderID uuid.UUID
				item    OrderItem
			)
			if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity); err != nil {
				continue
			}
			itemsByOrder[orderID] = append(itemsByOrder[orderID], item)
		}
		itemRows.Close()
	}

	orders := []fiber.Map{}
	for _, o := range orderRows {
		items := itemsByOrder[o.id]
		if items == nil {
			items = []OrderItem{}
		}
		orders = append(orders, fiber.Map{
			"id":         o.id.String(),
			"user_id":    o.userID,
			"items":      items,
			"status":     o.status,
			"created_at": o.createdAt.Format(time.RFC3339),
		})
	}

	return c.JSON(orders)
}
