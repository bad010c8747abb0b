package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"cloudmart/database"
)

// ProductsHandler handles catalog requests
type ProductsHandler struct {
	db database.Database
}

// NewProductsHandler creates a new catalog handler. db may be nil; every
// read then degrades to an empty result instead of failing.
func NewProductsHandler(db database.Database) *ProductsHandler {
	return &ProductsHandler{db: db}
}

// Product is a catalog entry as stored and served
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Image       string  `json:"image"`
}

const productColumns = `id, name, description, category, price, stock, image`

// ListProducts godoc
// @Summary List products
// @Description Get the product catalog, optionally filtered by category
// @Tags Catalog
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {array} Product "Products"
// @Router /api/v1/products [get]
func (h *ProductsHandler) ListProducts(c *fiber.Ctx) error {
	if h.db == nil {
		// running without DB
		return c.JSON([]Product{})
	}

	var (
		rows pgx.Rows
		err  error
	)
	if category := c.Query("category"); category != "" {
		rows, err = h.db.Query(c.Context(),
			`SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY id`,
			category)
	} else {
		rows, err = h.db.Query(c.Context(),
			`SELECT `+productColumns+` FROM products ORDER BY id`)
	}
	if err != nil {
		return c.JSON([]Product{})
	}
	defer rows.Close()

	return c.JSON(scanProducts(rows))
}

// SearchProducts matches the query against product names and categories.
// The query parameter is required; without it every row would match the
// substring pattern.
func (h *ProductsHandler) SearchProducts(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return c.Status(400).JSON(fiber.Map{"detail": "Search query is required"})
	}

	if h.db == nil {
		return c.JSON([]Product{})
	}

	rows, err := h.db.Query(c.Context(),
		`SELECT `+productColumns+` FROM products
		 WHERE name ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%'
		 ORDER BY id`,
		q)
	if err != nil {
		return c.JSON([]Product{})
	}
	defer rows.Close()

	return c.JSON(scanProducts(rows))
}

// GetProduct returns a single catalog entry by id
func (h *ProductsHandler) GetProduct(c *fiber.Ctx) error {
	if h.db == nil {
		return c.Status(503).JSON(fiber.Map{"detail": "Database not available"})
	}

	var p Product
	err := h.db.QueryRow(c.Context(),
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		c.Params("id"),
	).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock, &p.Image)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"detail": "Product not found"})
	}

	return c.JSON(p)
}

// GetCategories returns the distinct category names in the catalog
func (h *ProductsHandler) GetCategories(c *fiber.Ctx) error {
	if h.db == nil {
		return c.JSON([]string{})
	}

	rows, err := h.db.Query(c.Context(),
		`SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return c.JSON([]string{})
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			continue
		}
		categories = append(categories, category)
	}

	return c.JSON(categories)
}

func scanProducts(rows pgx.Rows) []Product {
	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock, &p.Image); err != nil {
			continue
		}
		products = append(products, p)
	}
	return products
}
