package main

import (
	"embed"

	"github.com/gofiber/fiber/v2"
)

//go:embed web/storefront.html
var storefrontFS embed.FS

// storefrontHandler serves the embedded single-page storefront. The page
// talks to the JSON API under /api/v1 and the live feed at /ws/live.
func storefrontHandler(c *fiber.Ctx) error {
	page, err := storefrontFS.ReadFile("web/storefront.html")
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Storefront unavailable")
	}

	c.Set("Cache-Control", "no-cache")
	c.Type("html", "utf-8")
	return c.Send(page)
}
