package server

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// FiberResponseWriter exposes a Fiber request context as an
// http.ResponseWriter so stock net/http handlers, in our case the
// Prometheus exposition handler, can be mounted on a Fiber route.
type FiberResponseWriter struct {
	ctx     *fiber.Ctx
	header  http.Header
	status  int
	flushed bool
}

// NewFiberResponseWriter wraps the given request context.
func NewFiberResponseWriter(ctx *fiber.Ctx) *FiberResponseWriter {
	return &FiberResponseWriter{
		ctx:    ctx,
		header: make(http.Header),
		status: http.StatusOK,
	}
}

// Header returns the staged response headers. They are copied onto the
// Fiber response when the first body bytes arrive, matching net/http's
// rule that headers written after the body are ignored.
func (w *FiberResponseWriter) Header() http.Header {
	return w.header
}

// WriteHeader records the status code for the eventual response.
func (w *FiberResponseWriter) WriteHeader(statusCode int) {
	if !w.flushed {
		w.status = statusCode
	}
}

// Write flushes staged headers and status, then appends to the body.
func (w *FiberResponseWriter) Write(p []byte) (int, error) {
	if !w.flushed {
		w.flushed = true
		for key, values := range w.header {
			for _, value := range values {
				w.ctx.Set(key, value)
			}
		}
		w.ctx.Status(w.status)
	}
	return w.ctx.Write(p)
}
