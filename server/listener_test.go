package server

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hasIPv6Loopback reports whether the host can accept connections on ::1.
// CI sandboxes occasionally run IPv4-only.
func hasIPv6Loopback(t *testing.T) bool {
	t.Helper()
	ln, err := net.Listen("tcp6", "[::1]:0")
	if err != nil {
		return false
	}
	defer ln.Close()

	conn, err := net.DialTimeout("tcp6", ln.Addr().String(), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// freePort reserves an ephemeral port via a throwaway listener and returns
// its number. The port can be rebound immediately after Close.
func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return fmt.Sprintf("%d", ln.Addr().(*net.TCPAddr).Port)
}

func getStatus(url string) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// pollStatus retries the URL until it answers with the wanted status or
// the deadline passes.
func pollStatus(t *testing.T, url string, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got, err := getStatus(url); err == nil && got == want {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to answer %d", url, want)
}

func TestListenWithIPv6FallbackServesBothFamilies(t *testing.T) {
	if !hasIPv6Loopback(t) {
		t.Skip("IPv6 loopback not available")
	}

	port := freePort(t)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- ListenWithIPv6Fallback(app, port, time.Now())
	}()

	// Dual-stack socket must answer over both loopback families
	pollStatus(t, fmt.Sprintf("http://[::1]:%s/livez", port), http.StatusNoContent, 5*time.Second)
	pollStatus(t, fmt.Sprintf("http://127.0.0.1:%s/livez", port), http.StatusNoContent, 5*time.Second)

	require.NoError(t, app.Shutdown())
	assert.NoError(t, <-serveErr)
}
