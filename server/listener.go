package server

import (
	"context"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ListenWithIPv6Fallback binds the server on a dual-stack IPv6 socket and
// falls back to plain IPv4 when the host has no IPv6. Container platforms
// with IPv6-only private networks need the former, bare IPv4 hosts the
// latter, and the storefront must come up on both.
func ListenWithIPv6Fallback(app *fiber.App, port string, startupStart time.Time) error {
	ln6, err := listenDualStack(port)
	if err == nil {
		log.Printf("🌐 Listening on %s (dual-stack), startup took %v", ln6.Addr(), time.Since(startupStart))
		return app.Listener(ln6)
	}
	log.Printf("⚠️ IPv6 bind failed (%v), falling back to IPv4", err)

	ln4, err := net.Listen("tcp4", "0.0.0.0:"+port)
	if err != nil {
		log.Printf("💥 IPv4 bind failed too, server cannot start: %v", err)
		return err
	}

	log.Printf("🌐 Listening on %s (IPv4 only), startup took %v", ln4.Addr(), time.Since(startupStart))
	return app.Listener(ln4)
}

// listenDualStack opens a tcp6 socket with IPV6_V6ONLY cleared so it also
// accepts IPv4 connections via mapped addresses.
func listenDualStack(port string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			if network != "tcp6" {
				return nil
			}
			var sockErr error
			if controlErr := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IPV6, syscall.IPV6_V6ONLY, 0)
			}); controlErr != nil {
				return controlErr
			}
			return sockErr
		},
	}
	return lc.Listen(context.Background(), "tcp6", "[::]:"+port)
}
