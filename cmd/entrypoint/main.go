package main

import (
	"log"
	"os"
	"syscall"
	"time"
)

// A tiny entrypoint that ensures sane env defaults and then execs the main binary.
func main() {
	if os.Getenv("PORT") == "" {
		// The container contract is port 80 unless the platform injects one
		_ = os.Setenv("PORT", "80")
	}

	// Optional startup delay for platforms that wire networking late
	if delay := os.Getenv("STARTUP_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil && d > 0 {
			log.Printf("Applying startup delay: %v", d)
			time.Sleep(d)
		}
	}

	target := os.Getenv("SERVER_BINARY")
	if target == "" {
		target = "/app/cloudmart"
	}
	if err := syscall.Exec(target, []string{target}, os.Environ()); err != nil {
		log.Fatalf("failed to exec %s: %v", target, err)
	}
}
