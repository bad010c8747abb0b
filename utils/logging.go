package utils

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// Split loggers: request and lifecycle chatter goes to stdout, anything a
// container platform should alert on goes to stderr.
var (
	InfoLogger  *log.Logger
	ErrorLogger *log.Logger
)

// InitLogging wires the package loggers and points the stdlib default
// logger at stderr so stray log.Printf calls land on the alert stream.
func InitLogging() {
	flags := log.Ldate | log.Ltime | log.Lshortfile

	InfoLogger = log.New(os.Stdout, "INFO: ", flags)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", flags)

	log.SetOutput(os.Stderr)
	log.SetPrefix("SYSTEM: ")
	log.SetFlags(flags)
}

// LogInfo writes a message with optional key/value context to stdout.
func LogInfo(message string, metadata ...interface{}) {
	InfoLogger.Println(append([]interface{}{message}, metadata...)...)
}

// LogError writes an error with context to stderr. Nil errors are dropped
// so callers can log unconditionally.
func LogError(context string, err error, metadata ...interface{}) {
	if err == nil {
		return
	}
	ErrorLogger.Println(append([]interface{}{context, err}, metadata...)...)
}

// LogRequestError logs an error enriched with the request's identity:
// request ID, authenticated user, method, path and client address.
func LogRequestError(c *fiber.Ctx, context string, err error, metadata ...interface{}) {
	if err == nil {
		return
	}
	requestID, _ := c.Locals("request_id").(string)
	username, _ := c.Locals("username").(string)

	args := []interface{}{
		"request_id", requestID,
		"username", username,
		"method", c.Method(),
		"path", c.Path(),
		"ip", c.IP(),
		"context", context,
		"error", err,
	}
	ErrorLogger.Println(append(args, metadata...)...)
}
