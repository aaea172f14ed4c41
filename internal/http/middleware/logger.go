package middleware

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is a middleware that logs each HTTP request in JSON format to stdout.
// Fields:
// - ts (RFC3339Nano in loc)
// - request_id (taken from context locals set by RequestID middleware)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
// - user_id (when the request carried a valid bearer token)
func Logger(loc *time.Location) fiber.Handler {
	return LoggerWithWriter(os.Stdout, loc)
}

// LoggerWithWriter is Logger writing to w.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	if loc == nil {
		loc = time.UTC
	}
	// One JSON object per line; Encoder is not safe for concurrent use.
	enc := json.NewEncoder(w)
	var mu sync.Mutex

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		entry := map[string]any{
			"ts":         time.Now().In(loc).Format(time.RFC3339Nano),
			"request_id": RequestIDFrom(c),
			"method":     c.Method(),
			// Only the path segment, no query string.
			"path":    c.Path(),
			"status":  status,
			"latency": float64(time.Since(start).Microseconds()) / 1000,
		}
		if p := PrincipalFrom(c); p != nil {
			entry["user_id"] = p.UserID
		}

		mu.Lock()
		_ = enc.Encode(entry)
		mu.Unlock()

		return err
	}
}
