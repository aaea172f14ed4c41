// Package logging emits one JSON object per line for lifecycle and domain events.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

type requestIDKey struct{}

var (
	mu     sync.Mutex
	logger = log.New(os.Stdout, "", 0)
)

// SetOutput redirects event logs. Intended for tests and tooling.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", 0)
}

// JSON writes data as a single JSON line. It stamps "ts" in loc and derives
// "level" from "status" when the caller did not set one.
func JSON(loc *time.Location, data map[string]any) {
	if loc == nil {
		loc = time.UTC
	}
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}

	mu.Lock()
	defer mu.Unlock()
	logger.Println(string(b))
}

// Error logs an error event for component.
func Error(loc *time.Location, component, event string, err error, fields map[string]any) {
	data := map[string]any{
		"component":     component,
		"event":         event,
		"status":        "error",
		"error_message": err.Error(),
	}
	for k, v := range fields {
		data[k] = v
	}
	JSON(loc, data)
}

// WithRequestID returns a context carrying the HTTP request id so events
// logged further down can be correlated with the access log.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
