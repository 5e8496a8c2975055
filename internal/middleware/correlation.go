package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderCorrelationID carries the correlation id on requests and responses.
const HeaderCorrelationID = "X-Correlation-ID"

const maxCorrelationIDLength = 128

type correlationIDKey struct{}

// CorrelationID accepts a caller supplied X-Correlation-ID (or X-Request-ID)
// and otherwise mints one. The id is echoed on the response, stored in the
// correlation_id local and bound to the request's user context so audit
// entries and logs for one staff decision can be joined.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := sanitizeCorrelationID(c.Get(HeaderCorrelationID))
		if id == "" {
			id = sanitizeCorrelationID(c.Get(fiber.HeaderXRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals("correlation_id", id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))

		return c.Next()
	}
}

func sanitizeCorrelationID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) > maxCorrelationIDLength || strings.ContainsAny(id, "\r\n") {
		return ""
	}
	return id
}

// CorrelationIDFromContext extracts the correlation id from ctx, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation id bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok && id != "" {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation attaches the correlation id to ctx.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}
