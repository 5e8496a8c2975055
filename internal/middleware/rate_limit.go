package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

// RateLimit throttles write requests per caller. Callers are keyed by their
// user id, falling back to the client IP for anonymous traffic. Reads pass
// through untouched.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, ok := c.Locals("user_id").(uint); ok && id != 0 {
				return identifier + ":user:" + strconv.FormatUint(uint64(id), 10)
			}
			return identifier + ":ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests, try again later")
		},
	})
}
