package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

// Roles carried in the token's role claim.
const (
	AuthRoleStudent = "student"
	AuthRoleAdmin   = "admin"
	AuthRoleStaff   = "staff"
)

// RequireRole ensures an authenticated caller holds one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if c.Locals("user_id") == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		role, _ := c.Locals("user_role").(string)
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return c.Next()
	}
}

// RequireStudent admits students only.
func RequireStudent() fiber.Handler {
	return RequireRole(AuthRoleStudent)
}

// RequireStaff admits hostel administrators and staff.
func RequireStaff() fiber.Handler {
	return RequireRole(AuthRoleAdmin, AuthRoleStaff)
}
