package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/hostel-allocation-api/internal/utils"
)

// Claims is the bearer token payload. Subject holds the student id for
// students and the staff id for admin and staff users.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var (
	errMissingSubject = errors.New("token subject missing")
	errUnknownRole    = errors.New("token role not recognised")
)

// UserID parses the numeric subject.
func (c Claims) UserID() (uint, error) {
	subject := strings.TrimSpace(c.Subject)
	if subject == "" {
		return 0, errMissingSubject
	}
	parsed, err := strconv.ParseUint(subject, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errMissingSubject
	}
	return uint(parsed), nil
}

// NormalizedRole lower-cases the role and rejects roles the API does not serve.
func (c Claims) NormalizedRole() (string, error) {
	role := strings.ToLower(strings.TrimSpace(c.Role))
	switch role {
	case AuthRoleStudent, AuthRoleAdmin, AuthRoleStaff:
		return role, nil
	default:
		return "", errUnknownRole
	}
}

// JWTProtected validates HS256 bearer tokens and stores the caller's id and
// role in the user_id and user_role locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if len(authorization) <= len(bearer) || strings.ToLower(authorization[:len(bearer)]) != bearer {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		var claims Claims
		token, err := parser.ParseWithClaims(strings.TrimSpace(authorization[len(bearer):]), &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, err := claims.UserID()
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		role, err := claims.NormalizedRole()
		if err != nil {
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		}

		c.Locals("user_id", userID)
		c.Locals("user_role", role)

		return c.Next()
	}
}
