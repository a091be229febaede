package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"navlens/internal/tokens"
)

const authCookieName = "auth_token"

// SessionKey is the fiber locals key the verified auth session is stored
// under for downstream handlers.
const SessionKey = "authSession"

// RequireAuth rejects requests without a valid encrypted session cookie.
// A decrypt failure or expiry is an authentication failure, never a
// fallthrough.
func RequireAuth(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := tokens.ReadAuthToken(c.Cookies(authCookieName))
		if err != nil {
			logger.Debug("Rejected unauthenticated request",
				slog.String("path", c.Path()),
				slog.Any("error", err))
			return c.Status(fiber.StatusUnauthorized).SendString("unauthorized")
		}
		c.Locals(SessionKey, session)
		return c.Next()
	}
}

// RequireAdmin rejects authenticated requests whose session lacks the
// admin role. Must run after RequireAuth.
func RequireAdmin(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := SessionFromLocals(c)
		if session == nil || session.Role != "admin" {
			logger.Debug("Rejected non-admin request", slog.String("path", c.Path()))
			return c.Status(fiber.StatusForbidden).SendString("forbidden")
		}
		return c.Next()
	}
}

// SessionFromLocals returns the auth session stored by RequireAuth, nil
// when absent.
func SessionFromLocals(c *fiber.Ctx) *tokens.AuthSession {
	session, _ := c.Locals(SessionKey).(*tokens.AuthSession)
	return session
}
