package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/conferencer/conferencer/internal/apierror"
	"github.com/conferencer/conferencer/internal/auth"
	"github.com/conferencer/conferencer/internal/identity"
)

const subjectLocal = "subject"

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// JWTAuth rejects requests without a valid bearer token. The token subject is
// stored as the request actor so downstream writes are attributed to it.
func JWTAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return apierror.Unauthorized("missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := verifier.Verify(tokenStr)
		if err != nil {
			return apierror.Unauthorized("invalid token")
		}

		c.SetUserContext(identity.WithActor(c.UserContext(), claims.Subject))
		c.Locals(subjectLocal, claims.Subject)
		return c.Next()
	}
}

// Subject returns the authenticated subject set by JWTAuth.
func Subject(c *fiber.Ctx) string {
	subject, _ := c.Locals(subjectLocal).(string)
	return subject
}
