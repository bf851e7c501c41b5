package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/conferencer/conferencer/internal/auth"
)

// AuthRoutes bundles the auth handler with the middleware guarding its endpoints.
type AuthRoutes struct {
	Handler     *auth.Handler
	RateLimiter fiber.Handler
	Idempotency fiber.Handler
	Bearer      fiber.Handler
}

// RegisterAuthRoutes wires signup, login and profile endpoints under /auth.
func RegisterAuthRoutes(r fiber.Router, a AuthRoutes) {
	group := r.Group("/auth")
	group.Post("/signup", chain(a.Idempotency, a.Handler.Signup)...)
	group.Post("/login", chain(a.RateLimiter, a.Handler.Login)...)
	group.Get("/me", chain(a.Bearer, a.Handler.Me)...)
}

func chain(mw fiber.Handler, h fiber.Handler) []fiber.Handler {
	if mw == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{mw, h}
}
