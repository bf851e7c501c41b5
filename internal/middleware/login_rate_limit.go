package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/conferencer/conferencer/internal/apierror"
	"github.com/conferencer/conferencer/internal/identity"
)

const loginRateLimitPrefix = "rl:login:"

// LoginRateLimit limits login attempts per email, or per client IP when no email is sent.
func LoginRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Email string `json:"email" form:"email" query:"email"`
		}
		if len(c.Body()) > 0 {
			_ = c.BodyParser(&req)
		}
		if req.Email == "" {
			req.Email = c.Query("email")
		}
		subject := identity.NormalizeEmail(req.Email)
		if subject == "" {
			subject = c.IP()
		}

		key := loginRateLimitPrefix + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			// fail open
			logger.Warn("login rate limit unavailable", slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			logger.Info("login rate limited", slog.String("subject", subject), slog.Int64("attempts", cnt))
			return apierror.New(http.StatusTooManyRequests, apierror.CodeTooManyRequests, "Too many login attempts, try again later.")
		}
		return c.Next()
	}
}
