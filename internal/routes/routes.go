package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/conferencer/conferencer/internal/auth"
	"github.com/conferencer/conferencer/internal/config"
	"github.com/conferencer/conferencer/internal/identity"
	"github.com/conferencer/conferencer/internal/logging"
	"github.com/conferencer/conferencer/internal/middleware"
	"github.com/conferencer/conferencer/internal/notification"
)

const greeting = "Greetings from Conferencer!"

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Users overrides the repository chosen from DB. Tests use it to inject a store.
	Users identity.Repository
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if !d.Cfg.IsDev() {
		if d.DB == nil && d.Users == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))
	app.Use(cors.New(corsConfig(d.Cfg)))

	users := d.Users
	if users == nil {
		if d.DB != nil {
			users = identity.NewPostgresRepository(d.DB)
		} else {
			d.Logger.Warn("no DATABASE_URL configured, using in-memory credential store")
			users = identity.NewMemoryRepository()
		}
	}

	issuer, err := auth.NewIssuer(d.Cfg.JWTSecret, d.Cfg.TokenTTL, auth.WithIssuerName(d.Cfg.TokenIssuer))
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	authSvc, err := auth.NewService(
		users,
		auth.NewBcryptHasher(d.Cfg.BcryptCost),
		issuer,
		notification.NewLoggerNotifier(d.Logger),
		d.Logger,
	)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).SendString(greeting)
	})
	RegisterHealthRoutes(app, d)
	RegisterAuthRoutes(app, AuthRoutes{
		Handler:     auth.NewHandler(authSvc),
		RateLimiter: middleware.LoginRateLimit(d.Cache, d.Cfg.LoginAttemptsPerMinute, d.Logger),
		Idempotency: middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		Bearer:      middleware.JWTAuth(issuer),
	})

	return nil
}

func corsConfig(cfg config.Config) cors.Config {
	c := cors.Config{
		AllowMethods: strings.Join([]string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete, fiber.MethodOptions,
		}, ","),
		AllowHeaders: strings.Join([]string{
			fiber.HeaderContentType, fiber.HeaderAuthorization, fiber.HeaderCacheControl,
			fiber.HeaderXRequestedWith, "Idempotency-Key", "X-Request-ID",
		}, ","),
		ExposeHeaders: "X-Request-ID",
		MaxAge:        3600,
	}
	if cfg.AllowsAnyOrigin() {
		c.AllowOrigins = "*"
		return c
	}
	c.AllowOrigins = strings.Join(cfg.CORSAllowOrigins, ",")
	c.AllowCredentials = true
	return c
}
