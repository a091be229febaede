package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "navlens/api/v1"
	"navlens/internal/config"
	"navlens/internal/http"
	"navlens/internal/http/middleware"
)

// publicCORSConfig is the CORS setup shared by all public endpoints. The
// collect endpoint must accept beacons from any tracked origin.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Rate limiting only applies in production; in development and test
	// it would interfere with seeding and test runs.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Collect endpoint: 70 requests per minute per IP covers legitimate
	// beacon traffic while capping abuse.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Stricter limit on login to slow brute forcing.
	authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	logger := srv.GetLogger()

	authConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{middleware.RequireAuth(logger)},
	}
	adminConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{
			middleware.RequireAuth(logger),
			middleware.RequireAdmin(logger),
		},
	}
	loginConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{authRateLimiter},
	}

	// Health check
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// Public ingestion endpoint
	srv.Get("/api/collect", v1.CollectHandler, publicAPIConfig)
	srv.Post("/api/collect", v1.CollectHandler, publicAPIConfig)
	srv.Options("/api/collect", v1.CollectHandler, publicAPIConfig)

	// Authentication
	srv.Post("/api/auth/login", http.LoginAction, loginConfig)
	srv.Get("/api/auth/verify", http.VerifyAction)
	srv.Post("/api/auth/logout", http.LogoutAction)

	// Dashboard metrics API
	srv.Get("/api/metrics/:id/pages", http.MetricsPagesAction, authConfig)
	srv.Get("/api/metrics/:id/vitals", http.MetricsVitalsAction, authConfig)
	srv.Get("/api/metrics/:id/vitals/summary", http.MetricsVitalsSummaryAction, authConfig)
	srv.Get("/api/metrics/:id/errors", http.MetricsErrorsAction, authConfig)
	srv.Get("/api/metrics/:id/trend", http.MetricsTrendAction, authConfig)
	srv.Get("/api/metrics/:id/location", http.MetricsLocationAction, authConfig)
	srv.Get("/api/metrics/:id/sessions/:fp", http.MetricsSessionAction, authConfig)

	// Site registry
	srv.Get("/api/sites", http.SitesIndexAction, authConfig)
	srv.Post("/api/sites", http.SiteCreateAction, adminConfig)

	// Account management
	srv.Get("/api/users", http.UsersIndexAction, adminConfig)
	srv.Post("/api/users", http.UserCreateAction, adminConfig)
	srv.Delete("/api/users/:id", http.UserDeleteAction, adminConfig)
	srv.Post("/api/account/change-password", http.ChangePasswordAction, authConfig)
}
