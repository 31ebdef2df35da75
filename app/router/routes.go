// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/app/handlers"
	"github.com/amirphl/parts-pricing/app/middleware"
	"github.com/amirphl/parts-pricing/config"
	_ "github.com/amirphl/parts-pricing/docs"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
)

const (
	apiPrefix  = "/api/v1"
	healthPath = apiPrefix + "/health"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Auth         *handlers.AuthHandler
	Parts        *handlers.PartHandler
	Formulas     *handlers.FormulaHandler
	DeviceModels *handlers.DeviceModelHandler
	Pricing      *handlers.PricingHandler
	Import       *handlers.ImportHandler
	Users        *handlers.UserHandler
}

// HealthProbe reports whether a dependency is reachable
type HealthProbe func(ctx context.Context) error

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.ProductionConfig
	auth     *middleware.AuthMiddleware
	handlers Handlers
	probes   map[string]HealthProbe
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, auth *middleware.AuthMiddleware, h Handlers, probes map[string]HealthProbe) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Parts Pricing API",
		ServerHeader: "Parts-Pricing",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
	})

	return &FiberRouter{
		app:      app,
		cfg:      cfg,
		auth:     auth,
		handlers: h,
		probes:   probes,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group(apiPrefix)

	api.Get("/health", r.healthCheck)
	api.Get("/swagger.json", r.serveSwaggerJSON)
	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api.Use(r.rateLimiter(r.cfg.Security.GlobalRateLimit, func(c fiber.Ctx) bool {
		return c.Path() == healthPath
	}))

	auth := api.Group("/auth")
	auth.Use(r.rateLimiter(r.cfg.Security.AuthRateLimit, nil))
	auth.Post("/token", r.handlers.Auth.Login)
	auth.Post("/refresh", r.handlers.Auth.Refresh)
	auth.Get("/captcha", r.handlers.Auth.Captcha)

	// Everything below requires a valid access token and an active account
	authenticated := r.auth.RequirePermission("")
	protected := api.Group("", r.auth.Authenticate())

	protected.Get("/me", authenticated, r.handlers.Auth.Me)
	protected.Get("/detect-samsung", authenticated, r.handlers.Parts.DetectDevice)
	protected.Post("/calculate-price", authenticated, r.handlers.Pricing.Calculate)

	manageParts := r.auth.RequirePermission(models.PermManageParts)
	parts := protected.Group("/parts")
	parts.Get("/", authenticated, r.handlers.Parts.List)
	parts.Get("/count", authenticated, r.handlers.Parts.Count)
	parts.Get("/device-options", authenticated, r.handlers.Parts.DeviceOptions)
	parts.Get("/export", authenticated, r.handlers.Parts.Export)
	parts.Post("/companions", authenticated, r.handlers.Parts.Companions)
	parts.Post("/bulk/empty-stock", manageParts, r.handlers.Parts.EmptyStock)
	parts.Post("/bulk/delete", manageParts, r.handlers.Parts.DeleteMatching)
	parts.Post("/reannotate", manageParts, r.handlers.Parts.Reannotate)
	parts.Post("/", manageParts, r.handlers.Parts.Create)
	parts.Get("/:id", authenticated, r.handlers.Parts.Get)
	parts.Put("/:id", manageParts, r.handlers.Parts.Update)
	parts.Delete("/:id", manageParts, r.handlers.Parts.Delete)

	manageFormulas := r.auth.RequirePermission(models.PermManageFormulas)
	formulas := protected.Group("/formulas")
	formulas.Get("/", authenticated, r.handlers.Formulas.List)
	formulas.Post("/auto-select", authenticated, r.handlers.Formulas.AutoSelect)
	formulas.Post("/", manageFormulas, r.handlers.Formulas.Create)
	formulas.Get("/:id", authenticated, r.handlers.Formulas.Get)
	formulas.Put("/:id", manageFormulas, r.handlers.Formulas.Update)
	formulas.Delete("/:id", manageFormulas, r.handlers.Formulas.Delete)

	manageModels := r.auth.RequirePermission(models.PermManageSamsungModels)
	devices := protected.Group("/samsung-models")
	devices.Get("/", authenticated, r.handlers.DeviceModels.List)
	devices.Post("/seed", manageModels, r.handlers.DeviceModels.Seed)
	devices.Post("/", manageModels, r.handlers.DeviceModels.Create)
	devices.Get("/:id", authenticated, r.handlers.DeviceModels.Get)
	devices.Put("/:id", manageModels, r.handlers.DeviceModels.Update)
	devices.Delete("/:id", manageModels, r.handlers.DeviceModels.Delete)

	protected.Post("/upload-excel", r.auth.RequirePermission(models.PermUploadExcel), r.handlers.Import.UploadExcel)

	users := protected.Group("/admin/users", r.auth.RequirePermission(models.PermManageUsers))
	users.Get("/", r.handlers.Users.List)
	users.Post("/", r.handlers.Users.Create)
	users.Get("/:id", r.handlers.Users.Get)
	users.Put("/:id", r.handlers.Users.Update)
	users.Delete("/:id", r.handlers.Users.Delete)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	sec := r.cfg.Security

	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             sec.XFrameOptions,
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            sec.ReferrerPolicy,
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     sec.AllowedOrigins,
		AllowMethods:     sec.AllowedMethods,
		AllowHeaders:     sec.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: sec.AllowCredentials,
		MaxAge:           sec.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics(r.cfg.Metrics.Path))
	}

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath
			},
		}))
	}

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				requestid.FromContext(c),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// rateLimiter limits requests per client IP within the configured window
func (r *FiberRouter) rateLimiter(max int, next func(c fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: next,
	})
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting connections and waits for in-flight requests
func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// healthCheck reports service health. Any failing probe turns the response into a 503.
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	checks := make(fiber.Map, len(r.probes))
	healthy := true
	for name, probe := range r.probes {
		if err := probe(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status, state, message := fiber.StatusOK, "ok", "Service is healthy"
	if !healthy {
		status, state, message = fiber.StatusServiceUnavailable, "degraded", "Service is degraded"
	}
	return c.Status(status).JSON(dto.APIResponse{
		Success: healthy,
		Message: message,
		Data: fiber.Map{
			"status":    state,
			"timestamp": utils.UTCNow().Unix(),
			"service":   "parts-pricing-api",
			"checks":    checks,
		},
	})
}

// serveSwaggerJSON serves the OpenAPI document registered by the docs package
func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.SendString(doc)
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errCode = fmt.Sprintf("HTTP_%d", code)
		}
	}

	log.Printf("Error %d: %v", code, err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}
