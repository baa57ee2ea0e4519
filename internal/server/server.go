// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "amor/docs" // swagger docs
	"amor/internal/bootstrap"
	"amor/internal/config"
	"amor/internal/featureflags"
	"amor/internal/middleware"
	"amor/internal/models"
	"amor/internal/notifications"
	"amor/internal/objectstore"
	"amor/internal/observability"
	"amor/internal/repository"
	"amor/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultRateLimitPerMinute = 100

// Server holds all dependencies and provides handlers
type Server struct {
	config              *config.Config
	db                  *gorm.DB
	redis               *redis.Client
	app                 *fiber.App
	promMiddleware      *fiberprometheus.FiberPrometheus
	shutdownCtx         context.Context
	shutdownFn          context.CancelFunc
	userRepo            repository.UserRepository
	store               objectstore.Store
	notifier            *notifications.Notifier
	hub                 *notifications.Hub
	featureFlags        *featureflags.Manager
	limiter             *middleware.Limiter
	userService         *service.UserService
	groupService        *service.GroupService
	notificationService *service.NotificationService
}

// NewServer connects to the database and Redis and builds a Server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{
		SeedDemo: cfg.SeedDemo && !cfg.IsProduction(),
	})
	if err != nil {
		return nil, fmt.Errorf("runtime init failed: %w", err)
	}

	store := objectstore.NewDiskStore(cfg.ObjectStoreDir, cfg.ObjectStoreBaseURL, objectstore.Constraints{
		MinFiles:     cfg.UploadMinFiles,
		MaxFiles:     cfg.UploadMaxFiles,
		MaxFileBytes: cfg.UploadMaxFileBytes(),
	})

	return NewServerWithDeps(cfg, db, rdb, store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store objectstore.Store) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}

	userRepo := repository.NewUserRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("amor-api"),
		userRepo:       userRepo,
		store:          store,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		limiter:        middleware.NewLimiter(redisClient, middleware.LimitsEnabled(cfg.Env)),
		notifier:       notifications.NewNotifier(redisClient),
	}
	if redisClient != nil {
		server.hub = notifications.NewHub()
	}

	server.userService = service.NewUserService(userRepo)
	server.notificationService = service.NewNotificationService(repository.NewNotificationRepository(db))
	server.groupService = service.NewGroupService(
		repository.NewGroupRepository(db),
		store,
		server.notifier,
		server.userService.IsAdmin,
		service.GroupServiceOptions{
			Cooldown:  cfg.ReviewCooldown,
			BatchSize: cfg.ReviewBatchSize,
			Constraints: objectstore.Constraints{
				MinFiles:     cfg.UploadMinFiles,
				MaxFiles:     cfg.UploadMaxFiles,
				MaxFileBytes: cfg.UploadMaxFileBytes(),
			},
			StampViews: func(userID uint) bool {
				return server.featureFlags.Enabled(featureflags.ReviewViewStamp, userID)
			},
		},
	)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	if s.config.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global per-IP limit; endpoint rules are layered on top in SetupRoutes.
	perMinute := s.config.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = defaultRateLimitPerMinute
	}
	app.Use(limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Amor Backend Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Stored images, read-only
	if disk, ok := s.store.(*objectstore.DiskStore); ok {
		app.Static("/media", disk.Dir(), fiber.Static{
			Browse:        false,
			MaxAge:        86400,
			CacheDuration: time.Hour,
		})
	}

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", s.limiter.Handler(middleware.Rule{Resource: "signup", Limit: 3, Window: 10 * time.Minute}), s.Signup)
	auth.Post("/login", s.limiter.Handler(middleware.Rule{Resource: "login", Limit: 10, Window: 5 * time.Minute, Policy: middleware.FailClosed}), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/session", s.Session)

	// Public group routes
	groups := api.Group("/groups")
	groups.Get("/random", s.RandomGroup)
	groups.Get("/:id", s.GetGroup)

	// Registered before the protected group so a ticket is only checked once.
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())

	protected := api.Group("", s.AuthRequired())
	protected.Post("/groups", s.limiter.Handler(middleware.Rule{Resource: "create_group", Limit: 10, Window: time.Hour}), s.CreateGroup)

	notes := protected.Group("/notifications")
	notes.Get("/", s.GetNotifications)
	notes.Delete("/", s.ClearNotifications)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Put("/feature-flags/:name", s.SetFeatureFlag)
	admin.Get("/groups/unapproved", s.GetUnapprovedGroups)
	admin.Post("/groups/:id/approve", s.ApproveGroup)
	admin.Post("/groups/:id/deny", s.DenyGroup)

	// Page state
	app.Get("/", s.LandingPage)
	app.Get("/roll", s.RollPage)
	app.Get("/admin", s.AdminPage)
	app.Get("/:id<int>", s.GroupPage)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "amor",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// errorHandler answers unhandled handler errors. Server-side failures are reported to Sentry.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	if status < fiber.StatusInternalServerError {
		return c.Status(status).JSON(models.ErrorResponse{Error: fe.Message})
	}

	observability.RecordErrorInContext(c.UserContext(), err)
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled server error",
		"method", c.Method(),
		"path", c.Path(),
		"error", err,
	)
	return models.RespondWithError(c, status, models.NewInternalError(err))
}

// NewApp builds the fiber app with middleware and routes attached.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Amor API",
		BodyLimit:    (s.config.UploadMaxFiles + 1) * int(s.config.UploadMaxFileBytes()),
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.hub != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start notification wiring", "hub", s.hub.Name(), "error", err)
		}
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
