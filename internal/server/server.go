// Package server contains the HTTP handlers and route wiring for the API.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"mumble/internal/auth"
	"mumble/internal/config"
	"mumble/internal/database"
	"mumble/internal/middleware"
	"mumble/internal/models"
	"mumble/internal/notifications"
	"mumble/internal/repository"
	"mumble/internal/service"
	"mumble/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	verifier       auth.Verifier
	store          storage.Storage
	postRepo       repository.PostRepository
	userRepo       repository.UserRepository
	postService    *service.PostService
	userService    *service.UserService
	hub            *notifications.Hub
	notifier       *notifications.Notifier
	dispatcher     *notifications.Dispatcher
}

// NewServer creates a new server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(normalizeRedisURL(cfg.RedisURL))
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
	}

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	verifier, err := newVerifier(cfg, redisClient)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, redisClient, store, verifier)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.Storage, verifier auth.Verifier) (*Server, error) {
	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)

	prom := middleware.InitMetrics("mumble-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		verifier:       verifier,
		store:          store,
		postRepo:       postRepo,
		userRepo:       userRepo,
		hub:            notifications.NewHub(),
	}
	server.postService = service.NewPostService(postRepo, store)
	server.userService = service.NewUserService(userRepo, store)

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}
	server.dispatcher = notifications.NewDispatcher(server.hub, server.notifier)

	return server, nil
}

// newVerifier builds the token verifier for the configured auth mode.
func newVerifier(cfg *config.Config, redisClient *redis.Client) (auth.Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeOIDC:
		if cfg.AuthIssuer == "" {
			return nil, fmt.Errorf("AUTH_ISSUER is required for auth mode %q", cfg.AuthMode)
		}
		return auth.NewIntrospector(cfg.AuthIssuer, cfg.AuthClientID, cfg.AuthClientSecret, redisClient), nil
	case config.AuthModeLocal:
		return auth.NewLocalVerifier(cfg.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

// normalizeRedisURL accepts both full redis:// URLs and bare host:port values.
func normalizeRedisURL(raw string) string {
	if len(raw) >= 8 && (raw[:8] == "redis://" || raw[:9] == "rediss://") {
		return raw
	}
	return "redis://" + raw
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Distributed tracing
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware runs before middlewares that can short-circuit (e.g.
	// limiter) so browser clients still receive CORS headers on errors.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400, // 24 hours
	}))

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
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

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/healthz", s.LivenessCheck)
	app.Get("/healthz/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Locally stored media is served straight from disk.
	if fs, ok := s.store.(*storage.FSStorage); ok {
		app.Get("/media/:name", s.ServeMedia(fs))
	}

	posts := app.Group("/posts")
	// Specific routes before the generic /:id route.
	posts.Get("/_sse", s.OptionalAuth(), s.PostEvents)
	posts.Get("/", s.OptionalAuth(), s.GetPosts)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Get("/:id/replies", s.OptionalAuth(), s.GetReplies)
	posts.Post("/:id/replies", s.AuthRequired(), s.CreateReply)
	posts.Put("/:id/likes", s.AuthRequired(), s.LikePost)
	posts.Delete("/:id/likes", s.AuthRequired(), s.UnlikePost)
	posts.Put("/:id/media", s.AuthRequired(), s.UpdatePostMedia)
	posts.Delete("/:id/media", s.AuthRequired(), s.RemovePostMedia)
	posts.Get("/:id", s.OptionalAuth(), s.GetPost)
	posts.Put("/:id", s.AuthRequired(), s.ReplacePost)
	posts.Patch("/:id", s.AuthRequired(), s.UpdatePostText)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	users := app.Group("/users")
	users.Get("/", s.OptionalAuth(), s.GetUsers)
	users.Patch("/", s.AuthRequired(), s.UpdateProfile)
	users.Put("/avatar", s.AuthRequired(), s.UploadAvatar)
	users.Delete("/avatar", s.AuthRequired(), s.RemoveAvatar)
	users.Get("/:id/followers", s.OptionalAuth(), s.GetFollowers)
	users.Get("/:id/followees", s.OptionalAuth(), s.GetFollowees)
	users.Put("/:id/followers", s.AuthRequired(), s.FollowUser)
	users.Delete("/:id/followers", s.AuthRequired(), s.UnfollowUser)
	users.Get("/:id", s.OptionalAuth(), s.GetUser)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
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
		// Redis is optional; events fall back to in-process delivery.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// ServeMedia streams a locally stored media object.
func (s *Server) ServeMedia(fs *storage.FSStorage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, contentType, err := fs.Open(c.Params("name"))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusNotFound, models.NewPostNotFoundError())
		}
		c.Set(fiber.HeaderContentType, contentType)
		return c.SendStream(file)
	}
}

// newApp builds the Fiber app with the shared error handler.
func (s *Server) newApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   "Mumble API",
		BodyLimit: 8 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fiberErr, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fiberErr.Code, models.NewValidationError(fiberErr.Message))
			}
			return models.RespondWithError(c, models.HTTPStatus(err), err)
		},
	})
}

// Start starts the server and blocks until it stops listening.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.newApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	// Wire the hub to the Redis subscriber if available.
	if err := s.dispatcher.Start(s.shutdownCtx); err != nil {
		return fmt.Errorf("event dispatcher failed to start: %w", err)
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Drop all SSE subscribers so their streams terminate.
	s.hub.Close()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("error closing redis client: %v", err)
		}
	}

	sqlDB, err := s.db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("error closing database: %v", err)
		}
	}

	return nil
}
