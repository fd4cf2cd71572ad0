package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/eyetracktask/eyetrack/docs"
	httpHandlers "github.com/eyetracktask/eyetrack/internal/adapters/http"
	"github.com/eyetracktask/eyetrack/internal/adapters/storage"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/config"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// HealthChecker is a dependency probed by the readiness endpoint
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies are the services the server routes to
type Dependencies struct {
	Auth    ports.AuthService
	Board   ports.BoardService
	Profile ports.ProfileService
	Storage ports.ObjectStorage
	Metrics *Metrics
	// Checks are probed by /ready, keyed by name.
	Checks map[string]HealthChecker
}

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	deps   Dependencies
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = &CustomValidator{validator: validator.New()}

	templates, err := httpHandlers.NewTemplates()
	if err != nil {
		return nil, err
	}
	e.Renderer = templates

	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = customErrorHandler(appLogger)

	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		deps:   deps,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			s.logger.LogHTTPRequest(logger.HTTPRequest{
				Method:    values.Method,
				URI:       values.URI,
				Status:    values.Status,
				Latency:   values.Latency,
				RemoteIP:  values.RemoteIP,
				UserAgent: values.UserAgent,
				RequestID: values.RequestID,
				Err:       values.Error,
			})
			return nil
		},
	}))

	if s.config.Metrics.Enabled {
		s.echo.Use(s.deps.Metrics.Middleware)
	}

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	if s.config.Security.RateLimitRequests > 0 {
		window := s.config.Security.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/health" || c.Path() == "/ready" || c.Path() == "/metrics"
			},
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(float64(s.config.Security.RateLimitRequests) / window.Seconds()),
					Burst:     s.config.Security.RateLimitRequests,
					ExpiresIn: window,
				},
			),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return c.JSON(http.StatusForbidden, ports.ErrorResponse{Message: "rate limit exceeded"})
			},
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return c.JSON(http.StatusTooManyRequests, ports.ErrorResponse{Message: "rate limit exceeded"})
			},
		}))
	}

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	s.echo.Use(middleware.BodyLimit(fmt.Sprintf("%dK", s.bodyLimitKB())))
}

func (s *Server) bodyLimitKB() int64 {
	limit := s.config.Storage.MaxUploadSize
	if limit <= 0 {
		limit = 10 << 20
	}
	// multipart framing
	return limit/1024 + 64
}

func (s *Server) cookie() httpHandlers.SessionCookie {
	return httpHandlers.SessionCookie{
		Name:   s.config.JWT.CookieName,
		MaxAge: s.config.JWT.ExpiresIn,
		Secure: s.config.App.Environment == "production",
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	authHandler := httpHandlers.NewAuthHandler(s.deps.Auth, s.cookie(), s.logger)
	boardHandler := httpHandlers.NewBoardHandler(s.deps.Board, s.logger)
	profileHandler := httpHandlers.NewProfileHandler(s.deps.Profile, s.config.Storage.MaxUploadSize, s.logger)
	storageHandler := httpHandlers.NewStorageHandler(s.deps.Storage)
	pageHandler := httpHandlers.NewPageHandler(s.deps.Auth, s.deps.Board, s.deps.Profile, s.cookie(), s.logger)

	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)
	if s.config.Metrics.Enabled {
		s.echo.GET("/metrics", s.deps.Metrics.Handler())
	}
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	s.echo.GET(storage.PublicPrefix+":bucket/*", storageHandler.Object)

	// Pages
	pages := s.echo.Group("", s.pageMiddleware(s.deps.Auth))
	pages.GET("/", pageHandler.Board)
	pages.GET("/calendar", pageHandler.Calendar)
	pages.GET("/profile", pageHandler.Profile)
	pages.POST("/logout", pageHandler.Logout)
	pages.GET("/login", pageHandler.Login)
	pages.POST("/login", pageHandler.LoginSubmit)
	pages.GET("/auth/callback", authHandler.Callback)
	pages.GET("/auth/auth-code-error", pageHandler.AuthCodeError)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	requireAuth := s.authMiddleware(s.deps.Auth)

	authGroup := v1.Group("/auth")
	authGroup.POST("/signup", authHandler.SignUp)
	authGroup.POST("/signin", authHandler.SignIn)
	authGroup.POST("/signout", authHandler.SignOut, requireAuth)

	v1.GET("/board", boardHandler.GetBoard, requireAuth)
	v1.GET("/calendar", boardHandler.Calendar, requireAuth)

	projectGroup := v1.Group("/projects", requireAuth)
	projectGroup.POST("", boardHandler.CreateProject)
	projectGroup.PATCH("/:id", boardHandler.UpdateProject)
	projectGroup.DELETE("/:id", boardHandler.DeleteProject)
	projectGroup.POST("/:id/icon", profileHandler.UploadProjectIcon)

	taskGroup := v1.Group("/tasks", requireAuth)
	taskGroup.POST("", boardHandler.CreateTask)
	taskGroup.PATCH("/:id", boardHandler.UpdateTask)
	taskGroup.DELETE("/:id", boardHandler.DeleteTask)

	subTaskGroup := v1.Group("/subtasks", requireAuth)
	subTaskGroup.POST("", boardHandler.CreateSubTask)
	subTaskGroup.PATCH("/:id", boardHandler.UpdateSubTask)
	subTaskGroup.DELETE("/:id", boardHandler.DeleteSubTask)

	profileGroup := v1.Group("/profile", requireAuth)
	profileGroup.GET("", profileHandler.GetProfile)
	profileGroup.PATCH("", profileHandler.UpdateProfile)
	profileGroup.POST("/avatar", profileHandler.UploadAvatar)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.Checks))
	ready := true
	for name, checker := range s.deps.Checks {
		if err := checker.HealthCheck(ctx); err != nil {
			s.logger.Warnw("Readiness check failed", "check", name, "error", err)
			checks[name] = "error"
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	response := map[string]interface{}{
		"status":  "ready",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"checks":  checks,
		"version": s.config.App.Version,
	}
	if !ready {
		response["status"] = "not_ready"
		return c.JSON(http.StatusServiceUnavailable, response)
	}
	return c.JSON(http.StatusOK, response)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
	s.logger.Infow("Starting server", "address", srv.Addr)

	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler renders every error as {"message": ...}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = fmt.Sprint(he.Message)
			if he.Internal != nil {
				err = fmt.Errorf("%v, %w", err, he.Internal)
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, ports.ErrorResponse{Message: msg})
		}
		if err != nil {
			logger.Errorw("Error sending response", "error", err)
		}
	}
}
