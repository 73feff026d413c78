package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"authapi_backend/database"
	"authapi_backend/internal/auth"
	"authapi_backend/internal/config"
	"authapi_backend/internal/email"
	"authapi_backend/internal/handlers"
	"authapi_backend/internal/logger"
	"authapi_backend/internal/metrics"
	"authapi_backend/internal/middleware"
	"authapi_backend/internal/repositories"
	"authapi_backend/internal/routes"
	"authapi_backend/internal/services"
	"authapi_backend/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Dependencies - внешние зависимости роутера. Тесты подставляют память и RecordingProvider.
type Dependencies struct {
	UserRepo      repositories.UserRepository
	EmailProvider email.Provider
	// Registry may be nil, then no metrics are recorded or exposed.
	Registry    *prometheus.Registry
	RateLimiter *middleware.RateLimiter
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	userRepo, closeDB, err := OpenUserRepository(cfg)
	if err != nil {
		logger.Fatal("Failed to open user storage", "error", err)
	}
	defer closeDB()

	provider, err := NewEmailProvider(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize email provider", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := Dependencies{
		UserRepo:      userRepo,
		EmailProvider: provider,
		Registry:      registry,
	}
	if cfg.RateLimit.Enabled {
		deps.RateLimiter = middleware.NewRateLimiter(
			middleware.NewRateLimiterConfig(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))
		defer deps.RateLimiter.Stop()
	}

	ginRouter, err := SetupRouter(cfg, deps)
	if err != nil {
		logger.Fatal("Failed to set up router", "error", err)
	}

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: ginRouter,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
		return
	}
	logger.Info("Server stopped")
}

func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	var collector metrics.MetricsCollector = metrics.Nop{}
	if deps.Registry != nil {
		collector = metrics.NewCollector(deps.Registry)
	}

	// 1. Инициализируем сервисы
	serviceContainer, err := initializeServices(cfg, deps, collector)
	if err != nil {
		return nil, err
	}

	// 2. Инициализируем хэндлеры
	appHandlers := initializeHandlers(serviceContainer)

	// 3. Инициализируем Gin
	ginRouter := initializeGinRouter(cfg, deps, collector)

	// 4. Регистрация маршрутов
	var metricsHandler http.Handler
	if deps.Registry != nil {
		metricsHandler = metrics.Handler(deps.Registry)
	}
	routes.RegisterRoutes(ginRouter, appHandlers, metricsHandler)

	return ginRouter, nil
}

func initializeServices(cfg *config.Config, deps Dependencies, collector metrics.MetricsCollector) (*services.ServiceContainer, error) {
	templates, err := email.NewTemplateManager()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	if cfg.Email.TemplatesDir != "" {
		if err := templates.LoadTemplates(cfg.Email.TemplatesDir); err != nil {
			return nil, fmt.Errorf("failed to load email templates from %s: %w", cfg.Email.TemplatesDir, err)
		}
	}

	sessions := auth.NewSessionIssuer(auth.SessionConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshSecret: cfg.JWT.RefreshSecret,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	})

	return services.NewServiceContainer(services.Dependencies{
		UserRepo: deps.UserRepo,
		Sessions: sessions,
		Links: auth.LinkBuilder{
			AccountConfirmation:     cfg.Links.AccountConfirmation,
			EmailChangeConfirmation: cfg.Links.EmailChangeConfirmation,
			ResetPassword:           cfg.Links.ResetPassword,
		},
		Notifier: email.NewMailer(deps.EmailProvider, templates, cfg.Links.ProjectName),
		Metrics:  collector,
	}), nil
}

func initializeHandlers(services *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:  handlers.NewAuthHandler(baseHandler, services.AuthService),
		UserHandler:  handlers.NewUserHandler(baseHandler, services.UserService, services.AuthService),
		AdminHandler: handlers.NewAdminHandler(baseHandler, services.AuthService),
	}
}

func initializeGinRouter(cfg *config.Config, deps Dependencies, collector metrics.MetricsCollector) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware(collector))
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}
	router.Use(middleware.TimeoutMiddleware(cfg.Server.RequestTimeout))
	return router
}

// OpenUserRepository выбирает хранилище по database.driver. Возвращает функцию закрытия соединения.
func OpenUserRepository(cfg *config.Config) (repositories.UserRepository, func(), error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory user storage, data is lost on restart")
		return repositories.NewMemoryUserRepository(), func() {}, nil
	}

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(gormDB); err != nil {
		return nil, nil, err
	}
	logger.Info("Database connected")

	closeFn := func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return repositories.NewUserRepository(gormDB), closeFn, nil
}

// NewEmailProvider - smtp или log по email.driver
func NewEmailProvider(cfg *config.Config) (email.Provider, error) {
	switch cfg.Email.Driver {
	case "smtp":
		return email.NewSMTPProvider(&email.SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
			UseSSL:    cfg.Email.UseSSL,
			Timeout:   cfg.Email.SendTimeout,
		})
	case "log", "":
		logger.Warn("Email delivery disabled, using log provider")
		return email.NewLogProvider(logger.GetLogger()), nil
	default:
		return nil, fmt.Errorf("unsupported email driver %q", cfg.Email.Driver)
	}
}
