package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/spendwise/internal/auth"
	"github.com/BradenHooton/spendwise/internal/background"
	"github.com/BradenHooton/spendwise/internal/config"
	"github.com/BradenHooton/spendwise/internal/database"
	"github.com/BradenHooton/spendwise/internal/handlers"
	middlewareCustom "github.com/BradenHooton/spendwise/internal/middleware"
	"github.com/BradenHooton/spendwise/internal/models"
	"github.com/BradenHooton/spendwise/internal/notification"
	"github.com/BradenHooton/spendwise/internal/notification/templates"
	"github.com/BradenHooton/spendwise/internal/repositories"
	"github.com/BradenHooton/spendwise/internal/routes"
	"github.com/BradenHooton/spendwise/internal/services"
	pkgauth "github.com/BradenHooton/spendwise/pkg/auth"
	pkghttp "github.com/BradenHooton/spendwise/pkg/http"
	pkglogger "github.com/BradenHooton/spendwise/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		database.SetMigrationLogger(logger)
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Session store
	var store auth.Store
	if cfg.Redis.URL != "" {
		redisCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := auth.NewRedisClient(redisCtx, cfg.Redis.URL)
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Close()
		store = auth.NewRedisStore(client)
	} else {
		logger.Warn("REDIS_URL not set, sessions are kept in memory")
		store = auth.NewMemoryStore()
	}

	cookieConfig := auth.CookieConfig{Secure: cfg.Session.CookieSecure, SameSite: "lax"}
	sessionManager := auth.NewManager(store, auth.NewCookieSigner(cfg.Session.Secret), auth.ManagerConfig{
		CookieName:         cfg.Session.CookieName,
		IdleTimeout:        cfg.Session.IdleTimeout,
		RegenerateInterval: cfg.Session.RegenerateInterval,
		Cookie:             cookieConfig,
	}, logger)
	rememberCookie := auth.RememberCookie{
		Name:   cfg.Session.RememberCookieName,
		TTL:    cfg.Session.RememberMeTTL,
		Config: cookieConfig,
	}

	// Email delivery
	senderCtx, senderCancel := context.WithTimeout(context.Background(), 10*time.Second)
	sender, err := notification.NewSender(senderCtx, cfg.Email, logger)
	senderCancel()
	if err != nil {
		logger.Error("failed to initialize email sender", slog.Any("error", err))
		os.Exit(1)
	}
	emailService := services.NewEmailService(sender, templates.NewEngine(), cfg.Server.BaseURL, cfg.Email.SupportEmail, logger)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)
	rememberRepo := repositories.NewRememberTokenRepository(db)
	activityRepo := repositories.NewActivityLogRepository(db)

	// Initialize security services
	auditLogger := pkglogger.NewAuditLogger(logger)
	hasher := pkgauth.NewHasher(cfg.Auth.BcryptCost)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingBaseDelayMs,
		RandomDelayMs: cfg.Auth.TimingRandomDelayMs,
	})

	// Initialize services
	activityService := services.NewActivityService(activityRepo, logger)
	userService := services.NewUserService(userRepo, activityService, logger)
	rememberService := services.NewRememberMeService(rememberRepo, userRepo, activityService, cfg.Session.RememberMeTTL, logger, auditLogger)
	authService := services.NewAuthService(userRepo, hasher, rememberService, emailService, activityService, timingDelay,
		services.LoginPolicy{MaxAttempts: cfg.Auth.MaxLoginAttempts, LockoutDuration: cfg.Auth.LockoutDuration},
		logger, auditLogger)
	resetService := services.NewPasswordResetService(resetRepo, userRepo, hasher, emailService, activityService, timingDelay,
		cfg.Auth.ResetCodeTTL, logger, auditLogger)

	// Initialize handlers
	pages, err := handlers.NewRenderer(logger)
	if err != nil {
		logger.Error("failed to parse page templates", slog.Any("error", err))
		os.Exit(1)
	}

	pageHandlers := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService, resetService, sessionManager, rememberCookie, pages),
		Profile:   handlers.NewProfileHandler(userService, resetService, pages, logger),
		Dashboard: handlers.NewDashboardHandler(activityService, pages, logger),
		Health: handlers.NewHealthHandler(
			handlers.Dependency{Name: db.Name(), Check: db.HealthCheck},
			handlers.Dependency{Name: "sessions", Check: store.Ping},
		),
	}

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, hasher, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(pkghttp.ClientIPMiddleware(&pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, pageHandlers, routes.Sessions{
		Manager:  sessionManager,
		Restorer: rememberService,
		Remember: rememberCookie,
	}, routes.Limits{
		Auth:  middlewareCustom.RateLimitConfig{Requests: cfg.Auth.RateLimitPerMinute, Window: time.Minute},
		Reset: middlewareCustom.RateLimitConfig{Requests: cfg.Auth.ResetRateLimitPerHour, Window: time.Hour},
	}, logger)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(logger, cfg.Auth.CleanupInterval, background.DefaultRetention,
		background.CleanupTask{Name: "password_resets", Purger: resetRepo},
		background.CleanupTask{Name: "remember_tokens", Purger: rememberRepo},
	)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, hasher *pkgauth.Hasher, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	_, err := userRepo.GetByEmail(ctx, models.NormalizeEmail(adminEmail))
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if err := pkgauth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %s", pkgauth.PasswordRequirements)
	}

	hashedPassword, err := hasher.Hash(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}

	_, err = userRepo.Create(ctx, &models.User{
		Username:     username,
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		FirstName:    "Site",
		LastName:     "Admin",
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully", slog.String("email", pkglogger.SanitizedEmail(adminEmail)))
	return nil
}
