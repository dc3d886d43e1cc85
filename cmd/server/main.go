package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/HammerMeetNail/dailydoodle/internal/config"
	"github.com/HammerMeetNail/dailydoodle/internal/contest"
	"github.com/HammerMeetNail/dailydoodle/internal/database"
	"github.com/HammerMeetNail/dailydoodle/internal/handlers"
	"github.com/HammerMeetNail/dailydoodle/internal/logging"
	"github.com/HammerMeetNail/dailydoodle/internal/middleware"
	"github.com/HammerMeetNail/dailydoodle/internal/realtime"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{"env": cfg.Server.Environment})
	}

	logger.Info("Starting Daily Doodle server...")

	clock, err := contest.NewClock(cfg.Contest.Timezone, cfg.Contest.QuietStartHour, cfg.Contest.QuietEndHour)
	if err != nil {
		return fmt.Errorf("loading contest clock: %w", err)
	}

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN(), database.DefaultPoolOptions)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(database.RedisOptions{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)
	feed := realtime.NewRedisFeed(redisDB.Client, database.KeyPrefix)

	emailSender, err := services.NewEmailSender(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("configuring email: %w", err)
	}
	media, err := services.NewCloudinaryUploader(cfg.Media)
	if err != nil {
		return fmt.Errorf("configuring media uploads: %w", err)
	}

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(dbAdapter, redisAdapter)
	providerAuthService := services.NewProviderAuthService(dbAdapter)
	themeService := services.NewThemeService(dbAdapter, clock)
	drawingService := services.NewDrawingService(dbAdapter, themeService, clock, media, feed, services.DrawingOptions{
		MaxUploadBytes: cfg.Contest.MaxUploadBytes,
		LateThemeLimit: cfg.Contest.LateThemeLimit,
	})
	reactionService := services.NewReactionService(dbAdapter, feed)
	commentService := services.NewCommentService(dbAdapter, feed)
	galleryService := services.NewGalleryService(dbAdapter, clock, userService, reactionService, commentService)
	statsService := services.NewStatsService(dbAdapter)
	announcer := services.NewAnnouncer(themeService, userService, emailSender, redisAdapter, clock, cfg.Server.BaseURL)

	oauthProviders := map[services.Provider]services.OAuthProvider{}
	if cfg.OAuth.Google.Enabled {
		googleProvider, err := services.NewOIDCProvider(context.Background(), services.OIDCProviderConfig{
			Provider:     services.ProviderGoogle,
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURL:  cfg.OAuth.Google.RedirectURL,
			IssuerURL:    cfg.OAuth.Google.IssuerURL,
			Scopes:       cfg.OAuth.Google.Scopes,
		})
		if err != nil {
			return fmt.Errorf("initializing google oidc provider: %w", err)
		}
		oauthProviders[services.ProviderGoogle] = googleProvider
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(authService, userService, cfg.Server.Secure)
	providerAuthHandler := handlers.NewProviderAuthHandler(providerAuthService, authService, oauthProviders, cfg.Server.Secure)
	themeHandler := handlers.NewThemeHandler(themeService, drawingService)
	drawingHandler := handlers.NewDrawingHandler(drawingService, galleryService, cfg.Contest.MaxUploadBytes)
	galleryHandler := handlers.NewGalleryHandler(galleryService)
	statsHandler := handlers.NewStatsHandler(statsService)
	reactionHandler := handlers.NewReactionHandler(reactionService)
	commentHandler := handlers.NewCommentHandler(commentService)
	liveHandler := handlers.NewLiveHandler(feed, commentService, reactionService, cfg.Server.BaseURL)
	adminHandler := handlers.NewAdminHandler(themeService, drawingService, media, cfg.Contest.MaxUploadBytes)

	announceCtx, announceCancel := context.WithCancel(context.Background())
	defer announceCancel()
	go announcer.Run(announceCtx, resolveAnnouncePollInterval(logger, os.LookupEnv))

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)
	requestLogger := middleware.NewRequestLogger(logger)
	uploadLimiter := middleware.NewUploadRateLimiter(redisDB.Client, resolveUploadRateLimit(cfg, logger, os.LookupEnv))

	requireSession := authMiddleware.RequireSession
	requireAdmin := authMiddleware.RequireAdmin
	limitUploads := func(h http.HandlerFunc) http.Handler {
		return requireSession(uploadLimiter.Middleware(h))
	}

	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Auth
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/me", requireSession(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/me/notifications", requireSession(http.HandlerFunc(authHandler.UpdateNotifications)))
	mux.HandleFunc("GET /api/auth/providers", providerAuthHandler.Providers)
	mux.HandleFunc("GET /api/auth/{provider}/start", providerAuthHandler.ProviderStart)
	mux.HandleFunc("GET /api/auth/{provider}/callback", providerAuthHandler.ProviderCallback)

	// Themes
	mux.HandleFunc("GET /api/themes/today", themeHandler.Today)
	mux.Handle("GET /api/themes/late", requireSession(http.HandlerFunc(themeHandler.LateCandidates)))

	// Drawings
	mux.Handle("POST /api/drawings", limitUploads(drawingHandler.Submit))
	mux.Handle("POST /api/drawings/late", limitUploads(drawingHandler.SubmitLate))
	mux.Handle("GET /api/drawings/eligibility", requireSession(http.HandlerFunc(drawingHandler.Eligibility)))
	mux.HandleFunc("GET /api/drawings/{id}", drawingHandler.Get)
	mux.HandleFunc("GET /api/drawings/{id}/download", drawingHandler.Download)
	mux.HandleFunc("GET /api/drawings/{id}/live", liveHandler.Live)

	// Gallery, history and profiles
	mux.HandleFunc("GET /api/gallery", galleryHandler.Gallery)
	mux.HandleFunc("GET /api/history", galleryHandler.History)
	mux.HandleFunc("GET /api/users/{id}", galleryHandler.Profile)
	mux.HandleFunc("GET /api/stats", statsHandler.Stats)
	mux.HandleFunc("GET /api/stats/card.png", statsHandler.Card)

	// Reactions
	mux.HandleFunc("GET /api/drawings/{id}/reactions", reactionHandler.GetReactions)
	mux.Handle("PUT /api/drawings/{id}/reaction", requireSession(http.HandlerFunc(reactionHandler.SetReaction)))
	mux.Handle("DELETE /api/drawings/{id}/reaction", requireSession(http.HandlerFunc(reactionHandler.RemoveReaction)))
	mux.HandleFunc("GET /api/reactions/emojis", reactionHandler.GetAllowedEmojis)

	// Comments
	mux.HandleFunc("GET /api/drawings/{id}/comments", commentHandler.List)
	mux.Handle("POST /api/drawings/{id}/comments", requireSession(http.HandlerFunc(commentHandler.Create)))
	mux.Handle("PUT /api/comments/{id}", requireSession(http.HandlerFunc(commentHandler.Update)))
	mux.Handle("DELETE /api/comments/{id}", requireSession(http.HandlerFunc(commentHandler.Delete)))
	mux.Handle("POST /api/comments/{id}/like", requireSession(http.HandlerFunc(commentHandler.Like)))
	mux.Handle("DELETE /api/comments/{id}/like", requireSession(http.HandlerFunc(commentHandler.Unlike)))

	// Admin
	mux.Handle("GET /api/admin/themes", requireAdmin(http.HandlerFunc(adminHandler.ListThemes)))
	mux.Handle("POST /api/admin/themes", requireAdmin(http.HandlerFunc(adminHandler.CreateTheme)))
	mux.Handle("PUT /api/admin/themes/{id}/active", requireAdmin(http.HandlerFunc(adminHandler.SetThemeActive)))
	mux.Handle("DELETE /api/admin/themes/{id}", requireAdmin(http.HandlerFunc(adminHandler.DeleteTheme)))
	mux.Handle("DELETE /api/admin/themes/{id}/references", requireAdmin(http.HandlerFunc(adminHandler.RemoveReference)))
	mux.Handle("DELETE /api/admin/drawings/{id}", requireAdmin(http.HandlerFunc(adminHandler.DeleteDrawing)))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// Uploads proxy to the media CDN before answering.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")
		announceCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

func resolveUploadRateLimit(cfg *config.Config, logger *logging.Logger, lookupEnv func(string) (string, bool)) int64 {
	limit := cfg.RateLimit.UploadsPerHour
	if limit <= 0 {
		limit = 20
	}
	if cfg.Server.Environment == "development" {
		limit = 100
		logger.Info("Using development upload rate limit", map[string]interface{}{"limit": limit})
	}
	if v, ok := lookupEnv("UPLOAD_RATE_LIMIT_OVERRIDE"); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			limit = parsed
			logger.Info("Using upload rate limit override", map[string]interface{}{"limit": limit})
		} else {
			logger.Warn("Invalid UPLOAD_RATE_LIMIT_OVERRIDE; using default", map[string]interface{}{
				"value": v,
				"limit": limit,
			})
		}
	}
	return limit
}

func resolveAnnouncePollInterval(logger *logging.Logger, lookupEnv func(string) (string, bool)) time.Duration {
	interval := time.Minute
	if value, ok := lookupEnv("ANNOUNCE_POLL_INTERVAL"); ok && value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			logger.Warn("Invalid ANNOUNCE_POLL_INTERVAL; using default", map[string]interface{}{
				"value":   value,
				"default": interval.String(),
			})
		} else {
			interval = parsed
			logger.Info("Using announce poll interval from env", map[string]interface{}{"interval": interval.String()})
		}
	}
	return interval
}
