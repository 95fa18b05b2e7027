package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/camden-git/beachfinder/config"
	"github.com/camden-git/beachfinder/database"
	"github.com/camden-git/beachfinder/gallery"
	"github.com/camden-git/beachfinder/handlers"
	"github.com/camden-git/beachfinder/logging"
	"github.com/camden-git/beachfinder/media"
	"github.com/camden-git/beachfinder/media/webpenc"
	"github.com/camden-git/beachfinder/realtime"
	"github.com/camden-git/beachfinder/repository"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		logging.Debug().Err(envErr).Msg("no .env file loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	gdb, sqlDB, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	logging.Info().Str("path", cfg.DatabasePath).Msg("database ready")

	userRepo := repository.NewGormUserRepository(gdb)
	beachRepo := repository.NewGormBeachRepository(gdb)
	if err := repository.EnsureAdmin(ctx, userRepo, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	encoder, err := webpenc.New(cfg.WebPQuality)
	if err != nil {
		return err
	}
	processor := media.NewProcessor(store, encoder, cfg.MediaPublicURL)

	hub := realtime.NewHub()
	go hub.Run(ctx)

	manager := gallery.NewManager(sqlDB, processor, gallery.Config{
		MediaBaseURL:        cfg.MediaPublicURL,
		PlaceholderCoverURL: cfg.PlaceholderCoverURL,
		MaxUploadBytes:      cfg.MaxUploadBytes,
	}, hub)

	tokens := handlers.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)
	authHandler := handlers.NewAuthHandler(userRepo, tokens, cfg.CookieSecure)
	setupHandler := handlers.NewSetupHandler(gdb)
	adminUserHandler := handlers.NewAdminUserHandler(userRepo)
	beachHandler := &handlers.BeachHandler{Repo: beachRepo, PlaceholderCoverURL: cfg.PlaceholderCoverURL}
	imageHandler := &handlers.BeachImageHandler{
		Gallery:           manager,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		BlockedExtensions: cfg.BlockedExtensionList(),
		TempDir:           cfg.UploadTempDir,
	}

	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOriginList(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.CSRFHeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger)
	r.Use(handlers.PrometheusMetrics)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	r.Get("/healthz", handlers.Health(sqlDB))
	r.Handle("/metrics", promhttp.Handler())

	if local, ok := store.(*media.LocalStorage); ok {
		r.Get("/media/*", handlers.AssetServer(local))
		logging.Info().Str("dir", local.BasePath()).Msg("serving media from local storage at /media/*")
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.With(httprate.LimitByIP(10, time.Minute)).Post("/auth/login", authHandler.Login)
			r.Post("/auth/logout", authHandler.Logout)
			r.With(httprate.LimitByIP(5, time.Minute)).Post("/setup/first-admin", setupHandler.CreateFirstAdmin)
			r.Get("/beaches", beachHandler.ListBeaches)
			r.Get("/beaches/{identifier}", beachHandler.GetBeach)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.AuthMiddleware(tokens, userRepo))
			r.With(middleware.Timeout(60*time.Second)).Get("/auth/me", authHandler.CurrentUser)

			r.Route("/admin", func(r chi.Router) {
				r.Use(handlers.RequireAdmin)
				if cfg.RateLimitRequests > 0 {
					r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
				}

				// long-lived; no request timeout
				r.Get("/ws", hub.ServeWS)

				r.Group(func(r chi.Router) {
					r.Use(middleware.Timeout(2 * time.Minute))
					r.Handle("/beach-images", imageHandler)

					r.Group(func(r chi.Router) {
						r.Use(handlers.RequireCSRF)
						r.Post("/beaches", beachHandler.CreateBeach)
						r.Get("/users", adminUserHandler.ListUsers)
						r.Post("/users", adminUserHandler.CreateUser)
					})
				})
			})
		})
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, cfg config.Config) (media.Store, error) {
	if cfg.StorageBackend == config.StorageBackendS3 {
		logging.Info().Str("bucket", cfg.S3Bucket).Str("endpoint", cfg.S3Endpoint).Msg("using S3 media storage")
		return media.NewS3Storage(ctx, media.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	return media.NewLocalStorage(cfg.MediaStoragePath)
}
