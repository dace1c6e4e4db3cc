package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ayush/accounts-portal/internal/api"
	"github.com/ayush/accounts-portal/internal/auth"
	"github.com/ayush/accounts-portal/internal/config"
	"github.com/ayush/accounts-portal/internal/middleware"
	"github.com/ayush/accounts-portal/internal/store"
	"github.com/ayush/accounts-portal/internal/web"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}
	defer pgPool.Close()
	if err := store.Migrate(ctx, pgPool); err != nil {
		log.Fatal().Err(err).Msg("postgres migrate")
	}
	pgStore := store.NewPostgresStore(pgPool)

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb, auth.SessionTTL)

	jwtSecret := []byte(cfg.SessionSecret)
	if len(jwtSecret) == 0 {
		log.Fatal().Msg("SESSION_SECRET is required")
	}

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(pgStore, sessions, jwtSecret)
	webHandler := web.NewHandler(pgStore)
	profileAPI := api.NewProfiles(pgStore)
	userAPI := api.NewUsers(pgStore)

	requirePage := middleware.RequirePage(sessions, pgStore)
	requireAPI := middleware.RequireAPI(sessions, pgStore, jwtSecret)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.StripSlashes)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public pages
	r.Get("/", webHandler.Home)
	r.Get("/about", webHandler.About)
	r.Get("/help", webHandler.Help)
	r.Get("/register", authHandler.RegisterPage)
	r.Post("/register", authHandler.Register)
	r.Get("/login", authHandler.LoginPage)
	r.Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)

	// Guarded pages: anonymous requesters get redirected to /login/.
	r.Group(func(r chi.Router) {
		r.Use(requirePage)
		r.Get("/dashboard", webHandler.Dashboard)
		r.Get("/profile", webHandler.ProfilePage)
		r.Post("/profile", webHandler.ProfileUpdate)
	})

	// REST API: bearer token or session cookie.
	r.Post("/api/token", authHandler.Token)
	r.Route("/api/profiles", func(r chi.Router) {
		r.Use(requireAPI)
		r.Get("/", profileAPI.List)
		r.Post("/", profileAPI.Create)
		r.Get("/{id}", profileAPI.Get)
		r.Put("/{id}", profileAPI.Update)
		r.Patch("/{id}", profileAPI.Patch)
		r.Delete("/{id}", profileAPI.Delete)
	})
	r.Route("/api/users", func(r chi.Router) {
		r.Use(requireAPI)
		r.Get("/", userAPI.List)
		r.Get("/{id}", userAPI.Get)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("accounts portal listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
