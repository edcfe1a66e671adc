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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tongarclub/jongque-sub001/internal/config"
	"github.com/tongarclub/jongque-sub001/internal/domain/booking"
	"github.com/tongarclub/jongque-sub001/internal/domain/catalog"
	"github.com/tongarclub/jongque-sub001/internal/domain/notification"
	"github.com/tongarclub/jongque-sub001/internal/middleware"
	"github.com/tongarclub/jongque-sub001/internal/pkg/database"
	"github.com/tongarclub/jongque-sub001/internal/pkg/jwt"
	pkgresponse "github.com/tongarclub/jongque-sub001/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting JongQue booking API")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("Invalid timezone")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	publisher := notification.NewAMQPPublisher(cfg.AMQPURL)
	defer publisher.Close()

	// ---------- Repositories ----------
	bookingRepo := booking.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)

	// ---------- Services ----------
	bookingService := booking.NewService(bookingRepo, catalogRepo, loc)
	bookingService.SetPublisher(publisher)

	guestGateway := booking.NewGuestGateway(bookingService)

	// ---------- Handlers ----------
	bookingHandler := booking.NewHandler(bookingService)
	guestHandler := booking.NewGuestHandler(bookingService, guestGateway)

	authMiddleware := middleware.Auth(jwtService)
	guestRateLimit := middleware.RateLimit(redis, cfg.GuestRateCapacity, cfg.GuestRateRefill)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/bookings", bookingHandler.Routes(authMiddleware))

		r.Route("/guest/bookings", func(r chi.Router) {
			r.Use(guestRateLimit)
			r.Mount("/", guestHandler.Routes())
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
