package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tongarclub/jongque-sub001/internal/config"
	"github.com/tongarclub/jongque-sub001/internal/domain/notification"
)

// The notifier drains booking.events and dispatches each event to the
// configured delivery channels. The default handler logs the event; channel
// integrations hook in behind notification.LogHandler.
func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	log.Info().Str("env", cfg.Env).Msg("Starting booking notifier")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down notifier...")
		cancel()
	}()

	if err := notification.StartConsumer(ctx, cfg.AMQPURL, notification.LogHandler); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Notifier stopped")
	}

	log.Info().Msg("Notifier exited properly")
}
