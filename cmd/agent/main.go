package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/agent"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/config"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// The agent samples the host it runs on and reports to a FoodBridge server
// as system events.
func main() {
	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	reporter := agent.NewHTTPReporter(cfg.ControlURL, cfg.AgentToken)
	monitor := agent.NewMonitor(cfg.MonitorInterval, clockwork.NewRealClock(), reporter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("server", cfg.ControlURL).Dur("interval", cfg.MonitorInterval).Msg("starting host agent")
	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("agent error")
	}
	log.Info().Msg("agent exited")
}
