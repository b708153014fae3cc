package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/agent"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/api"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/config"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/control"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/ws"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	// Init DB
	db, err := store.New(cfg.DBPath, store.WithClock(clock))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init database")
	}
	defer db.Close()

	if cfg.AdminPassword != "" {
		if err := db.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("failed to seed admin user")
		}
	}

	// Init connection registry; with Redis configured, fan-out goes through the bridge
	registry := ws.NewRegistry(clock)
	var router ws.Router = registry
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis_url")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		bridge := ws.NewBridge(rdb, cfg.RedisChannel, registry)
		router = bridge
		// Run keeps resubscribing until shutdown; until then delivery stays local.
		go func() {
			if err := bridge.Run(ctx); err != nil {
				log.Error().Err(err).Msg("redis bridge stopped")
			}
		}()
		log.Info().Str("channel", cfg.RedisChannel).Msg("redis fan-out enabled")
	}
	dispatcher := ws.NewDispatcher(router, clock)

	// Init change relay
	bus := control.NewEventBus(cfg.EventBusSize)
	var sinks []control.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafka := control.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
		sinks = append(sinks, kafka)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka change sink enabled")
	}
	relay := control.NewRelay(bus, dispatcher, sinks...)
	go relay.Run(ctx)

	// Init host monitor
	monitor := agent.NewMonitor(cfg.MonitorInterval, clock)
	go func() {
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("host monitor error")
		}
	}()

	endpoint := ws.NewEndpoint(registry, ws.NewInboundHandler(registry, clock), ws.ClientConfig{
		SendBuffer:      cfg.WSSendBuffer,
		PongWait:        cfg.WSPongWait,
		PingPeriod:      cfg.PingPeriod(),
		WriteWait:       cfg.WSWriteWait,
		MaxMessageBytes: cfg.WSMaxMessageBytes,
	})

	// Init API Server
	srv := api.NewServer(cfg, db, api.Realtime{
		Registry:   registry,
		Dispatcher: dispatcher,
		Endpoint:   endpoint,
		Bus:        bus,
		Relay:      relay,
	}, monitor, clock)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          stdlog.New(log.Logger, "", 0),
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting foodbridge server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown.
	registry.CloseAll()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
