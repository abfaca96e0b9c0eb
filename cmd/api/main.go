package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/activity"
	"server/internal/adapter/repo"
	"server/internal/events"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/middleware"
	"server/internal/mq"
	"server/internal/queue"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	if err := infra.InitSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("api: schema init failed")
	}

	metrics := infra.NewMetrics()

	var publisher events.Publisher
	if cfg.EventBackendURL == "" {
		mp := events.NewMemoryPublisher(logger)
		mp.OnDrop = metrics.EventsDropped.Inc
		publisher = mp
	} else {
		pp, err := events.NewPostgresPublisher(ctx, cfg.EventBackendURL, cfg.EventChannelPrefix, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: event backend connection failed")
		}
		pp.OnDrop = metrics.EventsDropped.Inc
		publisher = pp
	}
	defer publisher.Close()

	runner := infra.NewSQLRunner(pool, logger)

	jobQueue := queue.New(pool, runner, publisher, logger).WithMetrics(metrics)
	if cfg.RabbitURL != "" {
		mqClient, err := mq.New(cfg.RabbitURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: rabbitmq connection failed")
		}
		defer mqClient.Close()
		jobQueue = jobQueue.WithNotifier(mqClient)
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: storage init failed")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip database unavailable")
	}
	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.CountryCode
	}

	activityRepo := repo.NewActivityRepository(runner)
	recorder := activity.NewRecorder(activityRepo, resolver, publisher, logger)

	app := &handlers.App{
		Podcasts:     repo.NewPodcastRepository(pool),
		Scripts:      repo.NewScriptRepository(pool),
		Voiceovers:   repo.NewVoiceoverRepository(pool),
		Infographics: repo.NewInfographicRepository(pool),
		Queue:        jobQueue,
		Publisher:    publisher,
		Activity:     recorder,
		Store:        store,
		Logger:       logger,
		Metrics:      metrics,
	}

	router := httpapi.NewRouter(app, cfg, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api: listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}
	logger.Info().Msg("api: stopped")
}
