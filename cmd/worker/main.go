package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/events"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/mq"
	"server/internal/providers/genai"
	"server/internal/providers/image"
	"server/internal/providers/script"
	"server/internal/providers/tts"
	"server/internal/queue"
	"server/internal/storage"
	"server/internal/usecase"
	"server/internal/worker"
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
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	if err := infra.InitSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("worker: schema init failed")
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
			logger.Fatal().Err(err).Msg("worker: event backend connection failed")
		}
		pp.OnDrop = metrics.EventsDropped.Inc
		publisher = pp
	}
	defer publisher.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobQueue := queue.New(pool, runner, publisher, logger).WithMetrics(metrics)

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: storage init failed")
	}

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiAPIKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.GeminiAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: stored gemini api key unavailable")
		} else {
			geminiAPIKey = keyFromStore
		}
	}

	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:  geminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: gemini client init failed")
	}
	if !geminiClient.Remote() {
		logger.Warn().Msg("worker: gemini api key missing, generating synthetic assets")
	}

	scriptGen, err := script.NewGeminiGenerator(script.GeminiOptions{
		Client:   geminiClient,
		Fallback: script.NewStaticGenerator(),
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("worker: script generation fell back")
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: script generator init failed")
	}

	executor := usecase.NewExecutor(usecase.ExecutorDeps{
		Podcasts:     repo.NewPodcastRepository(pool),
		Scripts:      repo.NewScriptRepository(pool),
		Voiceovers:   repo.NewVoiceoverRepository(pool),
		Infographics: repo.NewInfographicRepository(pool),
		ScriptGen:    scriptGen,
		Synthesizer:  tts.NewGeminiSynthesizer(geminiClient).WithDefaultVoice(cfg.TTSVoice),
		ImageGen:     image.NewGeminiGenerator(geminiClient),
		Store:        store,
		Logger:       logger,
	})

	hostname, _ := os.Hostname()
	workers := worker.NewPool(jobQueue, executor, worker.Config{
		Count:        cfg.WorkerCount,
		WorkerID:     fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		PollInterval: cfg.JobPollInterval,
		JobTimeout:   cfg.JobTimeout,
		ReclaimAfter: cfg.JobReclaimAfter,
	}, logger).WithMetrics(metrics)

	if cfg.RabbitURL != "" {
		mqClient, err := mq.New(cfg.RabbitURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: rabbitmq connection failed")
		}
		defer mqClient.Close()

		deliveries, err := mqClient.ConsumeWakeups()
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: rabbitmq consume failed")
		}
		wake := make(chan struct{}, 1)
		go func() {
			for range deliveries {
				select {
				case wake <- struct{}{}:
				default:
				}
			}
		}()
		workers = workers.WithWakeups(wake)
	}

	metricsServer := infra.NewMetricsServer(cfg, metrics)
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("worker: metrics server failed")
		}
	}()

	logger.Info().Int("count", cfg.WorkerCount).Str("metrics_port", cfg.MetricsPort).Msg("worker: started")
	if err := workers.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("worker: metrics server shutdown failed")
	}
	logger.Info().Msg("worker: stopped")
}
