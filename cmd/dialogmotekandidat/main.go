package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	candidacyhandler "dialogmotekandidat/internal/candidacy/handler"
	candidacymetrics "dialogmotekandidat/internal/candidacy/metrics"
	"dialogmotekandidat/internal/candidacy/publisher"
	candidacyservice "dialogmotekandidat/internal/candidacy/service"
	candidacystore "dialogmotekandidat/internal/candidacy/store"
	checkpointservice "dialogmotekandidat/internal/checkpoint/service"
	checkpointstore "dialogmotekandidat/internal/checkpoint/store"
	"dialogmotekandidat/internal/cron"
	"dialogmotekandidat/internal/identity"
	identityclient "dialogmotekandidat/internal/identity/client"
	identityservice "dialogmotekandidat/internal/identity/service"
	"dialogmotekandidat/internal/meeting"
	meetingstore "dialogmotekandidat/internal/meeting/store"
	overridehandler "dialogmotekandidat/internal/override/handler"
	overrideservice "dialogmotekandidat/internal/override/service"
	overridestore "dialogmotekandidat/internal/override/store"
	"dialogmotekandidat/internal/platform/config"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/internal/platform/httpserver"
	"dialogmotekandidat/internal/platform/kafka/consumer"
	"dialogmotekandidat/internal/platform/kafka/producer"
	"dialogmotekandidat/internal/platform/leaderelection"
	"dialogmotekandidat/internal/platform/logger"
	"dialogmotekandidat/internal/platform/metrics"
	"dialogmotekandidat/internal/platform/middleware"
	"dialogmotekandidat/internal/timeline"
	timelineclient "dialogmotekandidat/internal/timeline/client"
	timelinestore "dialogmotekandidat/internal/timeline/store"
)

// main wires dependencies and runs the three long-lived loops: the HTTP
// server, the Kafka consumer and the cron runner. Business logic lives in
// the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("dialogmotekandidat exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	transactor := database.PoolTransactor{Runner: pool}

	registry := metrics.New()
	engineMetrics := candidacymetrics.New(registry.Registerer())

	// Stores.
	signalStore := timelinestore.NewPostgres(pool)
	checkpointStore := checkpointstore.NewPostgres(pool)
	eventStore := candidacystore.NewPostgres(pool)
	outboxStore := candidacystore.NewPostgresOutbox(pool)
	meetingStore := meetingstore.NewPostgres(pool)
	exceptionStore := overridestore.NewPostgresExceptions(pool)
	closureStore := overridestore.NewPostgresClosures(pool)

	// External collaborators.
	timelineClient := timelineclient.New(cfg.OppfolgingstilfelleServiceURL, cfg.ExternalCallTimeout)
	registryClient := identityclient.New(cfg.IdentityRegistryURL, cfg.ExternalCallTimeout)

	leader, closeLeader, err := buildLeaderOracle(ctx, cfg.Leader)
	if err != nil {
		return fmt.Errorf("build leader oracle: %w", err)
	}
	defer closeLeader()

	// Services.
	recorder := candidacyservice.NewRecorder(eventStore, outboxStore)
	scheduler, err := checkpointservice.New(checkpointStore, engineMetrics, log)
	if err != nil {
		return err
	}
	evaluator, err := candidacyservice.NewEvaluator(
		timelineClient, checkpointStore, eventStore, meetingStore, recorder,
		transactor, engineMetrics, log,
	)
	if err != nil {
		return err
	}
	reader := candidacyservice.NewReader(eventStore)
	overrides, err := overrideservice.New(
		exceptionStore, closureStore, eventStore, recorder,
		transactor, engineMetrics, log,
	)
	if err != nil {
		return err
	}
	merger, err := identityservice.NewMerger(registryClient, transactor, log,
		checkpointStore, eventStore, exceptionStore, closureStore, meetingStore)
	if err != nil {
		return err
	}

	// Outbound stream.
	kafkaProducer, err := producer.New(cfg.Kafka.Brokers)
	if err != nil {
		return fmt.Errorf("build kafka producer: %w", err)
	}
	defer kafkaProducer.Close()
	outboxPublisher, err := publisher.New(outboxStore, kafkaProducer,
		cfg.Kafka.CandidacyTopic, engineMetrics, log)
	if err != nil {
		return err
	}

	// Inbound streams.
	router := consumer.NewRouter(log)
	router.Register(cfg.Kafka.TimelineTopic, timeline.NewFactHandler(signalStore, log))
	router.Register(cfg.Kafka.MeetingStatusTopic, meeting.NewStatusHandler(meetingStore, log))
	router.Register(cfg.Kafka.IdentityMergeTopic, identity.NewMergeHandler(merger, log))
	kafkaConsumer, err := consumer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID, router, log)
	if err != nil {
		return fmt.Errorf("build kafka consumer: %w", err)
	}
	defer kafkaConsumer.Close()

	// Periodic sweeps.
	runner, err := cron.NewRunner(leader, cfg.Cron.InitialDelay, log,
		cron.Job{
			Name:     "scheduling-sweep",
			Interval: cfg.Cron.SchedulingInterval,
			Run:      cron.NewSchedulingSweep(signalStore, timelineClient, scheduler, log).Run,
		},
		cron.Job{
			Name:     "checkpoint-sweep",
			Interval: cfg.Cron.CheckpointInterval,
			Run:      cron.NewCheckpointSweep(checkpointStore, evaluator, engineMetrics, log).Run,
		},
		cron.Job{
			Name:       "outdated-sweep",
			Interval:   cfg.Cron.OutdatedInterval,
			LeaderOnly: true,
			Run: cron.NewOutdatedSweep(eventStore, recorder, transactor,
				engineMetrics, log, cfg.Cron.OutdatedCandidacyCutoff).Run,
		},
		cron.Job{
			Name:       "outbox-relay",
			Interval:   cfg.Cron.OutboxRelayInterval,
			LeaderOnly: true,
			Run:        cron.NewOutboxRelay(outboxPublisher).Run,
		},
	)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Addr, buildRouter(cfg, pool, registry, reader, overrides, exceptionStore, log))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return kafkaConsumer.Run(ctx)
	})
	group.Go(func() error {
		return runner.Start(ctx)
	})

	log.Info("dialogmotekandidat started")
	return group.Wait()
}

func buildRouter(
	cfg config.Config,
	pool *pgxpool.Pool,
	registry *metrics.Registry,
	reader *candidacyservice.Reader,
	overrides *overrideservice.Service,
	exceptions *overridestore.PostgresExceptionStore,
	log *slog.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/is_alive", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/is_ready", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", registry.Handler())

	validator := middleware.NewHMACValidator(cfg.JWTSigningKey)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		candidacyhandler.New(reader, log).Routes(r)
		overridehandler.New(overrides, exceptions, log).Routes(r)
	})
	return r
}

func buildLeaderOracle(ctx context.Context, cfg config.LeaderElection) (leaderelection.Oracle, func(), error) {
	switch cfg.Mode {
	case "http":
		elector, err := leaderelection.NewHTTPElector(cfg.ElectorURL)
		if err != nil {
			return nil, nil, err
		}
		return elector, func() {}, nil
	case "redis":
		elector, err := leaderelection.NewRedisElector(ctx, cfg.RedisURL, cfg.LeaseTTL)
		if err != nil {
			return nil, nil, err
		}
		return elector, func() { _ = elector.Close() }, nil
	case "always", "":
		return leaderelection.Always{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown leader election mode %q", cfg.Mode)
	}
}
