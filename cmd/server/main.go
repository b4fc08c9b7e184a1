// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	ingestKafka "jitbridge/internal/ingest/kafka"
	"jitbridge/internal/jit/handler"
	jitMetrics "jitbridge/internal/jit/metrics"
	"jitbridge/internal/jit/service"
	approvalStore "jitbridge/internal/jit/store/approval"
	correlationStore "jitbridge/internal/jit/store/correlation"
	directoryStore "jitbridge/internal/jit/store/directory"
	ticketStore "jitbridge/internal/jit/store/ticket"
	jwttoken "jitbridge/internal/jwt_token"
	"jitbridge/internal/platform/config"
	"jitbridge/internal/platform/httpserver"
	"jitbridge/internal/platform/logger"
	"jitbridge/internal/platform/middleware"
	platformRedis "jitbridge/internal/platform/redis"
	httptransport "jitbridge/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthChecks := map[string]func() error{}

	// Store selection: postgres when configured, in-memory otherwise.
	var (
		tickets   service.TicketStore
		approvals service.ApprovalStore
		directory service.Directory
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := applySchema(ctx, db); err != nil {
			return err
		}
		tickets = ticketStore.NewPostgres(db)
		approvals = approvalStore.NewPostgres(db)
		directory = directoryStore.NewPostgres(db)
		healthChecks["postgres"] = func() error { return db.Ping() }
		log.Info("using postgres stores")
	} else {
		tickets = ticketStore.NewInMemoryStore()
		approvals = approvalStore.NewInMemoryStore()
		directory = directoryStore.NewInMemoryDirectory()
		log.Warn("POSTGRES_URL not set, using in-memory stores")
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(jitMetrics.New()),
		service.WithDefaults(service.Defaults{
			AssignmentGroup:  cfg.AssignmentGroup,
			Location:         cfg.Location,
			FallbackCallerID: cfg.FallbackCaller,
		}),
	}

	redisClient, err := platformRedis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithCorrelationCache(
			correlationStore.NewRedisCache(redisClient.Client, cfg.CacheTTL),
		))
		healthChecks["redis"] = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(pingCtx)
		}
	}

	svc := service.New(tickets, approvals, directory, opts...)

	var validator middleware.TokenValidator
	if cfg.JWTSigningKey != "" {
		validator = jwttoken.NewJWTService(cfg.JWTSigningKey, "jitbridge", "jitbridge")
	} else {
		log.Warn("JWT_SIGNING_KEY not set, event endpoint is unauthenticated")
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Events:       handler.New(svc, log),
		Logger:       log,
		JWTValidator: validator,
		HealthChecks: healthChecks,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting jitbridge", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := ingestKafka.NewConsumer(cfg.Kafka, svc, log)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		group.Go(func() error {
			log.Info("starting kafka ingest", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.Group)
			err := consumer.Run(groupCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		group.Go(func() error {
			<-groupCtx.Done()
			consumer.Close()
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return group.Wait()
}

func applySchema(ctx context.Context, db *sql.DB) error {
	for _, ddl := range []string{
		ticketStore.SchemaDDL,
		approvalStore.SchemaDDL,
		directoryStore.SchemaDDL,
	} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
