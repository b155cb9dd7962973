// Command server runs the workshop gate service: the dual-store Directory
// façade, the movement ledger and gate controller, the registration
// workflow, and the HTTP API on top of them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/appointment"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/audit"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory/memory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory/postgresdir"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory/redisdir"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/dualstore"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/gate"
	gatemetrics "github.com/da-werdecker/proyecto-apt-dana-sub002/internal/gate/metrics"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/ledger"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/notify"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/platform/config"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/platform/httpserver"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/platform/logger"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/platform/postgres"
	platformredis "github.com/da-werdecker/proyecto-apt-dana-sub002/internal/platform/redis"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/registration"
	regmetrics "github.com/da-werdecker/proyecto-apt-dana-sub002/internal/registration/metrics"
	httptransport "github.com/da-werdecker/proyecto-apt-dana-sub002/internal/transport/http"
)

const (
	notifyBuffer = 64
	auditBuffer  = 256
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, cleanupRemote, err := buildRemote(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanupRemote()

	local, cleanupLocal, err := buildLocal(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanupLocal()

	store := dualstore.New(remote, local, log)

	auditStore, cleanupAudit, err := buildAuditStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanupAudit()

	// Emitters append to the queue; the worker drains into the sink so broker
	// latency never reaches a gate decision.
	auditQueue := audit.NewQueue(auditBuffer)
	auditPub := audit.NewPublisher(auditQueue)
	auditWorker := audit.NewWorker(auditStore, auditQueue.Events(), log)

	notifier := notify.NewWorker(notify.NewLogSender(log), notifyBuffer, log)

	controller := gate.NewController(
		store,
		ledger.New(store),
		appointment.NewMatcher(store),
		notifier,
		auditPub,
		gatemetrics.New(),
		log,
	)
	controller.AlertRecipient = cfg.AlertRecipient

	workflow := registration.NewWorkflow(store, notifier, auditPub, log)
	workflow.ApproverRecipient = cfg.ApproverRecipient
	workflow.Metrics = regmetrics.New()

	authn := httptransport.NewAuthenticator([]byte(cfg.JWTSigningKey))
	router := httptransport.NewRouter(
		httptransport.NewGateHandler(controller, log),
		httptransport.NewRegistrationHandler(workflow, authn, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := notifier.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := auditWorker.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting gate service", "addr", cfg.Addr, "branch", cfg.BranchName)
		return httpserver.Run(gctx, srv)
	})
	return g.Wait()
}

// buildRemote connects the authoritative Postgres Directory, or an in-memory
// stand-in when none is configured.
func buildRemote(ctx context.Context, cfg config.Config, log *slog.Logger) (directory.Client, func(), error) {
	if cfg.PostgresURL == "" {
		log.Warn("no postgres configured, remote directory is in-memory")
		return memory.NewClient(), func() {}, nil
	}
	if err := postgresdir.Migrate(cfg.PostgresURL); err != nil {
		return nil, nil, err
	}
	pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	return postgresdir.NewClient(pool), pool.Close, nil
}

// buildLocal connects the Redis fallback cache, or an in-memory cache when
// none is configured.
func buildLocal(ctx context.Context, cfg config.Config, log *slog.Logger) (directory.Client, func(), error) {
	client, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("no redis configured, fallback cache is in-memory")
		return memory.NewClient(), func() {}, nil
	}
	return redisdir.NewClient(client.Client), func() { _ = client.Close() }, nil
}

// buildAuditStore wires the Kafka audit sink when brokers are configured,
// otherwise an in-process store.
func buildAuditStore(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("no kafka configured, audit trail is in-memory")
		return audit.NewMemoryStore(), func() {}, nil
	}
	sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic, log)
	if err != nil {
		return nil, nil, err
	}
	if err := sink.EnsureTopic(ctx, 1, 1); err != nil {
		sink.Close()
		return nil, nil, err
	}
	return sink, sink.Close, nil
}
