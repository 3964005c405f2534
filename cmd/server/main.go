// main wires high-level dependencies, exposes the HTTP router, and runs the
// server lifecycle under one errgroup. Court semantics live in the internal
// services packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CthulhuOnIce/Stasi-sub000/internal/audit"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/blob"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/casemanager"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/directory"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/docstore"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/jwttoken"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/notify"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/config"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/httpserver"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/logger"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/metrics"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/platform/postgres"
	platformredis "github.com/CthulhuOnIce/Stasi-sub000/internal/platform/redis"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/scheduler"
	httptransport "github.com/CthulhuOnIce/Stasi-sub000/internal/transport/http"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/viewstate"
	"github.com/CthulhuOnIce/Stasi-sub000/internal/warden"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Persistence. Postgres backs both the document store and the audit
	// trail; without a URL everything runs in memory.
	var caseStore docstore.Store = docstore.NewMemory()
	var auditStore audit.Store = audit.NewMemory()
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pgStore := docstore.NewPostgres(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		caseStore = pgStore

		pool, err := postgres.OpenPool(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pgAudit := audit.NewPostgres(pool)
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			return err
		}
		auditStore = pgAudit
	}

	var views viewstate.Store = viewstate.NewMemory()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		views = viewstate.NewRedis(redisClient.Client)
	}

	auditSvc := audit.NewService(log)
	workerOpts := []audit.WorkerOption{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		workerOpts = append(workerOpts, audit.WithPublisher(kafka))
	}
	auditWorker := audit.NewWorker(auditStore, auditSvc.Inbox(), log, workerOpts...)

	// The member directory is in-memory until a chat gateway adapter is
	// plugged in; moderation state still persists across restarts.
	dir := directory.NewMemory()
	notifier := notify.NewLogNotifier(log)

	wrd, err := warden.New(caseStore, dir, cfg.MuteRole, log, warden.WithMetrics(m))
	if err != nil {
		return err
	}
	if err := wrd.Load(ctx); err != nil {
		return err
	}

	manager, err := casemanager.NewManager(casemanager.Deps{
		Store:     caseStore,
		Blobs:     blob.NewMemory(),
		Directory: dir,
		Notifier:  notifier,
		Warden:    wrd,
		Audit:     auditSvc,
		Logger:    log,
		Metrics:   m,
		Clock:     time.Now,
		RNG:       rand.New(rand.NewSource(time.Now().UnixNano())),
		Policy:    casemanager.DefaultPolicy(),
	})
	if err != nil {
		return err
	}
	if err := manager.Load(ctx); err != nil {
		return err
	}

	sched := scheduler.New(cfg.TickInterval, log, scheduler.WithMetrics(m))
	sched.Register(manager)
	sched.Register(wrd)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "court")
	handler := httptransport.NewHandler(manager, wrd, views, tokens, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCancel(auditWorker.Run(ctx))
	})
	g.Go(func() error {
		return ignoreCancel(sched.Run(ctx))
	})
	g.Go(func() error {
		log.Info("court server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
