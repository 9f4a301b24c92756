// cmd/support-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"support-orchestrator/internal/agent"
	"support-orchestrator/internal/cache"
	"support-orchestrator/internal/classifier"
	"support-orchestrator/internal/common/config"
	"support-orchestrator/internal/common/database"
	"support-orchestrator/internal/common/errors"
	"support-orchestrator/internal/common/logger"
	"support-orchestrator/internal/common/observability"
	"support-orchestrator/internal/models"
	"support-orchestrator/internal/orchestrator"
	"support-orchestrator/internal/router"
	"support-orchestrator/internal/session"
	"support-orchestrator/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting support orchestrator...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry (when any backend needs it) ---
	var pg *database.PostgresClient
	if cfg.Database.Transactions.Backend == "postgres" {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Redis with retry ---
	var rd *database.RedisClient
	if cfg.Session.Backend == "redis" || cfg.Cache.Backend == "redis" {
		err = retryWithBackoff(func() error {
			var err error
			rd, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rd.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rd.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Elasticsearch with retry ---
	var es *database.ElasticsearchClient
	if cfg.FAQ.Backend == "elasticsearch" {
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Reference stores ---
	var transactions store.TransactionStore
	switch cfg.Database.Transactions.Backend {
	case "postgres":
		transactions = store.NewPostgresTransactionStore(pg.GetDB())
	default:
		transactions, err = store.NewCSVTransactionStore(cfg.Database.Transactions.Path)
		if err != nil {
			zapLog.Fatal("transaction data load failed", zap.Error(err))
		}
	}

	var faqs store.FAQStore
	switch cfg.FAQ.Backend {
	case "elasticsearch":
		faqs = store.NewElasticFAQStore(es.Client, cfg.FAQ.Index)
	default:
		faqs, err = store.NewFileFAQStore(cfg.FAQ.Path)
		if err != nil {
			zapLog.Fatal("faq data load failed", zap.Error(err))
		}
	}

	var interactions store.InteractionLog
	if pg != nil {
		interactions = store.NewPostgresInteractionLog(pg.GetDB())
	} else {
		interactions = store.NewInMemoryInteractionLog()
	}

	// --- Session and cache backends ---
	var repo session.Repository
	if cfg.Session.Backend == "redis" {
		repo = session.NewRedisRepository(rd.GetClient(), cfg.Session.Timeout())
	} else {
		repo = session.NewInMemoryRepository()
	}
	defer repo.Close()

	var respCache cache.Cache
	if cfg.Cache.Backend == "redis" {
		respCache = cache.NewRedisCache(rd.GetClient(), log)
	} else {
		respCache = cache.NewInMemoryCache(cfg.Cache.MaxEntries)
	}

	// --- Core wiring ---
	errs := errors.NewHandler(log)
	sessions := session.NewManager(repo, cfg.Session, log)
	sessions.StartSweeper(ctx)

	cls := classifier.NewHTTPClassifier(cfg.Classifier, log)

	agents := map[models.Intent]agent.Agent{
		models.IntentRefund:  agent.NewRefundAgent(transactions, interactions, sessions, errs, log),
		models.IntentFAQ:     agent.NewFAQAgent(faqs, cfg.FAQ.MatchThreshold, log),
		models.IntentGeneral: agent.NewGeneralAgent(),
	}

	rt := router.New(cls, cfg.Classifier.ConfidenceThreshold, agents, log)
	orch := orchestrator.New(cfg, sessions, respCache, rt, interactions, errs, obs, log)

	// --- HTTP server ---
	mux := http.NewServeMux()
	api := newAPI(orch, log)
	mux.HandleFunc("/v1/query", api.handleQuery)
	mux.HandleFunc("/v1/sessions/", api.handleSession)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
