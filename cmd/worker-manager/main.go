// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	commonaws "idea-eval-workers/internal/common/aws"
	"idea-eval-workers/internal/common/config"
	"idea-eval-workers/internal/common/database"
	"idea-eval-workers/internal/common/logger"
	"idea-eval-workers/internal/common/observability"
	"idea-eval-workers/internal/common/storage"

	"idea-eval-workers/internal/adapters"
	"idea-eval-workers/internal/intake"
	"idea-eval-workers/internal/moderation"
	"idea-eval-workers/internal/notify"
	"idea-eval-workers/internal/pipeline"
	"idea-eval-workers/internal/search"
	"idea-eval-workers/internal/store"

	pe "idea-eval-workers/internal/workers/evaluation/process-evaluation"
	rif "idea-eval-workers/internal/workers/evaluation/register-intake-file"
	srn "idea-eval-workers/internal/workers/evaluation/send-result-notification"
	ad "idea-eval-workers/internal/workers/moderation/apply-decision"
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
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
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

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var indexer pipeline.SearchIndexer
	if cfg.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = search.NewIndexer(esClient.Client, cfg.Search.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init blob store ---
	blobs, err := storage.NewBlobStore(ctx, cfg.Storage)
	if err != nil {
		zapLog.Fatal("blob store init failed", zap.Error(err))
	}

	// --- Stores ---
	evaluations := store.NewEvaluationStore(pg.DB, log)
	files := store.NewIntakeFileStore(pg.DB, log)
	audit := store.NewAuditStore(pg.DB, log)
	users := store.NewUserStore(pg.DB)

	// --- Adapters ---
	ocrClient := adapters.NewOCRClient(cfg.Services.OCR, log)
	speechClient := adapters.NewSpeechClient(cfg.Services.Speech, log)
	synthesisClient, err := adapters.NewSynthesisClient(cfg.Services.Synthesis, log)
	if err != nil {
		zapLog.Fatal("synthesis client init failed", zap.Error(err))
	}
	scoringClient := adapters.NewScoringClient(cfg.Services.Scoring, log)

	// --- Intake ---
	intakeSvc := intake.NewService(blobs, files, audit, log)

	// --- Pipeline ---
	orchestrator := pipeline.NewOrchestrator(pipeline.Options{
		Evaluations:     evaluations,
		Files:           files,
		Audit:           audit,
		Lock:            pipeline.NewRunLock(rdb.Client, cfg.Pipeline.RunLockTTL, log),
		OCR:             ocrClient,
		Speech:          speechClient,
		Synthesis:       synthesisClient,
		Scoring:         scoringClient,
		Blobs:           blobs,
		Indexer:         indexer,
		ExtractionRetry: pipeline.DefaultRetryPolicy(cfg.Services.OCR.MaxRetries, cfg.Services.OCR.BaseDelay),
		SynthesisRetry:  pipeline.DefaultRetryPolicy(cfg.Services.Synthesis.MaxRetries, cfg.Services.Synthesis.BaseDelay),
		ScoringRetry:    pipeline.DefaultRetryPolicy(cfg.Services.Scoring.MaxRetries, cfg.Services.Scoring.BaseDelay),
		Observability:   obs,
		Logger:          log,
	})

	// --- Moderation ---
	moderationSvc := moderation.NewService(evaluations, users, rdb.Client, cfg.Pipeline.RoleCacheTTL, audit, log)

	// --- Notifications ---
	var notifier *notify.Notifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		sesClient, err := commonaws.NewSESClient(ctx, cfg.Notifications.AWSRegion)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		snsClient, err := commonaws.NewSNSClient(ctx, cfg.Notifications.AWSRegion)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		notifier = notify.NewNotifier(sesClient, snsClient, users, cfg.Notifications, log)
	}

	zapLog.Info("All service clients initialized")

	// --- Register Workers ---
	if cfg.Workers[pe.TaskType].Enabled {
		handler := pe.NewHandler(pe.LoadConfig(), orchestrator, evaluations, log)
		startWorker(zeebeClient, pe.TaskType, cfg.Workers[pe.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rif.TaskType].Enabled {
		handler := rif.NewHandler(rif.LoadConfig(), intakeSvc, log)
		startWorker(zeebeClient, rif.TaskType, cfg.Workers[rif.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[srn.TaskType].Enabled {
		if notifier == nil {
			zapLog.Fatal("send-result-notification enabled but no notification channel configured")
		}
		handler := srn.NewHandler(srn.LoadConfig(), evaluations, notifier, log)
		startWorker(zeebeClient, srn.TaskType, cfg.Workers[srn.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ad.TaskType].Enabled {
		handler := ad.NewHandler(ad.LoadConfig(), moderationSvc, log)
		startWorker(zeebeClient, ad.TaskType, cfg.Workers[ad.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			status := "ready"
			code := http.StatusOK
			if err := pg.Ping(r.Context()); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{
				"status": status,
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
