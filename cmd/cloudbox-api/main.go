// Cloudbox API — HTTP API файлового хранилища.
//
// Процесс:
//   - Хранит дерево папок и метаданные файлов в PostgreSQL
//   - Принимает файлы во временный каталог и ставит их в очередь
//     единственного воркера, работающего с внешним хранилищем
//   - Публикует события о файлах в RabbitMQ (если настроен)
//   - Чистит временный каталог по cron-расписанию
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Cloudbox/internal/api"
	"github.com/shaiso/Cloudbox/internal/bridge"
	"github.com/shaiso/Cloudbox/internal/config"
	"github.com/shaiso/Cloudbox/internal/mq"
	"github.com/shaiso/Cloudbox/internal/remote"
	"github.com/shaiso/Cloudbox/internal/repo"
	"github.com/shaiso/Cloudbox/internal/scratch"
	"github.com/shaiso/Cloudbox/internal/telemetry"
)

var startTime = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting cloudbox-api", "backend", cfg.Remote.Backend)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
	}

	fileRepo := repo.NewFileRepo(pool)
	folderRepo := repo.NewFolderRepo(pool)

	// Временный каталог
	scratchDir, err := scratch.New(cfg.Scratch.Dir)
	if err != nil {
		logger.Error("failed to prepare scratch dir", "error", err)
		os.Exit(1)
	}

	// Сохранённая сессия
	sessions := bridge.NewFileSessionStore(cfg.Remote.SessionFile)
	creds := cfg.Remote.Credentials
	if creds.SessionToken == "" {
		token, err := sessions.Load()
		if err != nil {
			logger.Warn("failed to read session file", "path", cfg.Remote.SessionFile, "error", err)
		}
		creds.SessionToken = token
	}

	client, err := newRemoteClient(cfg.Remote, creds)
	if err != nil {
		logger.Error("failed to create remote client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	// RabbitMQ (необязательно)
	var events bridge.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		mqConn, err := mq.NewConnection(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, file events disabled", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			} else {
				logger.Debug("topology ready", "topology", mq.TopologyInfo())
			}
			events = mq.NewPublisher(mqConn, logger)
		}
	}

	// Воркер хранилища
	service := bridge.New(bridge.Config{
		Client:         client,
		Credentials:    creds,
		Records:        fileRepo,
		Sessions:       sessions,
		Events:         events,
		Cleanup:        scratchDir.Release,
		QueueCapacity:  cfg.Remote.QueueCapacity,
		ConnectTimeout: cfg.Remote.ConnectTimeout,
		ReadyTimeout:   cfg.Remote.ReadyTimeout,
		ResultTimeout:  cfg.Remote.ResultTimeout,
		Logger:         logger,
	})
	if err := service.Start(ctx); err != nil {
		logger.Error("failed to start storage service", "error", err)
		os.Exit(1)
	}

	// Чистка временного каталога
	janitor, err := scratch.NewJanitor(scratch.JanitorConfig{
		Dir:      scratchDir,
		Schedule: cfg.Scratch.SweepSchedule,
		MaxAge:   cfg.Scratch.MaxAge,
		Logger:   logger.With("component", "scratch_janitor"),
	})
	if err != nil {
		logger.Error("invalid sweep schedule", "error", err)
		os.Exit(1)
	}
	go janitor.Run(ctx)

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Files:          fileRepo,
		Folders:        folderRepo,
		Transfer:       service,
		Scratch:        scratchDir,
		Credentials:    creds,
		SessionFile:    cfg.Remote.SessionFile,
		MaxUploadBytes: cfg.API.MaxUploadBytes,
		Logger:         logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":" + cfg.API.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Воркер завершает текущую команду и выходит
	select {
	case <-service.Done():
	case <-shutdownCtx.Done():
		logger.Warn("storage worker did not stop in time")
	}

	logger.Info("stopped")
}

// newRemoteClient создаёт клиент хранилища по конфигурации.
func newRemoteClient(cfg config.RemoteConfig, creds remote.Credentials) (remote.Client, error) {
	switch cfg.Backend {
	case config.BackendS3:
		client, err := remote.NewS3(cfg.S3, creds)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendMemory:
		return remote.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}
}
