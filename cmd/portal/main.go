package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/memora/internal/api"
	"github.com/your-org/memora/internal/api/ws"
	"github.com/your-org/memora/internal/config"
	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/observability"
	"github.com/your-org/memora/internal/queue"
	"github.com/your-org/memora/internal/questions"
	"github.com/your-org/memora/internal/recognition"
	"github.com/your-org/memora/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting Memora portal service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStream(context.Background()); err != nil {
		slog.Warn("ensure nats stream", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Event consumer: persist recognition attempts published by
	// companions and rebroadcast everything over WebSocket.
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "portal-events", func(ctx context.Context, msg jetstream.Msg) error {
		subject := msg.Subject()
		switch {
		case strings.HasPrefix(subject, queue.RecognitionSubject+"."):
			var event models.RecognitionEvent
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				return err
			}
			if err := db.CreateRecognitionEvent(ctx, &event); err != nil {
				slog.Error("store recognition event", "error", err)
			}
			hub.BroadcastRaw("recognition_event", event.PatientID.String(), msg.Data())

		case strings.HasPrefix(subject, queue.TransferSubject+"."):
			hub.BroadcastRaw("transfer_update", "", msg.Data())
		}
		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	// Setup router
	routerCfg := api.RouterConfig{
		DB:        db,
		MinIO:     minioStore,
		Producer:  producer,
		Hub:       hub,
		Questions: questions.NewClient(cfg.Questions),
	}
	if cfg.Recognition.BaseURL != "" {
		// Reference photos get embedded by the recognition function so
		// the matcher and the portal share one embedding store.
		routerCfg.EmbedFn = recognition.NewEmbedder(cfg.Recognition).Extract
	} else {
		slog.Warn("recognition function not configured, face embedding capture disabled")
	}
	router := api.NewRouter(routerCfg)

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("portal server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down portal server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("portal server stopped")
}
