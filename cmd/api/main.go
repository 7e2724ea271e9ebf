package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/market-realtime/internal/application/attachment"
	"github.com/market-realtime/internal/application/chat"
	"github.com/market-realtime/internal/application/notification"
	"github.com/market-realtime/internal/config"
	"github.com/market-realtime/internal/infrastructure/awsconf"
	"github.com/market-realtime/internal/infrastructure/dynamo"
	jwtinfra "github.com/market-realtime/internal/infrastructure/jwt"
	"github.com/market-realtime/internal/infrastructure/memory"
	s3infra "github.com/market-realtime/internal/infrastructure/s3"
	"github.com/market-realtime/internal/realtime"
	transporthttp "github.com/market-realtime/internal/transport/http"
	"github.com/market-realtime/internal/transport/ws"
)

// stores groups the persistence backends selected by STORAGE_DRIVER.
type stores struct {
	messages      chat.MessageStore
	notifications notification.Store
	objects       attachment.ObjectStore
	attachments   attachment.Repo
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Cancelled on shutdown so live sockets close with "going away".
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	st, err := openStores(baseCtx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry, logger)

	notificationSvc := notification.NewService(st.notifications, dispatcher, logger)
	chatSvc := chat.NewService(chat.ServiceDeps{
		Messages:      st.messages,
		Notifications: st.notifications,
		Dispatcher:    dispatcher,
		Log:           logger,
	})
	attachmentSvc := attachment.NewService(st.objects, st.attachments, cfg.Attachments.MaxBytes)

	live := ws.NewHandler(ws.HandlerDeps{
		Verifier:    jwtProvider,
		Chat:        chatSvc,
		Registry:    registry,
		Config:      cfg.WS,
		Log:         logger,
		BaseContext: baseCtx,
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Chat:          chatSvc,
		Notifications: notificationSvc,
		Attachments:   attachmentSvc,
		Registry:      registry,
		Verifier:      jwtProvider,
		Live:          live,
	})

	// No WriteTimeout: hijacked live connections keep the deadline the
	// server set before the upgrade.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, storage=%s)", cfg.AppPort, cfg.AppEnv, cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return &stores{
			messages:      memory.NewMessageStore(),
			notifications: memory.NewNotificationStore(),
			objects:       memory.NewObjectStore(cfg.Attachments.PublicBaseURL),
			attachments:   memory.NewAttachmentRepo(),
		}, nil
	case config.StorageDynamo:
		awsCfg, err := awsconf.Load(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Creates missing tables, which only matters against LocalStack.
		client := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		counters := dynamo.NewCounters(client, cfg.DynamoTables.Counters)

		return &stores{
			messages:      dynamo.NewMessageRepo(client, cfg.DynamoTables.Messages, counters),
			notifications: dynamo.NewNotificationRepo(client, cfg.DynamoTables.Notifications, counters),
			objects:       s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.S3BucketName, cfg.Attachments.PublicBaseURL, cfg.Attachments.URLTTL),
			attachments:   dynamo.NewAttachmentRepo(client, cfg.DynamoTables.Attachments),
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
