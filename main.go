package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardanocart/internal/config"
	"cardanocart/internal/database"
	"cardanocart/internal/repositories"
	"cardanocart/internal/router"
	"cardanocart/internal/services"
	"cardanocart/pkg/googleauth"
	"cardanocart/pkg/logger"
	"cardanocart/pkg/rabbitmq"
	"cardanocart/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// application owns the process-wide resources behind the HTTP server.
type application struct {
	cfg    *config.Config
	db     *gorm.DB
	mq     *rabbitmq.Client
	server *fiber.App
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	app, err := newApp(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	app.startConsumer(ctx)

	// --- Start HTTP Server ---
	logrus.WithField("port", cfg.App.Port).Info("Starting server")

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.server.Listen(cfg.App.Port); err != nil {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	logrus.Info("Shutting down server...")
	stop()

	if err := app.server.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.WithError(err).Error("Error during Fiber shutdown")
	}
	logrus.Info("Server gracefully stopped")
}

// newApp connects the database, the blob store and the event broker and
// builds the HTTP server on top of them.
func newApp(cfg *config.Config) (*application, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, err
	}

	blobs, err := newBlobStore(cfg.Storage)
	if err != nil {
		database.Close(db)
		return nil, err
	}

	app := &application{cfg: cfg, db: db}

	// A nil publisher disables events; the services tolerate it.
	var events services.EventPublisher
	if cfg.RabbitMQ.Enabled {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    cfg.RabbitMQ.Queue,
		})
		if err != nil {
			database.Close(db)
			return nil, err
		}
		app.mq = mq
		events = mq
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	tokenRepo := repositories.NewGORMTokenRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	categoryRepo := repositories.NewGORMCategoryRepository(db)
	subcategoryRepo := repositories.NewGORMSubcategoryRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	tx := repositories.NewGORMTxManager(db)

	if purged, err := tokenRepo.PurgeExpired(context.Background(), time.Now()); err != nil {
		logrus.WithError(err).Warn("Failed to purge expired refresh tokens")
	} else if purged > 0 {
		logrus.WithField("count", purged).Info("Purged expired refresh tokens")
	}

	var verifier services.IdentityVerifier
	if cfg.Google.ClientID != "" {
		verifier = googleauth.NewVerifier(cfg.Google.ClientID)
	} else {
		logrus.Warn("GOOGLE_CLIENT_ID is not set; Google login is disabled")
	}

	// --- Initialize Services ---
	tokens := services.NewTokenService(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	deps := router.Dependencies{
		Config:     cfg,
		Auth:       services.NewAuthService(userRepo, tokenRepo, tx, tokens, verifier, events),
		Users:      services.NewUserService(userRepo, blobs),
		Products:   services.NewProductService(productRepo, subcategoryRepo, reviewRepo, tx, blobs, events),
		Categories: services.NewCategoryService(categoryRepo, subcategoryRepo, productRepo, tx),
		Reviews:    services.NewReviewService(reviewRepo, productRepo),
		Orders:     services.NewOrderService(orderRepo, productRepo, tx, events),
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	app.server = router.New(deps)
	return app, nil
}

func newBlobStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "s3":
		return storage.NewS3Store(storage.S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			BaseURL:         cfg.BaseURL,
		})
	case "local":
		return storage.NewLocalStore(cfg.LocalDir, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// startConsumer logs the order events published by this instance until
// ctx is cancelled. It does nothing when RabbitMQ is disabled.
func (a *application) startConsumer(ctx context.Context) {
	if a.mq == nil {
		return
	}
	logrus.Info("Starting RabbitMQ consumer for orders...")
	if err := a.mq.ConsumeOrderEvents(ctx, rabbitmq.LogOrderEvent); err != nil {
		logrus.WithError(err).Error("Failed to start RabbitMQ consumer")
	}
}

func (a *application) close() {
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			logrus.WithError(err).Error("Error closing RabbitMQ connection")
		}
	}
	database.Close(a.db)
}
