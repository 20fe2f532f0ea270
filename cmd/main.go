package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"contacts-service/internal/avatar"
	"contacts-service/internal/mailer"
	"contacts-service/internal/repository"
	"contacts-service/internal/repository/gormrepo"
	"contacts-service/internal/repository/mongorepo"
	"contacts-service/internal/server"
	"contacts-service/pkg/config"
	"contacts-service/pkg/database"
	"contacts-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type store struct {
	users    repository.UserRepository
	contacts repository.ContactRepository
	close    func() error
}

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "contacts-service",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting contacts service...", cfg.LogFields()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connection established", zap.String("driver", cfg.DB.Driver))

	avatars, err := openAvatarStorage(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize avatar storage", zap.Error(err))
	}

	mail, err := mailer.New(cfg.Mail, cfg.Server.PublicURL, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	e := server.New(server.Deps{
		Config:   cfg,
		Logger:   log,
		Users:    st.users,
		Contacts: st.contacts,
		Mailer:   mail,
		Avatars:  avatars,
	})

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	if cfg.DB.Driver == config.DriverMongo {
		client, db, err := database.OpenMongo(ctx, &cfg.DB)
		if err != nil {
			return nil, err
		}
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &store{
			users:    mongorepo.NewUserRepository(db),
			contacts: mongorepo.NewContactRepository(db),
			close:    func() error { return disconnect(client) },
		}, nil
	}

	db, err := database.OpenGorm(&cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := gormrepo.Migrate(db); err != nil {
		_ = database.CloseGorm(db)
		return nil, err
	}
	return &store{
		users:    gormrepo.NewUserRepository(db),
		contacts: gormrepo.NewContactRepository(db),
		close:    func() error { return database.CloseGorm(db) },
	}, nil
}

func disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

func openAvatarStorage(ctx context.Context, cfg *config.Config) (avatar.Storage, error) {
	if cfg.Avatar.Storage == config.StorageS3 {
		return avatar.NewS3Storage(ctx, cfg.Avatar)
	}
	return avatar.NewLocalStorage(cfg.Avatar.Dir, cfg.Avatar.URLPrefix)
}
