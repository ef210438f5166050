package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/api"
	"github.com/yamdb/yamdb-api/internal/core/ports"
	"github.com/yamdb/yamdb-api/internal/core/service"
	"github.com/yamdb/yamdb-api/internal/infrastructure/db/mongo"
	"github.com/yamdb/yamdb-api/internal/infrastructure/db/redis"
	"github.com/yamdb/yamdb-api/internal/infrastructure/http/handlers"
	"github.com/yamdb/yamdb-api/internal/infrastructure/mail"
	"github.com/yamdb/yamdb-api/internal/infrastructure/queue"
	"github.com/yamdb/yamdb-api/internal/pkg/config"
	"github.com/yamdb/yamdb-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "yamdb-api",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	counters := mongo.NewCounters(db)
	users := mongo.NewUserRepository(db, counters)
	categories := mongo.NewCategoryRepository(db)
	genres := mongo.NewGenreRepository(db)
	titles := mongo.NewTitleRepository(db, counters)
	reviews := mongo.NewReviewRepository(db, counters)
	comments := mongo.NewCommentRepository(db, counters)

	// --- Core ---
	catalog := service.NewCatalogService(categories, genres, titles, reviews, comments, log)

	// The dispatcher outlives the HTTP server so refreshes queued by
	// in-flight requests still run during shutdown.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.RatingWorkers, catalog, log)
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	tokens := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	auth := service.NewAuthService(
		users,
		newMailer(cfg.Mail, log),
		tokens,
		redis.NewSignupCooldown(rdb, cfg.Auth.SignupCooldown),
		service.AuthOptions{
			CodeTTL:        cfg.Auth.CodeTTL,
			SingleUseCodes: cfg.Auth.SingleUseCodes,
			HashCost:       cfg.Auth.CodeHashCost,
		},
		log,
	)

	e := api.NewRouter(api.Services{
		Auth:    auth,
		Users:   service.NewUserService(users, reviews, comments, dispatcher, log),
		Catalog: catalog,
		Reviews: service.NewReviewService(titles, reviews, comments, dispatcher, log),
		Tokens:  tokens,
	}, map[string]handlers.Pinger{
		"mongo": mongo.Pinger{Client: mongoClient},
		"redis": redis.Pinger{Client: rdb},
	}, log)

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newMailer(cfg config.MailConfig, log zerolog.Logger) ports.Mailer {
	if cfg.Backend == config.MailBackendSMTP {
		return mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		})
	}
	return mail.NewConsoleMailer(log)
}
