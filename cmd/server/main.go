package main

import (
	"context"
	"errors"
	"log"
	"time"

	"school-counseling-backend/internal/auth"
	"school-counseling-backend/internal/moderation"
	"school-counseling-backend/internal/search"
	"school-counseling-backend/internal/server"
	"school-counseling-backend/internal/storage"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type appConfig struct {
	JWTSecret       string        `env:"JWT_SECRET,required"`
	AccessTTL       time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL      time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	ModerationTerms []string      `env:"MODERATION_TERMS" envSeparator:","`

	// optional bootstrap psychologist account
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	EmbeddingBaseURL string        `env:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey  string        `env:"EMBEDDING_API_KEY"`
	EmbeddingModel   string        `env:"EMBEDDING_MODEL" envDefault:"all-MiniLM-L6-v2"`
	EmbeddingTimeout time.Duration `env:"EMBEDDING_TIMEOUT" envDefault:"10s"`
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	srvCfg := server.EnvConfig{}
	if err := env.Parse(&srvCfg); err != nil {
		sugar.Fatalf("Cannot parse server env config: %v", err)
	}

	appCfg := appConfig{}
	if err := env.Parse(&appCfg); err != nil {
		sugar.Fatalf("Cannot parse app env config: %v", err)
	}

	storCfg := storage.Config{}
	if err := env.Parse(&storCfg); err != nil {
		sugar.Fatalf("Cannot parse storage env config: %v", err)
	}

	ctx := context.Background()

	store, err := storage.New(ctx, sugar, storCfg, storage.ConnectionTimeout(30*time.Second))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		sugar.Fatalf("Cannot apply migrations: %v", err)
	}

	if appCfg.AdminEmail != "" && appCfg.AdminPassword != "" {
		if err := bootstrapPsychologist(ctx, store, appCfg.AdminEmail, appCfg.AdminPassword); err != nil {
			sugar.Fatalf("Cannot bootstrap psychologist account: %v", err)
		}
	}

	issuer := auth.NewIssuer(appCfg.JWTSecret, appCfg.AccessTTL, appCfg.RefreshTTL)
	filter := moderation.NewFilter(append(moderation.DefaultTerms, appCfg.ModerationTerms...))

	var searcher *search.Searcher
	if appCfg.EmbeddingBaseURL != "" {
		client := search.NewEmbeddingClient(appCfg.EmbeddingBaseURL, appCfg.EmbeddingAPIKey,
			appCfg.EmbeddingModel, appCfg.EmbeddingTimeout)
		searcher = search.NewSearcher(sugar, client)
	} else {
		sugar.Info("EMBEDDING_BASE_URL is not set, semantic search degrades to empty results")
	}

	serverOpts := []server.Option{
		server.WithEnvConfig(srvCfg),
		server.ReadTimeout(5 * time.Second),
		server.RegisterAfterShutdown(func() {
			sugar.Info("Closing store")
			store.Close()
			sugar.Info("Store is closed")
		}),
	}

	srv, err := server.NewServer(sugar, store, issuer, filter, searcher, serverOpts...)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}

// bootstrapPsychologist ensures a counselor account for the configured
// admin email exists; an already-taken email is treated as done.
func bootstrapPsychologist(ctx context.Context, store *storage.Store, email, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < 5; attempt++ {
		_, err = store.CreatePsychologist(ctx, auth.NewStudentToken(), email, hash)
		if errors.Is(err, storage.ErrTokenExists) {
			continue
		}
		if errors.Is(err, storage.ErrEmailExists) {
			return nil
		}
		return err
	}
	return err
}
