package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliphub/backend/internal/auth"
	"github.com/cliphub/backend/internal/config"
	"github.com/cliphub/backend/internal/handlers"
	"github.com/cliphub/backend/internal/media"
	"github.com/cliphub/backend/internal/middleware"
	"github.com/cliphub/backend/internal/repositories"
	"github.com/cliphub/backend/internal/storage"
)

const ingestorShutdownTimeout = 30 * time.Second

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains the ingestor so staged uploads finish
// before the process exits.
func buildDependencies(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(), error) {
	sessionStore := repositories.NewPostgresSessionStore(pool)
	manager, err := auth.NewManager(cfg.TokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	objectStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	videoRepo := repositories.NewPostgresVideoRepository(pool)
	ingestor := media.NewIngestor(objectStore, videoRepo, media.IngestorConfig{
		QueueSize: cfg.Ingest.QueueSize,
		Workers:   cfg.Ingest.Workers,
	}, logger)

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ingestorShutdownTimeout)
		defer cancel()
		if err := ingestor.Shutdown(shutdownCtx); err != nil {
			logger.Error("ingestor shutdown", "error", err)
		}
	}

	deps := handlers.Dependencies{
		Users:         repositories.NewPostgresUserRepository(pool),
		Sessions:      manager,
		Verifier:      manager,
		Videos:        videoRepo,
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Images:        objectStore,
		Ingestor:      ingestor,
		DB:            pool,
		AuthLimiter:   middleware.NewIPRateLimiter(10, time.Minute, 10, 10*time.Minute),
		UploadDir:     cfg.UploadDir,
		MaxUploadSize: cfg.MaxUploadSize,
	}

	return deps, cleanup, nil
}
