package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/postboard/postboard/internal/auth"
	"github.com/postboard/postboard/internal/observability"
	"github.com/postboard/postboard/internal/posts"
)

// Deps carries the external resources opened by the caller.
type Deps struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
}

// BuildHandler constructs the auth core and the post collaborator for cfg
// and returns the root HTTP handler.
func BuildHandler(cfg *Config, logger *slog.Logger, deps Deps) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Redis == nil {
		return nil, errors.New("app: redis client is required")
	}

	var (
		accounts auth.Repository
		postRepo posts.Repository
	)
	switch cfg.StoreDriver {
	case StoreDriverMemory:
		accounts = auth.NewMemoryRepository()
		postRepo = posts.NewMemoryRepository()
	case StoreDriverPostgres:
		if deps.Pool == nil {
			return nil, errors.New("app: postgres pool is required")
		}
		accounts = auth.NewRepository(deps.Pool)
		postRepo = posts.NewRepository(deps.Pool)
	default:
		return nil, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
	}

	tokens, err := auth.NewTokenCodec([]byte(cfg.AuthSecret), cfg.AuthTokenTTL)
	if err != nil {
		return nil, err
	}
	service, err := auth.NewService(accounts, auth.NewHasher(cfg.AuthBcryptCost), tokens, deps.Metrics)
	if err != nil {
		return nil, fmt.Errorf("app: auth service: %w", err)
	}
	resolver := auth.NewResolver(accounts, tokens, logger, deps.Metrics)

	postService := posts.NewService(postRepo, posts.NewRedisLikes(deps.Redis, "postboard"), logger)

	return NewRouter(RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  auth.NewHandler(logger, service, resolver, cfg.AuthLoginRate),
		PostsHandler: posts.NewHandler(logger, postService, resolver),
		Metrics:      deps.Metrics,
	}), nil
}
