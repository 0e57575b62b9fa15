package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/vidtube/vidtube-backend/internal/config"
	"github.com/vidtube/vidtube-backend/internal/http/handler"
	"github.com/vidtube/vidtube-backend/internal/http/router"
	"github.com/vidtube/vidtube-backend/internal/observability"
	"github.com/vidtube/vidtube-backend/internal/repository"
	"github.com/vidtube/vidtube-backend/internal/security"
	"github.com/vidtube/vidtube-backend/internal/service"
	"github.com/vidtube/vidtube-backend/internal/storage"
)

// App owns every long-lived resource and tears them down in reverse order on
// shutdown.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server

	mongoClient *mongo.Client
	redisClient *redis.Client
	obs         *observability.Runtime
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	obs, err := observability.InitRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	mongoClient, err := repository.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := mongoClient.Database(cfg.MongoDatabase)

	users, err := repository.NewUserRepository(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("init user repository: %w", err)
	}
	subs, err := repository.NewSubscriptionRepository(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("init subscription repository: %w", err)
	}
	videos := repository.NewVideoRepository(db)
	profiles := repository.NewProfileRepository(db)

	store, err := storage.New(&storage.Config{
		Provider: cfg.StorageProvider,
		ID:       cfg.StorageID,
		Secret:   cfg.StorageSecret,
		Region:   cfg.StorageRegion,
		Bucket:   cfg.StorageBucket,
		Endpoint: cfg.StorageEndpoint,
		BaseURL:  cfg.StorageBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	uploader := storage.NewUploader(store, cfg.StorageBaseURL)

	var redisClient *redis.Client
	var negCache service.NegativeLookupCacheStore
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		negCache = service.NewRedisNegativeLookupCacheStore(redisClient, "vidtube")
	} else {
		negCache = service.NewInMemoryNegativeLookupCacheStore()
	}

	tokens := security.NewTokenManager(cfg.TokenIssuer, cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authService := service.NewAuthService(users, tokens, uploader, negCache, logger)
	channelService := service.NewChannelService(profiles, users, subs, videos, negCache, cfg.NegativeCacheTTL, logger)
	videoService := service.NewVideoService(videos, uploader, logger)

	mux := router.New(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authService, tokens),
		ChannelHandler:   handler.NewChannelHandler(channelService),
		VideoHandler:     handler.NewVideoHandler(videoService),
		TokenManager:     tokens,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		BodyLimitBytes:   cfg.BodyLimitBytes,
		RequestTimeout:   cfg.RequestTimeout,
		EnableOTelHTTP:   cfg.OTELEnabled,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:         cfg,
		logger:      logger,
		server:      server,
		mongoClient: mongoClient,
		redisClient: redisClient,
		obs:         obs,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// releases resources.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", a.cfg.HTTPAddr, "env", a.cfg.Env)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.redisClient != nil {
		if cerr := a.redisClient.Close(); cerr != nil {
			a.logger.Warn("redis close failed", "error", cerr)
		}
	}
	if derr := a.mongoClient.Disconnect(cleanupCtx); derr != nil {
		a.logger.Warn("mongo disconnect failed", "error", derr)
	}
	if oerr := a.obs.Shutdown(cleanupCtx); oerr != nil {
		a.logger.Warn("observability shutdown failed", "error", oerr)
	}
	return err
}
