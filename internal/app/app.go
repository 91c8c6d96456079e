// Package app builds the service graph from config.Config. Both the HTTP
// server and the CLI start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/studybuddy/config"
	"github.com/yoockh/studybuddy/internal/cache"
	"github.com/yoockh/studybuddy/internal/coercer"
	"github.com/yoockh/studybuddy/internal/gateway"
	"github.com/yoockh/studybuddy/internal/observability"
	"github.com/yoockh/studybuddy/internal/providers/embedding"
	"github.com/yoockh/studybuddy/internal/providers/llm"
	"github.com/yoockh/studybuddy/internal/repositories/inmemory"
	"github.com/yoockh/studybuddy/internal/repositories/jsonl"
	mongorepo "github.com/yoockh/studybuddy/internal/repositories/mongo"
	"github.com/yoockh/studybuddy/internal/repositories/postgres"
	"github.com/yoockh/studybuddy/internal/repositories/sqlite"
	"github.com/yoockh/studybuddy/internal/services"
	"github.com/yoockh/studybuddy/internal/storage"
	"github.com/yoockh/studybuddy/internal/workers"
)

const cachePrefix = "studybuddy:"

type App struct {
	Config   config.Config
	Log      *logrus.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	Gateway  gateway.Gateway
	Store    services.MessageStore
	Chat     services.ChatService
	Sessions services.SessionService
	Indexer  services.Indexer // nil when EMBED_PROVIDER=none
	Redis    *redis.Client    // nil when REDIS_ADDR is unset

	closers []func() error
}

// Build connects every configured backend. On error, whatever was already
// opened is closed.
func Build(ctx context.Context, cfg config.Config, log *logrus.Logger) (a *App, err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a = &App{
		Config:   cfg,
		Log:      log,
		Registry: reg,
		Metrics:  observability.NewMetrics(cfg.MetricsNamespace, reg),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if cfg.RedisAddr != "" {
		rdb, err := config.NewRedis(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Redis = rdb
		a.onClose(rdb.Close)
		log.Info("Redis connected")
	}

	chat, err := a.buildChat(ctx)
	if err != nil {
		return nil, err
	}
	emb, err := a.buildEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	a.Gateway = gateway.New(chat, emb, cfg.LLMTimeout, a.Metrics)

	convos, err := jsonl.NewConversationRepo(cfg.ConversationsDir, log)
	if err != nil {
		return nil, err
	}

	opts := services.MessageStoreOptions{
		Conversations: convos,
		ExportDir:     cfg.ExportDir,
		Logger:        log,
		Metrics:       a.Metrics,
	}

	if emb != nil {
		repo, err := a.buildIndexRepo(ctx)
		if err != nil {
			return nil, err
		}
		a.Indexer = services.NewIndexer(a.Gateway, repo)
		opts.Indexer = a.Indexer
		if a.Redis != nil {
			opts.Queue = workers.NewIndexQueue(a.Redis)
		}
	} else {
		log.Warn("EMBED_PROVIDER=none, semantic index disabled")
	}

	if cfg.ExportBucket != "" {
		up, err := storage.NewGCSUploader(ctx, cfg.ExportBucket)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		a.onClose(up.Close)
		opts.Uploader = up
	}

	a.Store = services.NewMessageStore(opts)
	a.Chat = services.NewChatService(services.NewContextAssembler(a.Store), a.Gateway, coercer.Default(), a.Store, log, a.Metrics)

	sessions, err := a.buildSessionRepo(ctx)
	if err != nil {
		return nil, err
	}
	a.Sessions = services.NewSessionService(sessions, cfg.DefaultMemoryK)

	return a, nil
}

func (a *App) buildChat(ctx context.Context) (llm.Provider, error) {
	cfg := a.Config
	switch cfg.LLMProvider {
	case "openai":
		return llm.NewOpenAIChat(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Temperature), nil
	default:
		p, err := llm.NewVertexGemini(ctx, cfg.GCPProject, cfg.GCPLocation, cfg.GeminiModel, cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("vertex gemini: %w", err)
		}
		a.onClose(p.Close)
		return p, nil
	}
}

// buildEmbedder returns nil for EMBED_PROVIDER=none.
func (a *App) buildEmbedder(ctx context.Context) (embedding.Embedder, error) {
	cfg := a.Config

	var base embedding.Embedder
	switch cfg.EmbedProvider {
	case "none":
		return nil, nil
	case "tei":
		base = embedding.NewTEIEmbedder(cfg.TEIURL, cfg.HFToken, cfg.EmbedModel)
	default:
		if cfg.GCPProject == "" {
			return nil, errors.New("GCP_PROJECT_ID is required for EMBED_PROVIDER=vertex")
		}
		v, err := embedding.NewVertexEmbedder(ctx, cfg.GCPProject, cfg.GCPLocation, cfg.EmbedModel)
		if err != nil {
			return nil, fmt.Errorf("vertex embedder: %w", err)
		}
		a.onClose(v.Close)
		base = v
	}

	var c cache.Cache
	if a.Redis != nil {
		c = cache.NewRedisCache(a.Redis, cachePrefix)
	} else {
		mc, err := cache.NewMemoryCache(cfg.EmbedCacheSize)
		if err != nil {
			return nil, err
		}
		c = mc
	}
	return embedding.NewCachedEmbedder(base, c, cfg.EmbedCacheTTL, a.Log), nil
}

func (a *App) buildIndexRepo(ctx context.Context) (services.IndexRepo, error) {
	if a.Config.PostgresURI != "" {
		db, err := config.NewPostgres(a.Config)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.onClose(sqlDB.Close)
		}
		repo, err := postgres.NewIndexRepo(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("postgres index: %w", err)
		}
		a.Log.Info("PostgreSQL connected, semantic index in pgvector")
		return repo, nil
	}

	repo, err := sqlite.NewIndexRepo(a.Config.IndexDir)
	if err != nil {
		return nil, fmt.Errorf("sqlite index: %w", err)
	}
	a.onClose(repo.Close)
	return repo, nil
}

func (a *App) buildSessionRepo(ctx context.Context) (mongorepo.SessionRepository, error) {
	if a.Config.MongoURI == "" {
		return inmemory.NewSessionRepo(), nil
	}
	client, db, err := config.NewMongo(ctx, a.Config)
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}
	a.onClose(func() error { return client.Disconnect(context.Background()) })
	a.Log.Info("MongoDB connected")
	return mongorepo.NewSessionRepo(db), nil
}

// StartWorkers runs the index replay pool when both Redis and an indexer are
// configured.
func (a *App) StartWorkers(ctx context.Context) error {
	if a.Redis == nil || a.Indexer == nil || a.Config.ReplayWorkers == 0 {
		return nil
	}
	pool := &workers.IndexReplayPool{
		Redis:      a.Redis,
		Indexer:    a.Indexer,
		NumWorkers: a.Config.ReplayWorkers,
		Metrics:    a.Metrics,
		Logger:     a.Log,
	}
	return pool.Start(ctx)
}

func (a *App) onClose(f func() error) { a.closers = append(a.closers, f) }

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
