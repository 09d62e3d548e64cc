package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faq-rag/internal/domain/faq"
	"github.com/yanqian/faq-rag/internal/infra/config"
	"github.com/yanqian/faq-rag/internal/infra/embedder"
	"github.com/yanqian/faq-rag/internal/infra/faqrepo"
	"github.com/yanqian/faq-rag/internal/infra/faqstore"
	"github.com/yanqian/faq-rag/internal/infra/generator"
	"github.com/yanqian/faq-rag/internal/infra/idmap"
	"github.com/yanqian/faq-rag/internal/infra/llm/chatgpt"
	"github.com/yanqian/faq-rag/internal/infra/tokenizer"
	"github.com/yanqian/faq-rag/internal/infra/vectorindex"
)

func provideFAQConfig(cfg *config.Config) faq.Config {
	return faq.Config{
		MinQueryLength:      cfg.FAQ.MinQueryLength,
		MaxQueryLength:      cfg.FAQ.MaxQueryLength,
		TopK:                cfg.FAQ.TopK,
		SimilarityThreshold: cfg.FAQ.SimilarityThreshold,
		ContextLimit:        cfg.FAQ.ContextLimit,
		CacheSize:           cfg.FAQ.CacheSize,
		Prompt:              cfg.FAQ.Prompt,
		FallbackAnswer:      cfg.FAQ.FallbackAnswer,
		TopRecommendations:  cfg.FAQ.TopRecommendations,
		SharedCacheTTL:      cfg.FAQ.SharedCacheTTL,
		GenerateTimeout:     cfg.LLM.Timeout,
	}
}

// The transport timeout sits past llm.timeout so generation deadlines surface
// from the context as llm_timeout.
const chatgptTransportGrace = 5 * time.Second

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout+chatgptTransportGrace)
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) faq.TokenCounter {
	return tokenizer.New(cfg.LLM.Model, logger)
}

func provideEmbedder(cfg *config.Config, client *chatgpt.Client, tokens faq.TokenCounter, logger *slog.Logger) faq.Embedder {
	if cfg.Embedding.Provider == config.EmbeddingProviderDeterministic {
		logger.Warn("using deterministic embedder, retrieval quality is for testing only", "dim", cfg.Embedding.Dimension)
		return embedder.NewDeterministicEmbedder(cfg.Embedding.Dimension)
	}
	return embedder.NewChatGPTEmbedder(client, cfg.LLM.EmbeddingModel, tokens, logger)
}

func provideGenerator(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) faq.AnswerGenerator {
	return generator.NewChatGPTGenerator(client, generator.Options{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxAttempts: cfg.LLM.MaxAttempts,
		BaseBackoff: cfg.LLM.BaseBackoff,
	}, logger)
}

// providePostgresPool returns a nil pool when no DSN is configured or the
// database is unreachable. Stores then fall back to the seed file or fail.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	noop := func() {}
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set")
		return nil, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn", "error", err)
		return nil, noop
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed", "error", err)
		pool.Close()
		return nil, noop
	}
	logger.Info("postgres pool enabled")
	return pool, pool.Close
}

// provideSeed loads faq.seedPath, or returns nil when no seed is configured.
func provideSeed(cfg *config.Config, logger *slog.Logger) (*faqrepo.Seed, error) {
	path := strings.TrimSpace(cfg.FAQ.SeedPath)
	if path == "" {
		return nil, nil
	}
	seed, err := faqrepo.LoadSeed(path)
	if err != nil {
		return nil, err
	}
	logger.Info("faq seed loaded", "path", path, "entries", len(seed.Entries))
	return seed, nil
}

func provideRecordStore(pool *pgxpool.Pool, seed *faqrepo.Seed, logger *slog.Logger) (faq.RecordStore, error) {
	if pool != nil {
		return faqrepo.NewPostgresRepository(pool), nil
	}
	if seed != nil {
		logger.Warn("postgres unavailable, serving faq records from seed file")
		return faqrepo.NewMemoryRepository(seed.Records()...), nil
	}
	return nil, errors.New("faq records need a reachable postgres.dsn or faq.seedPath")
}

func provideMappingStore(cfg *config.Config, pool *pgxpool.Pool, seed *faqrepo.Seed, logger *slog.Logger) (faq.MappingStore, func(), error) {
	noop := func() {}
	switch cfg.Mapping.Backend {
	case config.MappingBackendBolt:
		store, err := idmap.OpenBoltStore(cfg.Mapping.BoltPath)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("bolt mapping store enabled", "path", cfg.Mapping.BoltPath)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close bolt mapping store", "error", err)
			}
		}, nil
	case config.MappingBackendPostgres:
		if pool != nil {
			return idmap.NewPostgresStore(pool), noop, nil
		}
		if seed == nil {
			return nil, noop, errors.New("postgres mapping backend needs a reachable postgres.dsn or faq.seedPath")
		}
		logger.Warn("postgres unavailable, serving vector mappings from seed file")
	case config.MappingBackendMemory:
		if seed == nil {
			return nil, noop, errors.New("memory mapping backend needs faq.seedPath")
		}
	default:
		return nil, noop, fmt.Errorf("unsupported mapping backend %q", cfg.Mapping.Backend)
	}
	return idmap.NewMemoryStore(seed.Mappings()), noop, nil
}

func provideVectorIndex(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (faq.VectorIndex, error) {
	switch cfg.Index.Backend {
	case config.IndexBackendPGVector:
		if pool == nil {
			return nil, errors.New("pgvector index requires a reachable postgres database")
		}
		return vectorindex.NewPGVectorIndex(pool, cfg.Index.PGVector.Table), nil
	case config.IndexBackendFlat:
		var (
			idx *vectorindex.FlatIndex
			err error
		)
		if cfg.Index.ObjectStorage.Key != "" {
			store := cfg.Index.ObjectStorage
			loader, loaderErr := vectorindex.NewObjectLoader(vectorindex.ObjectOptions{
				Endpoint:  store.Endpoint,
				AccessKey: store.AccessKey,
				SecretKey: store.SecretKey,
				Bucket:    store.Bucket,
				Region:    store.Region,
				Key:       store.Key,
			}, logger)
			if loaderErr != nil {
				return nil, loaderErr
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			idx, err = loader.Load(ctx)
		} else {
			idx, err = vectorindex.LoadFile(cfg.Index.SnapshotPath)
		}
		if err != nil {
			return nil, fmt.Errorf("load flat index: %w", err)
		}
		if cfg.Embedding.Provider == config.EmbeddingProviderDeterministic && idx.Dim() != cfg.Embedding.Dimension {
			return nil, fmt.Errorf("index dim %d does not match embedding.dimension %d", idx.Dim(), cfg.Embedding.Dimension)
		}
		logger.Info("flat index loaded", "vectors", idx.Len(), "dim", idx.Dim())
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported index backend %q", cfg.Index.Backend)
	}
}

func provideFAQStore(cfg *config.Config, logger *slog.Logger) (faq.Store, func()) {
	noop := func() {}
	if cfg.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore(), noop
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return faqstore.NewMemoryStore(), noop
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
			client.Close()
		} else {
			logger.Info("faq valkey store enabled", "addr", cfg.Redis.Addr)
			return faqstore.NewValkeyStore(client, "faq"), client.Close
		}
	}
	return faqstore.NewMemoryStore(), noop
}

// provideRecordCache returns the Valkey store as the shared record tier, or
// nil when Valkey is not in use.
func provideRecordCache(store faq.Store) faq.RecordCache {
	if shared, ok := store.(*faqstore.ValkeyStore); ok {
		return shared
	}
	return nil
}

func provideTrendingStore(store faq.Store) faq.TrendingStore {
	return store
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
