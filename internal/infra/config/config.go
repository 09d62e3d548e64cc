package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	FAQ       FAQConfig       `yaml:"faq"`
	Index     IndexConfig     `yaml:"index"`
	Mapping   MappingConfig   `yaml:"mapping"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseUrl"`
	Model          string        `yaml:"model"`
	EmbeddingModel string        `yaml:"embeddingModel"`
	Temperature    float32       `yaml:"temperature"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"maxAttempts"`
	BaseBackoff    time.Duration `yaml:"baseBackoff"`
}

// EmbeddingConfig picks the query embedder.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Dimension int    `yaml:"dimension"`
}

// FAQConfig controls the retrieval and answering pipeline.
type FAQConfig struct {
	MinQueryLength      int           `yaml:"minQueryLength"`
	MaxQueryLength      int           `yaml:"maxQueryLength"`
	TopK                int           `yaml:"topK"`
	SimilarityThreshold float64       `yaml:"similarityThreshold"`
	ContextLimit        int           `yaml:"contextLimit"`
	CacheSize           int           `yaml:"cacheSize"`
	Prompt              string        `yaml:"prompt"`
	FallbackAnswer      string        `yaml:"fallbackAnswer"`
	TopRecommendations  int           `yaml:"topRecommendations"`
	SharedCacheTTL      time.Duration `yaml:"sharedCacheTtl"`
	// SeedPath is a YAML corpus loaded into the memory record and mapping
	// stores when Postgres is not used.
	SeedPath string `yaml:"seedPath"`
}

// IndexConfig selects the nearest-neighbour index backend.
type IndexConfig struct {
	Backend       string              `yaml:"backend"`
	SnapshotPath  string              `yaml:"snapshotPath"`
	ObjectStorage ObjectStorageConfig `yaml:"objectStorage"`
	PGVector      PGVectorConfig      `yaml:"pgvector"`
}

// ObjectStorageConfig points at an index snapshot held in S3-compatible storage.
type ObjectStorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Key       string `yaml:"key"`
}

// PGVectorConfig names the table holding vector entries.
type PGVectorConfig struct {
	Table string `yaml:"table"`
}

// MappingConfig selects where vector IDs are translated to row IDs.
type MappingConfig struct {
	Backend  string `yaml:"backend"`
	BoltPath string `yaml:"boltPath"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AuthConfig enables bearer token checks on the API.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
}

const (
	IndexBackendFlat     = "flat"
	IndexBackendPGVector = "pgvector"

	MappingBackendPostgres = "postgres"
	MappingBackendBolt     = "bolt"
	MappingBackendMemory   = "memory"

	EmbeddingProviderChatGPT       = "chatgpt"
	EmbeddingProviderDeterministic = "deterministic"
)

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = parsed
		}
	}
	if v := os.Getenv("LLM_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("LLM_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.BaseBackoff = parsed
		}
	}
	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("EMBEDDING_DIMENSION"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimension = parsed
		}
	}
	if v := os.Getenv("FAQ_MIN_QUERY_LENGTH"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.MinQueryLength = parsed
		}
	}
	if v := os.Getenv("FAQ_MAX_QUERY_LENGTH"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.MaxQueryLength = parsed
		}
	}
	if v := os.Getenv("FAQ_TOP_K"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.TopK = parsed
		}
	}
	if v := os.Getenv("FAQ_SIMILARITY_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FAQ.SimilarityThreshold = parsed
		}
	}
	if v := os.Getenv("FAQ_CONTEXT_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.ContextLimit = parsed
		}
	}
	if v := os.Getenv("FAQ_CACHE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.CacheSize = parsed
		}
	}
	if v := os.Getenv("FAQ_PROMPT"); v != "" {
		cfg.FAQ.Prompt = v
	}
	if v := os.Getenv("FAQ_FALLBACK_ANSWER"); v != "" {
		cfg.FAQ.FallbackAnswer = v
	}
	if v := os.Getenv("FAQ_RECOMMENDATIONS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.TopRecommendations = parsed
		}
	}
	if v := os.Getenv("FAQ_SHARED_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.FAQ.SharedCacheTTL = parsed
		}
	}
	if v := os.Getenv("FAQ_SEED_PATH"); v != "" {
		cfg.FAQ.SeedPath = v
	}
	if v := os.Getenv("INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = v
	}
	if v := os.Getenv("INDEX_SNAPSHOT_PATH"); v != "" {
		cfg.Index.SnapshotPath = v
	}
	if v := os.Getenv("INDEX_S3_ENDPOINT"); v != "" {
		cfg.Index.ObjectStorage.Endpoint = v
	}
	if v := os.Getenv("INDEX_S3_ACCESS_KEY"); v != "" {
		cfg.Index.ObjectStorage.AccessKey = v
	}
	if v := os.Getenv("INDEX_S3_SECRET_KEY"); v != "" {
		cfg.Index.ObjectStorage.SecretKey = v
	}
	if v := os.Getenv("INDEX_S3_BUCKET"); v != "" {
		cfg.Index.ObjectStorage.Bucket = v
	}
	if v := os.Getenv("INDEX_S3_REGION"); v != "" {
		cfg.Index.ObjectStorage.Region = v
	}
	if v := os.Getenv("INDEX_S3_KEY"); v != "" {
		cfg.Index.ObjectStorage.Key = v
	}
	if v := os.Getenv("INDEX_PGVECTOR_TABLE"); v != "" {
		cfg.Index.PGVector.Table = v
	}
	if v := os.Getenv("MAPPING_BACKEND"); v != "" {
		cfg.Mapping.Backend = v
	}
	if v := os.Getenv("MAPPING_BOLT_PATH"); v != "" {
		cfg.Mapping.BoltPath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		cfg.Auth.Enabled = parseBool(v)
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
			Timeout:        60 * time.Second,
			MaxAttempts:    3,
			BaseBackoff:    200 * time.Millisecond,
		},
		Embedding: EmbeddingConfig{
			Provider:  EmbeddingProviderChatGPT,
			Dimension: 384,
		},
		FAQ: FAQConfig{
			MinQueryLength:      5,
			MaxQueryLength:      500,
			TopK:                5,
			SimilarityThreshold: 1.2,
			ContextLimit:        10000,
			CacheSize:           1000,
			Prompt:              "You are a helpful assistant. Answer questions based only on the provided context. If the context is not relevant, respond with 'Sorry, I don't have an answer to that question.'",
			FallbackAnswer:      "Sorry, I don't have an answer to that question.",
			TopRecommendations:  10,
			SharedCacheTTL:      6 * time.Hour,
		},
		Index: IndexConfig{
			Backend:      IndexBackendFlat,
			SnapshotPath: "data/faq_index.vec",
			PGVector: PGVectorConfig{
				Table: "faq_vectors",
			},
		},
		Mapping: MappingConfig{
			Backend:  MappingBackendPostgres,
			BoltPath: "data/vector_mapping.db",
		},
		Postgres: PostgresConfig{
			DSN:      "",
			MaxConns: 4,
			MinConns: 0,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm.timeout must be positive")
	}
	if c.LLM.MaxAttempts <= 0 {
		return errors.New("llm.maxAttempts must be positive")
	}
	if c.LLM.BaseBackoff < 0 {
		return errors.New("llm.baseBackoff cannot be negative")
	}
	switch c.Embedding.Provider {
	case EmbeddingProviderChatGPT:
		if strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
			return errors.New("llm.embeddingModel cannot be empty")
		}
	case EmbeddingProviderDeterministic:
		if c.Embedding.Dimension <= 0 {
			return errors.New("embedding.dimension must be positive")
		}
	default:
		return fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider)
	}
	if c.FAQ.MinQueryLength <= 0 {
		return errors.New("faq.minQueryLength must be positive")
	}
	if c.FAQ.MaxQueryLength < c.FAQ.MinQueryLength {
		return errors.New("faq.maxQueryLength cannot be below faq.minQueryLength")
	}
	if c.FAQ.TopK <= 0 {
		return errors.New("faq.topK must be positive")
	}
	if c.FAQ.SimilarityThreshold < 0 {
		return errors.New("faq.similarityThreshold must be non-negative")
	}
	if c.FAQ.ContextLimit <= 0 {
		return errors.New("faq.contextLimit must be positive")
	}
	if c.FAQ.CacheSize <= 0 {
		return errors.New("faq.cacheSize must be positive")
	}
	if strings.TrimSpace(c.FAQ.Prompt) == "" {
		return errors.New("faq.prompt cannot be empty")
	}
	if strings.TrimSpace(c.FAQ.FallbackAnswer) == "" {
		return errors.New("faq.fallbackAnswer cannot be empty")
	}
	if c.FAQ.TopRecommendations < 0 {
		return errors.New("faq.topRecommendations cannot be negative")
	}
	if c.FAQ.SharedCacheTTL < 0 {
		return errors.New("faq.sharedCacheTtl cannot be negative")
	}
	switch c.Index.Backend {
	case IndexBackendFlat:
		if strings.TrimSpace(c.Index.SnapshotPath) == "" && strings.TrimSpace(c.Index.ObjectStorage.Key) == "" {
			return errors.New("index.snapshotPath or index.objectStorage.key is required for the flat index")
		}
		if c.Index.ObjectStorage.Key != "" && (c.Index.ObjectStorage.Endpoint == "" || c.Index.ObjectStorage.Bucket == "") {
			return errors.New("index.objectStorage.endpoint and bucket are required when a key is set")
		}
	case IndexBackendPGVector:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("postgres.dsn is required for the pgvector index")
		}
		if !isIdentifier(c.Index.PGVector.Table) {
			return fmt.Errorf("index.pgvector.table %q is not a valid identifier", c.Index.PGVector.Table)
		}
	default:
		return fmt.Errorf("index.backend %q is not supported", c.Index.Backend)
	}
	switch c.Mapping.Backend {
	case MappingBackendPostgres:
	case MappingBackendMemory:
		if strings.TrimSpace(c.FAQ.SeedPath) == "" {
			return errors.New("faq.seedPath is required when mapping.backend is memory")
		}
	case MappingBackendBolt:
		if strings.TrimSpace(c.Mapping.BoltPath) == "" {
			return errors.New("mapping.boltPath cannot be empty when mapping.backend is bolt")
		}
	default:
		return fmt.Errorf("mapping.backend %q is not supported", c.Mapping.Backend)
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr cannot be empty when redis cache is enabled")
	}
	if c.Auth.Enabled && len(c.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwtSecret must be at least 16 bytes when auth is enabled")
	}
	return nil
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
