package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is read once at startup and handed to constructors.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	LLMProvider   string        `env:"LLM_PROVIDER" envDefault:"vertex" validate:"oneof=vertex openai"`
	GeminiModel   string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	GCPProject    string        `env:"GCP_PROJECT_ID"`
	GCPLocation   string        `env:"GCP_LOCATION" envDefault:"us-central1"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	Temperature   float32       `env:"LLM_TEMPERATURE" envDefault:"0.2" validate:"gte=0,lte=2"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"0s"`

	EmbedProvider string `env:"EMBED_PROVIDER" envDefault:"vertex" validate:"oneof=vertex tei none"`
	EmbedModel    string `env:"EMBED_MODEL" envDefault:"text-embedding-004"`
	TEIURL        string `env:"TEI_URL" envDefault:"http://localhost:8081"`
	HFToken       string `env:"HF_TOKEN"`

	ConversationsDir string `env:"CONVERSATIONS_DIR" envDefault:"conversations"`
	ExportDir        string `env:"EXPORT_DIR" envDefault:"samples"`
	IndexDir         string `env:"INDEX_DIR" envDefault:".index"`
	ExportBucket     string `env:"EXPORT_BUCKET"`

	DefaultMemoryK int `env:"MEMORY_K" envDefault:"12" validate:"min=4,max=50"`

	MongoURI    string `env:"MONGO_URI"`
	MongoDB     string `env:"MONGO_DB" envDefault:"studybuddy"`
	PostgresURI string `env:"POSTGRES_URI"`
	RedisAddr   string `env:"REDIS_ADDR"`

	EmbedCacheTTL    time.Duration `env:"EMBED_CACHE_TTL" envDefault:"24h"`
	EmbedCacheSize   int           `env:"EMBED_CACHE_SIZE" envDefault:"1024" validate:"gt=0"`
	ReplayWorkers    int           `env:"INDEX_REPLAY_WORKERS" envDefault:"2" validate:"gte=0"`
	MetricsNamespace string        `env:"METRICS_NAMESPACE" envDefault:"studybuddy"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.LLMProvider == "vertex" && cfg.GCPProject == "" {
		return Config{}, fmt.Errorf("invalid config: GCP_PROJECT_ID is required for LLM_PROVIDER=vertex")
	}
	if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("invalid config: OPENAI_API_KEY is required for LLM_PROVIDER=openai")
	}
	return cfg, nil
}
