package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL"`
	CompletionModel string `envconfig:"COMPLETION_MODEL"`

	// EmbeddingRPM is the provider requests-per-minute budget; the rate-limit
	// backoff interval is derived from it.
	EmbeddingRPM int `envconfig:"EMBEDDING_RPM" default:"100"`
	// EmbeddingDailyLimit caps successful embedding calls per UTC day.
	// 0 disables the ceiling.
	EmbeddingDailyLimit int `envconfig:"EMBEDDING_DAILY_LIMIT" default:"0"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docquery-archive"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// SessionTTLMinutes is how long an unpurged ephemeral session may live
	// before the reaper deletes its vectors.
	SessionTTLMinutes int `envconfig:"SESSION_TTL_MINUTES" default:"60"`

	// Bootstrap: create initial owner and API key on startup
	InitOwnerName string `envconfig:"INIT_OWNER_NAME"`
	InitAPIKey    string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCQUERY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
