package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("DOCQUERY_DATABASE_URL", "postgres://localhost/docquery")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 100, cfg.EmbeddingRPM)
		assert.Equal(t, 0, cfg.EmbeddingDailyLimit)
		assert.Equal(t, 60, cfg.SessionTTLMinutes)
		assert.Equal(t, "docquery-archive", cfg.S3Bucket)
	})

	t.Run("reads prefixed variables", func(t *testing.T) {
		t.Setenv("DOCQUERY_DATABASE_URL", "postgres://localhost/docquery")
		t.Setenv("DOCQUERY_PORT", "9090")
		t.Setenv("DOCQUERY_EMBEDDING_DAILY_LIMIT", "2500")
		t.Setenv("DOCQUERY_OPENAI_API_KEY", "sk-test")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, 2500, cfg.EmbeddingDailyLimit)
		assert.True(t, cfg.HasOpenAI())
	})

	t.Run("missing database url fails", func(t *testing.T) {
		t.Setenv("DOCQUERY_DATABASE_URL", "")

		_, err := Load()

		require.Error(t, err)
	})
}

func TestConfig_HasS3(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasS3())

	cfg.S3Endpoint = "http://localhost:9000"
	assert.False(t, cfg.HasS3())

	cfg.S3AccessKey = "key"
	cfg.S3SecretKey = "secret"
	assert.True(t, cfg.HasS3())
}
