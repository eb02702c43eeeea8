package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentchat/agent/artifacts"
	"github.com/BaSui01/agentchat/config"
	"github.com/BaSui01/agentchat/llm/providers"
)

func TestProviderConfig_DefaultsKept(t *testing.T) {
	cfg := config.DefaultLLMConfig()
	cfg.APIKey = "sk-test"

	got := providerConfig(cfg)

	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, "sk-test", got.OpenAI.APIKey)
	def := providers.DefaultOpenAIConfig()
	assert.Equal(t, def.BaseURL, got.OpenAI.BaseURL)
	assert.Equal(t, def.Chat.Model, got.OpenAI.Chat.Model)
	assert.Equal(t, def.Speech.Voice, got.OpenAI.Speech.Voice)
	assert.Equal(t, 3, got.Retry.MaxRetries)
	assert.Equal(t, time.Second, got.Retry.InitialDelay)
	assert.Equal(t, 30*time.Second, got.Retry.MaxDelay)
	// 未选中的变体不带 Key
	assert.Empty(t, got.Groq.APIKey)
}

func TestProviderConfig_Overlay(t *testing.T) {
	cfg := config.LLMConfig{
		Provider:     "groq",
		APIKey:       "gsk",
		BaseURL:      "http://localhost:9999",
		Model:        "llama-test",
		Temperature:  0.2,
		MaxTokens:    256,
		Voice:        "Celeste-PlayAI",
		SpeechFormat: "mp3",
		Timeout:      5 * time.Second,
		MaxRetries:   0,
	}

	got := providerConfig(cfg)

	assert.Equal(t, "gsk", got.Groq.APIKey)
	assert.Equal(t, "http://localhost:9999", got.Groq.BaseURL)
	assert.Equal(t, 5*time.Second, got.Groq.Timeout)
	assert.Equal(t, "llama-test", got.Groq.Chat.Model)
	assert.InDelta(t, 0.2, got.Groq.Chat.Temperature, 1e-6)
	assert.Equal(t, 256, got.Groq.Chat.MaxTokens)
	assert.Equal(t, "Celeste-PlayAI", got.Groq.Speech.Voice)
	assert.Equal(t, "mp3", got.Groq.Speech.Format)
	// 未设置的字段保留变体默认值
	assert.Equal(t, providers.DefaultGroqConfig().Speech.TranscriptionModel, got.Groq.Speech.TranscriptionModel)
	assert.Equal(t, 0, got.Retry.MaxRetries)
}

func TestProviderConfig_Gemini(t *testing.T) {
	got := providerConfig(config.LLMConfig{Provider: "Gemini", APIKey: "g-key", SpeechInstructions: "speak slowly"})

	assert.Equal(t, "g-key", got.Gemini.APIKey)
	assert.Equal(t, "speak slowly", got.Gemini.Speech.Instructions)
	assert.Equal(t, providers.DefaultGeminiConfig().Chat.Model, got.Gemini.Chat.Model)
}

func TestArtifactsConfig(t *testing.T) {
	got := artifactsConfig(config.ArtifactsConfig{
		Type:         "s3",
		Bucket:       "voices",
		Prefix:       "chat/",
		Region:       "us-east-1",
		Endpoint:     "http://minio:9000",
		UsePathStyle: true,
	})

	assert.Equal(t, artifacts.StoreTypeS3, got.Type)
	assert.Equal(t, "voices", got.S3.Bucket)
	assert.Equal(t, "chat/", got.S3.Prefix)
	assert.Equal(t, "http://minio:9000", got.S3.Endpoint)
	assert.True(t, got.S3.UsePathStyle)
}

func TestPoolConfig(t *testing.T) {
	got := poolConfig(config.DatabaseConfig{MaxOpenConns: 7, ConnMaxLifetime: time.Minute})

	assert.Equal(t, 7, got.MaxOpenConns)
	assert.Equal(t, time.Minute, got.ConnMaxLifetime)
	assert.Equal(t, 7, got.MaxIdleConns, "idle clamped to open")
	assert.NoError(t, got.Validate())
}

func TestOpenBackends_Memory(t *testing.T) {
	cfg := config.DefaultConfig()

	backends, err := openBackends(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, backends.DB)
	assert.Nil(t, backends.Redis)
}

func TestOpenBackends_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.Store.Type = "redis"
	cfg.Redis.Addr = mr.Addr()

	backends, err := openBackends(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, backends.Redis)
	defer backends.Redis.Close()

	assert.NoError(t, backends.Redis.Ping(context.Background()).Err())
}

func TestOpenBackends_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.DefaultConfig()
	cfg.Store.Type = "redis"
	cfg.Redis.Addr = addr

	_, err := openBackends(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenBackends_SQLiteWithMigrations(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Type = "database"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = t.TempDir() + "/agentchat.db"
	cfg.Database.AutoMigrate = true

	backends, err := openBackends(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, backends.DB)
	defer backends.DB.Close()

	assert.True(t, backends.DB.DB().Migrator().HasTable("agents"))
	assert.True(t, backends.DB.DB().Migrator().HasTable("messages"))
}
