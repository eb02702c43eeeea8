package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/llm/providers"
	"github.com/BaSui01/agentchat/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(providers.OpenAIConfig{}, zap.NewNop())

	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "https://api.openai.com", p.Cfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", p.Cfg.Chat.Model)
	assert.Equal(t, "gpt-4o-transcribe", p.Cfg.Speech.TranscriptionModel)
	assert.Equal(t, "gpt-4o-mini-tts", p.Cfg.Speech.SpeechModel)
	assert.Equal(t, "coral", p.Cfg.Speech.Voice)
	assert.Equal(t, "mp3", p.Cfg.Speech.Format)
}

func TestOpenAIProvider_OrganizationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-1", r.Header.Get("Authorization"))
		assert.Equal(t, "org-9", r.Header.Get("OpenAI-Organization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": "hi"}}},
		})
	}))
	defer srv.Close()

	cfg := providers.OpenAIConfig{Organization: "org-9"}
	cfg.APIKey = "sk-1"
	cfg.BaseURL = srv.URL

	p := NewOpenAIProvider(cfg, nil)
	c, err := p.Complete(context.Background(), []llm.Message{{Role: types.RoleUser, Content: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hi", c.Text)
	assert.Equal(t, "openai", c.Provider)
}

// Integration test: 需要真实 API Key
func TestOpenAIProvider_Integration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}
	cfg := providers.OpenAIConfig{}
	cfg.APIKey = apiKey
	p := NewOpenAIProvider(cfg, zap.NewNop())

	c, err := p.Complete(context.Background(), []llm.Message{
		{Role: types.RoleSystem, Content: "Reply with one word."},
		{Role: types.RoleUser, Content: "Say hello"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.Text)
}
