package factory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/agentchat/llm"
	"github.com/BaSui01/agentchat/llm/retry"
	"github.com/BaSui01/agentchat/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// Factory Tests
// =============================================================================

type recordedCall struct {
	provider, operation, status string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) RecordProviderCall(provider, operation, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{provider, operation, status})
}

func TestNewProvider_AllVariants(t *testing.T) {
	for _, name := range []string{"openai", "groq", "gemini", "  OpenAI "} {
		t.Run(name, func(t *testing.T) {
			cfg := Config{Provider: name}
			cfg.Gemini.APIKey = "test-key"
			p, err := NewProvider(context.Background(), cfg, zap.NewNop())
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "claude"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini, groq, openai")
}

func TestSupportedProviders(t *testing.T) {
	assert.Equal(t, []string{"gemini", "groq", "openai"}, SupportedProviders())
}

func TestNewProviderFromConfig_RetriesAndRecords(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "Ahoy"},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	cfg := Config{
		Provider: "openai",
		Retry: &retry.RetryPolicy{
			MaxRetries:   2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		},
	}
	cfg.OpenAI.APIKey = "sk-test"
	cfg.OpenAI.BaseURL = srv.URL

	rec := &fakeRecorder{}
	p, err := NewProviderFromConfig(context.Background(), cfg, rec, zap.NewNop())
	require.NoError(t, err)

	c, err := p.Complete(context.Background(), []llm.Message{
		{Role: types.RoleSystem, Content: "You are a pirate"},
		{Role: types.RoleUser, Content: "Hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ahoy", c.Text)
	assert.Equal(t, 2, attempts)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, recordedCall{"openai", "complete", "success"}, rec.calls[0])
}

func TestNewProviderFromConfig_RecordsErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := Config{Provider: "groq", Retry: &retry.RetryPolicy{MaxRetries: 0}}
	cfg.Groq.APIKey = "gsk-test"
	cfg.Groq.BaseURL = srv.URL

	rec := &fakeRecorder{}
	p, err := NewProviderFromConfig(context.Background(), cfg, rec, nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []llm.Message{{Role: types.RoleUser, Content: "Hello"}})
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderRateLimited, types.GetErrorCode(err))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, string(types.ErrProviderRateLimited), rec.calls[0].status)
}
