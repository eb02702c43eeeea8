package llm

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/agentchat/llm/retry"
	"github.com/BaSui01/agentchat/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastRetryer(maxRetries int) retry.Retryer {
	return retry.NewBackoffRetryer(&retry.RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}, zap.NewNop())
}

func TestResilientProvider_Name(t *testing.T) {
	inner := new(mockProvider)
	inner.On("Name").Return("groq")

	rp := NewResilientProvider(inner, fastRetryer(1), nil)
	assert.Equal(t, "groq", rp.Name())
	inner.AssertExpectations(t)
}

func TestResilientProvider_CompleteRetriesRetryableErrors(t *testing.T) {
	inner := new(mockProvider)
	unavailable := types.NewProviderUnavailableError("groq", "upstream 503")
	inner.On("Complete", mock.Anything, mock.Anything).Return(nil, unavailable).Twice()
	inner.On("Complete", mock.Anything, mock.Anything).Return(&Completion{Text: "Ahoy"}, nil).Once()

	rp := NewResilientProvider(inner, fastRetryer(3), zap.NewNop())
	c, err := rp.Complete(context.Background(), []Message{{Role: types.RoleUser, Content: "Hello"}})

	require.NoError(t, err)
	assert.Equal(t, "Ahoy", c.Text)
	inner.AssertNumberOfCalls(t, "Complete", 3)
}

func TestResilientProvider_CompleteDoesNotRetryPermanentErrors(t *testing.T) {
	inner := new(mockProvider)
	denied := types.NewProviderUnavailableError("openai", "invalid api key").WithRetryable(false)
	inner.On("Complete", mock.Anything, mock.Anything).Return(nil, denied)

	rp := NewResilientProvider(inner, fastRetryer(3), zap.NewNop())
	_, err := rp.Complete(context.Background(), nil)

	assert.Equal(t, types.ErrProviderUnavailable, types.GetErrorCode(err))
	inner.AssertNumberOfCalls(t, "Complete", 1)
}

func TestResilientProvider_ExhaustedKeepsErrorCode(t *testing.T) {
	inner := new(mockProvider)
	inner.On("Transcribe", mock.Anything, mock.Anything).
		Return(nil, types.NewProviderRateLimitedError("groq", "slow down"))

	rp := NewResilientProvider(inner, fastRetryer(2), zap.NewNop())
	_, err := rp.Transcribe(context.Background(), &Audio{Data: []byte{1}, Format: "wav"})

	assert.Equal(t, types.ErrProviderRateLimited, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
	inner.AssertNumberOfCalls(t, "Transcribe", 3)
}

func TestResilientProvider_SynthesizeIsNotRetried(t *testing.T) {
	inner := new(mockProvider)
	inner.On("Synthesize", mock.Anything, "Ahoy").
		Return(nil, types.NewProviderUnavailableError("openai", "503"))

	rp := NewResilientProvider(inner, fastRetryer(3), zap.NewNop())
	_, err := rp.Synthesize(context.Background(), "Ahoy")

	assert.Error(t, err)
	inner.AssertNumberOfCalls(t, "Synthesize", 1)
}
