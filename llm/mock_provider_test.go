package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// mockProvider 基于 testify/mock 的 Provider
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	return m.Called().String(0)
}

func (m *mockProvider) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	args := m.Called(ctx, messages)
	c, _ := args.Get(0).(*Completion)
	return c, args.Error(1)
}

func (m *mockProvider) Transcribe(ctx context.Context, audio *Audio) (*Transcript, error) {
	args := m.Called(ctx, audio)
	t, _ := args.Get(0).(*Transcript)
	return t, args.Error(1)
}

func (m *mockProvider) Synthesize(ctx context.Context, text string) (*Audio, error) {
	args := m.Called(ctx, text)
	a, _ := args.Get(0).(*Audio)
	return a, args.Error(1)
}
